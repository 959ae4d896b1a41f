package validate_test

import (
	"context"
	"testing"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/filter"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/validate"
)

func paths() map[string]model.FieldKind {
	return map[string]model.FieldKind{
		"subscription.status":       model.FieldKindString,
		"subscription.price":        model.FieldKindInteger,
		"subscription.created_date": model.FieldKindDatetime,
	}
}

func TestValidateAcceptsCompatibleStringCondition(t *testing.T) {
	tree := filter.PathFilter{Path: "subscription.status", Condition: filter.StringCondition{Op: filter.StringEQ, Value: "active"}}
	if err := validate.Validate(context.Background(), model.EntityTypeSubscription, tree, paths(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownPath(t *testing.T) {
	tree := filter.PathFilter{Path: "subscription.nonexistent", Condition: filter.StringCondition{Op: filter.StringEQ, Value: "x"}}
	err := validate.Validate(context.Background(), model.EntityTypeSubscription, tree, paths(), nil)
	if _, ok := err.(validate.PathNotFoundError); !ok {
		t.Fatalf("expected PathNotFoundError, got %v", err)
	}
}

func TestValidateRejectsUnknownPathWithSuggestion(t *testing.T) {
	tree := filter.PathFilter{Path: "subscription.statu", Condition: filter.StringCondition{Op: filter.StringEQ, Value: "x"}}
	err := validate.Validate(context.Background(), model.EntityTypeSubscription, tree, paths(), nil)
	notFound, ok := err.(validate.PathNotFoundError)
	if !ok {
		t.Fatalf("expected PathNotFoundError, got %v", err)
	}
	if notFound.Suggestion != "subscription.status" {
		t.Errorf("Suggestion = %q, want %q", notFound.Suggestion, "subscription.status")
	}
}

func TestValidateRejectsWrongEntityPrefix(t *testing.T) {
	tree := filter.PathFilter{Path: "product.status", Condition: filter.StringCondition{Op: filter.StringEQ, Value: "active"}}
	err := validate.Validate(context.Background(), model.EntityTypeSubscription, tree, paths(), nil)
	if _, ok := err.(validate.InvalidEntityPrefixError); !ok {
		t.Fatalf("expected InvalidEntityPrefixError, got %v", err)
	}
}

func TestValidateRejectsIncompatibleType(t *testing.T) {
	tree := filter.PathFilter{Path: "subscription.status", Condition: filter.NumericCondition{Op: filter.NumericEQ, Kind: filter.NumericKindInteger, Value: "1"}}
	err := validate.Validate(context.Background(), model.EntityTypeSubscription, tree, paths(), nil)
	if _, ok := err.(validate.IncompatibleFilterTypeError); !ok {
		t.Fatalf("expected IncompatibleFilterTypeError, got %v", err)
	}
}

func TestValidateWalksGroupChildren(t *testing.T) {
	tree := filter.Group{Op: filter.And, Children: []filter.Tree{
		filter.PathFilter{Path: "subscription.status", Condition: filter.StringCondition{Op: filter.StringEQ, Value: "active"}},
		filter.PathFilter{Path: "subscription.nonexistent", Condition: filter.StringCondition{Op: filter.StringEQ, Value: "x"}},
	}}
	err := validate.Validate(context.Background(), model.EntityTypeSubscription, tree, paths(), nil)
	if _, ok := err.(validate.PathNotFoundError); !ok {
		t.Fatalf("expected PathNotFoundError from nested child, got %v", err)
	}
}

type fakeCaster struct{ err error }

func (c fakeCaster) ValidateLquery(_ context.Context, _ string) error { return c.err }

func TestValidateChecksLtreePatternViaCaster(t *testing.T) {
	tree := filter.PathFilter{Condition: filter.LtreeCondition{Op: filter.LtreeMatchesLquery, Value: "subscription.*"}}
	caster := fakeCaster{err: errBadPattern}
	err := validate.Validate(context.Background(), model.EntityTypeSubscription, tree, paths(), caster)
	if _, ok := err.(validate.InvalidLtreePatternError); !ok {
		t.Fatalf("expected InvalidLtreePatternError, got %v", err)
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errBadPattern = testError("bad pattern")
