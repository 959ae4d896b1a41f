package traverse

import (
	"context"
	"log/slog"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
)

// SubscriptionTraverser walks a subscription's loaded domain model instance
// (§4.1: "Subscription loads a domain model instance and dumps it"). The
// domain model registry lookup and lifecycle-specialized loading are an
// external collaborator's responsibility — this traverser only requires that
// entity already implements [Dumper] (e.g. by loading its specialized model
// and calling model_dump()-equivalent serialization upstream, as
// [ModelLoadError] and [ProductNotInRegistryError] document for the case
// where that load fails).
type SubscriptionTraverser struct{ Base }

// NewSubscriptionTraverser returns the built-in SUBSCRIPTION traverser.
func NewSubscriptionTraverser() *SubscriptionTraverser {
	return &SubscriptionTraverser{Base{EntityLabel: "Subscription"}}
}

// GetFields implements Traverser. It delegates to Base.GetFields but
// additionally logs with the ModelLoadError/ProductNotInRegistryError kinds
// when entity.Dump() itself surfaces them, distinguishing the two failure
// modes in the log line per §7's error taxonomy.
func (t *SubscriptionTraverser) GetFields(ctx context.Context, entity Dumper, pkName, rootName string) ([]model.ExtractedField, error) {
	_ = ctx
	data, err := entity.Dump()
	if err != nil {
		switch err.(type) {
		case *ProductNotInRegistryError:
			slog.Error("traverse: subscription product not in registry", "err", err)
		default:
			slog.Error("traverse: subscription model load failed", "err", err)
		}
		return nil, nil
	}
	if data == nil {
		return nil, nil
	}
	return t.Base.flattenSorted(data, rootName), nil
}
