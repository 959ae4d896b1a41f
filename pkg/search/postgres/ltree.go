package postgres

import (
	"context"
	"fmt"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/validate"
)

// ValidateLquery implements validate.LtreeCaster. It runs the cast inside a
// transaction that is always rolled back, so a malformed pattern's syntax
// error never leaves any trace and a well-formed one never commits anything
// — the cast itself is the only thing under test.
func (s *Store) ValidateLquery(ctx context.Context, pattern string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: validate lquery: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT $1::lquery", pattern); err != nil {
		return validate.InvalidLtreePatternError{Pattern: pattern, Cause: err}
	}
	return nil
}
