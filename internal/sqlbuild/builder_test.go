package sqlbuild_test

import (
	"testing"

	"github.com/workfloworchestrator/orchestrator-core-sub001/internal/sqlbuild"
)

func TestBuilderArgPlaceholdersIncrement(t *testing.T) {
	b := sqlbuild.New()
	if ph := b.Arg("active"); ph != "$1" {
		t.Errorf("first placeholder = %q, want $1", ph)
	}
	if ph := b.Arg(42); ph != "$2" {
		t.Errorf("second placeholder = %q, want $2", ph)
	}
	args := b.Args()
	if len(args) != 2 || args[0] != "active" || args[1] != 42 {
		t.Errorf("unexpected args: %#v", args)
	}
	if b.Len() != 2 {
		t.Errorf("Len() = %d, want 2", b.Len())
	}
}
