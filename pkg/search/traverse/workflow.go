package traverse

import (
	"log/slog"
	"sort"
	"strings"
)

// WorkflowTraverser flattens a workflow's Dump map, which carries its column
// attrs plus, for each associated product with a tag, a nested reference
// keyed by the lowercased tag, as built by [BuildProductReferences]. In those
// references nested dict-valued fields of the product's own dump are dropped
// — only top-level scalar/marker fields are kept, since a workflow's index
// entry should summarize its products, not fully re-embed them. The
// traverser itself adds and removes no fields.
type WorkflowTraverser struct{ Base }

// NewWorkflowTraverser returns the built-in WORKFLOW traverser.
func NewWorkflowTraverser() *WorkflowTraverser {
	return &WorkflowTraverser{Base{EntityLabel: "Workflow"}}
}

// ProductReference is one workflow-associated product, as seen by a
// WorkflowTraverser.
type ProductReference struct {
	Name string
	Tag  string
	Dump map[string]any
}

// BuildProductReferences renders a workflow's associated products (sorted by
// name, as in the original) into the "<tag>" keyed entries merged into the
// workflow's own dump map. Products without a tag are skipped and logged.
func BuildProductReferences(products []ProductReference) map[string]any {
	sorted := make([]ProductReference, len(products))
	copy(sorted, products)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	refs := make(map[string]any, len(sorted))
	for _, p := range sorted {
		if p.Tag == "" {
			slog.Warn("traverse: workflow has an associated product without a tag", "product_name", p.Name)
			continue
		}
		refs[strings.ToLower(p.Tag)] = topLevelScalarsOnly(p.Dump)
	}
	return refs
}

// topLevelScalarsOnly drops nested-map-valued fields, keeping only
// top-level scalar/marker entries — the workflow reference only needs a flat
// summary of the product, not its full recursive shape.
func topLevelScalarsOnly(dump map[string]any) map[string]any {
	out := make(map[string]any, len(dump))
	for k, v := range dump {
		if _, isMap := v.(map[string]any); isMap {
			continue
		}
		out[k] = v
	}
	return out
}
