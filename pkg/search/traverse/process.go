package traverse

import "sort"

// processExcludedFields lists the process column attrs to leave out of a
// process's Dump map, to avoid overloading the index with verbose operational detail
// (§4.1: "We are explicitly excluding 'traceback' and 'steps'...").
var processExcludedFields = map[string]bool{
	"traceback": true,
	"steps":     true,
}

// ProcessTraverser flattens a process's Dump map, which carries its column
// attrs plus its workflow name and related subscriptions (sorted with
// [SortSubscriptionDumps]). It adds and removes no fields itself.
type ProcessTraverser struct{ Base }

// NewProcessTraverser returns the built-in PROCESS traverser.
func NewProcessTraverser() *ProcessTraverser {
	return &ProcessTraverser{Base{EntityLabel: "Process"}}
}

// IsExcludedProcessField reports whether attr is one of the fields to leave
// out of a process's Dump map. ProcessTraverser does not check it; it is for
// callers building that map.
func IsExcludedProcessField(attr string) bool {
	return processExcludedFields[attr]
}

// SortSubscriptionDumps sorts a slice of already-dumped subscription maps by
// their "subscription_id" key, matching the original ordering
// ("sorted(proc.subscriptions, key=lambda s: s.subscription_id)").
func SortSubscriptionDumps(dumps []map[string]any) []map[string]any {
	sorted := make([]map[string]any, len(dumps))
	copy(sorted, dumps)
	sort.Slice(sorted, func(i, j int) bool {
		idI, _ := sorted[i]["subscription_id"].(string)
		idJ, _ := sorted[j]["subscription_id"].(string)
		return idI < idJ
	})
	return sorted
}
