// Package llm holds the tool-definition vocabulary shared between the MCP
// host and the tools it exposes to agent callers.
//
// The search core has no chat-completion surface of its own — agents reach
// it exclusively through MCP tool calls — so this package is narrowed to the
// one type that crosses that boundary.
package llm

// ToolDefinition describes a tool that can be offered to an LLM.
type ToolDefinition struct {
	// Name is the tool's unique identifier.
	Name string

	// Description explains what the tool does (included in LLM prompts).
	Description string

	// Parameters is the JSON Schema describing the tool's input parameters.
	Parameters map[string]any

	// EstimatedDurationMs is the declared p50 latency for budget tier assignment.
	EstimatedDurationMs int

	// MaxDurationMs is the declared p99 upper bound in milliseconds. It is
	// advertised to callers; no timeout is derived from it.
	MaxDurationMs int

	// Idempotent indicates whether the tool can be safely retried.
	Idempotent bool

	// CacheableSeconds is how long results can be cached (0 = never).
	CacheableSeconds int
}
