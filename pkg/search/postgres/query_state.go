package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/filter"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/model"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/page"
	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/query"
)

// stateCtx gives SaveQueryState/LoadQueryState a background context, since
// page.Store (§4.8) predates context plumbing in its two call sites — every
// other Store method threads ctx through explicitly.
var stateCtx = context.Background()

// SaveQueryState implements page.Store. It upserts the given state's
// parameters (filters included, via the JSON envelope below) and resolved
// embedding so a later page request reuses exactly the same ranking inputs.
func (s *Store) SaveQueryState(state page.QueryState) error {
	paramsJSON, err := marshalSearchQuery(state.Parameters)
	if err != nil {
		return fmt.Errorf("postgres: save query state: %w", err)
	}

	var embedding any
	if len(state.QueryEmbedding) > 0 {
		embedding = pgvector.NewVector(state.QueryEmbedding)
	}

	const q = `
		INSERT INTO search_queries (query_id, entity_type, parameters, query_embedding, retriever_strategy, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (query_id) DO UPDATE SET
		    entity_type        = EXCLUDED.entity_type,
		    parameters         = EXCLUDED.parameters,
		    query_embedding    = EXCLUDED.query_embedding,
		    retriever_strategy = EXCLUDED.retriever_strategy`

	if _, err := s.pool.Exec(stateCtx, q,
		state.QueryID, state.EntityType, paramsJSON, embedding, string(state.RetrieverStrategy),
	); err != nil {
		return fmt.Errorf("postgres: save query state: %w", err)
	}
	return nil
}

// LoadQueryState implements page.Store. It returns page.QueryStateNotFoundError
// when queryID has no matching row.
func (s *Store) LoadQueryState(queryID uuid.UUID) (page.QueryState, error) {
	const q = `
		SELECT entity_type, parameters, query_embedding, retriever_strategy
		FROM   search_queries
		WHERE  query_id = $1`

	var (
		entityType string
		paramsJSON []byte
		embedding  *pgvector.Vector
		strategy   string
	)
	err := s.pool.QueryRow(stateCtx, q, queryID).Scan(&entityType, &paramsJSON, &embedding, &strategy)
	if errors.Is(err, pgx.ErrNoRows) {
		return page.QueryState{}, page.QueryStateNotFoundError{QueryID: queryID}
	}
	if err != nil {
		return page.QueryState{}, fmt.Errorf("postgres: load query state: %w", err)
	}

	params, err := unmarshalSearchQuery(paramsJSON)
	if err != nil {
		return page.QueryState{}, fmt.Errorf("postgres: load query state: %w", err)
	}

	state := page.QueryState{
		QueryID:           queryID,
		EntityType:        entityType,
		Parameters:        params,
		RetrieverStrategy: query.RetrieverStrategy(strategy),
	}
	if embedding != nil {
		state.QueryEmbedding = embedding.Slice()
	}
	return state, nil
}

// searchQueryWire is the JSON-persisted shape of a query.SearchQuery. Filters
// is re-expressed as a treeEnvelope since filter.Tree/filter.Condition are
// discriminated-union interfaces with no JSON methods of their own — that
// concern belongs to whichever layer actually persists them, not to the
// filter package.
type searchQueryWire struct {
	EntityType string        `json:"entity_type"`
	Filters    *treeEnvelope `json:"filters,omitempty"`
	QueryText  string        `json:"query_text"`
	Retriever  string        `json:"retriever"`
	Limit      int           `json:"limit"`
}

func marshalSearchQuery(q query.SearchQuery) ([]byte, error) {
	wire := searchQueryWire{
		EntityType: string(q.EntityType),
		QueryText:  q.QueryText,
		Retriever:  string(q.Retriever),
		Limit:      q.Limit,
	}
	if q.Filters != nil {
		env, err := encodeTree(q.Filters)
		if err != nil {
			return nil, err
		}
		wire.Filters = env
	}
	return json.Marshal(wire)
}

func unmarshalSearchQuery(raw []byte) (query.SearchQuery, error) {
	var wire searchQueryWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return query.SearchQuery{}, fmt.Errorf("decode search query: %w", err)
	}
	q := query.SearchQuery{
		EntityType: model.EntityType(wire.EntityType),
		QueryText:  wire.QueryText,
		Retriever:  query.RetrieverStrategy(wire.Retriever),
		Limit:      wire.Limit,
	}
	if wire.Filters != nil {
		tree, err := decodeTree(*wire.Filters)
		if err != nil {
			return query.SearchQuery{}, err
		}
		q.Filters = tree
	}
	return q, nil
}

// DecodeFilterTreeJSON decodes a filter tree from its discriminated-union
// JSON envelope (the same wire shape persisted by SaveQueryState), for use by
// callers that accept filter trees as JSON — notably the MCP tool surface.
func DecodeFilterTreeJSON(raw []byte) (filter.Tree, error) {
	var env treeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("postgres: decode filter tree: %w", err)
	}
	return decodeTree(env)
}

// EncodeFilterTreeJSON encodes a filter tree into its discriminated-union
// JSON envelope, the inverse of [DecodeFilterTreeJSON].
func EncodeFilterTreeJSON(t filter.Tree) ([]byte, error) {
	env, err := encodeTree(t)
	if err != nil {
		return nil, fmt.Errorf("postgres: encode filter tree: %w", err)
	}
	return json.Marshal(env)
}

// treeEnvelope is the discriminated-union JSON shape for filter.Tree: either
// a "path" leaf (PathFilter) or a "group" interior node (Group).
type treeEnvelope struct {
	Kind string `json:"kind"` // "path" | "group"

	// path leaf
	Path      string             `json:"path,omitempty"`
	ValueKind string             `json:"value_kind,omitempty"`
	Condition *conditionEnvelope `json:"condition,omitempty"`

	// group interior node
	Op       string         `json:"op,omitempty"`
	Children []treeEnvelope `json:"children,omitempty"`
}

// conditionEnvelope is the discriminated-union JSON shape for
// filter.Condition.
type conditionEnvelope struct {
	Kind  string `json:"kind"` // "equality" | "string" | "numeric" | "date" | "ltree"
	Op    string `json:"op"`
	Value string `json:"value,omitempty"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	// NumericKind only, for the "numeric" kind.
	NumericKind string `json:"numeric_kind,omitempty"`
}

func encodeCondition(c filter.Condition) (conditionEnvelope, error) {
	switch v := c.(type) {
	case filter.EqualityCondition:
		return conditionEnvelope{Kind: "equality", Op: string(v.Op), Value: v.Value}, nil
	case filter.StringCondition:
		return conditionEnvelope{Kind: "string", Op: string(v.Op), Value: v.Value}, nil
	case filter.NumericCondition:
		return conditionEnvelope{
			Kind: "numeric", Op: string(v.Op), Value: v.Value, Start: v.Start, End: v.End,
			NumericKind: string(v.Kind),
		}, nil
	case filter.DateCondition:
		return conditionEnvelope{Kind: "date", Op: string(v.Op), Value: v.Value, Start: v.Start, End: v.End}, nil
	case filter.LtreeCondition:
		return conditionEnvelope{Kind: "ltree", Op: string(v.Op), Value: v.Value}, nil
	default:
		return conditionEnvelope{}, fmt.Errorf("postgres: unknown condition type %T", c)
	}
}

func decodeCondition(e conditionEnvelope) (filter.Condition, error) {
	switch e.Kind {
	case "equality":
		return filter.EqualityCondition{Op: filter.EqualityOp(e.Op), Value: e.Value}, nil
	case "string":
		return filter.StringCondition{Op: filter.StringOp(e.Op), Value: e.Value}, nil
	case "numeric":
		return filter.NumericCondition{
			Op: filter.NumericOp(e.Op), Kind: filter.NumericKind(e.NumericKind),
			Value: e.Value, Start: e.Start, End: e.End,
		}, nil
	case "date":
		return filter.DateCondition{Op: filter.DateOp(e.Op), Value: e.Value, Start: e.Start, End: e.End}, nil
	case "ltree":
		return filter.LtreeCondition{Op: filter.LtreeOp(e.Op), Value: e.Value}, nil
	default:
		return nil, fmt.Errorf("postgres: unknown condition envelope kind %q", e.Kind)
	}
}

func encodeTree(t filter.Tree) (*treeEnvelope, error) {
	switch v := t.(type) {
	case filter.PathFilter:
		cond, err := encodeCondition(v.Condition)
		if err != nil {
			return nil, err
		}
		return &treeEnvelope{Kind: "path", Path: v.Path, ValueKind: string(v.ValueKind), Condition: &cond}, nil
	case filter.Group:
		children := make([]treeEnvelope, 0, len(v.Children))
		for _, c := range v.Children {
			enc, err := encodeTree(c)
			if err != nil {
				return nil, err
			}
			children = append(children, *enc)
		}
		return &treeEnvelope{Kind: "group", Op: string(v.Op), Children: children}, nil
	default:
		return nil, fmt.Errorf("postgres: unknown filter tree type %T", t)
	}
}

func decodeTree(e treeEnvelope) (filter.Tree, error) {
	switch e.Kind {
	case "path":
		if e.Condition == nil {
			return nil, fmt.Errorf("postgres: path filter %q has no condition", e.Path)
		}
		cond, err := decodeCondition(*e.Condition)
		if err != nil {
			return nil, err
		}
		return filter.PathFilter{Path: e.Path, Condition: cond, ValueKind: filter.UIType(e.ValueKind)}, nil
	case "group":
		children := make([]filter.Tree, 0, len(e.Children))
		for _, c := range e.Children {
			child, err := decodeTree(c)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return filter.Group{Op: filter.BoolOp(e.Op), Children: children}, nil
	default:
		return nil, fmt.Errorf("postgres: unknown filter tree envelope kind %q", e.Kind)
	}
}
