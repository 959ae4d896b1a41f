// Package page implements keyset pagination primitives (§4.8): the
// base64url-encoded PageCursor and the persisted QueryState that keeps a
// paginated query's parameters and embedding consistent across requests.
package page

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/workfloworchestrator/orchestrator-core-sub001/pkg/search/query"
)

// PageCursor identifies a resume point within a ranked, ordered result set:
// the last-seen score and entity_id, plus the persisted query this cursor
// belongs to.
type PageCursor struct {
	Score   string // fixed-precision decimal, as text, to preserve exact comparisons
	ID      string
	QueryID uuid.UUID
}

// cursorWire is the JSON shape encoded/decoded by PageCursor.
type cursorWire struct {
	Score   string    `json:"score"`
	ID      string    `json:"id"`
	QueryID uuid.UUID `json:"query_id"`
}

// InvalidCursorError is returned by Decode when cursor text is malformed.
type InvalidCursorError struct{ Cause error }

func (e InvalidCursorError) Error() string { return fmt.Sprintf("page: invalid cursor: %v", e.Cause) }
func (e InvalidCursorError) Unwrap() error  { return e.Cause }

// Encode renders c as a base64url string of its JSON form.
func (c PageCursor) Encode() (string, error) {
	b, err := json.Marshal(cursorWire{Score: c.Score, ID: c.ID, QueryID: c.QueryID})
	if err != nil {
		return "", fmt.Errorf("page: encode cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a cursor previously produced by Encode. Malformed input
// yields InvalidCursorError.
func Decode(s string) (PageCursor, error) {
	raw, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return PageCursor{}, InvalidCursorError{Cause: err}
	}
	var w cursorWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return PageCursor{}, InvalidCursorError{Cause: err}
	}
	if w.ID == "" || w.QueryID == uuid.Nil {
		return PageCursor{}, InvalidCursorError{Cause: fmt.Errorf("missing id or query_id")}
	}
	return PageCursor{Score: w.Score, ID: w.ID, QueryID: w.QueryID}, nil
}

// QueryState is the persisted per-query context a cursor resolves to,
// guaranteeing consistent rankings across paginated requests (§4.8): the
// original query parameters, the resolved query embedding (if any), and the
// retriever strategy actually used for the first page, so a later page
// cannot silently re-route to a different retriever.
type QueryState struct {
	QueryID           uuid.UUID
	EntityType        string
	Parameters        query.SearchQuery
	QueryEmbedding    []float32
	RetrieverStrategy query.RetrieverStrategy
}

// QueryStateNotFoundError is returned when a cursor's query_id does not
// resolve to a stored QueryState (e.g. expired by the out-of-scope
// retention policy).
type QueryStateNotFoundError struct{ QueryID uuid.UUID }

func (e QueryStateNotFoundError) Error() string {
	return fmt.Sprintf("page: query state %s not found", e.QueryID)
}

// Store persists and resolves QueryState rows (search_queries table, §6).
type Store interface {
	SaveQueryState(state QueryState) error
	LoadQueryState(queryID uuid.UUID) (QueryState, error)
}
