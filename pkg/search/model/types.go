// Package model defines the entity, field, and storage-row primitives shared
// by every other package in the hybrid search core: the closed enums
// ([EntityType], [FieldKind]), the indexing primitive ([ExtractedField]), and
// the flat storage record ([IndexRow]).
//
// Every other package (filter, traverse, index, query, compile, retrieve)
// imports model rather than redefining these types, so a single change here
// propagates consistently through the whole core.
package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EntityType is the closed set of domain entity kinds the search core indexes.
type EntityType string

const (
	EntityTypeSubscription EntityType = "SUBSCRIPTION"
	EntityTypeProduct      EntityType = "PRODUCT"
	EntityTypeWorkflow     EntityType = "WORKFLOW"
	EntityTypeProcess      EntityType = "PROCESS"
)

// IsValid reports whether e is one of the known EntityType variants.
func (e EntityType) IsValid() bool {
	switch e {
	case EntityTypeSubscription, EntityTypeProduct, EntityTypeWorkflow, EntityTypeProcess:
		return true
	default:
		return false
	}
}

// Lower returns the lowercased form of e, used as the required prefix for
// filter paths (e.g. "subscription.status").
func (e EntityType) Lower() string {
	return strings.ToLower(string(e))
}

// FieldKind is the closed set of value kinds an ExtractedField can carry.
// STRING, INTEGER, FLOAT, BOOLEAN, DATETIME, and UUID are leaf value kinds;
// BLOCK and RESOURCE_TYPE are structural markers emitted by a Traverser to
// describe shape rather than data.
type FieldKind string

const (
	FieldKindString       FieldKind = "STRING"
	FieldKindInteger      FieldKind = "INTEGER"
	FieldKindFloat        FieldKind = "FLOAT"
	FieldKindBoolean      FieldKind = "BOOLEAN"
	FieldKindDatetime     FieldKind = "DATETIME"
	FieldKindUUID         FieldKind = "UUID"
	FieldKindBlock        FieldKind = "BLOCK"
	FieldKindResourceType FieldKind = "RESOURCE_TYPE"
)

// IsValid reports whether k is one of the known FieldKind variants.
func (k FieldKind) IsValid() bool {
	switch k {
	case FieldKindString, FieldKindInteger, FieldKindFloat, FieldKindBoolean,
		FieldKindDatetime, FieldKindUUID, FieldKindBlock, FieldKindResourceType:
		return true
	default:
		return false
	}
}

// minEmbeddableLen is the shortest string value considered "non-trivial" for
// embedding purposes. Shorter strings carry too little semantic signal to be
// worth an embedding call and are indexed with a null embedding instead.
const minEmbeddableLen = 2

// IsEmbeddable reports whether value should be sent to the embedder, given
// this FieldKind. Only non-trivial STRING values are embeddable.
func (k FieldKind) IsEmbeddable(value string) bool {
	return k == FieldKindString && len(strings.TrimSpace(value)) >= minEmbeddableLen
}

// SearchableFieldKinds lists the FieldKind values eligible for fuzzy/RRF
// retrieval (§4.6). Structural markers carry enough text (a label or type
// name) to be fuzzy-matchable even though they are never embedded.
var SearchableFieldKinds = []FieldKind{
	FieldKindString, FieldKindUUID, FieldKindBlock, FieldKindResourceType,
}

// ExtractedField is the indexing primitive produced by a Traverser and
// consumed by the Indexer: a single (path, value, kind) triple describing one
// leaf or structural marker discovered while walking a domain entity.
type ExtractedField struct {
	// Path is a hierarchical label, segments joined by '.', e.g.
	// "subscription.customer.name" or "product.endpoints.0.name".
	Path string

	// Value is the stringified field value. For BLOCK/RESOURCE_TYPE markers
	// this is the marker's own label (e.g. the nested type's name).
	Value string

	// Kind classifies Value and determines indexing/embedding treatment.
	Kind FieldKind
}

// ContentHash computes the SHA-256 content hash for an ExtractedField given
// the entity's title, per invariant 1: renaming the title forces a reindex of
// every field belonging to that entity.
func (f ExtractedField) ContentHash(title string) string {
	return ComputeContentHash(f.Path, f.Value, f.Kind, title)
}

// ComputeContentHash computes the canonical content hash
// SHA256(path || ':' || value || ':' || value_type || ':' || title).
func ComputeContentHash(path, value string, kind FieldKind, title string) string {
	return sha256Hex(path + ":" + value + ":" + string(kind) + ":" + title)
}

// IndexRow is the flat storage record for one (entity_id, path) pair. Primary
// key is (EntityID, Path); see model invariant 3.
type IndexRow struct {
	EntityID     uuid.UUID
	EntityType   EntityType
	EntityTitle  string
	Path         string
	Value        string
	ValueType    FieldKind
	ContentHash  string
	Embedding    []float32 // nil iff not embeddable or embedding failed
	HasEmbedding bool
}

// NewIndexRow builds an IndexRow from an ExtractedField, computing its
// content hash from the supplied entity title.
func NewIndexRow(entityID uuid.UUID, entityType EntityType, entityTitle string, f ExtractedField) IndexRow {
	return IndexRow{
		EntityID:    entityID,
		EntityType:  entityType,
		EntityTitle: entityTitle,
		Path:        f.Path,
		Value:       f.Value,
		ValueType:   f.Kind,
		ContentHash: f.ContentHash(entityTitle),
	}
}

// EntityConfig associates an EntityType with the collaborators and metadata
// needed to traverse and title its entities. TitlePath is the indexed path
// whose value should populate IndexRow.EntityTitle in results (§3.1).
type EntityConfig struct {
	Type       EntityType
	Table      string
	PKName     string
	RootLabel  string
	TitlePath  string
}

// DefaultEntityConfigs is the built-in registry of EntityConfig values,
// grounded in the title-path mapping documented for each entity type.
var DefaultEntityConfigs = map[EntityType]EntityConfig{
	EntityTypeSubscription: {
		Type: EntityTypeSubscription, Table: "subscriptions", PKName: "subscription_id",
		RootLabel: "subscription", TitlePath: "subscription.description",
	},
	EntityTypeProduct: {
		Type: EntityTypeProduct, Table: "products", PKName: "product_id",
		RootLabel: "product", TitlePath: "product.description",
	},
	EntityTypeWorkflow: {
		Type: EntityTypeWorkflow, Table: "workflows", PKName: "workflow_id",
		RootLabel: "workflow", TitlePath: "workflow.description",
	},
	EntityTypeProcess: {
		Type: EntityTypeProcess, Table: "processes", PKName: "process_id",
		RootLabel: "process", TitlePath: "process.workflowName",
	},
}

// fmtPath joins a base path with a suffix segment; [JoinPath] exposes it to
// traverser implementations outside this package.
func fmtPath(base, suffix string) string {
	if base == "" {
		return suffix
	}
	return fmt.Sprintf("%s.%s", base, suffix)
}

// JoinPath joins a base path with a suffix segment, omitting the separator
// when base is empty (root-level field).
func JoinPath(base, suffix string) string {
	return fmtPath(base, suffix)
}
