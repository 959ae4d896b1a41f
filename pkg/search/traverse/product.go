package traverse

// ProductTraverser flattens a product's Dump map. The BLOCK markers for
// nested product-block fields and RESOURCE_TYPE markers for leaf resource
// attributes come from [BuildProductBlocks], which the caller uses to build
// the "product_blocks" part of that map; the traverser itself does no schema
// introspection.
type ProductTraverser struct{ Base }

// NewProductTraverser returns the built-in PRODUCT traverser.
func NewProductTraverser() *ProductTraverser {
	return &ProductTraverser{Base{EntityLabel: "Product"}}
}

// ProductBlockSchema describes one product-block field discovered while
// introspecting a lifecycle-specialized domain model, mirroring the
// teacher-adjacent "dump_block_model" closure in the original traversal.
type ProductBlockSchema struct {
	// Attr is the field name on the owning model.
	Attr string
	// IsBlock is true when this field is itself a nested ProductBlockModel;
	// false marks it as a leaf resource-type attribute.
	IsBlock bool
}

// BuildProductBlocks renders a flat list of ProductBlockSchema entries into
// the "product_blocks" map structure expected by the traverser, using
// BlockMarker/ResourceTypeMarker to tag each entry for the generic flatten
// walk in traverse.go.
func BuildProductBlocks(schemas map[string][]ProductBlockSchema) map[string]any {
	blocks := make(map[string]any, len(schemas))
	for blockName, fields := range schemas {
		fieldMap := make(map[string]any, len(fields))
		for _, f := range fields {
			if f.IsBlock {
				fieldMap[f.Attr] = BlockMarker{Label: f.Attr}
			} else {
				fieldMap[f.Attr] = ResourceTypeMarker{Label: f.Attr}
			}
		}
		blocks[blockName] = fieldMap
	}
	return blocks
}
