package ptree

// Builder assembles a final tree from one or more layers, applied in
// increasing precedence: global, then per-target, then subclass, then
// runtime overlays, matching spec.md §4's merge order. Each layer is a
// fully-formed root Node produced the normal way (NewSequence, NewHandler,
// ...); Builder's job is purely to merge them.
type Builder struct {
	layers []Node
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// AddLayer appends a layer. Later layers take precedence over earlier ones
// during Build, except where an earlier layer's node is ReadOnly.
func (b *Builder) AddLayer(root Node) *Builder {
	b.layers = append(b.layers, root)
	return b
}

// Build merges all added layers into a single root, in the order they were
// added (first layer is the base, each subsequent layer overlays it), then
// validates the result has no composite with two children sharing an id —
// mergeChildren unions by id and so cannot itself introduce a collision, but
// a hand-built layer can arrive with one already.
func (b *Builder) Build() (Node, error) {
	if len(b.layers) == 0 {
		return nil, &EmptyLayersError{}
	}
	result := b.layers[0].CloneDeep()
	for _, layer := range b.layers[1:] {
		merged, err := Merge(result, layer)
		if err != nil {
			return nil, err
		}
		result = merged
	}
	if err := validateNoDuplicateChildren(result); err != nil {
		return nil, err
	}
	return result, nil
}

// validateNoDuplicateChildren walks root and every composite's children,
// reporting the first pair of siblings that share an id.
func validateNoDuplicateChildren(root Node) error {
	switch n := root.(type) {
	case *SequenceNode:
		return checkSiblings(n.id, n.children)
	case *SelectorNode:
		return checkSiblings(n.id, n.children)
	case *ParallelNode:
		return checkSiblings(n.id, n.children)
	case *InverterNode:
		if n.child != nil {
			return validateNoDuplicateChildren(n.child)
		}
	}
	return nil
}

func checkSiblings(parent NodeId, children []Node) error {
	seen := make(map[NodeId]bool, len(children))
	for _, c := range children {
		if seen[c.ID()] {
			return &DuplicateChildError{Parent: parent, Child: c.ID()}
		}
		seen[c.ID()] = true
		if err := validateNoDuplicateChildren(c); err != nil {
			return err
		}
	}
	return nil
}

// Merge combines base and overlay into a new tree: overlay's scalar fields
// win except where base is ReadOnly (base wins outright), conditions from
// both layers are conjoined, and composite children are merged by id —
// matching ids merge recursively, ids unique to either side are kept
// as-is. Merge never mutates base or overlay; it clones as it goes.
func Merge(base, overlay Node) (Node, error) {
	if base == nil {
		return overlay.CloneDeep(), nil
	}
	if overlay == nil {
		return base.CloneDeep(), nil
	}
	if base.Kind() != overlay.Kind() {
		return nil, &KindMismatchError{ID: base.ID(), Existing: base.Kind(), Incoming: overlay.Kind()}
	}
	if base.ReadOnly() {
		return base.CloneDeep(), nil
	}

	switch b := base.(type) {
	case *HandlerNode:
		o, ok := overlay.(*HandlerNode)
		if !ok {
			return nil, &UnsupportedKindError{ID: base.ID(), Kind: base.Kind()}
		}
		return mergeHandler(b, o), nil
	case *SequenceNode:
		o, ok := overlay.(*SequenceNode)
		if !ok {
			return nil, &UnsupportedKindError{ID: base.ID(), Kind: base.Kind()}
		}
		return mergeSequence(b, o)
	case *SelectorNode:
		o, ok := overlay.(*SelectorNode)
		if !ok {
			return nil, &UnsupportedKindError{ID: base.ID(), Kind: base.Kind()}
		}
		return mergeSelector(b, o)
	case *ParallelNode:
		o, ok := overlay.(*ParallelNode)
		if !ok {
			return nil, &UnsupportedKindError{ID: base.ID(), Kind: base.Kind()}
		}
		return mergeParallel(b, o)
	case *InverterNode:
		o, ok := overlay.(*InverterNode)
		if !ok {
			return nil, &UnsupportedKindError{ID: base.ID(), Kind: base.Kind()}
		}
		return mergeInverter(b, o)
	default:
		return nil, &UnsupportedKindError{ID: base.ID(), Kind: base.Kind()}
	}
}

func mergeHandler(base, overlay *HandlerNode) Node {
	fn := overlay.fn
	if fn == nil {
		fn = base.fn
	}
	merged := NewHandler(base.id, fn).
		WithPriority(overlay.priority).
		WithOrder(base.order).
		WithReadOnly(base.readOnly || overlay.readOnly)
	merged.conditions = conjoinConditions(base.conditions, overlay.conditions)
	return merged
}

func mergeSequence(base, overlay *SequenceNode) (Node, error) {
	children, err := mergeChildren(base.children, overlay.children)
	if err != nil {
		return nil, err
	}
	merged := NewSequence(base.id, children...).
		WithPriority(overlay.priority).
		WithOrder(base.order).
		WithReadOnly(base.readOnly || overlay.readOnly)
	merged.conditions = conjoinConditions(base.conditions, overlay.conditions)
	return merged, nil
}

func mergeSelector(base, overlay *SelectorNode) (Node, error) {
	children, err := mergeChildren(base.children, overlay.children)
	if err != nil {
		return nil, err
	}
	merged := NewSelector(base.id, children...).
		WithPriority(overlay.priority).
		WithOrder(base.order).
		WithReadOnly(base.readOnly || overlay.readOnly)
	merged.conditions = conjoinConditions(base.conditions, overlay.conditions)
	return merged, nil
}

func mergeParallel(base, overlay *ParallelNode) (Node, error) {
	children, err := mergeChildren(base.children, overlay.children)
	if err != nil {
		return nil, err
	}
	cfg := base.cfg
	cfg.Merge(&overlay.cfg)
	merged := NewParallel(base.id, children...).
		WithPriority(overlay.priority).
		WithOrder(base.order).
		WithReadOnly(base.readOnly || overlay.readOnly).
		WithConfig(cfg)
	merged.conditions = conjoinConditions(base.conditions, overlay.conditions)
	return merged, nil
}

func mergeInverter(base, overlay *InverterNode) (Node, error) {
	var child Node
	if base.child != nil && overlay.child != nil && base.child.ID() == overlay.child.ID() {
		merged, err := Merge(base.child, overlay.child)
		if err != nil {
			return nil, err
		}
		child = merged
	} else if overlay.child != nil {
		child = overlay.child.CloneDeep()
	} else {
		child = base.child.CloneDeep()
	}

	merged := NewInverter(base.id, child).
		WithPriority(overlay.priority).
		WithOrder(base.order).
		WithReadOnly(base.readOnly || overlay.readOnly)
	merged.conditions = conjoinConditions(base.conditions, overlay.conditions)
	return merged, nil
}

// mergeChildren unions two child slices by id: ids present in both merge
// recursively (at base's position), ids unique to either side are kept
// as-is from their side. Base children come first, in base order, followed
// by overlay-only children in overlay order.
func mergeChildren(base, overlay []Node) ([]Node, error) {
	overlayByID := make(map[NodeId]Node, len(overlay))
	for _, c := range overlay {
		overlayByID[c.ID()] = c
	}

	seen := make(map[NodeId]bool, len(base))
	merged := make([]Node, 0, len(base)+len(overlay))
	for _, b := range base {
		seen[b.ID()] = true
		if o, ok := overlayByID[b.ID()]; ok {
			m, err := Merge(b, o)
			if err != nil {
				return nil, err
			}
			merged = append(merged, m)
			continue
		}
		merged = append(merged, b.CloneDeep())
	}
	for _, o := range overlay {
		if !seen[o.ID()] {
			merged = append(merged, o.CloneDeep())
		}
	}
	return merged, nil
}

// conjoinConditions combines two condition sets into one conjunction slice,
// without collapsing them into a single closure, so a later merge can still
// see and further conjoin them.
func conjoinConditions(a, b []Condition) []Condition {
	if len(a) == 0 {
		return append([]Condition(nil), b...)
	}
	if len(b) == 0 {
		return append([]Condition(nil), a...)
	}
	out := make([]Condition, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}
