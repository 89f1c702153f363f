package chunkenc

// Filter is a tree-shaped inclusion set over protobuf field-number paths
// (spec §4.6 "Field filtering"), used by the transpose decoder to decide
// which submessages and columns are worth reconstructing. A path like
// {1, 2} means "field 2 nested inside field 1"; a node reached by such a
// path is fully included, together with everything nested further inside
// it, even when a longer path through the same node is also given.
//
// The simple decoder has no field-level knowledge and ignores Filter
// entirely, matching spec §4.4.
type Filter struct {
	includeAll bool
	children   map[uint32]*Filter
}

// All returns the filter that includes every field. It is the default
// passed to the transpose decoder when the caller does not want
// projection.
func All() Filter {
	return Filter{includeAll: true}
}

// None returns the filter that includes no field. Useful as a base case
// when building a tree by hand; New is the usual entry point.
func None() Filter {
	return Filter{}
}

// New builds a Filter that includes exactly the given field-number paths
// (and, for each, everything nested beneath it).
func New(paths ...[]uint32) Filter {
	root := &Filter{}
	for _, path := range paths {
		node := root
		for _, fieldNumber := range path {
			if node.children == nil {
				node.children = make(map[uint32]*Filter)
			}
			child, ok := node.children[fieldNumber]
			if !ok {
				child = &Filter{}
				node.children[fieldNumber] = child
			}
			node = child
		}
		node.includeAll = true
	}
	return *root
}

// IsAll reports whether f includes every field reachable from this point,
// letting callers take a fast path that skips filter bookkeeping
// entirely.
func (f Filter) IsAll() bool {
	return f.includeAll
}

// IsNone reports whether f excludes every field reachable from this
// point, meaning the corresponding submessage can be elided wholesale
// (including its length prefix), not merely emptied.
func (f Filter) IsNone() bool {
	return !f.includeAll && len(f.children) == 0
}

// Includes reports whether fieldNumber, taken as a scalar value at this
// level, should be copied into the projection.
func (f Filter) Includes(fieldNumber uint32) bool {
	if f.includeAll {
		return true
	}
	_, ok := f.children[fieldNumber]
	return ok
}

// Sub returns the filter to apply when descending into the submessage at
// fieldNumber.
func (f Filter) Sub(fieldNumber uint32) Filter {
	if f.includeAll {
		return All()
	}
	if child, ok := f.children[fieldNumber]; ok {
		return *child
	}
	return None()
}
