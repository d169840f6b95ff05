package types

// JSONMap is a free-form jsonb column.
type JSONMap map[string]any

// HierarchyTags maps a classification level id onto the selected node id.
type HierarchyTags map[string]string

// ChecklistState maps a checklist item id onto its checked flag.
type ChecklistState map[string]bool

// CheckedCount returns how many items are checked true.
func (c ChecklistState) CheckedCount() int {
	n := 0
	for _, checked := range c {
		if checked {
			n++
		}
	}
	return n
}
