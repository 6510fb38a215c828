package model

import (
	"errors"
	"fmt"
)

// Split orientations. Horizontal places children side by side, vertical
// stacks them.
const (
	SplitHorizontal = "horizontal"
	SplitVertical   = "vertical"
)

// PaneTree describes a session layout. A node is either a leaf (an agent
// pane, identified by Role) or a split with two or more children. PaneID and
// Capture are populated at realization and snapshot time respectively and are
// empty in freshly resolved layouts.
type PaneTree struct {
	// Leaf fields.
	Role    string `json:"role,omitempty"`
	PaneID  string `json:"pane_id,omitempty"`
	Capture string `json:"capture,omitempty"`

	// Split fields.
	Orientation string      `json:"orientation,omitempty"`
	Children    []*PaneTree `json:"children,omitempty"`
}

// Leaf returns a leaf node for the given agent role.
func Leaf(role string) *PaneTree {
	return &PaneTree{Role: role}
}

// Split returns a split node over the given children.
func Split(orientation string, children ...*PaneTree) *PaneTree {
	return &PaneTree{Orientation: orientation, Children: children}
}

// IsLeaf reports whether the node is a leaf.
func (t *PaneTree) IsLeaf() bool {
	return len(t.Children) == 0
}

// Leaves returns the tree's leaves in depth-first declaration order.
func (t *PaneTree) Leaves() []*PaneTree {
	if t == nil {
		return nil
	}
	if t.IsLeaf() {
		return []*PaneTree{t}
	}
	var out []*PaneTree
	for _, c := range t.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}

// FindLeaf returns the leaf with the given role, or nil.
func (t *PaneTree) FindLeaf(role string) *PaneTree {
	for _, l := range t.Leaves() {
		if l.Role == role {
			return l
		}
	}
	return nil
}

// Clone returns a deep copy of the tree.
func (t *PaneTree) Clone() *PaneTree {
	if t == nil {
		return nil
	}
	out := *t
	if len(t.Children) > 0 {
		out.Children = make([]*PaneTree, len(t.Children))
		for i, c := range t.Children {
			out.Children[i] = c.Clone()
		}
	}
	return &out
}

// Validate checks structural invariants: leaves carry a role, splits carry a
// known orientation and at least two children, and roles are unique across
// the tree.
func (t *PaneTree) Validate() error {
	if t == nil {
		return errors.New("pane tree is nil")
	}
	seen := map[string]bool{}
	return t.validate(seen)
}

func (t *PaneTree) validate(seen map[string]bool) error {
	if t.IsLeaf() {
		if t.Role == "" {
			return errors.New("leaf pane has no role")
		}
		if seen[t.Role] {
			return fmt.Errorf("duplicate pane role %q", t.Role)
		}
		seen[t.Role] = true
		return nil
	}
	if t.Orientation != SplitHorizontal && t.Orientation != SplitVertical {
		return fmt.Errorf("split has unknown orientation %q", t.Orientation)
	}
	if len(t.Children) < 2 {
		return fmt.Errorf("split has %d children, need at least 2", len(t.Children))
	}
	if t.Role != "" {
		return fmt.Errorf("split node carries leaf role %q", t.Role)
	}
	for _, c := range t.Children {
		if err := c.validate(seen); err != nil {
			return err
		}
	}
	return nil
}
