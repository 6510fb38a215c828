package model

import "testing"

func TestLeavesOrder(t *testing.T) {
	tree := Split(SplitHorizontal,
		Leaf("teacher"),
		Split(SplitVertical, Leaf("student_1"), Leaf("student_2")),
	)
	leaves := tree.Leaves()
	want := []string{"teacher", "student_1", "student_2"}
	if len(leaves) != len(want) {
		t.Fatalf("got %d leaves, want %d", len(leaves), len(want))
	}
	for i, w := range want {
		if leaves[i].Role != w {
			t.Errorf("leaf[%d] = %q, want %q", i, leaves[i].Role, w)
		}
	}
}

func TestFindLeaf(t *testing.T) {
	tree := Split(SplitHorizontal, Leaf("driver"), Leaf("navigator"))
	if tree.FindLeaf("navigator") == nil {
		t.Error("navigator not found")
	}
	if tree.FindLeaf("ghost") != nil {
		t.Error("found a role that does not exist")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		tree    *PaneTree
		wantErr bool
	}{
		{"single leaf", Leaf("solo"), false},
		{"pair", Split(SplitHorizontal, Leaf("driver"), Leaf("navigator")), false},
		{"nested", Split(SplitHorizontal, Leaf("a"), Split(SplitVertical, Leaf("b"), Leaf("c"))), false},
		{"nil", nil, true},
		{"empty role", Leaf(""), true},
		{"duplicate roles", Split(SplitHorizontal, Leaf("x"), Leaf("x")), true},
		{"one child", &PaneTree{Orientation: SplitHorizontal, Children: []*PaneTree{Leaf("a")}}, true},
		{"bad orientation", &PaneTree{Orientation: "diagonal", Children: []*PaneTree{Leaf("a"), Leaf("b")}}, true},
		{"split with role", &PaneTree{Role: "oops", Orientation: SplitHorizontal, Children: []*PaneTree{Leaf("a"), Leaf("b")}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tree.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCloneDeep(t *testing.T) {
	orig := Split(SplitVertical, Leaf("a"), Leaf("b"))
	c := orig.Clone()
	c.Children[1].Capture = "hello"
	if orig.Children[1].Capture != "" {
		t.Error("clone shares children with original")
	}
	var nilTree *PaneTree
	if nilTree.Clone() != nil {
		t.Error("nil clone should be nil")
	}
}
