package transform

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestInstructionsFromYAML(t *testing.T) {
	src := `
page_order: [3, 1, 1, 2]
rotations:
  1: 90
  3: -90
deleted_pages: [2]
`
	var inst Instructions
	if err := yaml.Unmarshal([]byte(src), &inst); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	want := Instructions{
		PageOrder:    []int{3, 1, 1, 2},
		Rotations:    map[int]int{1: 90, 3: -90},
		DeletedPages: []int{2},
	}
	if diff := cmp.Diff(want, inst); diff != "" {
		t.Fatalf("instructions mismatch (-want +got):\n%s", diff)
	}
}

func TestIdentity(t *testing.T) {
	inst := Identity(4)
	if diff := cmp.Diff([]int{1, 2, 3, 4}, inst.PageOrder); diff != "" {
		t.Fatalf("identity order wrong (-want +got):\n%s", diff)
	}
	if len(inst.Rotations) != 0 || len(inst.DeletedPages) != 0 {
		t.Fatalf("identity must not rotate or delete")
	}
}
