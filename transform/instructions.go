// Package transform plans and applies page-level edits: reordering,
// duplication, rotation overrides and deletion, producing a fresh document
// with a rebuilt page tree.
package transform

import "fmt"

// Instructions describes one editing pass over a document. It is built by
// the calling shell, consumed once by Plan, and then discarded.
type Instructions struct {
	// PageOrder lists original 1-based page numbers in their target order.
	// Numbers may be omitted (dropping the page) or repeated (duplicating
	// it).
	PageOrder []int `yaml:"page_order"`
	// Rotations maps page numbers to absolute rotations in degrees.
	Rotations map[int]int `yaml:"rotations"`
	// DeletedPages are excluded from the output even when listed in
	// PageOrder.
	DeletedPages []int `yaml:"deleted_pages"`
}

// Identity returns instructions that keep all pageCount pages unchanged.
func Identity(pageCount int) Instructions {
	order := make([]int, pageCount)
	for i := range order {
		order[i] = i + 1
	}
	return Instructions{PageOrder: order}
}

// UnknownPageNumberError reports a PageOrder entry that does not name a page.
type UnknownPageNumberError struct {
	Page      int
	PageCount int
}

func (e *UnknownPageNumberError) Error() string {
	return fmt.Sprintf("unknown page number %d (document has %d pages)", e.Page, e.PageCount)
}

// InvalidRotationError reports a rotation override that cannot be
// normalized to a quarter turn.
type InvalidRotationError struct {
	Page    int
	Degrees int
	Err     error
}

func (e *InvalidRotationError) Error() string {
	return fmt.Sprintf("invalid rotation %d for page %d: %v", e.Degrees, e.Page, e.Err)
}

func (e *InvalidRotationError) Unwrap() error { return e.Err }
