package pageset

import (
	"errors"
	"fmt"
)

var (
	// ErrPageOrder is returned by FromPages when pages are unsorted or
	// their key ranges overlap.
	ErrPageOrder = errors.New("pages out of order or overlapping")

	// ErrBoundaryPlacement is returned by FromPages when a start/finish
	// flag sits on a non-extremal page, or more than one page carries it.
	ErrBoundaryPlacement = errors.New("boundary flag on non-extremal page")
)

// BoundaryError indicates an AddRange whose isStart/isFinish claim is
// inconsistent with the ranges already cached: the window claims to abut a
// dataset boundary that the cache knows lies beyond the window. It signals a
// bug in the window provider and is never retried internally.
type BoundaryError struct {
	// Claim is "start" or "finish".
	Claim string
	// WindowMin and WindowMax are the bounds of the offending window.
	WindowMin, WindowMax any
	// PageMin and PageMax are the bounds of the conflicting cached page.
	PageMin, PageMax any
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("window [%v,%v] claims %s but cached page [%v,%v] extends beyond it",
		e.WindowMin, e.WindowMax, e.Claim, e.PageMin, e.PageMax)
}
