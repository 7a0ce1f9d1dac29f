package table

import (
	"context"
	"time"
)

// Page is the DOM query surface a Table reads through. Selectors are CSS and
// are evaluated against the whole document; a Table scopes them under its root.
//
// Implementations return an error wrapping ErrElementNotFound when a single-element
// operation (Text, Click, DoubleClick) finds no match. Multi-element reads
// (Count, Texts) return zero values instead.
type Page interface {
	// Count returns the number of elements matching selector.
	Count(ctx context.Context, selector string) (int, error)
	// Text returns the raw textContent of the first match.
	Text(ctx context.Context, selector string) (string, error)
	// Texts returns the raw textContent of every match in document order.
	Texts(ctx context.Context, selector string) ([]string, error)
	// Attribute reads an attribute of the first match. present is false when
	// the element exists but has no such attribute, or when nothing matches.
	Attribute(ctx context.Context, selector, name string) (value string, present bool, err error)
	Click(ctx context.Context, selector string) error
	DoubleClick(ctx context.Context, selector string) error
	// WaitVisible blocks until selector matches a visible element or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
}
