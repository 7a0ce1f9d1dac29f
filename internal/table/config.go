package table

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultHeaderSelector    = "thead > tr:first-child > th"
	DefaultRowSelector       = "tbody > tr"
	DefaultCellSelector      = "td"
	DefaultEmptyCellSelector = "tbody td.dataTables_empty"
	DefaultMaxPages          = 100
	DefaultSettleTimeout     = 10 * time.Second
	DefaultPollInterval      = 100 * time.Millisecond
)

// Config describes where a table lives and how its pager behaves.
// HeaderSelector, RowSelector and EmptyCellSelector are relative to Root;
// CellSelector is relative to a row. Pager selectors are document-wide.
// Root must be a single selector, not a comma-separated list (see ValidateRoot).
type Config struct {
	Root              string
	HeaderSelector    string
	RowSelector       string
	CellSelector      string
	EmptyCellSelector string
	Pager             Pager
	MaxPages          int
	SettleTimeout     time.Duration
	PollInterval      time.Duration
}

// Pager locates the pagination controls of a DataTables-style widget.
type Pager struct {
	// First lists candidate selectors for the "go to first page" control.
	// The first candidate that matches anything is used.
	First []string
	// Next selects the "next page" control.
	Next string
	// Info selects the "Showing x to y of z entries" summary. Optional.
	Info string
	// InactiveClasses mark a control that must not be clicked. DataTables' own
	// styling uses "current" for the shown page; the Bootstrap styling uses "active".
	InactiveClasses []string
}

var plainID = regexp.MustCompile(`^#[A-Za-z][\w-]*$`)

// DataTablesPager returns the pager selectors DataTables renders for a table.
// Tables addressed by a plain id use the id-derived wrappers (#id_paginate, #id_info);
// anything else falls back to the class selectors, which assume one table per page.
func DataTablesPager(root string) Pager {
	paginate, info := ".dataTables_paginate", ".dataTables_info"
	if plainID.MatchString(root) {
		paginate, info = root+"_paginate", root+"_info"
	}
	return Pager{
		First: []string{
			paginate + " .paginate_button.first",
			paginate + " .paginate_button:not(.previous):not(.next):not(.first):not(.last):not(.ellipsis)",
		},
		Next:            paginate + " .paginate_button.next",
		Info:            info,
		InactiveClasses: []string{"disabled", "current", "active"},
	}
}

// ValidateRoot checks that root selects one table: it must be non-empty and must
// not be a selector list. Commas inside brackets, parentheses or quotes are allowed.
func ValidateRoot(root string) error {
	if strings.TrimSpace(root) == "" {
		return fmt.Errorf("%w: empty selector", ErrInvalidRoot)
	}
	depth := 0
	var quote rune
	for _, r := range root {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '"' || r == '\'':
			quote = r
		case r == '(' || r == '[':
			depth++
		case r == ')' || r == ']':
			depth--
		case r == ',' && depth == 0:
			return fmt.Errorf("%w: %q is a selector list, use one selector per table", ErrInvalidRoot, root)
		}
	}
	return nil
}

// DefaultConfig returns the configuration for a DataTables table under root.
func DefaultConfig(root string) Config {
	return Config{
		Root:              root,
		HeaderSelector:    DefaultHeaderSelector,
		RowSelector:       DefaultRowSelector,
		CellSelector:      DefaultCellSelector,
		EmptyCellSelector: DefaultEmptyCellSelector,
		Pager:             DataTablesPager(root),
		MaxPages:          DefaultMaxPages,
		SettleTimeout:     DefaultSettleTimeout,
		PollInterval:      DefaultPollInterval,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig(c.Root)
	if c.HeaderSelector == "" {
		c.HeaderSelector = d.HeaderSelector
	}
	if c.RowSelector == "" {
		c.RowSelector = d.RowSelector
	}
	if c.CellSelector == "" {
		c.CellSelector = d.CellSelector
	}
	if c.EmptyCellSelector == "" {
		c.EmptyCellSelector = d.EmptyCellSelector
	}
	if len(c.Pager.First) == 0 && c.Pager.Next == "" {
		c.Pager = d.Pager
	}
	if c.MaxPages <= 0 {
		c.MaxPages = d.MaxPages
	}
	if c.SettleTimeout <= 0 {
		c.SettleTimeout = d.SettleTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}
