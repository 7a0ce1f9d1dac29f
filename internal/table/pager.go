package table

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// GoToFirstPage moves the pager to the first page and waits for the body to re-render.
// It does nothing when there is no pager or the first-page control is inactive.
func (t *Table) GoToFirstPage(ctx context.Context) error {
	sel, found, err := t.firstControl(ctx)
	if err != nil {
		return err
	}
	if !found {
		t.logger.Debug().Str("table", t.cfg.Root).Msg("No first-page control, assuming single page")
		return nil
	}
	inactive, err := t.inactive(ctx, sel)
	if err != nil {
		return err
	}
	if inactive {
		return nil
	}
	t.logger.Debug().Str("table", t.cfg.Root).Str("control", sel).Msg("Going to first page")
	return t.clickAndSettle(ctx, sel, "")
}

// AllTableData returns column idx of every row on every page, page by page in
// render order. It starts from the first page and stops when the next-page
// control is missing or inactive.
func (t *Table) AllTableData(ctx context.Context, idx int) ([]string, error) {
	if err := t.checkColumn(ctx, idx); err != nil {
		return nil, err
	}
	values, _, err := t.collect(ctx, idx)
	return values, err
}

// AllColumnData is AllTableData addressed by header name.
func (t *Table) AllColumnData(ctx context.Context, header string) ([]string, error) {
	idx, err := t.columnIndex(ctx, header)
	if err != nil {
		return nil, err
	}
	values, _, err := t.collect(ctx, idx)
	return values, err
}

func (t *Table) collect(ctx context.Context, idx int) ([]string, int, error) {
	var all []string
	pages, err := t.walk(ctx, func(page int) error {
		values, err := t.columnAt(ctx, idx)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		all = append(all, values...)
		return nil
	})
	if all == nil {
		all = []string{}
	}
	return all, pages, err
}

// walk visits every page starting from the first. It fails once MaxPages pages
// have been visited and the pager still offers a next page.
func (t *Table) walk(ctx context.Context, visit func(page int) error) (int, error) {
	if err := t.GoToFirstPage(ctx); err != nil {
		return 0, err
	}

	for page := 1; ; page++ {
		if err := visit(page); err != nil {
			return page, err
		}

		next, ok, err := t.nextControl(ctx)
		if err != nil {
			return page, err
		}
		if !ok {
			t.logger.Debug().Str("table", t.cfg.Root).Int("pages", page).Msg("Reached last page")
			return page, nil
		}
		if page >= t.cfg.MaxPages {
			return page, fmt.Errorf("%w: next page still enabled after %d pages of %q",
				ErrPaginationUnterminated, t.cfg.MaxPages, t.cfg.Root)
		}
		if err := t.clickAndSettle(ctx, next, ""); err != nil {
			return page, fmt.Errorf("failed to advance from page %d: %w", page, err)
		}
	}
}

func (t *Table) firstControl(ctx context.Context) (string, bool, error) {
	for _, sel := range t.cfg.Pager.First {
		if sel == "" {
			continue
		}
		n, err := t.page.Count(ctx, sel)
		if err != nil {
			return "", false, fmt.Errorf("failed to look up pager control %q: %w", sel, err)
		}
		if n > 0 {
			return sel, true, nil
		}
	}
	return "", false, nil
}

func (t *Table) nextControl(ctx context.Context) (string, bool, error) {
	sel := t.cfg.Pager.Next
	if sel == "" {
		return "", false, nil
	}
	n, err := t.page.Count(ctx, sel)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up pager control %q: %w", sel, err)
	}
	if n == 0 {
		return "", false, nil
	}
	inactive, err := t.inactive(ctx, sel)
	if err != nil {
		return "", false, err
	}
	return sel, !inactive, nil
}

// inactive reports whether a pager control is disabled or marks the current page.
func (t *Table) inactive(ctx context.Context, sel string) (bool, error) {
	class, _, err := t.page.Attribute(ctx, sel, "class")
	if err != nil {
		return false, fmt.Errorf("failed to read class of %q: %w", sel, err)
	}
	for _, c := range strings.Fields(class) {
		for _, marker := range t.cfg.Pager.InactiveClasses {
			if c == marker {
				return true, nil
			}
		}
	}
	if v, _, err := t.page.Attribute(ctx, sel, "aria-disabled"); err != nil {
		return false, err
	} else if v == "true" {
		return true, nil
	}
	if v, _, err := t.page.Attribute(ctx, sel, "aria-current"); err != nil {
		return false, err
	} else if v == "page" {
		return true, nil
	}
	_, disabled, err := t.page.Attribute(ctx, sel, "disabled")
	if err != nil {
		return false, err
	}
	return disabled, nil
}

// snapshot captures what a re-render changes: body text, the info line and,
// for sort clicks, the class of the clicked header.
func (t *Table) snapshot(ctx context.Context, headerSel string) (string, error) {
	rows, err := t.page.Texts(ctx, t.scoped(t.cfg.RowSelector))
	if err != nil {
		return "", fmt.Errorf("failed to read table body: %w", err)
	}
	var b strings.Builder
	b.WriteString(strings.Join(rows, "\x1f"))
	if t.cfg.Pager.Info != "" {
		if n, err := t.page.Count(ctx, t.cfg.Pager.Info); err != nil {
			return "", err
		} else if n > 0 {
			info, err := t.page.Text(ctx, t.cfg.Pager.Info)
			if err != nil {
				return "", err
			}
			b.WriteString("\x1e")
			b.WriteString(info)
		}
	}
	if headerSel != "" {
		class, _, err := t.page.Attribute(ctx, headerSel, "class")
		if err != nil {
			return "", err
		}
		b.WriteString("\x1e")
		b.WriteString(class)
	}
	return b.String(), nil
}

func (t *Table) clickAndSettle(ctx context.Context, sel, headerSel string) error {
	before, err := t.snapshot(ctx, headerSel)
	if err != nil {
		return err
	}
	if err := t.page.Click(ctx, sel); err != nil {
		return fmt.Errorf("failed to click %q: %w", sel, err)
	}
	return t.settle(ctx, sel, before, headerSel)
}

// settle polls until the snapshot differs from before. This is the single bounded
// wait tied to an action; there is no retry of the action itself.
func (t *Table) settle(ctx context.Context, action, before, headerSel string) error {
	deadline := time.Now().Add(t.cfg.SettleTimeout)
	for {
		now, err := t.snapshot(ctx, headerSel)
		if err != nil {
			return err
		}
		if now != before {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %q after clicking %q within %s",
				ErrSettleTimeout, t.cfg.Root, action, t.cfg.SettleTimeout)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %q after clicking %q: %w", ErrSettleTimeout, t.cfg.Root, action, ctx.Err())
		case <-time.After(t.cfg.PollInterval):
		}
	}
}
