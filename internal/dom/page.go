// Package dom answers table.Page queries from HTML held in memory, using goquery.
//
// It backs offline table checks against saved page snapshots and lets tests
// model a re-rendering widget without a browser: the HTML is re-rendered on
// every query, and click handlers mutate whatever state the renderer reads.
package dom

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ternarybob/bsscheck/internal/table"
)

type clickKind int

const (
	singleClick clickKind = iota
	doubleClick
)

type handler struct {
	kind     clickKind
	selector string
	fn       func()
}

// Page is an in-memory table.Page.
type Page struct {
	render   func() string
	handlers []handler
	clicks   []string
	poll     time.Duration
}

// NewPage returns a Page that calls render for the current HTML on every query.
func NewPage(render func() string) *Page {
	return &Page{render: render, poll: 10 * time.Millisecond}
}

// Static returns a Page over fixed HTML.
func Static(html string) *Page {
	return NewPage(func() string { return html })
}

// FromReader reads a saved HTML snapshot.
func FromReader(r io.Reader) (*Page, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read html: %w", err)
	}
	return Static(string(b)), nil
}

// OnClick runs fn when a click lands on an element matching selector.
func (p *Page) OnClick(selector string, fn func()) *Page {
	p.handlers = append(p.handlers, handler{kind: singleClick, selector: selector, fn: fn})
	return p
}

// OnDoubleClick runs fn when a double-click lands on an element matching selector.
func (p *Page) OnDoubleClick(selector string, fn func()) *Page {
	p.handlers = append(p.handlers, handler{kind: doubleClick, selector: selector, fn: fn})
	return p
}

// Clicks returns the selectors passed to Click and DoubleClick, in order.
func (p *Page) Clicks() []string {
	out := make([]string, len(p.clicks))
	copy(out, p.clicks)
	return out
}

func (p *Page) document() (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.render()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return doc, nil
}

func (p *Page) find(selector string) (*goquery.Selection, error) {
	doc, err := p.document()
	if err != nil {
		return nil, err
	}
	return doc.Find(selector), nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sel, err := p.find(selector)
	if err != nil {
		return 0, err
	}
	return sel.Length(), nil
}

func (p *Page) Text(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sel, err := p.find(selector)
	if err != nil {
		return "", err
	}
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %q", table.ErrElementNotFound, selector)
	}
	return sel.First().Text(), nil
}

func (p *Page) Texts(ctx context.Context, selector string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sel, err := p.find(selector)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, s.Text())
	})
	return texts, nil
}

func (p *Page) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	sel, err := p.find(selector)
	if err != nil {
		return "", false, err
	}
	if sel.Length() == 0 {
		return "", false, nil
	}
	v, ok := sel.First().Attr(name)
	return v, ok, nil
}

func (p *Page) Click(ctx context.Context, selector string) error {
	return p.dispatch(ctx, singleClick, selector)
}

func (p *Page) DoubleClick(ctx context.Context, selector string) error {
	return p.dispatch(ctx, doubleClick, selector)
}

func (p *Page) dispatch(ctx context.Context, kind clickKind, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel, err := p.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return fmt.Errorf("%w: %q", table.ErrElementNotFound, selector)
	}
	target := sel.First()
	if hidden(target) {
		return fmt.Errorf("element %q is not visible", selector)
	}
	p.clicks = append(p.clicks, selector)

	// Handlers match against the clicked element, so a handler registered for
	// ".paginate_button.next" fires whatever selector the caller used to reach it.
	// They are collected first because a handler changes what render returns.
	var fire []func()
	for _, h := range p.handlers {
		if h.kind == kind && target.Is(h.selector) {
			fire = append(fire, h.fn)
		}
	}
	for _, fn := range fire {
		fn()
	}
	return nil
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		sel, err := p.find(selector)
		if err != nil {
			return err
		}
		if sel.Length() > 0 && !hidden(sel.First()) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%q not visible within %s: %w", selector, timeout, context.DeadlineExceeded)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.poll):
		}
	}
}

// hidden approximates CSS visibility from markup: the hidden attribute or an
// inline display:none on the element or any ancestor.
func hidden(s *goquery.Selection) bool {
	found := false
	s.AddSelection(s.Parents()).EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if _, ok := el.Attr("hidden"); ok {
			found = true
			return false
		}
		style, _ := el.Attr("style")
		style = strings.ReplaceAll(strings.ToLower(style), " ", "")
		if strings.Contains(style, "display:none") {
			found = true
			return false
		}
		return true
	})
	return found
}

var _ table.Page = (*Page)(nil)
