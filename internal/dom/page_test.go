package dom

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/bsscheck/internal/table"
)

const snapshot = `<html><body>
<table id="subjects">
  <thead><tr><th class="sorting_asc" aria-sort="ascending">NHS Number</th><th>Surname</th></tr></thead>
  <tbody>
    <tr><td> 999 000 0001 </td><td>Smith</td></tr>
    <tr><td>999 000 0002</td><td>Jones</td></tr>
  </tbody>
</table>
<div id="hiddenPanel" style="display: none"><span class="inner">secret</span></div>
<div hidden><a class="dead">x</a></div>
</body></html>`

func TestQueries(t *testing.T) {
	ctx := context.Background()
	p := Static(snapshot)

	n, err := p.Count(ctx, "#subjects tbody > tr")
	if err != nil || n != 2 {
		t.Fatalf("Count() = %d, %v; want 2", n, err)
	}
	if n, _ := p.Count(ctx, ".missing"); n != 0 {
		t.Errorf("Count(.missing) = %d, want 0", n)
	}

	text, err := p.Text(ctx, "#subjects tbody td")
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if text != " 999 000 0001 " {
		t.Errorf("Text() = %q, want raw cell text", text)
	}

	texts, err := p.Texts(ctx, "#subjects tbody td:nth-child(2)")
	if err != nil {
		t.Fatalf("Texts() error = %v", err)
	}
	if strings.Join(texts, ",") != "Smith,Jones" {
		t.Errorf("Texts() = %v", texts)
	}

	v, ok, err := p.Attribute(ctx, "#subjects th", "aria-sort")
	if err != nil || !ok || v != "ascending" {
		t.Errorf("Attribute(aria-sort) = %q, %t, %v", v, ok, err)
	}
	if _, ok, _ := p.Attribute(ctx, "#subjects th:nth-child(2)", "aria-sort"); ok {
		t.Error("Attribute() reported an absent attribute as present")
	}
	if _, ok, err := p.Attribute(ctx, ".missing", "class"); ok || err != nil {
		t.Errorf("Attribute(.missing) = %t, %v; want false, nil", ok, err)
	}
}

func TestTextMissingElement(t *testing.T) {
	_, err := Static(snapshot).Text(context.Background(), ".missing")
	if !errors.Is(err, table.ErrElementNotFound) {
		t.Errorf("Text(.missing) error = %v, want ErrElementNotFound", err)
	}
}

func TestClickHandlers(t *testing.T) {
	ctx := context.Background()
	label := "before"
	p := NewPage(func() string { return `<button class="go">` + label + `</button><p class="row">r</p>` })
	p.OnClick(".go", func() { label = "after" })

	doubled := 0
	p.OnDoubleClick("p.row", func() { doubled++ })

	if err := p.Click(ctx, "button"); err != nil {
		t.Fatalf("Click() error = %v", err)
	}
	if got, _ := p.Text(ctx, "button"); got != "after" {
		t.Errorf("Text() after click = %q, want re-rendered %q", got, "after")
	}

	// A single click does not fire double-click handlers.
	if err := p.Click(ctx, "p.row"); err != nil {
		t.Fatalf("Click(p.row) error = %v", err)
	}
	if err := p.DoubleClick(ctx, "p.row"); err != nil {
		t.Fatalf("DoubleClick() error = %v", err)
	}
	if doubled != 1 {
		t.Errorf("double-click handler ran %d times, want 1", doubled)
	}

	if got := strings.Join(p.Clicks(), " "); got != "button p.row p.row" {
		t.Errorf("Clicks() = %q", got)
	}
}

func TestClickRejectsMissingAndHidden(t *testing.T) {
	ctx := context.Background()
	p := Static(snapshot)

	if err := p.Click(ctx, ".missing"); !errors.Is(err, table.ErrElementNotFound) {
		t.Errorf("Click(.missing) error = %v, want ErrElementNotFound", err)
	}
	if err := p.Click(ctx, "#hiddenPanel .inner"); err == nil {
		t.Error("Click() on an element inside display:none should fail")
	}
	if err := p.Click(ctx, "a.dead"); err == nil {
		t.Error("Click() on an element inside [hidden] should fail")
	}
	if len(p.Clicks()) != 0 {
		t.Errorf("failed clicks were recorded: %v", p.Clicks())
	}
}

func TestWaitVisible(t *testing.T) {
	ctx := context.Background()
	p := Static(snapshot)

	if err := p.WaitVisible(ctx, "#subjects", time.Second); err != nil {
		t.Errorf("WaitVisible(#subjects) error = %v", err)
	}
	err := p.WaitVisible(ctx, "#hiddenPanel", 30*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitVisible(hidden) error = %v, want DeadlineExceeded", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := p.WaitVisible(cancelled, ".missing", time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitVisible(cancelled) error = %v, want Canceled", err)
	}
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Static(snapshot).Count(ctx, "td"); !errors.Is(err, context.Canceled) {
		t.Errorf("Count() error = %v, want Canceled", err)
	}
}

func TestFromReader(t *testing.T) {
	p, err := FromReader(strings.NewReader(snapshot))
	if err != nil {
		t.Fatalf("FromReader() error = %v", err)
	}
	tbl := table.New(p, table.DefaultConfig("#subjects"), nil)
	rows, err := tbl.RowCount(context.Background())
	if err != nil || rows != 2 {
		t.Errorf("RowCount() = %d, %v; want 2", rows, err)
	}
}
