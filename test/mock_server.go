package test

import (
	"context"
	"fmt"
	"html"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Column types understood by the mock's sorting, both in the page script and
// in the search endpoint.
const (
	SortString = "string"
	SortNumber = "number"
	SortDate   = "date"
)

// MockList is one BS-Select style list: a DataTables page at /bss/lists/{name}
// and its search endpoint at /bss/lists/{name}/search.
type MockList struct {
	// TableID is the id of the <table> element, without '#'.
	TableID string
	Headers []string
	// Fields are the JSON names returned by the search endpoint, one per header.
	// Headers are used when empty.
	Fields []string
	// SortTypes control how each column orders when its header is clicked.
	// Missing entries sort as strings.
	SortTypes []string
	Rows      [][]string
	PageSize  int
	// DelayMS defers each re-render, like a DataTables ajax round trip.
	DelayMS int
	// Forbidden makes the search endpoint answer 403.
	Forbidden bool
	// RequireSession makes the search endpoint answer 403 unless the request
	// carries the session cookie set when the list page was loaded.
	RequireSession bool
}

// SessionCookie is set on every list page response.
const SessionCookie = "JSESSIONID"

func (l *MockList) field(i int) string {
	if i < len(l.Fields) {
		return l.Fields[i]
	}
	return l.Headers[i]
}

func (l *MockList) sortType(i int) string {
	if i < len(l.SortTypes) && l.SortTypes[i] != "" {
		return l.SortTypes[i]
	}
	return SortString
}

// MockServer is a lightweight BS-Select stand-in for isolated browser and API testing.
type MockServer struct {
	server   *http.Server
	listener net.Listener
	lists    map[string]*MockList
	sessions map[string]bool
	info     map[string]map[string]string
	mu       sync.RWMutex
	port     int
}

// NewMockServer creates a new mock server instance. Port 0 picks a free port.
func NewMockServer(port int) *MockServer {
	ms := &MockServer{
		lists:    make(map[string]*MockList),
		sessions: make(map[string]bool),
		info: map[string]map[string]string{
			"Application Details": {"Version": "mock", "Build": "0"},
			"Database Details":    {"Schema": "bss_mock"},
		},
		port: port,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /bss/info", ms.handleInfo)
	mux.HandleFunc("GET /bss/lists/{name}", ms.handleListPage)
	mux.HandleFunc("GET /bss/lists/{name}/search", ms.handleSearch)
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><head><title>BS-Select</title></head><body><h1>BS-Select</h1></body></html>")
	})

	ms.server = &http.Server{Handler: mux}
	return ms
}

// AddList registers l under name, replacing any list already there.
func (ms *MockServer) AddList(name string, l *MockList) {
	if l.PageSize <= 0 {
		l.PageSize = 10
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.lists[name] = l
}

// SetInfo replaces a section of the /bss/info response.
func (ms *MockServer) SetInfo(section string, values map[string]string) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.info[section] = values
}

// Start starts the mock server in a goroutine
func (ms *MockServer) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", ms.port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	ms.listener = ln
	ms.port = ln.Addr().(*net.TCPAddr).Port

	go func() {
		if err := ms.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			fmt.Printf("Mock server error: %v\n", err)
		}
	}()
	return nil
}

// URL returns the server's base URL. Valid after Start.
func (ms *MockServer) URL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", ms.port)
}

// Stop stops the mock server gracefully
func (ms *MockServer) Stop() error {
	if ms.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Try graceful shutdown first
	if err := ms.server.Shutdown(ctx); err != nil {
		return ms.server.Close()
	}
	return nil
}

func (ms *MockServer) list(name string) (*MockList, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	l, ok := ms.lists[name]
	return l, ok
}

func (ms *MockServer) handleInfo(w http.ResponseWriter, r *http.Request) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	respondJSON(w, http.StatusOK, ms.info)
}

// pageConfig is handed to the page script as JSON.
type pageConfig struct {
	ID        string     `json:"id"`
	Headers   []string   `json:"headers"`
	SortTypes []string   `json:"sortTypes"`
	Rows      [][]string `json:"rows"`
	PageSize  int        `json:"pageSize"`
	DelayMS   int        `json:"delayMS"`
}

func (ms *MockServer) handleListPage(w http.ResponseWriter, r *http.Request) {
	l, ok := ms.list(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}

	cfg := pageConfig{
		ID:       l.TableID,
		Headers:  l.Headers,
		Rows:     l.Rows,
		PageSize: l.PageSize,
		DelayMS:  l.DelayMS,
	}
	for i := range l.Headers {
		cfg.SortTypes = append(cfg.SortTypes, l.sortType(i))
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var head strings.Builder
	for _, h := range l.Headers {
		fmt.Fprintf(&head, "<th class=\"sorting\">%s</th>", html.EscapeString(h))
	}

	page := strings.NewReplacer(
		"__ID__", l.TableID,
		"__HEAD__", head.String(),
		"__CONFIG__", string(data),
	).Replace(listPageHTML)

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: ms.newSession(), Path: "/", HttpOnly: true})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page)
}

func (ms *MockServer) newSession() string {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	id := uuid.NewString()
	ms.sessions[id] = true
	return id
}

func (ms *MockServer) validSession(r *http.Request) bool {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return false
	}
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.sessions[c.Value]
}

// handleSearch answers DataTables server-side requests in the BS-Select dialect.
func (ms *MockServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	l, ok := ms.list(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if l.Forbidden || l.RequireSession && !ms.validSession(r) {
		http.Error(w, "Access Denied", http.StatusForbidden)
		return
	}

	q := r.URL.Query()
	draw, _ := strconv.Atoi(q.Get("draw"))
	start, err := strconv.Atoi(q.Get("start"))
	if err != nil || start < 0 {
		respondError(w, http.StatusBadRequest, "invalid start")
		return
	}
	length, err := strconv.Atoi(q.Get("length"))
	if err != nil || length == 0 || length < -1 {
		respondError(w, http.StatusBadRequest, "invalid length")
		return
	}

	rows := filterRows(l, q.Get("searchText"), func(field string) string {
		return q.Get("columnSearchText[" + field + "]")
	})
	sortRows(l, rows, parseSortParams(q))

	filtered := len(rows)
	if start > len(rows) {
		start = len(rows)
	}
	rows = rows[start:]
	if length > 0 && length < len(rows) {
		rows = rows[:length]
	}

	results := make([]map[string]string, len(rows))
	for i, row := range rows {
		obj := make(map[string]string, len(row))
		for c, v := range row {
			obj[l.field(c)] = v
		}
		results[i] = obj
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"draw":            draw,
		"recordsTotal":    len(l.Rows),
		"recordsFiltered": filtered,
		"results":         results,
	})
}

func filterRows(l *MockList, text string, column func(field string) string) [][]string {
	text = strings.ToLower(text)
	var out [][]string
	for _, row := range l.Rows {
		keep := text == ""
		for c, v := range row {
			lv := strings.ToLower(v)
			if text != "" && strings.Contains(lv, text) {
				keep = true
			}
			if f := strings.ToLower(column(l.field(c))); f != "" && !strings.Contains(lv, f) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, row)
		}
	}
	return out
}

type sortParam struct {
	order int
	field string
	desc  bool
}

// parseSortParams reads columnSortDirectionWithOrder[<order><field>]=asc|desc.
func parseSortParams(q map[string][]string) []sortParam {
	var out []sortParam
	for key, values := range q {
		inner, ok := strings.CutPrefix(key, "columnSortDirectionWithOrder[")
		if !ok || !strings.HasSuffix(inner, "]") || len(values) == 0 {
			continue
		}
		inner = strings.TrimSuffix(inner, "]")
		digits := 0
		for digits < len(inner) && inner[digits] >= '0' && inner[digits] <= '9' {
			digits++
		}
		order, err := strconv.Atoi(inner[:digits])
		if err != nil {
			continue
		}
		out = append(out, sortParam{order: order, field: inner[digits:], desc: values[0] == "desc"})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].order < out[j].order })
	return out
}

func sortRows(l *MockList, rows [][]string, params []sortParam) {
	type key struct {
		col  int
		desc bool
	}
	var keys []key
	for _, p := range params {
		for c := range l.Headers {
			if l.field(c) == p.field {
				keys = append(keys, key{col: c, desc: p.desc})
			}
		}
	}
	if len(keys) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			c := compareCell(l.sortType(k.col), rows[i][k.col], rows[j][k.col])
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareCell(sortType, a, b string) int {
	switch sortType {
	case SortNumber:
		x, _ := strconv.Atoi(strings.ReplaceAll(a, " ", ""))
		y, _ := strconv.Atoi(strings.ReplaceAll(b, " ", ""))
		return x - y
	case SortDate:
		x, _ := time.Parse("02-Jan-2006", a)
		y, _ := time.Parse("02-Jan-2006", b)
		return x.Compare(y)
	default:
		return strings.Compare(a, b)
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// listPageHTML renders DataTables 1.x markup client-side. Pager and header clicks
// re-render after DelayMS; a double-clicked row's first cell is shown in #selected.
const listPageHTML = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>BS-Select</title></head>
<body>
<div id="__ID___wrapper" class="dataTables_wrapper">
  <table id="__ID__" class="dataTable">
    <thead><tr>__HEAD__</tr></thead>
    <tbody></tbody>
  </table>
  <div id="__ID___info" class="dataTables_info" role="status"></div>
  <div id="__ID___paginate" class="dataTables_paginate paging_full_numbers"></div>
</div>
<div id="selected"></div>
<script>
(function () {
  var cfg = __CONFIG__;
  var id = cfg.id;
  var rows = cfg.rows.slice();
  var state = { page: 0, sortCol: -1, asc: true };
  var months = { Jan: 0, Feb: 1, Mar: 2, Apr: 3, May: 4, Jun: 5, Jul: 6, Aug: 7, Sep: 8, Oct: 9, Nov: 10, Dec: 11 };

  function el(tag, cls, text) {
    var e = document.createElement(tag);
    if (cls) e.className = cls;
    if (text !== undefined) e.textContent = text;
    return e;
  }

  function pages() { return Math.max(1, Math.ceil(rows.length / cfg.pageSize)); }

  function key(type, v) {
    if (type === "number") return parseInt(v.replace(/\s/g, ""), 10) || 0;
    if (type === "date") {
      var p = v.split("-");
      return new Date(parseInt(p[2], 10), months[p[1]], parseInt(p[0], 10)).getTime();
    }
    return v;
  }

  function sortRows() {
    var c = state.sortCol, dir = state.asc ? 1 : -1, type = cfg.sortTypes[c];
    rows.sort(function (a, b) {
      var x = key(type, a[c]), y = key(type, b[c]);
      return x < y ? -dir : x > y ? dir : 0;
    });
  }

  function render() {
    var table = document.getElementById(id);
    table.querySelectorAll("thead th").forEach(function (th, i) {
      if (i === state.sortCol) {
        th.className = state.asc ? "sorting_asc" : "sorting_desc";
        th.setAttribute("aria-sort", state.asc ? "ascending" : "descending");
      } else {
        th.className = "sorting";
        th.removeAttribute("aria-sort");
      }
    });

    var tbody = table.querySelector("tbody");
    tbody.innerHTML = "";
    var start = state.page * cfg.pageSize;
    var visible = rows.slice(start, start + cfg.pageSize);
    if (visible.length === 0) {
      var empty = el("td", "dataTables_empty", "No data available in table");
      empty.colSpan = cfg.headers.length;
      var tr = el("tr", "odd");
      tr.appendChild(empty);
      tbody.appendChild(tr);
    }
    visible.forEach(function (r, i) {
      var tr = el("tr", i % 2 ? "even" : "odd");
      r.forEach(function (c) { tr.appendChild(el("td", "", c)); });
      tbody.appendChild(tr);
    });

    document.getElementById(id + "_info").textContent = rows.length === 0
      ? "Showing 0 to 0 of 0 entries"
      : "Showing " + (start + 1) + " to " + (start + visible.length) + " of " + rows.length + " entries";

    var pag = document.getElementById(id + "_paginate");
    pag.innerHTML = "";
    var last = pages() - 1;
    function button(parent, label, cls, target, inactive) {
      var a = el("a", "paginate_button " + cls + (inactive ? " disabled" : ""), label);
      a.setAttribute("data-page", target);
      parent.appendChild(a);
    }
    button(pag, "First", "first", 0, state.page === 0);
    button(pag, "Previous", "previous", state.page - 1, state.page === 0);
    var span = el("span");
    for (var p = 0; p <= last; p++) {
      var a = el("a", "paginate_button" + (p === state.page ? " current" : ""), String(p + 1));
      a.setAttribute("data-page", p);
      span.appendChild(a);
    }
    pag.appendChild(span);
    button(pag, "Next", "next", state.page + 1, state.page === last);
    button(pag, "Last", "last", last, state.page === last);
  }

  function later(fn) {
    setTimeout(function () { fn(); render(); }, cfg.delayMS);
  }

  document.addEventListener("click", function (e) {
    var a = e.target.closest("#" + id + "_paginate .paginate_button");
    if (a) {
      if (a.classList.contains("disabled") || a.classList.contains("current")) return;
      var target = parseInt(a.getAttribute("data-page"), 10);
      later(function () { state.page = target; });
      return;
    }
    var th = e.target.closest("#" + id + " thead th");
    if (th) {
      var col = Array.prototype.indexOf.call(th.parentNode.children, th);
      later(function () {
        if (state.sortCol === col) {
          state.asc = !state.asc;
        } else {
          state.sortCol = col;
          state.asc = true;
        }
        sortRows();
        state.page = 0;
      });
    }
  });

  document.addEventListener("dblclick", function (e) {
    var tr = e.target.closest("#" + id + " tbody tr");
    if (tr) document.getElementById("selected").textContent = tr.cells[0].textContent;
  });

  render();
})();
</script>
</body>
</html>
`
