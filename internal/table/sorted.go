package table

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fvbommel/sortorder"
)

// ValueType selects how raw cell text is coerced before ordering is checked.
type ValueType uint8

const (
	String ValueType = iota
	Integer
	Date
	// Natural orders digit runs numerically ("Unit 2" < "Unit 10").
	Natural
)

// DefaultDateLayout is how BS-Select renders dates, e.g. 01-Jun-1987.
const DefaultDateLayout = "02-Jan-2006"

var valueTypeNames = map[ValueType]string{
	String:  "string",
	Integer: "integer",
	Date:    "date",
	Natural: "natural",
}

func (v ValueType) String() string {
	if name, ok := valueTypeNames[v]; ok {
		return name
	}
	return fmt.Sprintf("ValueType(%d)", uint8(v))
}

// ParseValueType maps "string", "integer"/"int", "date" and "natural" to a ValueType.
func ParseValueType(s string) (ValueType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "text":
		return String, nil
	case "integer", "int", "number":
		return Integer, nil
	case "date":
		return Date, nil
	case "natural":
		return Natural, nil
	}
	return 0, fmt.Errorf("unknown value type %q (want string, integer, date or natural)", s)
}

type sortOptions struct {
	caseInsensitive bool
	dateLayout      string
}

// SortOption adjusts how IsSorted coerces values.
type SortOption func(*sortOptions)

// WithCaseInsensitive folds case before comparing string and natural values.
func WithCaseInsensitive() SortOption {
	return func(o *sortOptions) { o.caseInsensitive = true }
}

// WithDateLayout sets the time.Parse layout for Date values.
func WithDateLayout(layout string) SortOption {
	return func(o *sortOptions) {
		if layout != "" {
			o.dateLayout = layout
		}
	}
}

// strategy is the parse-and-compare pair for one ValueType.
type strategy struct {
	parse   func(raw string, o sortOptions) (any, error)
	compare func(a, b any) int
}

var strategies = map[ValueType]strategy{
	String: {
		parse: func(raw string, o sortOptions) (any, error) {
			if o.caseInsensitive {
				return strings.ToLower(raw), nil
			}
			return raw, nil
		},
		compare: func(a, b any) int { return strings.Compare(a.(string), b.(string)) },
	},
	Natural: {
		parse: func(raw string, o sortOptions) (any, error) {
			if o.caseInsensitive {
				return strings.ToLower(raw), nil
			}
			return raw, nil
		},
		compare: func(a, b any) int {
			x, y := a.(string), b.(string)
			switch {
			case x == y:
				return 0
			case sortorder.NaturalLess(x, y):
				return -1
			default:
				return 1
			}
		},
	},
	Integer: {
		parse:   func(raw string, _ sortOptions) (any, error) { return parseInteger(raw) },
		compare: func(a, b any) int { return cmp.Compare(a.(int64), b.(int64)) },
	},
	Date: {
		parse: func(raw string, o sortOptions) (any, error) {
			return time.Parse(o.dateLayout, strings.TrimSpace(raw))
		},
		compare: func(a, b any) int { return a.(time.Time).Compare(b.(time.Time)) },
	},
}

var errNoDigits = errors.New("no digits")

// parseInteger drops separators such as the spaces in "900 001 9144" or the
// commas in "1,204". A leading minus is kept.
func parseInteger(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == ',' || r == '_' || r == '\u00a0':
		default:
			return 0, fmt.Errorf("unexpected character %q", r)
		}
	}
	digits := b.String()
	if digits == "" || digits == "-" {
		return 0, errNoDigits
	}
	return strconv.ParseInt(digits, 10, 64)
}

// IsSorted reports whether values are monotonic in the requested direction once
// coerced to vt. Equal neighbours are allowed. Every value is coerced before any
// ordering is checked, so a bad value yields a *CoercionError rather than false.
// The input slice is not modified.
func IsSorted(values []string, vt ValueType, ascending bool, opts ...SortOption) (bool, error) {
	idx, err := FirstOutOfOrder(values, vt, ascending, opts...)
	if err != nil {
		return false, err
	}
	return idx < 0, nil
}

// FirstOutOfOrder returns the index of the first value that breaks the order,
// or -1 when values are sorted. Coercion errors are reported as by IsSorted.
func FirstOutOfOrder(values []string, vt ValueType, ascending bool, opts ...SortOption) (int, error) {
	o := sortOptions{dateLayout: DefaultDateLayout}
	for _, opt := range opts {
		opt(&o)
	}

	s, ok := strategies[vt]
	if !ok {
		return -1, fmt.Errorf("unsupported value type %s", vt)
	}

	keys := make([]any, len(values))
	for i, raw := range values {
		k, err := s.parse(raw, o)
		if err != nil {
			return -1, &CoercionError{Index: i, Value: raw, Type: vt, Err: err}
		}
		keys[i] = k
	}

	for i := 1; i < len(keys); i++ {
		c := s.compare(keys[i-1], keys[i])
		if ascending && c > 0 || !ascending && c < 0 {
			return i, nil
		}
	}
	return -1, nil
}
