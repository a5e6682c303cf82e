package cron

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// InvalidExpressionError is returned for any malformed expression: wrong field
// count, out-of-bounds values, reversed ranges, or non-positive steps.
type InvalidExpressionError struct {
	Expr   string
	Reason string
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid cron expression %q: %s", e.Expr, e.Reason)
}

type fieldBounds struct {
	name     string
	min, max int
}

// Field order: minute hour day-of-month month day-of-week.
// Day-of-week accepts 0..7 where 0 and 7 both mean Sunday.
var bounds = [5]fieldBounds{
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 7},
}

// segment is one comma-separated piece of a field: a single value, an
// inclusive range, or a wildcard, each with an optional step.
type segment struct {
	start, end int
	step       int
}

func (s segment) matches(v int) bool {
	return v >= s.start && v <= s.end && (v-s.start)%s.step == 0
}

type field struct {
	segs []segment
	dow  bool
}

func (f field) matches(v int) bool {
	for _, s := range f.segs {
		if s.matches(v) {
			return true
		}
		// 0 and 7 alias the same weekday (Sunday); a segment written against
		// either spelling matches both.
		if f.dow {
			if alias, ok := sundayAlias(v); ok && s.matches(alias) {
				return true
			}
		}
	}
	return false
}

func sundayAlias(v int) (int, bool) {
	switch v {
	case 0:
		return 7, true
	case 7:
		return 0, true
	}
	return 0, false
}

// Expression is a parsed 5-field cron schedule.
type Expression struct {
	raw    string
	fields [5]field
}

func (e *Expression) String() string { return e.raw }

// Parse parses a cron expression of exactly 5 whitespace-separated fields.
func Parse(raw string) (*Expression, error) {
	parts := strings.Fields(raw)
	if len(parts) != 5 {
		return nil, &InvalidExpressionError{
			Expr:   raw,
			Reason: fmt.Sprintf("expected 5 fields, got %d", len(parts)),
		}
	}

	e := &Expression{raw: raw}
	for i, part := range parts {
		f, err := parseField(part, bounds[i])
		if err != nil {
			return nil, &InvalidExpressionError{
				Expr:   raw,
				Reason: fmt.Sprintf("%s field %q: %v", bounds[i].name, part, err),
			}
		}
		f.dow = i == 4
		e.fields[i] = f
	}
	return e, nil
}

// Validate reports whether the expression parses; the error, when non-nil,
// is always an *InvalidExpressionError.
func Validate(raw string) error {
	_, err := Parse(raw)
	return err
}

func parseField(part string, b fieldBounds) (field, error) {
	var f field
	for _, tok := range strings.Split(part, ",") {
		if tok == "" {
			return field{}, fmt.Errorf("empty segment")
		}
		seg, err := parseSegment(tok, b)
		if err != nil {
			return field{}, err
		}
		f.segs = append(f.segs, seg)
	}
	return f, nil
}

func parseSegment(tok string, b fieldBounds) (segment, error) {
	base := tok
	step := 1

	if i := strings.IndexByte(tok, '/'); i >= 0 {
		base = tok[:i]
		n, err := strconv.Atoi(tok[i+1:])
		if err != nil || n <= 0 {
			return segment{}, fmt.Errorf("step must be a positive integer")
		}
		// A step only combines with a wildcard or a range.
		if base != "*" && !strings.Contains(base, "-") {
			return segment{}, fmt.Errorf("step requires a range or wildcard base")
		}
		step = n
	}

	if base == "*" {
		return segment{start: b.min, end: b.max, step: step}, nil
	}

	if i := strings.IndexByte(base, '-'); i >= 0 {
		lo, err1 := strconv.Atoi(base[:i])
		hi, err2 := strconv.Atoi(base[i+1:])
		if err1 != nil || err2 != nil {
			return segment{}, fmt.Errorf("range bounds must be integers")
		}
		if lo > hi {
			return segment{}, fmt.Errorf("range start %d exceeds end %d", lo, hi)
		}
		if lo < b.min || hi > b.max {
			return segment{}, fmt.Errorf("range %d-%d outside %d-%d", lo, hi, b.min, b.max)
		}
		return segment{start: lo, end: hi, step: step}, nil
	}

	v, err := strconv.Atoi(base)
	if err != nil {
		return segment{}, fmt.Errorf("value must be an integer")
	}
	if v < b.min || v > b.max {
		return segment{}, fmt.Errorf("value %d outside %d-%d", v, b.min, b.max)
	}
	return segment{start: v, end: v, step: step}, nil
}

// Matches tests a timezone-local time-part tuple against all five fields.
// dow uses 0..6 with Sunday = 0.
func (e *Expression) Matches(minute, hour, dom, month, dow int) bool {
	return e.fields[0].matches(minute) &&
		e.fields[1].matches(hour) &&
		e.fields[2].matches(dom) &&
		e.fields[3].matches(month) &&
		e.fields[4].matches(dow)
}

// MatchesTime tests an already-localized instant.
func (e *Expression) MatchesTime(t time.Time) (bool, error) {
	dow, err := WeekdayIndex(t.Format("Mon"))
	if err != nil {
		return false, err
	}
	return e.Matches(t.Minute(), t.Hour(), t.Day(), int(t.Month()), dow), nil
}

var weekdayNames = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// WeekdayIndex maps an abbreviated weekday name to 0..6 (Sunday = 0).
// Matching is a case-insensitive prefix match; an unrecognized name is an
// error, never a silent default.
func WeekdayIndex(name string) (int, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, w := range weekdayNames {
		if strings.HasPrefix(n, w) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unrecognized weekday %q", name)
}
