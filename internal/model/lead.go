package model

import (
	"slices"
	"strconv"
	"strings"
)

// Lead is one prospect carried through the pipeline. It is an ordered set
// of named string columns; an empty value means null. Columns are added in
// first-seen order and are never removed, so unknown input columns pass
// through every stage untouched.
type Lead struct {
	cols []string
	vals map[string]string
}

// NewLead returns an empty lead.
func NewLead() *Lead {
	return &Lead{vals: make(map[string]string)}
}

// LeadFromRow builds a lead from a header and a row of equal length.
func LeadFromRow(header, row []string) *Lead {
	l := &Lead{
		cols: make([]string, 0, len(header)),
		vals: make(map[string]string, len(header)),
	}
	for i, col := range header {
		v := ""
		if i < len(row) {
			v = row[i]
		}
		l.Set(col, v)
	}
	return l
}

// Get returns the value of col, or "" when absent.
func (l *Lead) Get(col string) string {
	return l.vals[col]
}

// Has reports whether col holds a non-null value.
func (l *Lead) Has(col string) bool {
	return strings.TrimSpace(l.vals[col]) != ""
}

// HasColumn reports whether col exists on the lead, even if null.
func (l *Lead) HasColumn(col string) bool {
	_, ok := l.vals[col]
	return ok
}

// Set assigns col, appending it to the column order on first use.
func (l *Lead) Set(col, val string) {
	if _, ok := l.vals[col]; !ok {
		l.cols = append(l.cols, col)
	}
	l.vals[col] = val
}

// SetDefault assigns col only when it is currently null.
func (l *Lead) SetDefault(col, val string) {
	if !l.Has(col) {
		l.Set(col, val)
	}
}

// SetBool stores b as "true" or "false".
func (l *Lead) SetBool(col string, b bool) {
	l.Set(col, strconv.FormatBool(b))
}

// SetInt stores n in base 10.
func (l *Lead) SetInt(col string, n int) {
	l.Set(col, strconv.Itoa(n))
}

// Bool parses col as a boolean. ok is false when the value is null or
// unparseable.
func (l *Lead) Bool(col string) (value bool, ok bool) {
	raw := strings.TrimSpace(strings.ToLower(l.vals[col]))
	switch raw {
	case "true", "1", "yes", "y":
		return true, true
	case "false", "0", "no", "n":
		return false, true
	}
	return false, false
}

// Int parses col as an integer, accepting float notation ("800.0").
func (l *Lead) Int(col string) (int, bool) {
	raw := strings.TrimSpace(l.vals[col])
	if raw == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return int(f), true
}

// Columns returns the lead's column names in order.
func (l *Lead) Columns() []string {
	return slices.Clone(l.cols)
}

// Row renders the lead against header; columns absent from the lead are "".
func (l *Lead) Row(header []string) []string {
	row := make([]string, len(header))
	for i, col := range header {
		row[i] = l.vals[col]
	}
	return row
}

// Clone returns a deep copy.
func (l *Lead) Clone() *Lead {
	c := &Lead{
		cols: slices.Clone(l.cols),
		vals: make(map[string]string, len(l.vals)),
	}
	for k, v := range l.vals {
		c.vals[k] = v
	}
	return c
}

// ID returns the stable lead identifier assigned by the clean stage.
func (l *Lead) ID() string { return l.vals[FieldLeadID] }

// Domain returns the normalized domain.
func (l *Lead) Domain() string { return l.vals[FieldDomain] }

// MissingFields returns the subset of cols that are null on the lead.
func (l *Lead) MissingFields(cols ...string) []string {
	var missing []string
	for _, c := range cols {
		if !l.Has(c) {
			missing = append(missing, c)
		}
	}
	return missing
}

// MergeHeader returns base followed by every column of leads not already in
// base, in first-seen order.
func MergeHeader(base []string, leads []*Lead) []string {
	header := slices.Clone(base)
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		seen[h] = true
	}
	for _, l := range leads {
		for _, c := range l.cols {
			if !seen[c] {
				seen[c] = true
				header = append(header, c)
			}
		}
	}
	return header
}
