package schema

import (
	"strings"
)

// Columns is a header resolved against an alias profile. It is built once per
// sheet load and answers every later "which column holds field X" question.
type Columns struct {
	idx    map[Field]int
	names  map[Field]string
	header []string
}

// Resolve maps each field to the first alias found in header. Header matching
// ignores case, surrounding whitespace and parentheses.
func Resolve(header []string, aliases map[Field][]string) Columns {
	byName := make(map[string]int, len(header))
	for i, col := range header {
		key := normalizeCol(col)
		if key == "" {
			continue
		}
		if _, dup := byName[key]; !dup {
			byName[key] = i
		}
	}

	c := Columns{
		idx:    make(map[Field]int, len(aliases)),
		names:  make(map[Field]string, len(aliases)),
		header: header,
	}
	for f, names := range aliases {
		for _, name := range names {
			if i, ok := byName[normalizeCol(name)]; ok {
				c.idx[f] = i
				c.names[f] = strings.TrimSpace(header[i])
				break
			}
		}
	}
	return c
}

// Has reports whether the field resolved to a column.
func (c Columns) Has(f Field) bool {
	_, ok := c.idx[f]
	return ok
}

// Name returns the header text the field resolved to, or "".
func (c Columns) Name(f Field) string {
	return c.names[f]
}

// Get returns the trimmed value of field f in row, or "" when the field is
// absent or the row is short.
func (c Columns) Get(row []string, f Field) string {
	i, ok := c.idx[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Present returns the resolved fields in canonical order.
func (c Columns) Present() []Field {
	fields := make([]Field, 0, len(c.idx))
	for f := range c.idx {
		fields = append(fields, f)
	}
	return Ordered(fields)
}

// Missing returns the fields from want that did not resolve.
func (c Columns) Missing(want []Field) []Field {
	var missing []Field
	for _, f := range want {
		if !c.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Intersect returns the fields from allow that resolved, in canonical order.
func (c Columns) Intersect(allow []Field) []Field {
	var out []Field
	for _, f := range allow {
		if c.Has(f) {
			out = append(out, f)
		}
	}
	return Ordered(out)
}

// normalizeCol strips parentheses and lowercases for cross-format header matching.
// "MTTR (Hours)" → "mttr hours", " County " → "county".
func normalizeCol(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "(", "")
	s = strings.ReplaceAll(s, ")", "")
	return strings.Join(strings.Fields(s), " ")
}
