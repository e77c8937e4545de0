package reconcile

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/sells-group/siterisk/internal/model"
)

// Filter selects a working set. Empty lists match everything; values within a
// list are OR-ed, lists are AND-ed.
type Filter struct {
	Periods      []string `json:"periods,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	Counties     []string `json:"counties,omitempty"`
	Priorities   []string `json:"priorities,omitempty"`
	CriticalOnly bool     `json:"critical_only,omitempty"`
}

// IsZero reports whether the filter matches every record.
func (f Filter) IsZero() bool {
	return len(f.Periods) == 0 &&
		len(f.Technologies) == 0 &&
		len(f.Counties) == 0 &&
		len(f.Priorities) == 0 &&
		!f.CriticalOnly
}

// Match reports whether r belongs to the filtered working set.
func (f Filter) Match(r model.Record) bool {
	if f.CriticalOnly && !r.Critical {
		return false
	}
	return matchAny(f.Periods, r.Period) &&
		matchAny(f.Technologies, r.Technology()) &&
		matchAny(f.Counties, r.County()) &&
		matchAny(f.Priorities, r.Priority)
}

func matchAny(allowed []string, v string) bool {
	if len(allowed) == 0 {
		return true
	}
	v = strings.TrimSpace(v)
	for _, a := range allowed {
		if strings.EqualFold(strings.TrimSpace(a), v) {
			return true
		}
	}
	return false
}

// Apply returns a new table holding the records f matches, with Frequency and
// RiskScore recomputed over that subset. t is left untouched.
func Apply(t model.Table, f Filter) model.Table {
	if f.IsZero() {
		return t.WithRecords(Recompute(t.Records))
	}
	kept := lo.Filter(t.Records, func(r model.Record, _ int) bool {
		return f.Match(r)
	})
	return t.WithRecords(Recompute(kept))
}

// FilterOptions lists the distinct values a consumer can filter on.
type FilterOptions struct {
	Periods      []string `json:"periods"`
	Technologies []string `json:"technologies"`
	Counties     []string `json:"counties"`
	Priorities   []string `json:"priorities"`
}

// Options collects sorted, distinct, non-empty filter values from t.
func Options(t model.Table) FilterOptions {
	return FilterOptions{
		Periods:      distinct(t.Records, func(r model.Record) string { return r.Period }),
		Technologies: distinct(t.Records, model.Record.Technology),
		Counties:     distinct(t.Records, model.Record.County),
		Priorities:   distinct(t.Records, func(r model.Record) string { return r.Priority }),
	}
}

func distinct(records []model.Record, get func(model.Record) string) []string {
	values := lo.Uniq(lo.FilterMap(records, func(r model.Record, _ int) (string, bool) {
		v := strings.TrimSpace(get(r))
		return v, v != ""
	}))
	sort.Strings(values)
	return values
}
