package report

import (
	"sort"

	"github.com/samber/lo"

	"github.com/sells-group/siterisk/internal/model"
)

// DefaultTopOffenders is how many repeat offenders are listed by default.
const DefaultTopOffenders = 15

// Offender is a site with its number of critical incidents.
type Offender struct {
	Site  string `json:"site" yaml:"site"`
	Count int    `json:"count" yaml:"count"`
}

// TopOffenders counts critical incidents per site and returns the n sites
// with the most, ties broken by site name. n <= 0 selects DefaultTopOffenders.
func TopOffenders(t model.Table, n int) []Offender {
	if n <= 0 {
		n = DefaultTopOffenders
	}

	critical := lo.Filter(t.Records, func(r model.Record, _ int) bool { return r.Critical })
	counts := lo.CountValuesBy(critical, func(r model.Record) string { return r.Site })

	out := make([]Offender, 0, len(counts))
	for site, c := range counts {
		out = append(out, Offender{Site: site, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Site < out[j].Site
	})

	if len(out) > n {
		out = out[:n]
	}
	return out
}
