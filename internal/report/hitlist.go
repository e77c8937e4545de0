// Package report derives the views a dashboard renders from a reconciled table.
package report

import (
	"sort"

	"github.com/samber/lo"

	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/schema"
)

// Hit list column headers, in export order.
const (
	ColSite      = "Site"
	ColSiteRank  = "Site Rank"
	ColFrequency = "Frequency"
	ColMTTR      = "MTTR (Hours)"
	ColVariance  = "Variance"
	ColRiskScore = "Risk_Score"
	ColCounty    = "County"
)

// HitRow is one line of the engineering hit list.
type HitRow struct {
	Site      string  `json:"site" yaml:"site"`
	SiteRank  float64 `json:"site_rank" yaml:"site_rank"`
	Frequency int     `json:"frequency" yaml:"frequency"`
	MTTR      float64 `json:"mttr" yaml:"mttr"`
	Variance  float64 `json:"variance" yaml:"variance"`
	RiskScore float64 `json:"risk_score" yaml:"risk_score"`
	County    string  `json:"county,omitempty" yaml:"county,omitempty"`
}

// HitList is the hit list plus the columns that apply to it.
type HitList struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    []HitRow `json:"rows" yaml:"rows"`
}

// HitColumns returns the hit list headers for t. County is only listed when
// the registry carried it.
func HitColumns(t model.Table) []string {
	cols := []string{ColSite, ColSiteRank, ColFrequency, ColMTTR, ColVariance, ColRiskScore}
	if t.HasSiteField(schema.County) {
		cols = append(cols, ColCounty)
	}
	return cols
}

// BuildHitList projects t onto the hit list columns, sorts by RiskScore
// descending and drops fully identical rows, keeping the first.
// limit <= 0 returns every row.
func BuildHitList(t model.Table, limit int) HitList {
	rows := lo.Map(t.Records, func(r model.Record, _ int) HitRow {
		return HitRow{
			Site:      r.Site,
			SiteRank:  r.Rank,
			Frequency: r.Frequency,
			MTTR:      r.MTTR,
			Variance:  r.Variance,
			RiskScore: r.RiskScore,
			County:    r.County(),
		}
	})

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].RiskScore > rows[j].RiskScore
	})
	rows = lo.Uniq(rows)

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return HitList{Columns: HitColumns(t), Rows: rows}
}

// Values returns the row's cells in the order of columns.
func (h HitRow) Values(columns []string) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		switch c {
		case ColSite:
			out[i] = h.Site
		case ColSiteRank:
			out[i] = h.SiteRank
		case ColFrequency:
			out[i] = h.Frequency
		case ColMTTR:
			out[i] = h.MTTR
		case ColVariance:
			out[i] = h.Variance
		case ColRiskScore:
			out[i] = h.RiskScore
		case ColCounty:
			out[i] = h.County
		}
	}
	return out
}
