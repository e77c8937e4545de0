package reconcile

import (
	"math"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cast"

	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/schema"
)

// UnrankedSentinel stands in for a missing or zero site rank so unranked sites
// score low instead of dividing by zero.
const UnrankedSentinel = 10000.0

// ParseNumber coerces locale-formatted numeric text to a finite float.
// Comma decimal separators become periods; empty, unparseable, NaN and
// infinite values all yield 0.
func ParseNumber(raw string) float64 {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if s == "" {
		return 0
	}
	v, err := cast.ToFloat64E(s)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// SafeRank substitutes UnrankedSentinel for ranks that cannot divide safely.
// The result is always > 0.
func SafeRank(rank float64) float64 {
	if rank <= 0 || math.IsNaN(rank) || math.IsInf(rank, 0) {
		return UnrankedSentinel
	}
	return rank
}

// RiskScore is frequency-weighted, rank-inverted priority.
func RiskScore(frequency int, rank float64) float64 {
	return float64(frequency) * (100 / SafeRank(rank))
}

// ComputeMetrics cleanses and annotates t with the default engine.
func ComputeMetrics(t model.Table) model.Table {
	return defaultEngine.ComputeMetrics(t)
}

// ComputeMetrics returns a new table with cleansed numeric fields, Variance,
// normalized SLA status, the critical flag, and view metrics computed over
// every record in t.
//
// Rank comes from the registry when the registry carried a rank column and
// the record matched; otherwise from the incident row.
func (e *Engine) ComputeMetrics(t model.Table) model.Table {
	registryRank := t.HasSiteField(schema.Rank)

	records := make([]model.Record, len(t.Records))
	for i, r := range t.Records {
		r.MTTR = ParseNumber(r.MTTRRaw)
		r.Target = ParseNumber(r.TargetRaw)

		rankRaw := r.Incident.RankRaw
		if registryRank && r.Registry != nil && strings.TrimSpace(r.Registry.RankRaw) != "" {
			rankRaw = r.Registry.RankRaw
		}
		r.Rank = ParseNumber(rankRaw)

		r.Variance = r.MTTR - r.Target
		r.SLA = strings.ToUpper(strings.TrimSpace(r.SLA))
		r.Critical = e.classifier.IsCritical(r.Summary)
		records[i] = r
	}

	return t.WithRecords(Recompute(records))
}

// Recompute returns a copy of records with Frequency and RiskScore derived
// from this working set alone. Call it after every change to the set.
func Recompute(records []model.Record) []model.Record {
	counts := lo.CountValuesBy(records, func(r model.Record) string {
		return r.JoinKey
	})

	out := make([]model.Record, len(records))
	for i, r := range records {
		r.Frequency = counts[r.JoinKey]
		r.RiskScore = RiskScore(r.Frequency, r.Rank)
		out[i] = r
	}
	return out
}
