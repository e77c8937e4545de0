package report

import (
	"strings"

	"github.com/samber/lo"

	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/schema"
)

// OperationsKPIs are the headline incident counts.
type OperationsKPIs struct {
	TotalIncidents int     `json:"total_incidents" yaml:"total_incidents"`
	P4Count        int     `json:"p4_count" yaml:"p4_count"`
	SLAFailureRate float64 `json:"sla_failure_rate" yaml:"sla_failure_rate"`
	AvgMTTR        float64 `json:"avg_mttr" yaml:"avg_mttr"`
}

// StrategyKPIs summarize how far the working set runs over target.
type StrategyKPIs struct {
	ProblemChildren int     `json:"problem_children" yaml:"problem_children"`
	AvgVariance     float64 `json:"avg_variance" yaml:"avg_variance"`
	MaxRiskScore    float64 `json:"max_risk_score" yaml:"max_risk_score"`
}

// Summary holds both KPI groups. Empty is set when there is nothing to summarize,
// in which case every figure is zero.
type Summary struct {
	Empty      bool           `json:"empty" yaml:"empty"`
	Operations OperationsKPIs `json:"operations" yaml:"operations"`
	Strategy   StrategyKPIs   `json:"strategy" yaml:"strategy"`
}

// Summarize computes the KPIs for t. P4 and SLA figures are zero when the
// sheet had no priority or SLA column.
func Summarize(t model.Table) Summary {
	if t.Empty() {
		return Summary{Empty: true}
	}

	recs := t.Records
	n := float64(len(recs))

	var ops OperationsKPIs
	ops.TotalIncidents = len(recs)
	if t.HasIncidentField(schema.Priority) {
		ops.P4Count = lo.CountBy(recs, func(r model.Record) bool {
			return strings.EqualFold(strings.TrimSpace(r.Priority), "P4")
		})
	}
	if t.HasIncidentField(schema.SLA) {
		out := lo.CountBy(recs, func(r model.Record) bool { return r.SLA == model.SLAOut })
		ops.SLAFailureRate = float64(out) / n
	}
	ops.AvgMTTR = lo.SumBy(recs, func(r model.Record) float64 { return r.MTTR }) / n

	strat := StrategyKPIs{
		ProblemChildren: lo.CountBy(recs, func(r model.Record) bool { return r.Variance > 0 }),
		AvgVariance:     lo.SumBy(recs, func(r model.Record) float64 { return r.Variance }) / n,
		MaxRiskScore: lo.MaxBy(recs, func(a, b model.Record) bool {
			return a.RiskScore > b.RiskScore
		}).RiskScore,
	}

	return Summary{Operations: ops, Strategy: strat}
}
