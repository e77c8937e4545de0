package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/rotisserie/eris"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/reconcile"
	"github.com/sells-group/siterisk/internal/report"
)

// Output formats accepted by --format.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// render writes v as JSON or YAML, or hands a table writer to fill for the
// table format.
func render(w io.Writer, format string, v any, fill func(*tablewriter.Table)) error {
	switch strings.ToLower(format) {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	case formatTable, "":
		if fill == nil {
			return eris.Errorf("table format is not available for this view")
		}
		tw := tablewriter.NewWriter(w)
		tw.SetAutoFormatHeaders(false)
		tw.SetAutoWrapText(false)
		fill(tw)
		tw.Render()
		return nil
	default:
		return eris.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func hitListTable(hl report.HitList) func(*tablewriter.Table) {
	return func(tw *tablewriter.Table) {
		tw.SetHeader(hl.Columns)
		for _, r := range hl.Rows {
			values := r.Values(hl.Columns)
			row := make([]string, len(values))
			for i, v := range values {
				if f, ok := v.(float64); ok {
					row[i] = formatFloat(f)
					continue
				}
				row[i] = cast.ToString(v)
			}
			tw.Append(row)
		}
	}
}

func recordsTable(t model.Table) func(*tablewriter.Table) {
	return func(tw *tablewriter.Table) {
		tw.SetHeader([]string{"Site", "County", "Priority", "SLA", "Period", "MTTR", "Variance", "Frequency", "Risk_Score", "Critical"})
		for _, r := range t.Records {
			tw.Append([]string{
				r.Site, r.County(), r.Priority, r.SLA, r.Period,
				formatFloat(r.MTTR), formatFloat(r.Variance), strconv.Itoa(r.Frequency),
				formatFloat(r.RiskScore), strconv.FormatBool(r.Critical),
			})
		}
	}
}

func summaryTable(s report.Summary) func(*tablewriter.Table) {
	return func(tw *tablewriter.Table) {
		tw.SetHeader([]string{"KPI", "Value"})
		tw.AppendBulk([][]string{
			{"Total incidents", strconv.Itoa(s.Operations.TotalIncidents)},
			{"P4 incidents", strconv.Itoa(s.Operations.P4Count)},
			{"SLA failure rate", fmt.Sprintf("%.1f%%", s.Operations.SLAFailureRate*100)},
			{"Avg MTTR (hours)", formatFloat(s.Operations.AvgMTTR)},
			{"Problem children", strconv.Itoa(s.Strategy.ProblemChildren)},
			{"Avg variance", formatFloat(s.Strategy.AvgVariance)},
			{"Max risk score", formatFloat(s.Strategy.MaxRiskScore)},
		})
	}
}

func offendersTable(offenders []report.Offender) func(*tablewriter.Table) {
	return func(tw *tablewriter.Table) {
		tw.SetHeader([]string{"Site", "Critical incidents"})
		for _, o := range offenders {
			tw.Append([]string{o.Site, strconv.Itoa(o.Count)})
		}
	}
}

func causesTable(nodes []report.CauseNode) func(*tablewriter.Table) {
	return func(tw *tablewriter.Table) {
		tw.SetHeader([]string{"Cause", "Cause Tier 2", "Incidents", "MTTR (Hours)", "IN", "OUT"})
		for _, n := range nodes {
			for _, c := range n.Children {
				tw.Append([]string{
					n.Name, c.Name, strconv.Itoa(c.Incidents), formatFloat(c.MTTRHours),
					strconv.Itoa(c.SLAIn), strconv.Itoa(c.SLAOut),
				})
			}
		}
	}
}

func optionsTable(o reconcile.FilterOptions) func(*tablewriter.Table) {
	return func(tw *tablewriter.Table) {
		tw.SetHeader([]string{"Filter", "Values"})
		tw.AppendBulk([][]string{
			{"period", strings.Join(o.Periods, ", ")},
			{"technology", strings.Join(o.Technologies, ", ")},
			{"county", strings.Join(o.Counties, ", ")},
			{"priority", strings.Join(o.Priorities, ", ")},
		})
	}
}
