package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siterisk/internal/fetcher"
	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/schema"
)

func fp(v float64) *float64 { return &v }

func sampleTable() model.Table {
	alpha := &model.Site{Site: "KZN_001 - Alpha", County: "eThekwini", Technology: "LTE",
		Latitude: fp(-29.85), Longitude: fp(31.02), JoinKey: "alpha"}
	beta := &model.Site{Site: "Beta", County: "uMgungundlovu", JoinKey: "beta"}

	rec := func(site, key string, reg *model.Site, mttr, variance, risk, rank float64, freq int, crit bool, prio, sla, cause, tier2 string) model.Record {
		var cp *model.Site
		if reg != nil {
			c := *reg
			cp = &c
		}
		return model.Record{
			Incident: model.Incident{Site: site, JoinKey: key, Priority: prio, SLA: sla, Cause: cause, CauseTier2: tier2},
			Registry: cp, MTTR: mttr, Variance: variance, RiskScore: risk, Rank: rank, Frequency: freq, Critical: crit,
		}
	}

	return model.Table{
		Records: []model.Record{
			rec("KZN_001 Alpha", "alpha", alpha, 5.5, 1.5, 100, 2, 2, true, "P1", "OUT", "Power", "Grid"),
			rec("alpha", "alpha", alpha, 0, -2, 100, 2, 2, false, "P4", "IN", "Power", "Battery"),
			rec("Beta", "beta", beta, 3, 2, 0.01, 10000, 1, true, "P4", "OUT", "Transmission", "Fibre"),
			rec("Gamma", "gamma", nil, 1, -1, 0.01, 0, 1, true, "P2", "IN", "", "Fibre"),
			rec("Gamma", "gamma", nil, 1, -1, 0.01, 0, 1, true, "P2", "IN", "", "Fibre"),
		},
		IncidentFields: []schema.Field{schema.Site, schema.Summary, schema.MTTR, schema.Priority, schema.SLA, schema.Cause, schema.CauseTier2},
		SiteFields:     []schema.Field{schema.Latitude, schema.Longitude, schema.County, schema.Technology},
	}
}

func TestBuildHitList(t *testing.T) {
	hl := BuildHitList(sampleTable(), 0)

	assert.Equal(t, []string{ColSite, ColSiteRank, ColFrequency, ColMTTR, ColVariance, ColRiskScore, ColCounty}, hl.Columns)
	require.Len(t, hl.Rows, 4, "identical Gamma rows collapse")
	assert.Equal(t, "KZN_001 Alpha", hl.Rows[0].Site)
	assert.Equal(t, "alpha", hl.Rows[1].Site)
	assert.Equal(t, "eThekwini", hl.Rows[0].County)
	for i := 1; i < len(hl.Rows); i++ {
		assert.GreaterOrEqual(t, hl.Rows[i-1].RiskScore, hl.Rows[i].RiskScore)
	}

	assert.Len(t, BuildHitList(sampleTable(), 2).Rows, 2)
}

func TestHitColumns_NoCounty(t *testing.T) {
	tbl := sampleTable()
	tbl.SiteFields = nil
	assert.NotContains(t, HitColumns(tbl), ColCounty)
}

func TestHitRow_Values(t *testing.T) {
	r := HitRow{Site: "A", SiteRank: 2, Frequency: 3, MTTR: 1.5, Variance: -1, RiskScore: 150, County: "C"}
	assert.Equal(t, []any{"A", 150.0, "C"}, r.Values([]string{ColSite, ColRiskScore, ColCounty}))
}

func TestWriteHitList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHitList(&buf, sampleTable(), ExportOptions{}))

	wb, err := fetcher.OpenXLSX(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultSheetName}, wb.SheetNames())

	rows, err := wb.Rows(DefaultSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, HitColumns(sampleTable()), rows[0])
	assert.Equal(t, "KZN_001 Alpha", rows[1][0])
	assert.Equal(t, "100", rows[1][5])
}

func TestExportOptions_FileName(t *testing.T) {
	assert.Equal(t, "KZN_Priority_Report.xlsx", ExportOptions{}.FileName("kzn"))
	assert.Equal(t, "ALL_Priority_Report.xlsx", ExportOptions{}.FileName(""))
	assert.Equal(t, "WES-report.xlsx", ExportOptions{FileTemplate: "%s-report.xlsx"}.FileName("wes"))
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTable())
	assert.False(t, s.Empty)
	assert.Equal(t, 5, s.Operations.TotalIncidents)
	assert.Equal(t, 2, s.Operations.P4Count)
	assert.InDelta(t, 0.4, s.Operations.SLAFailureRate, 1e-9)
	assert.InDelta(t, 10.5/5, s.Operations.AvgMTTR, 1e-9)
	assert.Equal(t, 2, s.Strategy.ProblemChildren)
	assert.InDelta(t, -0.5/5, s.Strategy.AvgVariance, 1e-9)
	assert.InDelta(t, 100.0, s.Strategy.MaxRiskScore, 1e-9)
}

func TestSummarize_MissingColumns(t *testing.T) {
	tbl := sampleTable()
	tbl.IncidentFields = []schema.Field{schema.Site}
	s := Summarize(tbl)
	assert.Equal(t, 0, s.Operations.P4Count)
	assert.Equal(t, 0.0, s.Operations.SLAFailureRate)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(model.Table{})
	assert.True(t, s.Empty)
	assert.Equal(t, OperationsKPIs{}, s.Operations)
}

func TestTopOffenders(t *testing.T) {
	got := TopOffenders(sampleTable(), 0)
	assert.Equal(t, []Offender{
		{Site: "Gamma", Count: 2},
		{Site: "Beta", Count: 1},
		{Site: "KZN_001 Alpha", Count: 1},
	}, got)

	assert.Len(t, TopOffenders(sampleTable(), 1), 1)
	assert.Empty(t, TopOffenders(model.Table{}, 5))
}

func TestRootCauses(t *testing.T) {
	nodes, ok := RootCauses(sampleTable())
	require.True(t, ok)
	require.Len(t, nodes, 2)

	power := nodes[0]
	assert.Equal(t, "Power", power.Name)
	assert.Equal(t, 2, power.Incidents)
	assert.InDelta(t, 5.5, power.MTTRHours, 1e-9)
	assert.Equal(t, 1, power.SLAIn)
	assert.Equal(t, 1, power.SLAOut)
	require.Len(t, power.Children, 2)
	assert.Equal(t, "Battery", power.Children[0].Name)
	assert.Equal(t, "Grid", power.Children[1].Name)

	assert.Equal(t, "Transmission", nodes[1].Name)
	assert.Equal(t, 1, nodes[1].SLAOut)
}

func TestRootCauses_NoColumns(t *testing.T) {
	tbl := sampleTable()
	tbl.IncidentFields = []schema.Field{schema.Site, schema.Cause}
	nodes, ok := RootCauses(tbl)
	assert.False(t, ok)
	assert.Nil(t, nodes)
}

func TestSitePoints(t *testing.T) {
	fc := SitePoints(sampleTable())
	require.Len(t, fc.Features, 1)

	f := fc.Features[0]
	assert.Equal(t, "alpha", f.ID)
	assert.Equal(t, []float64{31.02, -29.85}, f.Geometry.FlatCoords())
	assert.Equal(t, 2, f.Properties["frequency"])
	assert.Equal(t, 1, f.Properties["critical"])
	assert.InDelta(t, 5.5, f.Properties["mttr_hours"].(float64), 1e-9)

	data, err := MarshalSitePoints(sampleTable())
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
}

func TestSitePoints_Empty(t *testing.T) {
	data, err := MarshalSitePoints(model.Table{})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"features":[]`)
}
