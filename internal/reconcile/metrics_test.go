package reconcile

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/schema"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"5,5", 5.5},
		{"5.5", 5.5},
		{" 12 ", 12},
		{"", 0},
		{"n/a", 0},
		{"1,234.5", 0},
		{"-3,25", -3.25},
		{"NaN", 0},
		{"Inf", 0},
		{"-inf", 0},
		{"1e400", 0},
		{"7", 7},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := ParseNumber(tt.raw)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSafeRank(t *testing.T) {
	assert.Equal(t, UnrankedSentinel, SafeRank(0))
	assert.Equal(t, 10000.0, SafeRank(0))
	assert.Equal(t, UnrankedSentinel, SafeRank(-4))
	assert.Equal(t, UnrankedSentinel, SafeRank(math.NaN()))
	assert.Equal(t, UnrankedSentinel, SafeRank(math.Inf(1)))
	assert.Equal(t, 3.0, SafeRank(3))
	assert.Equal(t, 0.5, SafeRank(0.5))

	for _, r := range []float64{-100, -1, 0, 1e-9, 1, 2, 500, 9999, 1e9} {
		assert.Greater(t, SafeRank(r), 0.0, "rank %v", r)
	}
}

func TestRiskScore_Monotonic(t *testing.T) {
	// Increasing in frequency for a fixed rank.
	for rank := 1.0; rank <= 50; rank += 7 {
		prev := RiskScore(1, rank)
		for f := 2; f <= 10; f++ {
			cur := RiskScore(f, rank)
			assert.Greater(t, cur, prev)
			prev = cur
		}
	}
	// Decreasing in rank for a fixed frequency.
	prev := RiskScore(3, 1)
	for rank := 2.0; rank <= 100; rank++ {
		cur := RiskScore(3, rank)
		assert.Less(t, cur, prev)
		prev = cur
	}
}

func TestComputeMetrics_WorkedExample(t *testing.T) {
	incidents := []model.Incident{
		{Site: "KZN_001 Alpha", MTTRRaw: "5,5"},
		{Site: "alpha"},
	}
	sites := []model.Site{{Site: "KZN_001 - Alpha", RankRaw: "2"}}

	table := ComputeMetrics(Merge(incidents, sites, []schema.Field{schema.Rank}))

	require.Len(t, table.Records, 2)
	first, second := table.Records[0], table.Records[1]
	assert.Equal(t, 2, first.Frequency)
	assert.Equal(t, 2, second.Frequency)
	assert.InDelta(t, 5.5, first.MTTR, 1e-9)
	assert.InDelta(t, 0, second.MTTR, 1e-9)
	assert.InDelta(t, 2, first.Rank, 1e-9)
	assert.InDelta(t, 100, first.RiskScore, 1e-9)
	assert.InDelta(t, 5.5, first.Variance, 1e-9)
}

func TestComputeMetrics_ZeroRankSentinel(t *testing.T) {
	incidents := []model.Incident{{Site: "Gamma"}, {Site: "gamma"}}
	sites := []model.Site{{Site: "Gamma", RankRaw: "0"}}

	table := ComputeMetrics(Merge(incidents, sites, []schema.Field{schema.Rank}))

	for _, r := range table.Records {
		assert.Equal(t, 2, r.Frequency)
		assert.InDelta(t, 0.02, r.RiskScore, 1e-12)
	}
}

func TestComputeMetrics_RankFallsBackToIncidentColumn(t *testing.T) {
	incidents := []model.Incident{
		{Site: "Alpha", RankRaw: "4"},
		{Site: "Orphan", RankRaw: "5"},
	}
	// Registry without a rank column: the incident sheet's rank is used.
	table := ComputeMetrics(Merge(incidents, []model.Site{{Site: "Alpha"}}, nil))
	assert.InDelta(t, 4, table.Records[0].Rank, 1e-9)
	assert.InDelta(t, 5, table.Records[1].Rank, 1e-9)

	// Registry with a rank column wins when matched and non-empty.
	table = ComputeMetrics(Merge(incidents, []model.Site{{Site: "Alpha", RankRaw: "1"}}, []schema.Field{schema.Rank}))
	assert.InDelta(t, 1, table.Records[0].Rank, 1e-9)
	assert.InDelta(t, 5, table.Records[1].Rank, 1e-9)
}

func TestComputeMetrics_VarianceAndSLA(t *testing.T) {
	incidents := []model.Incident{
		{Site: "A", MTTRRaw: "10", TargetRaw: "4", SLA: " out "},
		{Site: "B", MTTRRaw: "3", SLA: "In"},
		{Site: "C", TargetRaw: "bogus"},
	}

	table := ComputeMetrics(Merge(incidents, nil, nil))

	assert.InDelta(t, 6, table.Records[0].Variance, 1e-9)
	assert.Equal(t, model.SLAOut, table.Records[0].SLA)
	assert.InDelta(t, 3, table.Records[1].Variance, 1e-9)
	assert.Equal(t, model.SLAIn, table.Records[1].SLA)
	assert.InDelta(t, 0, table.Records[2].Variance, 1e-9)
	assert.Equal(t, "", table.Records[2].SLA)
}

func TestComputeMetrics_FlagsCritical(t *testing.T) {
	incidents := []model.Incident{
		{Site: "A", Summary: "Link_Failure on backhaul"},
		{Site: "B", Summary: "Site OOS due to cable fault"},
	}
	table := ComputeMetrics(Merge(incidents, nil, nil))
	assert.True(t, table.Records[0].Critical)
	assert.False(t, table.Records[1].Critical)
}

func TestComputeMetrics_DoesNotMutateInput(t *testing.T) {
	in := Merge([]model.Incident{{Site: "A", MTTRRaw: "2", SLA: " in"}}, nil, nil)
	_ = ComputeMetrics(in)
	assert.Equal(t, 0.0, in.Records[0].MTTR)
	assert.Equal(t, " in", in.Records[0].SLA)
	assert.Equal(t, 0, in.Records[0].Frequency)
}

func TestRecompute_SubsetProperties(t *testing.T) {
	incidents := []model.Incident{
		{Site: "A"}, {Site: "A"}, {Site: "A"}, {Site: "B"}, {Site: "B"}, {Site: "C"}, {Site: ""},
	}
	full := ComputeMetrics(Merge(incidents, nil, nil))

	subsets := [][]int{{0, 1, 2, 3, 4, 5, 6}, {0, 3}, {1, 2, 5}, {6}, {}}
	for _, idx := range subsets {
		var subset []model.Record
		for _, i := range idx {
			subset = append(subset, full.Records[i])
		}
		view := Recompute(subset)

		keys := map[string]bool{}
		var inverseSum float64
		for _, r := range view {
			assert.LessOrEqual(t, r.Frequency, len(view))
			assert.GreaterOrEqual(t, r.Frequency, 1)
			inverseSum += 1 / float64(r.Frequency)
			keys[r.JoinKey] = true
		}
		assert.InDelta(t, float64(len(keys)), inverseSum, 1e-9, "subset %v", idx)
	}
}

func TestRecompute_ReturnsCopy(t *testing.T) {
	records := []model.Record{{Incident: model.Incident{JoinKey: "a"}}}
	out := Recompute(records)
	assert.Equal(t, 1, out[0].Frequency)
	assert.Equal(t, 0, records[0].Frequency)
}
