package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/schema"
)

func floatPtr(v float64) *float64 { return &v }

func TestMerge_FuzzyKeysMatchSingleRegistryRow(t *testing.T) {
	incidents := []model.Incident{
		{Site: "KZN_001 Alpha", MTTRRaw: "5,5"},
		{Site: "alpha"},
	}
	sites := []model.Site{
		{Site: "KZN_001 - Alpha", RankRaw: "2", County: "eThekwini"},
	}

	table := Merge(incidents, sites, []schema.Field{schema.County, schema.Rank})

	require.Len(t, table.Records, 2)
	for _, r := range table.Records {
		assert.Equal(t, "alpha", r.JoinKey)
		require.True(t, r.Matched())
		assert.Equal(t, "eThekwini", r.County())
		assert.Equal(t, "2", r.Registry.RankRaw)
		assert.Equal(t, "alpha", r.Registry.JoinKey)
	}
	assert.Equal(t, []schema.Field{schema.Rank, schema.County}, table.SiteFields)
}

func TestMerge_DeduplicatesRegistryFirstWins(t *testing.T) {
	incidents := []model.Incident{{Site: "Beta"}}
	sites := []model.Site{
		{Site: "BETA", County: "first"},
		{Site: "beta!", County: "second"},
	}

	table := Merge(incidents, sites, []schema.Field{schema.County})

	require.Len(t, table.Records, 1)
	assert.Equal(t, "first", table.Records[0].County())
}

func TestMerge_LeftJoinKeepsUnmatched(t *testing.T) {
	incidents := []model.Incident{
		{Site: "Alpha"},
		{Site: "Gamma"},
		{Site: ""},
	}
	sites := []model.Site{{Site: "Alpha"}}

	table := Merge(incidents, sites, nil)

	require.Len(t, table.Records, 3)
	assert.True(t, table.Records[0].Matched())
	assert.False(t, table.Records[1].Matched())
	assert.False(t, table.Records[2].Matched())
	assert.Equal(t, "", table.Records[1].County())
	assert.Equal(t, "", table.Records[2].JoinKey)
}

func TestMerge_RowCountNeverGrows(t *testing.T) {
	incidents := make([]model.Incident, 0, 50)
	for i := 0; i < 50; i++ {
		incidents = append(incidents, model.Incident{Site: []string{"A", "B", "C", "KZN_1 A"}[i%4]})
	}
	sites := []model.Site{
		{Site: "A"}, {Site: "a"}, {Site: "KZN_9 A"}, {Site: "B"}, {Site: "B"}, {Site: "D"},
	}

	table := Merge(incidents, sites, nil)
	assert.Len(t, table.Records, len(incidents))
}

func TestMerge_OnlyCarriesAllowedFields(t *testing.T) {
	sites := []model.Site{{
		Site:       "Alpha",
		Latitude:   floatPtr(-29.8),
		Longitude:  floatPtr(31.0),
		County:     "Ugu",
		Technology: "LTE",
		Owner:      "Towerco",
	}}

	table := Merge([]model.Incident{{Site: "alpha"}}, sites, []schema.Field{schema.Latitude, schema.Technology})

	reg := table.Records[0].Registry
	require.NotNil(t, reg)
	require.NotNil(t, reg.Latitude)
	assert.InDelta(t, -29.8, *reg.Latitude, 1e-9)
	assert.Nil(t, reg.Longitude)
	assert.Equal(t, "LTE", reg.Technology)
	assert.Empty(t, reg.County)
	assert.Empty(t, reg.Owner)
	assert.Equal(t, "Alpha", reg.Site)
}

func TestMerge_RecordsDoNotShareRegistry(t *testing.T) {
	sites := []model.Site{{Site: "Alpha", County: "Ugu"}}
	table := Merge([]model.Incident{{Site: "Alpha"}, {Site: "alpha"}}, sites, []schema.Field{schema.County})

	table.Records[0].Registry.County = "changed"
	assert.Equal(t, "Ugu", table.Records[1].Registry.County)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	incidents := []model.Incident{{Site: "KZN_1 Alpha"}}
	sites := []model.Site{{Site: "Alpha"}}

	Merge(incidents, sites, nil)

	assert.Empty(t, incidents[0].JoinKey)
	assert.Empty(t, sites[0].JoinKey)
}

func TestEngine_CustomNormalizer(t *testing.T) {
	e := NewEngine(NewNormalizer([]string{"GAU"}), nil)
	table := e.Merge(
		[]model.Incident{{Site: "GAU_4 Alpha"}},
		[]model.Site{{Site: "Alpha", County: "Tshwane"}},
		[]schema.Field{schema.County},
	)
	assert.Equal(t, "Tshwane", table.Records[0].County())
}
