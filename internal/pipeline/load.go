package pipeline

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/schema"
)

// incidentSheet is the parsed operations sheet.
type incidentSheet struct {
	incidents []model.Incident
	fields    []schema.Field
	warnings  []string
}

// registrySheet is the parsed site registry.
type registrySheet struct {
	sites    []model.Site
	fields   []schema.Field // allow-list fields present in the header
	warnings []string
}

// loadIncidents maps operations rows (header first) onto incidents. Missing
// columns yield zero values plus a warning.
func loadIncidents(sheet string, rows [][]string, profile *schema.Profile) incidentSheet {
	var out incidentSheet
	if len(rows) == 0 {
		out.warnings = append(out.warnings, fmt.Sprintf("operations sheet %q is empty", sheet))
		return out
	}

	cols := profile.ResolveIncident(rows[0])
	out.fields = cols.Present()
	if missing := cols.Missing(schema.IncidentRequired); len(missing) > 0 {
		out.warnings = append(out.warnings, missingWarning("operations sheet", sheet, missing))
	}

	out.incidents = make([]model.Incident, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out.incidents = append(out.incidents, model.Incident{
			Site:       cols.Get(row, schema.Site),
			Summary:    cols.Get(row, schema.Summary),
			MTTRRaw:    cols.Get(row, schema.MTTR),
			TargetRaw:  cols.Get(row, schema.MTTRTarget),
			RankRaw:    cols.Get(row, schema.Rank),
			Priority:   cols.Get(row, schema.Priority),
			SLA:        cols.Get(row, schema.SLA),
			Period:     cols.Get(row, schema.Period),
			Cause:      cols.Get(row, schema.Cause),
			CauseTier2: cols.Get(row, schema.CauseTier2),
		})
	}
	return out
}

// loadSites maps registry rows (header first) onto sites. A registry without
// an identifier column cannot be joined and loads as empty.
func loadSites(sheet string, rows [][]string, profile *schema.Profile) registrySheet {
	var out registrySheet
	if len(rows) == 0 {
		out.warnings = append(out.warnings, fmt.Sprintf("site registry %q is empty", sheet))
		return out
	}

	cols := profile.ResolveRegistry(rows[0])
	if missing := cols.Missing(schema.RegistryRequired); len(missing) > 0 {
		out.warnings = append(out.warnings, missingWarning("site registry", sheet, missing))
	}
	if !cols.Has(schema.Site) {
		return out
	}
	out.fields = cols.Intersect(profile.RegistryAllow)

	out.sites = make([]model.Site, 0, len(rows)-1)
	for _, row := range rows[1:] {
		out.sites = append(out.sites, model.Site{
			Site:          cols.Get(row, schema.Site),
			Latitude:      parseCoordinate(cols.Get(row, schema.Latitude)),
			Longitude:     parseCoordinate(cols.Get(row, schema.Longitude)),
			District:      cols.Get(row, schema.District),
			Municipality:  cols.Get(row, schema.Municipality),
			County:        cols.Get(row, schema.County),
			RankRaw:       cols.Get(row, schema.Rank),
			Technology:    cols.Get(row, schema.Technology),
			Owner:         cols.Get(row, schema.Owner),
			GreenZone:     cols.Get(row, schema.GreenZone),
			Modernisation: cols.Get(row, schema.Modernisation),
		})
	}
	return out
}

// parseCoordinate returns nil for blank or unparseable coordinates so they
// are never mistaken for (0, 0).
func parseCoordinate(raw string) *float64 {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if raw == "" {
		return nil
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func missingWarning(kind, sheet string, missing []schema.Field) string {
	names := make([]string, len(missing))
	for i, f := range missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("%s %q is missing column(s): %s", kind, sheet, strings.Join(names, ", "))
}
