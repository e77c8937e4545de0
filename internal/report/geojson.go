package report

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/siterisk/internal/model"
)

// SitePoints returns one GeoJSON point per matched site with coordinates.
// Properties carry the site's view metrics; the site's incidents are summed.
func SitePoints(t model.Table) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}
	index := make(map[string]*geojson.Feature)

	for _, r := range t.Records {
		if !r.Registry.HasCoordinates() {
			continue
		}
		if f, ok := index[r.JoinKey]; ok {
			f.Properties["mttr_hours"] = f.Properties["mttr_hours"].(float64) + r.MTTR
			if r.Critical {
				f.Properties["critical"] = f.Properties["critical"].(int) + 1
			}
			continue
		}

		critical := 0
		if r.Critical {
			critical = 1
		}
		f := &geojson.Feature{
			ID:       r.JoinKey,
			Geometry: geom.NewPointFlat(geom.XY, []float64{*r.Registry.Longitude, *r.Registry.Latitude}),
			Properties: map[string]any{
				"site":       r.Registry.Site,
				"county":     r.Registry.County,
				"technology": r.Registry.Technology,
				"frequency":  r.Frequency,
				"risk_score": r.RiskScore,
				"rank":       r.Rank,
				"mttr_hours": r.MTTR,
				"critical":   critical,
			},
		}
		index[r.JoinKey] = f
		fc.Features = append(fc.Features, f)
	}
	return fc
}

// MarshalSitePoints encodes SitePoints(t) as GeoJSON.
func MarshalSitePoints(t model.Table) ([]byte, error) {
	data, err := json.Marshal(SitePoints(t))
	if err != nil {
		return nil, eris.Wrap(err, "report: encode geojson")
	}
	return data, nil
}
