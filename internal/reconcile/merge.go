package reconcile

import (
	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/schema"
)

// Engine bundles the normalizer and classifier used by one deployment.
// It is immutable after construction and may be shared across invocations.
type Engine struct {
	normalizer *Normalizer
	classifier *Classifier
}

// NewEngine creates an Engine. Nil arguments select the defaults.
func NewEngine(n *Normalizer, c *Classifier) *Engine {
	if n == nil {
		n = defaultNormalizer
	}
	if c == nil {
		c = defaultClassifier
	}
	return &Engine{normalizer: n, classifier: c}
}

// Normalizer returns the engine's key normalizer.
func (e *Engine) Normalizer() *Normalizer { return e.normalizer }

// Classifier returns the engine's critical-incident classifier.
func (e *Engine) Classifier() *Classifier { return e.classifier }

var defaultEngine = NewEngine(nil, nil)

// Merge left-joins incidents onto the registry with the default engine.
func Merge(incidents []model.Incident, sites []model.Site, siteFields []schema.Field) model.Table {
	return defaultEngine.Merge(incidents, sites, siteFields)
}

// Merge computes join keys on both sides, keeps the first registry row per
// key, and left-joins every incident onto it. Only registry fields listed in
// siteFields are copied; callers pass the allow-list intersected with the
// columns the registry sheet actually has. Incidents are never deduplicated,
// so len(result.Records) == len(incidents).
func (e *Engine) Merge(incidents []model.Incident, sites []model.Site, siteFields []schema.Field) model.Table {
	carry := make(map[schema.Field]bool, len(siteFields))
	for _, f := range siteFields {
		carry[f] = true
	}

	registry := make(map[string]*model.Site, len(sites))
	for _, s := range sites {
		key := e.normalizer.Key(s.Site)
		if _, seen := registry[key]; seen {
			continue
		}
		projected := project(s, carry)
		projected.JoinKey = key
		registry[key] = &projected
	}

	records := make([]model.Record, len(incidents))
	for i, inc := range incidents {
		inc.JoinKey = e.normalizer.Key(inc.Site)
		rec := model.Record{Incident: inc}
		if site, ok := registry[inc.JoinKey]; ok {
			// Each record owns its copy so later edits never leak across rows.
			cp := *site
			rec.Registry = &cp
		}
		records[i] = rec
	}

	return model.Table{
		Records:    records,
		SiteFields: schema.Ordered(append([]schema.Field(nil), siteFields...)),
	}
}

// project copies the identifier plus the carried fields of s.
func project(s model.Site, carry map[schema.Field]bool) model.Site {
	out := model.Site{Site: s.Site}
	if carry[schema.Latitude] && s.Latitude != nil {
		lat := *s.Latitude
		out.Latitude = &lat
	}
	if carry[schema.Longitude] && s.Longitude != nil {
		lon := *s.Longitude
		out.Longitude = &lon
	}
	if carry[schema.District] {
		out.District = s.District
	}
	if carry[schema.Municipality] {
		out.Municipality = s.Municipality
	}
	if carry[schema.County] {
		out.County = s.County
	}
	if carry[schema.Rank] {
		out.RankRaw = s.RankRaw
	}
	if carry[schema.Technology] {
		out.Technology = s.Technology
	}
	if carry[schema.Owner] {
		out.Owner = s.Owner
	}
	if carry[schema.GreenZone] {
		out.GreenZone = s.GreenZone
	}
	if carry[schema.Modernisation] {
		out.Modernisation = s.Modernisation
	}
	return out
}
