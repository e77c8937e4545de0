package model

import (
	"github.com/sells-group/siterisk/internal/schema"
)

// SLA status values after normalization.
const (
	SLAIn  = "IN"
	SLAOut = "OUT"
)

// Record is an incident joined with its registry site and annotated with
// derived metrics. Registry is nil when no registry row matched.
type Record struct {
	Incident `yaml:",inline"`
	Registry *Site `json:"registry,omitempty" yaml:"registry,omitempty"`

	MTTR      float64 `json:"mttr" yaml:"mttr"`
	Target    float64 `json:"mttr_target" yaml:"mttr_target"`
	Rank      float64 `json:"rank" yaml:"rank"`
	Variance  float64 `json:"variance" yaml:"variance"`
	Frequency int     `json:"frequency" yaml:"frequency"`
	RiskScore float64 `json:"risk_score" yaml:"risk_score"`
	Critical  bool    `json:"critical" yaml:"critical"`
}

// Matched reports whether the record joined a registry row.
func (r Record) Matched() bool {
	return r.Registry != nil
}

// County returns the registry county, or "" when unmatched or absent.
func (r Record) County() string {
	if r.Registry == nil {
		return ""
	}
	return r.Registry.County
}

// Technology returns the registry technology tag, or "" when unmatched or absent.
func (r Record) Technology() string {
	if r.Registry == nil {
		return ""
	}
	return r.Registry.Technology
}

// Table is the merged, metric-annotated working set handed to consumers.
type Table struct {
	Records []Record `json:"records" yaml:"records"`

	// IncidentFields lists the operations sheet fields that resolved on load.
	IncidentFields []schema.Field `json:"incident_fields" yaml:"incident_fields"`
	// SiteFields lists the registry fields carried through the merge.
	SiteFields []schema.Field `json:"site_fields" yaml:"site_fields"`
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}

// Empty reports whether the table has no records.
func (t Table) Empty() bool {
	return len(t.Records) == 0
}

// HasSiteField reports whether f was present in the registry and merged.
func (t Table) HasSiteField(f schema.Field) bool {
	for _, sf := range t.SiteFields {
		if sf == f {
			return true
		}
	}
	return false
}

// HasIncidentField reports whether f was present in the operations sheet.
func (t Table) HasIncidentField(f schema.Field) bool {
	for _, inf := range t.IncidentFields {
		if inf == f {
			return true
		}
	}
	return false
}

// WithRecords returns a copy of t carrying records and the same schema.
func (t Table) WithRecords(records []Record) Table {
	return Table{
		Records:        records,
		IncidentFields: append([]schema.Field(nil), t.IncidentFields...),
		SiteFields:     append([]schema.Field(nil), t.SiteFields...),
	}
}

// Clone returns a deep copy so callers can never alias another invocation's rows.
func (t Table) Clone() Table {
	records := make([]Record, len(t.Records))
	for i, r := range t.Records {
		records[i] = r
		if r.Registry != nil {
			s := *r.Registry
			if s.Latitude != nil {
				lat := *s.Latitude
				s.Latitude = &lat
			}
			if s.Longitude != nil {
				lon := *s.Longitude
				s.Longitude = &lon
			}
			records[i].Registry = &s
		}
	}
	return t.WithRecords(records)
}
