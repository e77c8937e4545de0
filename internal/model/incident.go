package model

// Incident is one row of the operations sheet. Numeric columns are kept as raw
// text until the metric stage cleanses them.
type Incident struct {
	Site       string `json:"site" yaml:"site"`
	Summary    string `json:"summary" yaml:"summary"`
	MTTRRaw    string `json:"mttr_raw" yaml:"mttr_raw"`
	TargetRaw  string `json:"mttr_target_raw" yaml:"mttr_target_raw"`
	RankRaw    string `json:"rank_raw,omitempty" yaml:"rank_raw,omitempty"`
	Priority   string `json:"priority" yaml:"priority"`
	SLA        string `json:"sla" yaml:"sla"`
	Period     string `json:"period" yaml:"period"`
	Cause      string `json:"cause,omitempty" yaml:"cause,omitempty"`
	CauseTier2 string `json:"cause_tier2,omitempty" yaml:"cause_tier2,omitempty"`
	JoinKey    string `json:"join_key" yaml:"join_key"`
}

// Site is one row of a site registry sheet.
type Site struct {
	Site          string   `json:"site" yaml:"site"`
	Latitude      *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	District      string   `json:"district,omitempty" yaml:"district,omitempty"`
	Municipality  string   `json:"municipality,omitempty" yaml:"municipality,omitempty"`
	County        string   `json:"county,omitempty" yaml:"county,omitempty"`
	RankRaw       string   `json:"rank_raw,omitempty" yaml:"rank_raw,omitempty"`
	Technology    string   `json:"technology,omitempty" yaml:"technology,omitempty"`
	Owner         string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	GreenZone     string   `json:"green_zone,omitempty" yaml:"green_zone,omitempty"`
	Modernisation string   `json:"modernisation,omitempty" yaml:"modernisation,omitempty"`
	JoinKey       string   `json:"join_key" yaml:"join_key"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (s *Site) HasCoordinates() bool {
	return s != nil && s.Latitude != nil && s.Longitude != nil
}
