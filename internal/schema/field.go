// Package schema maps loosely named spreadsheet headers onto logical fields.
package schema

// Field identifies a logical column independent of how a sheet spells its header.
type Field string

// Incident sheet fields.
const (
	Site       Field = "site"
	Summary    Field = "summary"
	MTTR       Field = "mttr"
	MTTRTarget Field = "mttr_target"
	Priority   Field = "priority"
	SLA        Field = "sla"
	Period     Field = "period"
	Rank       Field = "rank"
	Cause      Field = "cause"
	CauseTier2 Field = "cause_tier2"
)

// Registry sheet fields. Site and Rank are shared with the incident sheet.
const (
	Latitude      Field = "latitude"
	Longitude     Field = "longitude"
	District      Field = "district"
	Municipality  Field = "municipality"
	County        Field = "county"
	Technology    Field = "technology"
	Owner         Field = "owner"
	GreenZone     Field = "green_zone"
	Modernisation Field = "modernisation"
)

// IncidentRequired lists the incident fields a well-formed operations sheet carries.
var IncidentRequired = []Field{Site, Summary, MTTR, MTTRTarget, Priority, SLA, Period}

// RegistryRequired lists the registry fields a well-formed site registry carries.
var RegistryRequired = []Field{Site, Latitude, Longitude}

// fieldOrder fixes a stable presentation order for resolved fields.
var fieldOrder = []Field{
	Site, Summary, MTTR, MTTRTarget, Priority, SLA, Period, Rank, Cause, CauseTier2,
	Latitude, Longitude, District, Municipality, County, Technology, Owner, GreenZone, Modernisation,
}

// Ordered returns fields sorted by their canonical presentation order.
// Unknown fields sort last in input order.
func Ordered(fields []Field) []Field {
	set := make(map[Field]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	out := make([]Field, 0, len(fields))
	for _, f := range fieldOrder {
		if set[f] {
			out = append(out, f)
			delete(set, f)
		}
	}
	for _, f := range fields {
		if set[f] {
			out = append(out, f)
			delete(set, f)
		}
	}
	return out
}
