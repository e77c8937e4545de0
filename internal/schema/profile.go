package schema

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultProfileYAML []byte

// Profile lists the accepted header aliases for every logical field, per sheet kind.
type Profile struct {
	Incident      map[Field][]string `yaml:"incident"`
	Registry      map[Field][]string `yaml:"registry"`
	RegistryAllow []Field            `yaml:"registry_allow"`
}

// Default returns the built-in profile.
func Default() *Profile {
	p, err := parseProfile(defaultProfileYAML)
	if err != nil {
		// The embedded profile is part of the binary; failing to parse it is a build defect.
		panic(eris.Wrap(err, "schema: parse embedded profile"))
	}
	return p
}

// LoadProfile reads a profile file and layers it over the default profile.
// Fields named in the file replace the default alias list for that field;
// an empty path returns the default profile.
func LoadProfile(path string) (*Profile, error) {
	base := Default()
	if path == "" {
		return base, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: read profile %s", path)
	}

	override, err := parseProfile(data)
	if err != nil {
		return nil, eris.Wrapf(err, "schema: parse profile %s", path)
	}

	for f, aliases := range override.Incident {
		base.Incident[f] = aliases
	}
	for f, aliases := range override.Registry {
		base.Registry[f] = aliases
	}
	if len(override.RegistryAllow) > 0 {
		base.RegistryAllow = override.RegistryAllow
	}

	if err := base.Validate(); err != nil {
		return nil, err
	}
	return base, nil
}

// Validate checks that both sheets can produce a join key.
func (p *Profile) Validate() error {
	if len(p.Incident[Site]) == 0 {
		return eris.New("schema: incident profile has no aliases for site")
	}
	if len(p.Registry[Site]) == 0 {
		return eris.New("schema: registry profile has no aliases for site")
	}
	return nil
}

// ResolveIncident resolves an operations sheet header against the profile.
func (p *Profile) ResolveIncident(header []string) Columns {
	return Resolve(header, p.Incident)
}

// ResolveRegistry resolves a site registry header against the profile.
func (p *Profile) ResolveRegistry(header []string) Columns {
	return Resolve(header, p.Registry)
}

func parseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, eris.Wrap(err, "schema: unmarshal profile")
	}
	if p.Incident == nil {
		p.Incident = make(map[Field][]string)
	}
	if p.Registry == nil {
		p.Registry = make(map[Field][]string)
	}
	return &p, nil
}
