package report

import (
	"sort"
	"strings"

	"github.com/sells-group/siterisk/internal/model"
	"github.com/sells-group/siterisk/internal/schema"
)

// CauseNode aggregates incidents for one (Cause, Cause Tier 2) pair or one Cause.
type CauseNode struct {
	Name      string      `json:"name" yaml:"name"`
	Incidents int         `json:"incidents" yaml:"incidents"`
	MTTRHours float64     `json:"mttr_hours" yaml:"mttr_hours"`
	SLAIn     int         `json:"sla_in" yaml:"sla_in"`
	SLAOut    int         `json:"sla_out" yaml:"sla_out"`
	Children  []CauseNode `json:"children,omitempty" yaml:"children,omitempty"`
}

func (n *CauseNode) add(r model.Record) {
	n.Incidents++
	n.MTTRHours += r.MTTR
	switch r.SLA {
	case model.SLAIn:
		n.SLAIn++
	case model.SLAOut:
		n.SLAOut++
	}
}

// RootCauses builds the two-level cause hierarchy. Records missing either
// cause are skipped; ok is false when the sheet has no cause columns at all.
func RootCauses(t model.Table) (nodes []CauseNode, ok bool) {
	if !t.HasIncidentField(schema.Cause) || !t.HasIncidentField(schema.CauseTier2) {
		return nil, false
	}

	type key struct{ cause, tier2 string }
	parents := make(map[string]*CauseNode)
	children := make(map[key]*CauseNode)

	for _, r := range t.Records {
		cause := strings.TrimSpace(r.Cause)
		tier2 := strings.TrimSpace(r.CauseTier2)
		if cause == "" || tier2 == "" {
			continue
		}

		p, found := parents[cause]
		if !found {
			p = &CauseNode{Name: cause}
			parents[cause] = p
		}
		p.add(r)

		c, found := children[key{cause, tier2}]
		if !found {
			c = &CauseNode{Name: tier2}
			children[key{cause, tier2}] = c
		}
		c.add(r)
	}

	for k, c := range children {
		parents[k.cause].Children = append(parents[k.cause].Children, *c)
	}

	nodes = make([]CauseNode, 0, len(parents))
	for _, p := range parents {
		sort.Slice(p.Children, func(i, j int) bool { return p.Children[i].Name < p.Children[j].Name })
		nodes = append(nodes, *p)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	return nodes, true
}
