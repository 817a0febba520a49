// Package team models an organization's delivery team as a capability model:
// which capabilities the roster covers, how many people back each one, and
// which baseline capabilities are missing. The matching stage reasons against
// this model instead of raw roster rows.
package team

import (
	"sort"
	"strings"
)

// Member is one person on the roster as the planning backend reports them.
type Member struct {
	MemberID    int    `json:"member_id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Designation string `json:"designation"`
	Position    string `json:"position,omitempty"`
}

// Capability returns the canonical capability this member's designation maps
// onto.
func (m Member) Capability() string {
	return capabilityFor(m.Designation)
}

// IsLead reports whether the member holds a head/lead position.
func (m Member) IsLead() bool {
	p := strings.ToLower(strings.TrimSpace(m.Position))
	return p == "head" || p == "lead"
}

// CapabilityModel summarizes a roster for the matching stage.
type CapabilityModel struct {
	TeamSize            int            `json:"team_size"`
	Capabilities        []string       `json:"capabilities"`
	MissingCapabilities []string       `json:"missing_capabilities"`
	LoadCapacity        map[string]int `json:"load_capacity"`
}

// Empty reports whether the model describes no team at all.
func (m *CapabilityModel) Empty() bool {
	return m == nil || m.TeamSize == 0
}

// Has reports whether the team covers the given capability.
func (m *CapabilityModel) Has(capability string) bool {
	if m == nil {
		return false
	}
	_, ok := m.LoadCapacity[capability]
	return ok
}

// baselineCapabilities is the coverage every software delivery team is
// checked against. Gaps show up as missing_capabilities.
var baselineCapabilities = []string{"backend", "frontend", "qa", "devops", "design"}

// capabilityFor maps a free-form designation onto a canonical capability.
func capabilityFor(designation string) string {
	d := strings.ToLower(designation)
	switch {
	case strings.Contains(d, "full"):
		return "fullstack"
	case strings.Contains(d, "backend"), strings.Contains(d, "back-end"):
		return "backend"
	case strings.Contains(d, "frontend"), strings.Contains(d, "front-end"), strings.Contains(d, "ui engineer"):
		return "frontend"
	case strings.Contains(d, "qa"), strings.Contains(d, "test"):
		return "qa"
	case strings.Contains(d, "devops"), strings.Contains(d, "sre"), strings.Contains(d, "infra"):
		return "devops"
	case strings.Contains(d, "design"):
		return "design"
	case strings.Contains(d, "data"), strings.Contains(d, "ml"), strings.Contains(d, "ai"):
		return "data"
	default:
		return "general"
	}
}

// Build derives a CapabilityModel from roster members. Fullstack members
// count toward both backend and frontend capacity; heads and leads add a
// leadership capability on top of their own.
func Build(members []Member) *CapabilityModel {
	load := map[string]int{}
	for _, m := range members {
		switch cap := m.Capability(); cap {
		case "fullstack":
			load["backend"]++
			load["frontend"]++
		default:
			load[cap]++
		}
		if m.IsLead() {
			load["leadership"]++
		}
	}

	caps := make([]string, 0, len(load))
	for c := range load {
		caps = append(caps, c)
	}
	sort.Strings(caps)

	var missing []string
	for _, c := range baselineCapabilities {
		if _, ok := load[c]; !ok {
			missing = append(missing, c)
		}
	}

	return &CapabilityModel{
		TeamSize:            len(members),
		Capabilities:        caps,
		MissingCapabilities: missing,
		LoadCapacity:        load,
	}
}

// GroupByCapability buckets members by canonical capability, preserving
// roster order inside each bucket. Fullstack members land in both backend
// and frontend buckets.
func GroupByCapability(members []Member) map[string][]Member {
	out := map[string][]Member{}
	for _, m := range members {
		switch cap := m.Capability(); cap {
		case "fullstack":
			out["backend"] = append(out["backend"], m)
			out["frontend"] = append(out["frontend"], m)
		default:
			out[cap] = append(out[cap], m)
		}
	}
	return out
}
