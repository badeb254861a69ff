package geochunk

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/soundprediction/zonegraph/pkg/types"
)

// Section headers. Episode truncation cuts on these prefixes.
const (
	zoneHeaderFormat    = "=== ZONE: %s (%s) ==="
	agentsHeader        = "\n--- ASSIGNED AGENTS ---"
	infrastructureTitle = "\n--- INFRASTRUCTURE (%d points) ---"
	entryExitTitle      = "\n--- ENTRY/EXIT POINTS (%d points) ---"
)

// Render produces the text rendering of a zone. Sections always appear in
// the same order; empty optional sections are omitted.
func Render(v types.ZoneView) string {
	var parts []string
	add := func(format string, args ...any) {
		parts = append(parts, fmt.Sprintf(format, args...))
	}

	add(zoneHeaderFormat, orDefault(v.Name(), "Unknown"), orDefault(v.ID(), "Unknown"))
	add("Type: %s", orDefault(v.ZoneType(), "unknown"))
	add("Security Level: %s", orDefault(v.SecurityLevel(), "unknown"))
	add("Access Level: %s", orDefault(v.AccessLevel(), "unknown"))

	if capacity := v.PopulationCapacity(); capacity > 0 {
		add("Capacity: %d people", capacity)
	}
	if pop, ok := v.CurrentPopulation(); ok {
		add("Current Population: %d people", pop)
	}

	if evac := v.EvacuationTimeMinutes(); evac > 0 {
		add("Evacuation Time: %d minutes", evac)
	}
	if protocols := v.EmergencyProtocols(); len(protocols) > 0 {
		add("Emergency Protocols: %s", strings.Join(protocols, ", "))
	}

	if agents := v.AssignedAgents(); len(agents) > 0 {
		parts = append(parts, agentsHeader)
		for _, agent := range agents {
			add("• Agent: %s", agent)
		}
	}
	if teams := v.ResponseTeamCoverage(); len(teams) > 0 {
		add("Response Teams: %s", strings.Join(teams, ", "))
	}

	if points := v.InfrastructurePoints(); len(points) > 0 {
		add(infrastructureTitle, len(points))
		for _, p := range points {
			renderInfrastructure(add, p)
		}
	}

	if points := v.EntryExitPoints(); len(points) > 0 {
		add(entryExitTitle, len(points))
		for _, p := range points {
			add("• %s (%s)", orDefault(p.Name, "Unknown"), orDefault(p.ID, "Unknown"))
			add("  - Entry: %t, Exit: %t", p.IsEntry, p.IsExit)
			add("  - Status: %s", pick(p.CurrentStatus, "Open", "Closed"))
		}
	}

	if channels := v.CommunicationChannels(); len(channels) > 0 {
		add("\nCommunication: %s", strings.Join(channels, ", "))
	}

	if reqs := v.ResourceRequirements(); len(reqs) > 0 {
		parts = append(parts, "\nResource Requirements:")
		keys := make([]string, 0, len(reqs))
		for k := range reqs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			add("• %s: %d", k, reqs[k])
		}
	}

	add("\nOperational Status: %s", pick(v.OperationalStatus(), "Active", "Inactive"))
	add("Last Updated: %s", orDefault(v.LastUpdated(), "Unknown"))

	geom := v.Geometry()
	if geom.Type != "" && len(geom.Coordinates) > 0 {
		add("\nGeometry: %s", geom.Type)
		if geom.Type == types.GeometryPolygon {
			if box, ok := geom.OuterRing().Bounds(); ok {
				add("Bounding Box: %s", FormatBoundingBox(box))
			}
		}
	}

	return strings.Join(parts, "\n")
}

func renderInfrastructure(add func(string, ...any), p types.InfrastructurePoint) {
	add("• %s (%s)", orDefault(p.Name, "Unknown"), orDefault(string(p.Type), "unknown"))
	add("  - ID: %s", orDefault(p.ID, "Unknown"))
	if len(p.Coordinates.Coordinates) > 0 {
		add("  - Coordinates: %s", FormatPosition(p.Coordinates.Coordinates))
	}
	add("  - Operational: %t", p.OperationalStatus)
	add("  - Access: %s", orDefault(string(p.AccessLevel), "Unknown"))
	if p.EmergencyPriority > 0 {
		add("  - Emergency Priority: %d", p.EmergencyPriority)
	} else {
		add("  - Emergency Priority: Unknown")
	}
	if len(p.ResourcesAvailable) > 0 {
		add("  - Resources: %s", strings.Join(p.ResourcesAvailable, ", "))
	}
	if len(p.SupportedIncidents) > 0 {
		incidents := make([]string, len(p.SupportedIncidents))
		for i, inc := range p.SupportedIncidents {
			incidents[i] = string(inc)
		}
		add("  - Handles Incidents: %s", strings.Join(incidents, ", "))
	}
}

// FormatPosition renders a position as [lon, lat].
func FormatPosition(pos []float64) string {
	parts := make([]string, len(pos))
	for i, f := range pos {
		parts[i] = formatFloat(f)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatBoundingBox renders a box as {min_lon: x, max_lon: x, min_lat: y, max_lat: y}.
func FormatBoundingBox(b types.BoundingBox) string {
	return fmt.Sprintf("{min_lon: %s, max_lon: %s, min_lat: %s, max_lat: %s}",
		formatFloat(b.MinLon), formatFloat(b.MaxLon), formatFloat(b.MinLat), formatFloat(b.MaxLat))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func pick(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}
