// Package rbac implements the hex-adjacency and zone-based permission
// model: which tool hexes an agent can reach, and whether a requested
// read/write/execute is permitted once reached.
package rbac

import (
	"github.com/kadirpekel/hexboard/internal/hexcoord"
	"github.com/kadirpekel/hexboard/internal/model"
)

// Reach describes one tool hex reachable from an agent hex.
type Reach struct {
	ToolHexKey   string
	ToolCoord    hexcoord.Coord
	Distance     int
	IsExplicit   bool
}

// ToolPlacement is the minimal view of a placed tool an adjacency query
// needs: its coordinate and its reach configuration.
type ToolPlacement struct {
	HexKey  string
	Coord   hexcoord.Coord
	Attrs   model.ToolAttributes
}

// Reaches reports whether tool can reach agentCoord, and if so at what
// distance and whether via an explicit link.
func Reaches(tool ToolPlacement, agentCoord hexcoord.Coord) (Reach, bool) {
	dist := hexcoord.Distance(agentCoord, tool.Coord)
	switch tool.Attrs.LinkingMode {
	case model.LinkByExplicit:
		agentKey := agentCoord.Key()
		for _, k := range tool.Attrs.LinkedHexes {
			if k == agentKey {
				return Reach{ToolHexKey: tool.HexKey, ToolCoord: tool.Coord, Distance: dist, IsExplicit: true}, true
			}
		}
		return Reach{}, false
	default: // model.LinkByRange
		if dist <= tool.Attrs.Range {
			return Reach{ToolHexKey: tool.HexKey, ToolCoord: tool.Coord, Distance: dist, IsExplicit: false}, true
		}
		return Reach{}, false
	}
}

// ReachableTools returns every tool placement reachable from agentCoord,
// annotated with distance and explicit-link flag.
func ReachableTools(tools []ToolPlacement, agentCoord hexcoord.Coord) []Reach {
	out := make([]Reach, 0, len(tools))
	for _, tool := range tools {
		if r, ok := Reaches(tool, agentCoord); ok {
			out = append(out, r)
		}
	}
	return out
}

// Decision is the outcome of a permission check: either allowed, or
// denied with a human-readable reason.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision           { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// CheckPermission evaluates whether an agent at agentCoord may perform
// action `perm` on a tool, in this rule order:
//  1. RBAC disabled -> consult DefaultPermissions only.
//  2. Deny list overrides everything; explicit allow-list overrides zones.
//  3. Resolve the direction label from the tool toward the agent.
//  4. Evaluate read/write/execute against the matching zones.
func CheckPermission(agentEntityID string, agentCoord hexcoord.Coord, tool ToolPlacement, perm model.Permission) Decision {
	zones := tool.Attrs.Zones

	if !zones.RBACEnabled {
		if zones.DefaultPermissions[perm] {
			return allow()
		}
		return deny("RBAC disabled on tool and requested permission is not in its default permission set")
	}

	if zones.DenyEntityIDs[agentEntityID] {
		return deny("agent is explicitly denied access to this tool")
	}
	if zones.AllowEntityIDs[agentEntityID] {
		return allow()
	}

	dir := ZoneDirection(tool.Coord, agentCoord)

	switch perm {
	case model.PermRead:
		if zones.ReadZone[dir] || zones.ReadWriteZone[dir] {
			return allow()
		}
		return deny("agent's direction from the tool is not in its read or read-write zone")
	case model.PermWrite:
		if zones.WriteZone[dir] || zones.ReadWriteZone[dir] {
			return allow()
		}
		return deny("agent's direction from the tool is not in its write or read-write zone")
	case model.PermExecute:
		if zones.ExecuteInAllZones {
			return allow()
		}
		if zones.ReadZone[dir] || zones.WriteZone[dir] || zones.ReadWriteZone[dir] {
			return allow()
		}
		return deny("execute is not enabled for all zones and agent's direction has no assigned zone")
	default:
		return deny("unknown permission kind")
	}
}

// ZoneDirection resolves the direction label used for zone evaluation
// when checking a tool at toolCoord against an agent at agentCoord. When
// the agent is an immediate neighbor (distance 1), the direction is
// exact. When it is not, this implementation uses the direction of the
// first step along a shortest path from the tool toward the agent,
// computed via hexcoord.StepToward. See the internal/rbac open-question
// note in DESIGN.md for the rationale.
func ZoneDirection(toolCoord, agentCoord hexcoord.Coord) hexcoord.Direction {
	if d, ok := hexcoord.DirectionTo(toolCoord, agentCoord); ok {
		return d
	}
	_, dir := hexcoord.StepToward(toolCoord, agentCoord)
	return dir
}
