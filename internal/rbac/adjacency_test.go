package rbac

import (
	"testing"

	"github.com/kadirpekel/hexboard/internal/hexcoord"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangeTool(coord hexcoord.Coord, rng int, zones model.ZoneConfig) ToolPlacement {
	return ToolPlacement{
		HexKey: coord.Key(),
		Coord:  coord,
		Attrs: model.ToolAttributes{
			Range:       rng,
			LinkingMode: model.LinkByRange,
			Zones:       zones,
		},
	}
}

func TestRangeOneOnlyImmediateNeighbors(t *testing.T) {
	tool := rangeTool(hexcoord.Coord{0, 0}, 1, model.NewZoneConfigFromPreset(model.ZonePresetAllRW))
	_, reachable := Reaches(tool, hexcoord.Coord{1, 0})
	assert.True(t, reachable)

	_, reachable = Reaches(tool, hexcoord.Coord{2, 0})
	assert.False(t, reachable)
}

func TestRangeFiveIncludesDistanceFive(t *testing.T) {
	tool := rangeTool(hexcoord.Coord{0, 0}, 5, model.NewZoneConfigFromPreset(model.ZonePresetAllRW))
	_, reachable := Reaches(tool, hexcoord.Coord{5, 0})
	assert.True(t, reachable)
	_, reachable = Reaches(tool, hexcoord.Coord{6, 0})
	assert.False(t, reachable)
}

func TestExplicitLinkingIgnoresDistance(t *testing.T) {
	far := hexcoord.Coord{10, 10}
	tool := ToolPlacement{
		HexKey: hexcoord.Coord{0, 0}.Key(),
		Coord:  hexcoord.Coord{0, 0},
		Attrs: model.ToolAttributes{
			LinkingMode: model.LinkByExplicit,
			LinkedHexes: []string{far.Key()},
		},
	}
	r, reachable := Reaches(tool, far)
	require.True(t, reachable)
	assert.True(t, r.IsExplicit)

	_, reachable = Reaches(tool, hexcoord.Coord{1, 0})
	assert.False(t, reachable)
}

func TestAllRWPresetGrantsEverythingAdjacent(t *testing.T) {
	tool := rangeTool(hexcoord.Coord{0, 0}, 1, model.NewZoneConfigFromPreset(model.ZonePresetAllRW))
	for _, p := range []model.Permission{model.PermRead, model.PermWrite, model.PermExecute} {
		d := CheckPermission("agent-1", hexcoord.Coord{1, 0}, tool, p)
		assert.True(t, d.Allowed, "permission %s should be allowed", p)
	}
}

func TestWriteLeftReadRightPreset(t *testing.T) {
	tool := rangeTool(hexcoord.Coord{0, 0}, 1, model.NewZoneConfigFromPreset(model.ZonePresetWriteLeftReadRight))

	// West neighbor is in the write zone, not read.
	west := hexcoord.Neighbor(hexcoord.Coord{0, 0}, hexcoord.DirW)
	assert.True(t, CheckPermission("a", west, tool, model.PermWrite).Allowed)
	assert.False(t, CheckPermission("a", west, tool, model.PermRead).Allowed)

	// East neighbor is in the read zone, not write.
	east := hexcoord.Neighbor(hexcoord.Coord{0, 0}, hexcoord.DirE)
	assert.True(t, CheckPermission("a", east, tool, model.PermRead).Allowed)
	assert.False(t, CheckPermission("a", east, tool, model.PermWrite).Allowed)
}

func TestDenyListOverridesZones(t *testing.T) {
	tool := rangeTool(hexcoord.Coord{0, 0}, 1, model.NewZoneConfigFromPreset(model.ZonePresetAllRW))
	tool.Attrs.Zones.DenyEntityIDs = map[string]bool{"blocked-agent": true}

	d := CheckPermission("blocked-agent", hexcoord.Coord{1, 0}, tool, model.PermRead)
	assert.False(t, d.Allowed)
}

func TestExplicitAllowOverridesZoneDenial(t *testing.T) {
	tool := rangeTool(hexcoord.Coord{0, 0}, 1, model.NewZoneConfigFromPreset(model.ZonePresetWriteLeftReadRight))
	tool.Attrs.Zones.AllowEntityIDs = map[string]bool{"vip-agent": true}

	east := hexcoord.Neighbor(hexcoord.Coord{0, 0}, hexcoord.DirE)
	d := CheckPermission("vip-agent", east, tool, model.PermWrite)
	assert.True(t, d.Allowed)
}

func TestRBACDisabledUsesDefaultPermissions(t *testing.T) {
	zones := model.ZoneConfig{RBACEnabled: false, DefaultPermissions: map[model.Permission]bool{model.PermRead: true}}
	tool := rangeTool(hexcoord.Coord{0, 0}, 1, zones)

	assert.True(t, CheckPermission("a", hexcoord.Coord{1, 0}, tool, model.PermRead).Allowed)
	assert.False(t, CheckPermission("a", hexcoord.Coord{1, 0}, tool, model.PermWrite).Allowed)
}

func TestZoneDirectionForDistantAgentIsDeterministic(t *testing.T) {
	tool := hexcoord.Coord{0, 0}
	agent := hexcoord.Coord{5, 5}
	d1 := ZoneDirection(tool, agent)
	d2 := ZoneDirection(tool, agent)
	assert.Equal(t, d1, d2)
}

func TestReachableToolsAnnotatesDistance(t *testing.T) {
	t1 := rangeTool(hexcoord.Coord{1, 0}, 2, model.NewZoneConfigFromPreset(model.ZonePresetAllRW))
	t2 := rangeTool(hexcoord.Coord{10, 10}, 1, model.NewZoneConfigFromPreset(model.ZonePresetAllRW))

	reaches := ReachableTools([]ToolPlacement{t1, t2}, hexcoord.Coord{0, 0})
	require.Len(t, reaches, 1)
	assert.Equal(t, 1, reaches[0].Distance)
}
