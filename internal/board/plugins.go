// Package board implements the Board Runner: the orchestration root that
// turns a persisted board's hexes into live actors, wires them to the
// coordination singletons, and tears them back down.
package board

import (
	"fmt"

	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/toolplugin"
	"github.com/kadirpekel/hexboard/internal/toolplugin/plugins"
)

// PluginFactory builds a fresh, uninitialized plugin instance for a tool
// type. The Tool Plugin Registry a Runner is constructed with serves only
// as a discovery catalog (GetAll/GetAvailable for listing); each tool
// entity a board places gets its own plugin instance via this factory, so
// that two filesystem tools on the same board can hold independent
// rootPaths.
type PluginFactory func(toolType model.ToolType) (toolplugin.Plugin, bool)

// DefaultPluginFactory builds the three built-in plugin kinds. Extension
// tools have no built-in factory entry; a Runner embedding custom
// extensions supplies its own PluginFactory that falls back to this one.
func DefaultPluginFactory(toolType model.ToolType) (toolplugin.Plugin, bool) {
	switch toolType {
	case model.ToolFilesystem:
		return plugins.NewFilesystem(), true
	case model.ToolShell:
		return plugins.NewShell(), true
	case model.ToolTasklist:
		return plugins.NewTasklist(), true
	default:
		return nil, false
	}
}

func errUnknownToolType(toolType model.ToolType) error {
	return fmt.Errorf("board: no plugin factory for tool type %q", toolType)
}
