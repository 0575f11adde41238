package plugins

import "github.com/kadirpekel/hexboard/internal/toolplugin"

// RegisterBuiltins adds the filesystem, shell, and tasklist plugins to r
// under their default (unconfigured) state. Callers still call
// Initialize on each plugin instance once its tool entity's configuration
// blob is known.
func RegisterBuiltins(r *toolplugin.Registry) error {
	for _, p := range []toolplugin.Plugin{NewFilesystem(), NewShell(), NewTasklist()} {
		if err := r.Register(p); err != nil {
			return err
		}
	}
	return nil
}
