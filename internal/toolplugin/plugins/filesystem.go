// Package plugins implements the built-in Tool Plugin Registry plugins:
// filesystem, shell, and tasklist.
package plugins

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/toolplugin"
)

// FilesystemPluginID is the stable id this plugin registers under.
const FilesystemPluginID = "filesystem"

// Filesystem is the built-in filesystem tool plugin: read, write, list,
// search, and manage files beneath a configured root path.
type Filesystem struct {
	rootPath string
}

func NewFilesystem() *Filesystem { return &Filesystem{} }

func (f *Filesystem) ID() string          { return FilesystemPluginID }
func (f *Filesystem) Name() string        { return "Filesystem" }
func (f *Filesystem) Description() string { return "Read, write, and search files beneath a configured root path." }
func (f *Filesystem) Icon() string        { return "folder" }

func (f *Filesystem) DefaultConfig() map[string]any {
	return map[string]any{"rootPath": "."}
}

func (f *Filesystem) ValidateConfig(config map[string]any) toolplugin.ValidationResult {
	root, ok := config["rootPath"].(string)
	if !ok || root == "" {
		return toolplugin.ValidationResult{Valid: false, Errors: []string{"rootPath is required"}}
	}
	return toolplugin.ValidationResult{Valid: true}
}

func (f *Filesystem) IsAvailable() bool { return true }

// Initialize resolves rootPath to an absolute path so every subsequent
// resolve() can cheaply check path containment with a prefix test.
func (f *Filesystem) Initialize(config map[string]any) error {
	root, _ := config["rootPath"].(string)
	if root == "" {
		return fmt.Errorf("filesystem plugin: rootPath is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("filesystem plugin: %w", err)
	}
	f.rootPath = abs
	return nil
}

func (f *Filesystem) Tools() []toolplugin.ToolDefinition {
	return []toolplugin.ToolDefinition{
		{Name: "read_file", Description: "Read a file's contents.", Parameters: []toolplugin.ToolParameter{
			{Name: "path", Type: "string", Description: "Path relative to the filesystem root.", Required: true},
		}},
		{Name: "write_file", Description: "Write a file's contents, creating it if absent.", Parameters: []toolplugin.ToolParameter{
			{Name: "path", Type: "string", Required: true},
			{Name: "content", Type: "string", Required: true},
		}},
		{Name: "list_directory", Description: "List entries in a directory.", Parameters: []toolplugin.ToolParameter{
			{Name: "path", Type: "string", Required: false, Default: "."},
		}},
		{Name: "search", Description: "Search file contents for a substring, returning matching lines.", Parameters: []toolplugin.ToolParameter{
			{Name: "query", Type: "string", Required: true},
			{Name: "path", Type: "string", Required: false, Default: "."},
		}},
		{Name: "codebase_search", Description: "Search file contents for a query across the whole root.", Parameters: []toolplugin.ToolParameter{
			{Name: "query", Type: "string", Required: true},
		}},
		{Name: "delete_file", Description: "Delete a file.", Parameters: []toolplugin.ToolParameter{
			{Name: "path", Type: "string", Required: true},
		}},
		{Name: "copy_file", Description: "Copy a file.", Parameters: []toolplugin.ToolParameter{
			{Name: "source", Type: "string", Required: true},
			{Name: "destination", Type: "string", Required: true},
		}},
		{Name: "move_file", Description: "Move or rename a file.", Parameters: []toolplugin.ToolParameter{
			{Name: "source", Type: "string", Required: true},
			{Name: "destination", Type: "string", Required: true},
		}},
		{Name: "create_directory", Description: "Create a directory, including parents.", Parameters: []toolplugin.ToolParameter{
			{Name: "path", Type: "string", Required: true},
		}},
		{Name: "file_exists", Description: "Report whether a path exists.", Parameters: []toolplugin.ToolParameter{
			{Name: "path", Type: "string", Required: true},
		}},
		{Name: "get_info", Description: "Return size, mode, and modification time for a path.", Parameters: []toolplugin.ToolParameter{
			{Name: "path", Type: "string", Required: true},
		}},
	}
}

func (f *Filesystem) Execute(toolName string, params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	switch toolName {
	case "read_file":
		return f.readFile(params, ctx)
	case "write_file":
		return f.writeFile(params, ctx)
	case "list_directory":
		return f.listDirectory(params)
	case "search", "codebase_search":
		return f.search(params)
	case "delete_file":
		return f.deleteFile(params, ctx)
	case "copy_file":
		return f.copyFile(params, ctx)
	case "move_file":
		return f.moveFile(params, ctx)
	case "create_directory":
		return f.createDirectory(params)
	case "file_exists":
		return f.fileExists(params)
	case "get_info":
		return f.getInfo(params)
	default:
		return errResult(fmt.Sprintf("unknown filesystem tool %q", toolName))
	}
}

func errResult(msg string) toolplugin.ToolResult {
	return toolplugin.ToolResult{Success: false, Error: msg}
}

// resolve joins relPath onto the configured root and refuses any path that
// would escape it via ".." segments.
func (f *Filesystem) resolve(relPath string) (string, error) {
	abs := filepath.Join(f.rootPath, relPath)
	if abs != f.rootPath && !strings.HasPrefix(abs, f.rootPath+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes filesystem root: %s", relPath)
	}
	return abs, nil
}

func (f *Filesystem) emitChanged(ctx toolplugin.ExecutionContext, relPath, operation string) {
	if ctx.Bus == nil {
		return
	}
	now := time.Now()
	ctx.Bus.Emit(model.EngineEvent{
		Type:    event.TypeFilesystemChanged,
		HexID:   ctx.ToolHexKey,
		BoardID: ctx.BoardID,
		Data: map[string]any{
			"agent_id":      ctx.AgentID,
			"agent_name":    ctx.AgentName,
			"operation":     operation,
			"path":          relPath,
			"filesystem_id": ctx.ToolEntityID,
			"mod_time":      now,
		},
		Timestamp: now,
	})
}

func (f *Filesystem) readFile(params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	relPath, _ := params["path"].(string)
	if relPath == "" {
		return errResult("path is required")
	}
	abs, err := f.resolve(relPath)
	if err != nil {
		return errResult(err.Error())
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return errResult(err.Error())
	}
	var mtime time.Time
	if info, statErr := os.Stat(abs); statErr == nil {
		mtime = info.ModTime()
	}
	if ctx.FSManager != nil {
		ctx.FSManager.RecordRead(ctx.AgentID, ctx.ToolEntityID, relPath, mtime, "")
	}
	return toolplugin.ToolResult{Success: true, Result: string(data)}
}

// writeFile enforces read-before-write for existing files and claims the
// path exclusively for the duration of the write.
func (f *Filesystem) writeFile(params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	relPath, _ := params["path"].(string)
	content, _ := params["content"].(string)
	if relPath == "" {
		return errResult("path is required")
	}
	abs, err := f.resolve(relPath)
	if err != nil {
		return errResult(err.Error())
	}

	_, statErr := os.Stat(abs)
	exists := statErr == nil

	if ctx.FSManager != nil && !ctx.FSManager.CheckReadBeforeWrite(ctx.AgentID, ctx.ToolEntityID, relPath, exists) {
		return errResult(fmt.Sprintf("file %q must read before it can be written", relPath))
	}

	if ctx.Reservations != nil {
		if _, err := ctx.Reservations.Claim(abs, ctx.AgentID, ctx.AgentName, "write"); err != nil {
			return errResult(err.Error())
		}
		defer ctx.Reservations.Release(abs, ctx.AgentID)
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return errResult(err.Error())
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return errResult(err.Error())
	}

	f.emitChanged(ctx, relPath, "write")
	if ctx.FSManager != nil {
		ctx.FSManager.RecordRead(ctx.AgentID, ctx.ToolEntityID, relPath, time.Now(), "")
	}
	return toolplugin.ToolResult{Success: true, Result: "ok"}
}

func (f *Filesystem) listDirectory(params map[string]any) toolplugin.ToolResult {
	relPath, _ := params["path"].(string)
	if relPath == "" {
		relPath = "."
	}
	abs, err := f.resolve(relPath)
	if err != nil {
		return errResult(err.Error())
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return errResult(err.Error())
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return toolplugin.ToolResult{Success: true, Result: names}
}

// searchMatch is one line hit returned by search and codebase_search.
type searchMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

func (f *Filesystem) search(params map[string]any) toolplugin.ToolResult {
	query, _ := params["query"].(string)
	if query == "" {
		return errResult("query is required")
	}
	relPath, _ := params["path"].(string)
	if relPath == "" {
		relPath = "."
	}
	root, err := f.resolve(relPath)
	if err != nil {
		return errResult(err.Error())
	}

	var matches []searchMatch
	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		data, readErr := os.ReadFile(p)
		if readErr != nil {
			return nil
		}
		rel, _ := filepath.Rel(f.rootPath, p)
		for i, line := range strings.Split(string(data), "\n") {
			if strings.Contains(line, query) {
				matches = append(matches, searchMatch{Path: rel, Line: i + 1, Text: strings.TrimSpace(line)})
			}
		}
		return nil
	})
	if walkErr != nil {
		return errResult(walkErr.Error())
	}
	return toolplugin.ToolResult{Success: true, Result: matches}
}

func (f *Filesystem) deleteFile(params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	relPath, _ := params["path"].(string)
	if relPath == "" {
		return errResult("path is required")
	}
	abs, err := f.resolve(relPath)
	if err != nil {
		return errResult(err.Error())
	}
	if ctx.Reservations != nil {
		if _, err := ctx.Reservations.Claim(abs, ctx.AgentID, ctx.AgentName, "delete"); err != nil {
			return errResult(err.Error())
		}
		defer ctx.Reservations.Release(abs, ctx.AgentID)
	}
	if err := os.Remove(abs); err != nil {
		return errResult(err.Error())
	}
	f.emitChanged(ctx, relPath, "delete")
	return toolplugin.ToolResult{Success: true, Result: "ok"}
}

func (f *Filesystem) copyFile(params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	src, _ := params["source"].(string)
	dst, _ := params["destination"].(string)
	if src == "" || dst == "" {
		return errResult("source and destination are required")
	}
	absSrc, err := f.resolve(src)
	if err != nil {
		return errResult(err.Error())
	}
	absDst, err := f.resolve(dst)
	if err != nil {
		return errResult(err.Error())
	}
	data, err := os.ReadFile(absSrc)
	if err != nil {
		return errResult(err.Error())
	}
	if ctx.Reservations != nil {
		if _, err := ctx.Reservations.Claim(absDst, ctx.AgentID, ctx.AgentName, "copy"); err != nil {
			return errResult(err.Error())
		}
		defer ctx.Reservations.Release(absDst, ctx.AgentID)
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return errResult(err.Error())
	}
	if err := os.WriteFile(absDst, data, 0o644); err != nil {
		return errResult(err.Error())
	}
	f.emitChanged(ctx, dst, "copy")
	return toolplugin.ToolResult{Success: true, Result: "ok"}
}

func (f *Filesystem) moveFile(params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	src, _ := params["source"].(string)
	dst, _ := params["destination"].(string)
	if src == "" || dst == "" {
		return errResult("source and destination are required")
	}
	absSrc, err := f.resolve(src)
	if err != nil {
		return errResult(err.Error())
	}
	absDst, err := f.resolve(dst)
	if err != nil {
		return errResult(err.Error())
	}
	if ctx.Reservations != nil {
		if _, err := ctx.Reservations.Claim(absDst, ctx.AgentID, ctx.AgentName, "move"); err != nil {
			return errResult(err.Error())
		}
		defer ctx.Reservations.Release(absDst, ctx.AgentID)
	}
	if err := os.MkdirAll(filepath.Dir(absDst), 0o755); err != nil {
		return errResult(err.Error())
	}
	if err := os.Rename(absSrc, absDst); err != nil {
		return errResult(err.Error())
	}
	f.emitChanged(ctx, dst, "move")
	return toolplugin.ToolResult{Success: true, Result: "ok"}
}

func (f *Filesystem) createDirectory(params map[string]any) toolplugin.ToolResult {
	relPath, _ := params["path"].(string)
	if relPath == "" {
		return errResult("path is required")
	}
	abs, err := f.resolve(relPath)
	if err != nil {
		return errResult(err.Error())
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return errResult(err.Error())
	}
	return toolplugin.ToolResult{Success: true, Result: "ok"}
}

func (f *Filesystem) fileExists(params map[string]any) toolplugin.ToolResult {
	relPath, _ := params["path"].(string)
	if relPath == "" {
		return errResult("path is required")
	}
	abs, err := f.resolve(relPath)
	if err != nil {
		return errResult(err.Error())
	}
	_, statErr := os.Stat(abs)
	return toolplugin.ToolResult{Success: true, Result: statErr == nil}
}

func (f *Filesystem) getInfo(params map[string]any) toolplugin.ToolResult {
	relPath, _ := params["path"].(string)
	if relPath == "" {
		return errResult("path is required")
	}
	abs, err := f.resolve(relPath)
	if err != nil {
		return errResult(err.Error())
	}
	info, err := os.Stat(abs)
	if err != nil {
		return errResult(err.Error())
	}
	return toolplugin.ToolResult{Success: true, Result: map[string]any{
		"size":    info.Size(),
		"mode":    info.Mode().String(),
		"isDir":   info.IsDir(),
		"modTime": info.ModTime(),
	}}
}
