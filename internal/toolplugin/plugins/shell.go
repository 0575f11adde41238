package plugins

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kadirpekel/hexboard/internal/event"
	"github.com/kadirpekel/hexboard/internal/model"
	"github.com/kadirpekel/hexboard/internal/toolplugin"
)

// ShellPluginID is the stable id this plugin registers under.
const ShellPluginID = "shell"

// Shell is the built-in shell tool plugin: allow-listed command and
// script execution with a bounded execution time.
type Shell struct {
	allowedCommands  map[string]bool
	workingDirectory string
	maxExecution     time.Duration
	sandboxed        bool
}

func NewShell() *Shell { return &Shell{} }

func (s *Shell) ID() string          { return ShellPluginID }
func (s *Shell) Name() string        { return "Shell" }
func (s *Shell) Description() string { return "Execute allow-listed shell commands and scripts." }
func (s *Shell) Icon() string        { return "terminal" }

func defaultAllowedCommands() []string {
	return []string{"cat", "head", "tail", "ls", "find", "grep", "wc", "pwd", "git", "go", "echo", "date"}
}

func (s *Shell) DefaultConfig() map[string]any {
	return map[string]any{
		"allowedCommands":  defaultAllowedCommands(),
		"workingDirectory": ".",
		"maxExecutionTime": 30,
		"enableSandboxing": true,
	}
}

func (s *Shell) ValidateConfig(config map[string]any) toolplugin.ValidationResult {
	return toolplugin.ValidationResult{Valid: true}
}

func (s *Shell) IsAvailable() bool { return true }

func (s *Shell) Initialize(config map[string]any) error {
	s.allowedCommands = make(map[string]bool)
	switch raw := config["allowedCommands"].(type) {
	case []string:
		for _, c := range raw {
			s.allowedCommands[c] = true
		}
	case []any:
		for _, c := range raw {
			if str, ok := c.(string); ok {
				s.allowedCommands[str] = true
			}
		}
	default:
		for _, c := range defaultAllowedCommands() {
			s.allowedCommands[c] = true
		}
	}

	s.workingDirectory, _ = config["workingDirectory"].(string)
	if s.workingDirectory == "" {
		s.workingDirectory = "."
	}

	s.maxExecution = 30 * time.Second
	switch secs := config["maxExecutionTime"].(type) {
	case int:
		if secs > 0 {
			s.maxExecution = time.Duration(secs) * time.Second
		}
	case float64:
		if secs > 0 {
			s.maxExecution = time.Duration(secs) * time.Second
		}
	}

	s.sandboxed = true
	if v, ok := config["enableSandboxing"].(bool); ok {
		s.sandboxed = v
	}
	return nil
}

func (s *Shell) Tools() []toolplugin.ToolDefinition {
	return []toolplugin.ToolDefinition{
		{Name: "execute", Description: "Run a shell command.", Parameters: []toolplugin.ToolParameter{
			{Name: "command", Type: "string", Required: true},
			{Name: "working_dir", Type: "string", Required: false},
		}},
		{Name: "execute_script", Description: "Run a multi-line script through an interpreter.", Parameters: []toolplugin.ToolParameter{
			{Name: "script", Type: "string", Required: true},
			{Name: "interpreter", Type: "string", Required: false, Default: "sh", Enum: []string{"sh", "bash", "python3"}},
		}},
	}
}

func (s *Shell) Execute(toolName string, params map[string]any, ctx toolplugin.ExecutionContext) toolplugin.ToolResult {
	switch toolName {
	case "execute":
		command, _ := params["command"].(string)
		workingDir, _ := params["working_dir"].(string)
		if workingDir == "" {
			workingDir = s.workingDirectory
		}
		return s.run(ctx, "sh", []string{"-c", command}, command, workingDir)
	case "execute_script":
		script, _ := params["script"].(string)
		interpreter, _ := params["interpreter"].(string)
		if interpreter == "" {
			interpreter = "sh"
		}
		return s.run(ctx, interpreter, []string{"-c", script}, script, s.workingDirectory)
	default:
		return errResult(fmt.Sprintf("unknown shell tool %q", toolName))
	}
}

// validate checks only the first command of a pipeline/sequence against
// the allow-list, matching how a reviewer reads a one-line shell command.
func (s *Shell) validate(command string) error {
	if !s.sandboxed {
		return nil
	}
	base := extractBaseCommand(command)
	if base == "" || !s.allowedCommands[base] {
		return fmt.Errorf("command not allowed: %s", base)
	}
	return nil
}

func extractBaseCommand(command string) string {
	parts := strings.FieldsFunc(command, func(r rune) bool {
		return r == '|' || r == '>' || r == '<' || r == ';'
	})
	if len(parts) == 0 {
		return ""
	}
	fields := strings.Fields(strings.TrimSpace(parts[0]))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func (s *Shell) run(ctx toolplugin.ExecutionContext, interpreter string, args []string, source, workingDir string) toolplugin.ToolResult {
	if err := s.validate(source); err != nil {
		return errResult(err.Error())
	}

	execCtx := ctx.Context
	if execCtx == nil {
		execCtx = context.Background()
	}
	if s.maxExecution > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(execCtx, s.maxExecution)
		defer cancel()
	}

	start := time.Now()
	s.emit(ctx, event.TypeShellCommandStart, map[string]any{"command": source, "working_dir": workingDir})

	cmd := exec.CommandContext(execCtx, interpreter, args...)
	cmd.Dir = workingDir
	output, runErr := cmd.CombinedOutput()
	duration := time.Since(start)

	s.emit(ctx, event.TypeShellCommandOutput, map[string]any{"command": source, "output": string(output)})

	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	s.emit(ctx, event.TypeShellCommandExit, map[string]any{"command": source, "exit_code": exitCode, "duration_ms": duration.Milliseconds()})

	if runErr != nil {
		return toolplugin.ToolResult{Success: false, Error: runErr.Error(), Result: string(output)}
	}
	return toolplugin.ToolResult{Success: true, Result: string(output)}
}

func (s *Shell) emit(ctx toolplugin.ExecutionContext, eventType string, data map[string]any) {
	if ctx.Bus == nil {
		return
	}
	data["agent_id"] = ctx.AgentID
	data["agent_name"] = ctx.AgentName
	ctx.Bus.Emit(model.EngineEvent{
		Type:      eventType,
		HexID:     ctx.ToolHexKey,
		BoardID:   ctx.BoardID,
		Data:      data,
		Timestamp: time.Now(),
	})
}
