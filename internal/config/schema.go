package config

import (
	"context"
	"encoding/json"
	"fmt"

	invopopjsonschema "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kadirpekel/hexboard/internal/model"
)

// FilesystemConfig, ShellConfig, and TasklistConfig are the typed shapes
// for the three built-in plugin DefaultConfig blobs. They exist purely to
// drive JSON Schema generation for the schema subcommand's output and for
// runtime config validation; the plugins themselves still read their
// config as map[string]any.
type FilesystemConfig struct {
	RootPath string `json:"rootPath" jsonschema:"description=Absolute or board-relative root directory the filesystem tool is confined to"`
}

type ShellConfig struct {
	WorkDir        string   `json:"workDir" jsonschema:"description=Working directory commands execute in"`
	AllowedCommands []string `json:"allowedCommands,omitempty" jsonschema:"description=Allow-list of command names; empty means unrestricted"`
	TimeoutSeconds int      `json:"timeoutSeconds,omitempty" jsonschema:"description=Per-command execution timeout"`
}

type TasklistConfig struct {
	Tasks []string `json:"tasks,omitempty" jsonschema:"description=Initial checklist lines, Markdown '- [ ] text @priority:p1' syntax"`
}

// schemaFor returns the compiled invopop schema document for a tool type,
// or nil if the type has no known typed shape (extension plugins supply
// their own validation).
func schemaFor(toolType model.ToolType) *invopopjsonschema.Schema {
	r := &invopopjsonschema.Reflector{ExpandedStruct: true}
	switch toolType {
	case model.ToolFilesystem:
		return r.Reflect(&FilesystemConfig{})
	case model.ToolShell:
		return r.Reflect(&ShellConfig{})
	case model.ToolTasklist:
		return r.Reflect(&TasklistConfig{})
	default:
		return nil
	}
}

// GenerateSchema renders the JSON Schema document for a built-in tool
// type as indented JSON, for the CLI's schema subcommand.
func GenerateSchema(toolType model.ToolType) ([]byte, error) {
	s := schemaFor(toolType)
	if s == nil {
		return nil, fmt.Errorf("config: no schema known for tool type %q", toolType)
	}
	return json.MarshalIndent(s, "", "  ")
}

// ValidateToolConfig validates a tool hex's raw config JSON against its
// built-in type's schema. Extension tools (and any type with no known
// schema) are accepted unconditionally; plugin-specific validation is the
// plugin's own ValidateConfig method's job.
func ValidateToolConfig(toolType model.ToolType, raw []byte) error {
	schemaDoc := schemaFor(toolType)
	if schemaDoc == nil {
		return nil
	}

	schemaJSON, err := json.Marshal(schemaDoc)
	if err != nil {
		return fmt.Errorf("config: marshal schema for %q: %w", toolType, err)
	}

	var schemaAny any
	if err := json.Unmarshal(schemaJSON, &schemaAny); err != nil {
		return fmt.Errorf("config: re-decode schema for %q: %w", toolType, err)
	}

	compiler := jsonschema.NewCompiler()
	resourceName := string(toolType) + ".json"
	if err := compiler.AddResource(resourceName, schemaAny); err != nil {
		return fmt.Errorf("config: add schema resource for %q: %w", toolType, err)
	}
	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("config: compile schema for %q: %w", toolType, err)
	}

	var instance any
	if len(raw) == 0 {
		instance = map[string]any{}
	} else if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("config: tool config for %q is not valid JSON: %w", toolType, err)
	}

	if err := compiled.Validate(instance); err != nil {
		return fmt.Errorf("config: tool config for %q failed validation: %w", toolType, err)
	}
	return nil
}

// ValidateBoardExport runs ValidateToolConfig over every tool hex in a
// BoardExport, returning every validation failure rather than stopping at
// the first one so the validate CLI subcommand can report them all at
// once.
func ValidateBoardExport(_ context.Context, b *BoardExport) []error {
	var errs []error
	for _, h := range b.Hexes {
		if h.Category != string(model.CategoryTool) {
			continue
		}
		raw, err := json.Marshal(h.Config)
		if err != nil {
			errs = append(errs, fmt.Errorf("hex %s: marshal config: %w", h.ID, err))
			continue
		}
		if err := ValidateToolConfig(model.ToolType(h.EntityType), raw); err != nil {
			errs = append(errs, fmt.Errorf("hex %s: %w", h.ID, err))
		}
	}
	return errs
}
