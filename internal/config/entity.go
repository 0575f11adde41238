package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/kadirpekel/hexboard/internal/model"
)

// decodeAttrs decodes generic into out, matching keys by folding out
// underscores and case, so a board export's snake_case JSON ("model_id")
// lands on the Go struct's CamelCase field (ModelID) without requiring
// every AgentAttributes/ToolAttributes field to carry an explicit tag.
func decodeAttrs(generic map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			fold := func(s string) string { return strings.ToLower(strings.ReplaceAll(s, "_", "")) }
			return fold(mapKey) == fold(fieldName)
		},
	})
	if err != nil {
		return err
	}
	return decoder.Decode(generic)
}

// DecodeEntity turns a persisted hex's raw config JSON into a model.Entity
// of the given category. category and entityType come from the store
// record's own columns, not the JSON blob, since the blob only carries
// attribute fields.
func DecodeEntity(id, displayName string, category model.EntityCategory, entityType string, raw []byte) (model.Entity, error) {
	entity := model.Entity{
		ID:          id,
		DisplayName: displayName,
		Category:    category,
		Status:      model.EntityIdle,
	}

	var generic map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &generic); err != nil {
			return entity, fmt.Errorf("config: decode entity %s config: %w", id, err)
		}
	}

	switch category {
	case model.CategoryAgent:
		var attrs model.AgentAttributes
		if err := decodeAttrs(generic, &attrs); err != nil {
			return entity, fmt.Errorf("config: decode agent attrs for %s: %w", id, err)
		}
		if attrs.Template == "" {
			attrs.Template = model.AgentTemplate(entityType)
		}
		entity.Agent = &attrs
	case model.CategoryTool:
		var attrs model.ToolAttributes
		if err := decodeAttrs(generic, &attrs); err != nil {
			return entity, fmt.Errorf("config: decode tool attrs for %s: %w", id, err)
		}
		if attrs.ToolType == "" {
			attrs.ToolType = model.ToolType(entityType)
		}
		if attrs.Config == nil {
			attrs.Config = generic
		}
		entity.Tool = &attrs
	default:
		return entity, fmt.Errorf("config: unknown entity category %q for %s", category, id)
	}

	return entity, nil
}

// Fingerprint computes a value that changes exactly when a redeploy of
// entity's actor is warranted. For tools the raw config bytes are the
// fingerprint directly (any byte change means the plugin must be
// reinitialized). For agents only the fields that affect prompting or
// provider selection matter; cosmetic attribute changes (e.g. a future
// display-only field) should not by themselves trigger a drop-and-rebuild
// of an in-flight agent actor.
func Fingerprint(entity model.Entity, raw []byte) string {
	if entity.Tool != nil {
		return string(raw)
	}
	if entity.Agent != nil {
		a := entity.Agent
		return fmt.Sprintf("%s|%s|%s|%.4f|%v", a.Provider, a.ModelID, a.SystemPromptExtra, a.Temperature, a.RuleFiles)
	}
	return string(raw)
}
