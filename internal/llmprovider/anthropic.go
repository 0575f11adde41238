package llmprovider

import (
	"context"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 4096

// AnthropicConfig configures an Anthropic-backed Provider.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Anthropic implements Provider against the Claude Messages API.
type Anthropic struct {
	client      *sdk.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropic builds an Anthropic provider from cfg.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llmprovider: anthropic api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llmprovider: anthropic model is required")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	client := sdk.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Anthropic{
		client:      &client,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (a *Anthropic) Complete(ctx context.Context, req Request) (Response, error) {
	params, err := a.buildParams(req)
	if err != nil {
		return Response{}, err
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("llmprovider: anthropic messages.new: %w", err)
	}

	return translateAnthropicMessage(msg, a.model), nil
}

func (a *Anthropic) buildParams(req Request) (sdk.MessageNewParams, error) {
	var system []sdk.TextBlockParam
	var conversation []sdk.MessageParam

	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			if msg.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: msg.Content})
			}
			continue
		}

		switch msg.Role {
		case RoleUser:
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(msg.Content)))
		case RoleAssistant:
			blocks := []sdk.ContentBlockParamUnion{}
			if msg.Content != "" {
				blocks = append(blocks, sdk.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				blocks = append(blocks, sdk.NewToolUseBlock(call.ToolCallID, call.Args, call.ToolName))
			}
			if len(blocks) > 0 {
				conversation = append(conversation, sdk.NewAssistantMessage(blocks...))
			}
		case RoleTool:
			conversation = append(conversation, sdk.NewUserMessage(
				sdk.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		}
	}

	if len(conversation) == 0 {
		return sdk.MessageNewParams{}, errors.New("llmprovider: anthropic request needs at least one user/assistant message")
	}

	model := req.Model
	if model == "" {
		model = a.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.maxTokens
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  conversation,
	}
	if len(system) > 0 {
		params.System = system
	}
	temp := req.Temperature
	if temp == 0 {
		temp = a.temperature
	}
	if temp > 0 {
		params.Temperature = sdk.Float(temp)
	}

	var tools []sdk.ToolUnionParam
	for _, t := range req.Tools {
		tool := sdk.ToolUnionParamOfTool(sdk.ToolInputSchemaParam{ExtraFields: t.Parameters}, t.Name)
		if tool.OfTool != nil {
			tool.OfTool.Description = sdk.String(t.Description)
		}
		tools = append(tools, tool)
	}
	if len(tools) > 0 {
		params.Tools = tools
	}

	return params, nil
}

func translateAnthropicMessage(msg *sdk.Message, fallbackModel string) Response {
	resp := Response{Model: fallbackModel, FinishReason: FinishStop}

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ToolCallID: block.ID,
				ToolName:   block.Name,
				Args:       anyMap(block.Input),
			})
		}
	}

	switch msg.StopReason {
	case "tool_use":
		resp.FinishReason = FinishToolCalls
	case "max_tokens":
		resp.FinishReason = FinishLength
	case "end_turn", "stop_sequence":
		resp.FinishReason = FinishStop
	default:
		resp.FinishReason = FinishOther
	}

	resp.Usage = Usage{
		PromptTokens:     uint64(msg.Usage.InputTokens),
		CompletionTokens: uint64(msg.Usage.OutputTokens),
		TotalTokens:      uint64(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}

	return resp
}

func anyMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}
