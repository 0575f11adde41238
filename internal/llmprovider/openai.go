package llmprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIMaxTokens = 4096

// OpenAIConfig configures an OpenAI-backed Provider.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	BaseURL     string
}

// OpenAI implements Provider against the Chat Completions API.
type OpenAI struct {
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAI builds an OpenAI provider from cfg.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llmprovider: openai api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llmprovider: openai model is required")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultOpenAIMaxTokens
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (Response, error) {
	params, err := o.buildParams(req)
	if err != nil {
		return Response{}, err
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("llmprovider: openai chat.completions.new: %w", err)
	}
	if len(completion.Choices) == 0 {
		return Response{}, errors.New("llmprovider: openai returned no choices")
	}

	return translateOpenAICompletion(completion, o.model), nil
}

func (o *OpenAI) buildParams(req Request) (openai.ChatCompletionNewParams, error) {
	var messages []openai.ChatCompletionMessageParamUnion

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(msg.Content))
		case RoleUser:
			messages = append(messages, openai.UserMessage(msg.Content))
		case RoleAssistant:
			assistantMsg := openai.AssistantMessage(msg.Content)
			if len(msg.ToolCalls) > 0 {
				calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
				for _, call := range msg.ToolCalls {
					args, _ := json.Marshal(call.Args)
					calls = append(calls, openai.ChatCompletionMessageToolCallParam{
						ID: call.ToolCallID,
						Function: openai.ChatCompletionMessageToolCallFunctionParam{
							Name:      call.ToolName,
							Arguments: string(args),
						},
					})
				}
				assistantMsg.OfAssistant.ToolCalls = calls
			}
			messages = append(messages, assistantMsg)
		case RoleTool:
			messages = append(messages, openai.ToolMessage(msg.Content, msg.ToolCallID))
		}
	}
	if len(messages) == 0 {
		return openai.ChatCompletionNewParams{}, errors.New("llmprovider: openai request needs at least one message")
	}

	model := req.Model
	if model == "" {
		model = o.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = o.maxTokens
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	temp := req.Temperature
	if temp == 0 {
		temp = o.temperature
	}
	if temp > 0 {
		params.Temperature = openai.Float(temp)
	}

	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  t.Parameters,
			},
		})
	}

	return params, nil
}

func translateOpenAICompletion(completion *openai.ChatCompletion, fallbackModel string) Response {
	choice := completion.Choices[0]
	resp := Response{
		Content:      choice.Message.Content,
		Model:        fallbackModel,
		FinishReason: FinishStop,
	}
	if completion.Model != "" {
		resp.Model = completion.Model
	}

	for _, call := range choice.Message.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(call.Function.Arguments), &args)
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ToolCallID: call.ID,
			ToolName:   call.Function.Name,
			Args:       args,
		})
	}

	switch choice.FinishReason {
	case "tool_calls":
		resp.FinishReason = FinishToolCalls
	case "length":
		resp.FinishReason = FinishLength
	case "content_filter":
		resp.FinishReason = FinishContentFilter
	case "stop":
		resp.FinishReason = FinishStop
	default:
		resp.FinishReason = FinishOther
	}

	resp.Usage = Usage{
		PromptTokens:     uint64(completion.Usage.PromptTokens),
		CompletionTokens: uint64(completion.Usage.CompletionTokens),
		TotalTokens:      uint64(completion.Usage.TotalTokens),
	}

	return resp
}
