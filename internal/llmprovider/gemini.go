package llmprovider

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiMaxTokens = 4096

// GeminiConfig configures a Gemini-backed Provider.
type GeminiConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// Gemini implements Provider against the Google genai SDK.
type Gemini struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewGemini builds a Gemini provider from cfg.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llmprovider: gemini api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llmprovider: gemini model is required")
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultGeminiMaxTokens
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("llmprovider: gemini client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (g *Gemini) Complete(ctx context.Context, req Request) (Response, error) {
	contents, systemInstruction := g.buildContents(req)
	if len(contents) == 0 {
		return Response{}, errors.New("llmprovider: gemini request needs at least one message")
	}

	config := g.buildConfig(req, systemInstruction)
	model := req.Model
	if model == "" {
		model = g.model
	}

	genResp, err := g.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return Response{}, fmt.Errorf("llmprovider: gemini generate content: %w", err)
	}

	return translateGeminiResponse(genResp, model)
}

func (g *Gemini) buildContents(req Request) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, msg := range req.Messages {
		switch msg.Role {
		case RoleSystem:
			if msg.Content != "" {
				systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: msg.Content}}, Role: "user"}
			}
		case RoleUser:
			contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: msg.Content}}, Role: "user"})
		case RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ToolCallID,
					Name: call.ToolName,
					Args: call.Args,
				}})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{Parts: parts, Role: "model"})
			}
		case RoleTool:
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       msg.ToolCallID,
						Name:     msg.ToolName,
						Response: map[string]any{"result": msg.Content},
					},
				}},
			})
		}
	}

	return contents, systemInstruction
}

func (g *Gemini) buildConfig(req Request, systemInstruction *genai.Content) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{SystemInstruction: systemInstruction}

	temp := req.Temperature
	if temp == 0 {
		temp = g.temperature
	}
	if temp > 0 {
		t := float32(temp)
		config.Temperature = &t
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	config.MaxOutputTokens = int32(maxTokens)

	for _, t := range req.Tools {
		config.Tools = append(config.Tools, &genai.Tool{
			FunctionDeclarations: []*genai.FunctionDeclaration{{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toGeminiSchema(t.Parameters),
			}},
		})
	}

	return config
}

func toGeminiSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	s := &genai.Schema{}

	if t, ok := schema["type"].(string); ok {
		s.Type = genai.Type(t)
	}
	if desc, ok := schema["description"].(string); ok {
		s.Description = desc
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema)
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				s.Properties[name] = toGeminiSchema(propMap)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok {
		for _, r := range required {
			if rs, ok := r.(string); ok {
				s.Required = append(s.Required, rs)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		s.Items = toGeminiSchema(items)
	}

	return s
}

func translateGeminiResponse(genResp *genai.GenerateContentResponse, fallbackModel string) (Response, error) {
	if len(genResp.Candidates) == 0 {
		return Response{}, errors.New("llmprovider: gemini returned no candidates")
	}

	candidate := genResp.Candidates[0]
	resp := Response{Model: fallbackModel, FinishReason: mapGeminiFinishReason(candidate.FinishReason)}

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part.Text != "" && !part.Thought {
				resp.Content += part.Text
			}
			if part.FunctionCall != nil {
				resp.ToolCalls = append(resp.ToolCalls, ToolCall{
					ToolCallID: part.FunctionCall.ID,
					ToolName:   part.FunctionCall.Name,
					Args:       part.FunctionCall.Args,
				})
			}
		}
	}

	if genResp.UsageMetadata != nil {
		resp.Usage = Usage{
			PromptTokens:     uint64(genResp.UsageMetadata.PromptTokenCount),
			CompletionTokens: uint64(genResp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      uint64(genResp.UsageMetadata.TotalTokenCount),
		}
	}

	return resp, nil
}

func mapGeminiFinishReason(reason genai.FinishReason) FinishReason {
	switch reason {
	case genai.FinishReasonStop:
		return FinishStop
	case genai.FinishReasonMaxTokens:
		return FinishLength
	case genai.FinishReasonSafety, genai.FinishReasonRecitation:
		return FinishContentFilter
	case "":
		return FinishUnknown
	default:
		return FinishOther
	}
}
