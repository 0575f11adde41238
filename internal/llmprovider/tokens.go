package llmprovider

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates token counts for a specific model's encoding. The
// Board Runner hands one to each Agent Actor in AgentDeps, but the agent
// does not consult it: history compaction goes by iteration count, not by
// token count.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
	mu       sync.RWMutex
}

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	cacheMu       sync.RWMutex
)

// NewTokenCounter builds a counter for model, falling back to cl100k_base
// when the model has no registered tiktoken encoding.
func NewTokenCounter(model string) (*TokenCounter, error) {
	cacheMu.RLock()
	cached, exists := encodingCache[model]
	cacheMu.RUnlock()
	if exists {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("llmprovider: get encoding: %w", err)
		}
	}

	cacheMu.Lock()
	encodingCache[model] = encoding
	cacheMu.Unlock()

	return &TokenCounter{encoding: encoding, model: model}, nil
}

// Count returns the token length of text.
func (tc *TokenCounter) Count(text string) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return len(tc.encoding.Encode(text, nil, nil))
}

// CountMessages estimates the token cost of a full message list, including
// the per-message role/boundary overhead OpenAI's cookbook documents and
// the reply-priming tokens every completion call pays.
func (tc *TokenCounter) CountMessages(messages []Message) int {
	tc.mu.RLock()
	defer tc.mu.RUnlock()

	const tokensPerMessage = 3

	total := 0
	for _, msg := range messages {
		total += tokensPerMessage
		total += len(tc.encoding.Encode(string(msg.Role), nil, nil))
		total += len(tc.encoding.Encode(msg.Content, nil, nil))
		for _, call := range msg.ToolCalls {
			total += len(call.ToolName)
		}
	}
	total += 3
	return total
}

// FitWithinLimit returns the longest suffix of messages whose combined cost
// is within maxTokens, preferring to keep the most recent turns.
func (tc *TokenCounter) FitWithinLimit(messages []Message, maxTokens int) []Message {
	if len(messages) == 0 {
		return messages
	}

	fitted := []Message{}
	current := 3

	for i := len(messages) - 1; i >= 0; i-- {
		cost := tc.CountMessages(messages[i : i+1])
		if current+cost > maxTokens {
			break
		}
		fitted = append([]Message{messages[i]}, fitted...)
		current += cost
	}
	return fitted
}

// Model returns the model name this counter was built for.
func (tc *TokenCounter) Model() string { return tc.model }
