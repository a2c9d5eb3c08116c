// Package ai generates companion replies. An Ark-backed model chain serves
// requests when credentials are configured; a rule-based generator covers the
// rest, so the /chat endpoint never depends on upstream availability.
package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/empathyai/companion/internal/config"
	"github.com/empathyai/companion/internal/model/chat"
)

const systemPrompt = `You are EmpathyAI, a warm, non-judgmental mental-health companion.
Validate the user's feelings before anything else, speak plainly, and never
diagnose or prescribe. Keep replies to a few sentences.

The user's current facial expression reads as: {emotion}
Recent conversation:
{history}`

// Service generates replies for user messages.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	generator    *Generator
	historyLimit int
}

// NewService builds the service. When cfg lacks model credentials the service
// still works, serving every request from the rule-based generator.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	svc := &Service{
		generator:    NewGenerator(),
		historyLimit: cfg.HistoryLimit,
	}

	if !cfg.Enabled() {
		return svc, nil
	}

	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	svc.chain = runnable
	return svc, nil
}

// ModelEnabled reports whether an LLM backs reply generation.
func (s *Service) ModelEnabled() bool {
	return s.chain != nil
}

// GenerateReply produces a reply to text for the given user, taking the
// detected emotion and recent history into account.
func (s *Service) GenerateReply(ctx context.Context, userID, text, emotionTag string, history []chat.Message) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("text is required")
	}

	if s.chain == nil {
		return s.generator.Reply(emotionTag, text), nil
	}

	input := map[string]any{
		"emotion": string(normalizeEmotion(emotionTag)),
		"history": describeHistory(history, s.historyLimit),
		"query":   text,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		log.Printf("[ai] model invoke failed for user=%s, falling back to rules: %v", userID, err)
		return s.generator.Reply(emotionTag, text), nil
	}

	reply := strings.TrimSpace(response.Content)
	if reply == "" {
		return s.generator.Reply(emotionTag, text), nil
	}

	log.Printf("[ai] generated reply for user=%s, length=%d", userID, len(reply))
	return reply, nil
}
