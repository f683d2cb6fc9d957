package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/soulsync-ai/soulsync-agent/internal/domain"
)

// VertexClient implements domain.LLMClient on Vertex AI (Gemini).
type VertexClient struct {
	client    *genai.Client
	modelName string
}

func NewVertexClient(ctx context.Context, projectID, location, modelName string) (*VertexClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("project and location must be set for the Vertex client")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// GenerateReply calls the model with the agent's system prompt and the
// assembled user content. One bounded retry on transient provider errors;
// none once the per-call deadline has passed.
func (v *VertexClient) GenerateReply(ctx context.Context, system, user string, convCtx domain.ConversationContext) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(user, genai.RoleUser),
	}

	temp := float32(0.7)
	topP := float32(0.9)
	outputTokens := int32(1024)

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temp,
		TopP:              &topP,
		MaxOutputTokens:   outputTokens,
	}

	text, err := v.generate(ctx, contents, cfg)
	if err != nil && isTransient(err) && ctx.Err() == nil {
		text, err = v.generate(ctx, contents, cfg)
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", domain.ErrProviderTimeout
		}
		if isRateLimited(err) {
			return "", fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrProviderError, err)
	}
	return text, nil
}

func (v *VertexClient) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		return "", err
	}
	text := res.Text()
	if text == "" {
		return "", fmt.Errorf("vertex returned empty text")
	}
	return text, nil
}

// isTransient reports whether the call is worth one retry. Rate limits
// and 5xx responses qualify; a blown deadline never does.
func isTransient(err error) bool {
	msg := err.Error()
	return isRateLimited(err) ||
		strings.Contains(msg, "500") ||
		strings.Contains(msg, "503") ||
		strings.Contains(msg, "UNAVAILABLE")
}

func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
