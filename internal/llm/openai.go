package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ontomap/ontomap-backend/internal/ontology"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

// OpenAIProvider implements all three capabilities against the OpenAI chat
// API using the JSON response format.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	log    *logger.Logger
}

var _ Provider = (*OpenAIProvider)(nil)

func NewOpenAIProvider(log *logger.Logger) (*OpenAIProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("llm: OPENAI_API_KEY not set")
	}
	model := strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIProvider{
		client: openai.NewClient(apiKey),
		model:  model,
		log:    log.With("client", "OpenAIProvider"),
	}, nil
}

func (p *OpenAIProvider) ProposeOntology(ctx context.Context, req ProposalRequest) (Proposal, error) {
	var out Proposal
	if err := p.generateJSON(ctx, proposeSystemPrompt, buildProposalPrompt(req), &out); err != nil {
		return Proposal{}, err
	}
	return out, nil
}

func (p *OpenAIProvider) Translate(ctx context.Context, question string, schema ontology.SchemaContext) (Translation, error) {
	var out Translation
	if err := p.generateJSON(ctx, translateSystemPrompt, buildTranslationPrompt(question, schema), &out); err != nil {
		return Translation{}, err
	}
	return out, nil
}

func (p *OpenAIProvider) ExtractPrimitives(ctx context.Context, domainDescription string, samples []RecordSample) ([]ExtractedPrimitive, error) {
	var out struct {
		Primitives []ExtractedPrimitive `json:"primitives"`
	}
	if err := p.generateJSON(ctx, extractSystemPrompt, buildExtractionPrompt(domainDescription, samples), &out); err != nil {
		return nil, err
	}
	return out.Primitives, nil
}

func (p *OpenAIProvider) generateJSON(ctx context.Context, system, user string, out any) error {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return fmt.Errorf("llm: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("llm: no choices returned")
	}
	raw := StripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("llm: decode response: %w", err)
	}
	return nil
}
