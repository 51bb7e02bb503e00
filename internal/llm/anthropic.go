package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ontomap/ontomap-backend/internal/ontology"
	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
	anthropicDefaultModel   = "claude-3-5-sonnet-20241022"
	anthropicMaxTokens      = 4096
)

// AnthropicProvider implements all three capabilities against the Anthropic
// Messages API. Claude has no enforced JSON response mode, so the prompts
// demand JSON-only output and the decode path strips markdown fences.
type AnthropicProvider struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	log        *logger.Logger
}

var _ Provider = (*AnthropicProvider)(nil)

func NewAnthropicProvider(log *logger.Logger) (*AnthropicProvider, error) {
	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("llm: ANTHROPIC_API_KEY not set")
	}
	model := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	if model == "" {
		model = anthropicDefaultModel
	}
	baseURL := strings.TrimRight(strings.TrimSpace(os.Getenv("ANTHROPIC_BASE_URL")), "/")
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &AnthropicProvider{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		log:        log.With("client", "AnthropicProvider"),
	}, nil
}

func (p *AnthropicProvider) ProposeOntology(ctx context.Context, req ProposalRequest) (Proposal, error) {
	var out Proposal
	if err := p.generateJSON(ctx, proposeSystemPrompt, buildProposalPrompt(req), &out); err != nil {
		return Proposal{}, err
	}
	return out, nil
}

func (p *AnthropicProvider) Translate(ctx context.Context, question string, schema ontology.SchemaContext) (Translation, error) {
	var out Translation
	if err := p.generateJSON(ctx, translateSystemPrompt, buildTranslationPrompt(question, schema), &out); err != nil {
		return Translation{}, err
	}
	return out, nil
}

func (p *AnthropicProvider) ExtractPrimitives(ctx context.Context, domainDescription string, samples []RecordSample) ([]ExtractedPrimitive, error) {
	var out struct {
		Primitives []ExtractedPrimitive `json:"primitives"`
	}
	if err := p.generateJSON(ctx, extractSystemPrompt, buildExtractionPrompt(domainDescription, samples), &out); err != nil {
		return nil, err
	}
	return out.Primitives, nil
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *AnthropicProvider) generateJSON(ctx context.Context, system, user string, out any) error {
	body, err := json.Marshal(anthropicRequest{
		Model:       p.model,
		MaxTokens:   anthropicMaxTokens,
		Temperature: 0.3,
		System:      system,
		Messages:    []anthropicMessage{{Role: "user", Content: user}},
	})
	if err != nil {
		return fmt.Errorf("llm: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", p.apiKey)
	httpReq.Header.Set("Anthropic-Version", anthropicAPIVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("llm: messages request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("llm: read response: %w", err)
	}

	var decoded anthropicResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("llm: decode envelope (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if decoded.Error != nil {
			msg = decoded.Error.Message
		}
		return fmt.Errorf("llm: messages API status %d: %s", resp.StatusCode, msg)
	}

	var text string
	for _, c := range decoded.Content {
		if c.Type == "text" {
			text = c.Text
			break
		}
	}
	if text == "" {
		return fmt.Errorf("llm: no text content returned")
	}
	if err := json.Unmarshal([]byte(StripFences(text)), out); err != nil {
		return fmt.Errorf("llm: decode response: %w", err)
	}
	return nil
}
