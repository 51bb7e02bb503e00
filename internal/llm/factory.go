package llm

import (
	"fmt"
	"os"
	"strings"

	"github.com/ontomap/ontomap-backend/internal/platform/logger"
)

// Provider bundles the three capabilities one backend serves. Named
// implementations are selected by configuration at startup; the rest of the
// system never knows which one it got.
type Provider interface {
	ProposalProvider
	QueryTranslator
	PrimitiveExtractor
}

// NewProviderFromEnv selects the provider named by ONTOLOGY_LLM_PROVIDER
// ("openai" or "anthropic"; openai when unset).
func NewProviderFromEnv(log *logger.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("ONTOLOGY_LLM_PROVIDER")))
	switch name {
	case "", "openai":
		return NewOpenAIProvider(log)
	case "anthropic":
		return NewAnthropicProvider(log)
	default:
		return nil, fmt.Errorf("llm: unsupported provider %q (supported: openai, anthropic)", name)
	}
}
