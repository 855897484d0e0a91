package llm

import (
	"net/http"
	"sort"
	"sync"
)

// ResponseSchema asks a provider to constrain its output to a JSON schema.
// Providers without structured-output support ignore it and rely on the
// prompt's output contract instead.
type ResponseSchema struct {
	// Name identifies the schema to the provider (letters, digits, underscores).
	Name string `json:"name"`

	// Schema is a JSON Schema object.
	Schema map[string]any `json:"schema"`
}

// Provider adapts the client to one vendor's chat-completion wire format.
type Provider interface {
	// Name returns the provider identifier used in endpoint configs.
	Name() string

	// BuildURL constructs the full API endpoint URL.
	BuildURL(baseURL string) string

	// SetHeaders adds provider-specific headers to the request.
	SetHeaders(req *http.Request)

	// BuildRequestBody creates the JSON request body. A nil temperature keeps
	// the provider default; a nil schema requests free-form output.
	BuildRequestBody(model string, messages []Message, temperature *float64, maxTokens int, schema *ResponseSchema) ([]byte, error)

	// ParseResponse extracts the completion from a provider response body.
	ParseResponse(body []byte, model string) (*Response, error)
}

var (
	providerRegistry = make(map[string]Provider)
	providerMu       sync.RWMutex
)

// RegisterProvider adds a provider to the registry, replacing any provider
// with the same name.
func RegisterProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	providerRegistry[p.Name()] = p
}

// GetProvider retrieves a provider by name, or nil.
func GetProvider(name string) Provider {
	providerMu.RLock()
	defer providerMu.RUnlock()
	return providerRegistry[name]
}

// ListProviders returns the registered provider names in sorted order.
func ListProviders() []string {
	providerMu.RLock()
	defer providerMu.RUnlock()

	names := make([]string, 0, len(providerRegistry))
	for name := range providerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
