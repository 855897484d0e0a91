package model

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryJSON = `{
	"capabilities": {
		"reviewing": {"preferred": ["gpt"], "fallback": ["local"]},
		"custom": {"preferred": ["local"]}
	},
	"endpoints": {
		"gpt": {"provider": "openai", "model": "gpt-4o-mini", "max_tokens": 2048},
		"local": {"provider": "ollama", "url": "http://localhost:11434/v1", "model": "qwen2.5"}
	},
	"defaults": {"model": "local"}
}`

func TestLoadFromJSON(t *testing.T) {
	for name, data := range map[string]string{
		"bare":    registryJSON,
		"wrapped": `{"model": ` + registryJSON + `}`,
	} {
		t.Run(name, func(t *testing.T) {
			r, err := LoadFromJSON([]byte(data))
			require.NoError(t, err)
			require.NoError(t, r.Validate())

			assert.Equal(t, []string{"gpt", "local"}, r.GetFallbackChain(CapabilityReviewing))
			assert.Equal(t, []string{"local"}, r.GetFallbackChain(Capability("custom")))
			assert.Equal(t, 2048, r.GetEndpoint("gpt").MaxTokens)
			assert.Equal(t, "local", r.Resolve(CapabilityFast))
		})
	}

	_, err := LoadFromJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(registryJSON), 0o644))

	r, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt", r.Resolve(CapabilityReviewing))

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestToConfigIsDetached(t *testing.T) {
	r := testRegistry()
	cfg := r.ToConfig()
	delete(cfg.Endpoints, "primary")
	cfg.Defaults.Model = "changed"

	assert.NotNil(t, r.GetEndpoint("primary"))
	assert.Equal(t, "default", r.Resolve(CapabilityWriting))
}

func TestMergeFromConfig(t *testing.T) {
	r := NewDefaultRegistry()
	r.MergeFromConfig(&RegistryConfig{
		Capabilities: map[string]*CapabilityConfig{
			"reviewing": {Preferred: []string{"gpt"}},
		},
		Endpoints: map[string]*EndpointConfig{
			"gpt": {Provider: "openai", Model: "gpt-4o"},
		},
		Defaults: &DefaultsConfig{Model: "gpt"},
	})

	assert.Equal(t, []string{"gpt"}, r.GetFallbackChain(CapabilityReviewing))
	assert.Equal(t, "claude-sonnet", r.Resolve(CapabilityWriting), "untouched capabilities survive")
	assert.NotNil(t, r.GetEndpoint("qwen"))
	require.NoError(t, r.Validate())

	r.MergeFromConfig(nil)
	r.MergeFromConfig(&RegistryConfig{Defaults: &DefaultsConfig{}})
	assert.Equal(t, "gpt", r.ToConfig().Defaults.Model, "empty default does not clear")
}

func TestGlobal(t *testing.T) {
	ResetGlobal()
	t.Cleanup(ResetGlobal)

	custom := testRegistry()
	assert.True(t, InitGlobal(custom))
	assert.False(t, InitGlobal(NewDefaultRegistry()))
	assert.Same(t, custom, Global())

	ResetGlobal()
	var wg sync.WaitGroup
	got := make([]*Registry, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = Global()
		}(i)
	}
	wg.Wait()
	for _, r := range got {
		assert.Same(t, got[0], r)
	}
}
