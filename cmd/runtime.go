package cmd

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/KaramelBytes/samreport-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/samreport-cli/internal/config"
	"github.com/KaramelBytes/samreport-cli/internal/insights"
)

// runtimeFactory is swapped in tests.
var runtimeFactory = buildRuntime

func resolveProvider(cfg *cfgpkg.Global, flag string) string {
	name := strings.ToLower(strings.TrimSpace(flag))
	if name == "" && cfg != nil && cfg.DefaultProvider != "" {
		name = strings.ToLower(cfg.DefaultProvider)
	}
	switch name {
	case "":
		return ai.ProviderOpenRouter
	case "local":
		return ai.ProviderOllama
	}
	return name
}

// apiKeyFor picks the configured key, falling back to the provider's
// conventional environment variable.
func apiKeyFor(cfg *cfgpkg.Global, provider string) string {
	if cfg != nil && cfg.APIKey != "" {
		return cfg.APIKey
	}
	switch provider {
	case ai.ProviderOpenRouter:
		return os.Getenv("OPENROUTER_API_KEY")
	case ai.ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

func buildRuntime(cfg *cfgpkg.Global, providerFlag string) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 3
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	provider := resolveProvider(cfg, providerFlag)
	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		APIKey:      apiKeyFor(cfg, provider),
	}
	if provider == ai.ProviderOllama {
		rc.Host = ai.DefaultOllamaHost
		if cfg != nil && cfg.OllamaHost != "" {
			rc.Host = cfg.OllamaHost
		}
		if cfg != nil && cfg.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(cfg.OllamaTimeoutSec) * time.Second
		}
	}

	rt, ok := ai.GetRuntime(provider, rc)
	if !ok {
		return nil, provider, fmt.Errorf("provider not supported: %s (use %s)", provider, strings.Join(ai.Providers(), "|"))
	}
	return rt, provider, nil
}

// selectModel applies flag > config > provider default.
func selectModel(cfg *cfgpkg.Global, provider, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if cfg != nil && cfg.DefaultModel != "" {
		return cfg.DefaultModel
	}
	if m, ok := ai.DefaultModel(provider); ok {
		return m
	}
	return "openai/gpt-4o-mini"
}

func newSummarizer() (*insights.Summarizer, error) {
	rt, provider, err := runtimeFactory(cfg, flagProvider)
	if err != nil {
		return nil, err
	}
	s := &insights.Summarizer{
		Runtime: rt,
		Model:   selectModel(cfg, provider, flagModel),
		Logger:  logger,
	}
	if cfg != nil {
		s.MaxTokens = cfg.MaxTokens
		s.SampleSize = cfg.SampleSize
		s.Seed = cfg.SampleSeed
	}
	if flagStream {
		var mu sync.Mutex
		s.OnDelta = func(_, d string) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprint(os.Stderr, d)
		}
	}
	if _, ok := ai.LookupModel(s.Model); !ok {
		fmt.Fprintf(os.Stderr, "⚠ Warning: unknown model %q; prompt size checks are disabled\n", s.Model)
	}
	return s, nil
}
