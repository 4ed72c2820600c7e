package config

// defaultModels maps each provider to its default chat model.
var defaultModels = map[ProviderType]string{
	ProviderOpenAI:    "gpt-4o-mini",
	ProviderAnthropic: "claude-haiku-4-5-20251001",
	ProviderOllama:    "llama3",
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:     ProviderOpenAI,
		Model:        defaultModels[ProviderOpenAI],
		SchoolAPIURL: "http://localhost:8000",
		DataDir:      "data",
		Port:         8090,
		RateLimitRPM: 60,
		Routing: Routing{
			CacheCheckSeconds: 300,
			ClassifyTimeoutMs: 800,
			MinConfidence:     0.3,
			StateTTLMinutes:   30,
		},
	}
}

// DefaultModel returns the default chat model for the given provider.
func DefaultModel(provider ProviderType) string {
	if m, ok := defaultModels[provider]; ok {
		return m
	}
	return defaultModels[ProviderOpenAI]
}
