package config

// ProviderType identifies an LLM provider.
type ProviderType string

const (
	ProviderOpenAI    ProviderType = "openai"
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOllama    ProviderType = "ollama"
)

// Config is the top-level shulebot configuration, corresponding to .shulebot.yml.
type Config struct {
	Provider     ProviderType `yaml:"provider" koanf:"provider"`
	Model        string       `yaml:"model" koanf:"model"`
	SchoolAPIURL string       `yaml:"school_api_url" koanf:"school_api_url"`
	DataDir      string       `yaml:"data_dir" koanf:"data_dir"`
	Port         int          `yaml:"port" koanf:"port"`
	AllowAll     bool         `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	RateLimitRPM int          `yaml:"rate_limit_rpm" koanf:"rate_limit_rpm"`
	Routing      Routing      `yaml:"routing" koanf:"routing"`
}

// Routing holds the tunables of the intent routing engine.
type Routing struct {
	// CacheCheckSeconds is how often the pattern cache rechecks the store
	// for a newer active config version.
	CacheCheckSeconds int `yaml:"cache_check_seconds" koanf:"cache_check_seconds"`
	// ClassifyTimeoutMs bounds a single model classification call.
	ClassifyTimeoutMs int `yaml:"classify_timeout_ms" koanf:"classify_timeout_ms"`
	// MinConfidence is the floor below which a classification is treated
	// as unknown and the user is asked to rephrase.
	MinConfidence float64 `yaml:"min_confidence" koanf:"min_confidence"`
	// StateTTLMinutes is how long a partially collected conversation
	// survives between turns.
	StateTTLMinutes int `yaml:"state_ttl_minutes" koanf:"state_ttl_minutes"`
}
