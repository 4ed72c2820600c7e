package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .shulebot.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to shulebot! Let's configure your school assistant.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	cfg.Model = DefaultModel(cfg.Provider)

	// Warn if the provider's API key is missing.
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("Note: %s is not set. The model fallback classifier will fail until it is.\n", envVar)
	}

	// 2. Model override.
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: cfg.Model,
	}
	if model, err := modelPrompt.Run(); err == nil && model != "" {
		cfg.Model = model
	}

	// 3. School management API base URL.
	apiPrompt := promptui.Prompt{
		Label:   "School management API URL",
		Default: cfg.SchoolAPIURL,
	}
	if apiURL, err := apiPrompt.Run(); err == nil && apiURL != "" {
		cfg.SchoolAPIURL = apiURL
	}

	// 4. Listen port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP listen port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			p, err := strconv.Atoi(s)
			if err != nil || p <= 0 || p > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	if portStr, err := portPrompt.Run(); err == nil {
		if p, err := strconv.Atoi(portStr); err == nil {
			cfg.Port = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Save(".shulebot.yml"); err != nil {
		return nil, err
	}

	fmt.Println()
	fmt.Println("Configuration saved to .shulebot.yml")
	return cfg, nil
}
