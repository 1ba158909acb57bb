package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// modelPresets maps quality tiers to models per provider.
var modelPresets = map[ProviderType]map[string]string{
	ProviderOpenAI: {
		"best":     "gpt-4o",
		"balanced": "gpt-4o-mini",
		"fast":     "gpt-3.5-turbo",
	},
	ProviderOllama: {
		"best":     "llama3:70b",
		"balanced": "llama3",
		"fast":     "phi3",
	},
}

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .clearscope.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to clearscope! Let's configure your deployment.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select completion provider",
		Items: []string{"openai", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Quality tier picks a model preset; "custom" falls through to a
	// free-form prompt.
	tierPrompt := promptui.Select{
		Label: "Select model quality",
		Items: []string{"best", "balanced", "fast", "custom"},
	}
	_, tier, err := tierPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quality selection: %w", err)
	}
	if tier == "custom" {
		modelPrompt := promptui.Prompt{
			Label:   "Model",
			Default: modelPresets[cfg.Provider]["balanced"],
		}
		model, err := modelPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("model selection: %w", err)
		}
		cfg.Model = model
	} else {
		cfg.Model = modelPresets[cfg.Provider][tier]
	}

	// 3. Embedding provider follows the completion provider by default.
	cfg.EmbeddingProvider = cfg.Provider
	if cfg.Provider == ProviderOllama {
		cfg.EmbeddingModel = "nomic-embed-text"
	}

	// 4. Data directory.
	dirPrompt := promptui.Prompt{
		Label:   "Data directory",
		Default: cfg.DataDir,
	}
	dataDir, err := dirPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data directory: %w", err)
	}
	cfg.DataDir = dataDir

	// 5. Port.
	portPrompt := promptui.Prompt{
		Label:   "Server port",
		Default: strconv.Itoa(cfg.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("must be a port number")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port selection: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(portStr)

	// Warn if the API key is missing.
	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: %s is not set. Set it before running the server.\n", envVar)
	}

	if err := cfg.Save(".clearscope.yml"); err != nil {
		return nil, err
	}
	fmt.Println("\nConfiguration saved to .clearscope.yml")

	return cfg, nil
}
