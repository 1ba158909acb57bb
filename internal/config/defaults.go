package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o",
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		DataDir:           ".clearscope",
		Port:              8710,
		MaxConcurrency:    8,
		RequestsPerMinute: 120,
		Knowledge: Knowledge{
			TopK:            5,
			SimilarityFloor: 0.25,
		},
	}
}
