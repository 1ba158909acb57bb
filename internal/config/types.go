package config

// ProviderType identifies a completion or embedding provider.
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderOllama ProviderType = "ollama"
)

// Config is the top-level clearscope configuration, corresponding to .clearscope.yml.
type Config struct {
	Provider          ProviderType `yaml:"provider" koanf:"provider"`
	Model             string       `yaml:"model" koanf:"model"`
	EmbeddingProvider ProviderType `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string       `yaml:"embedding_model" koanf:"embedding_model"`
	DataDir           string       `yaml:"data_dir" koanf:"data_dir"`
	Port              int          `yaml:"port" koanf:"port"`
	MaxConcurrency    int          `yaml:"max_concurrency" koanf:"max_concurrency"`
	RequestsPerMinute int          `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	Interview         Interview    `yaml:"interview" koanf:"interview"`
	Knowledge         Knowledge    `yaml:"knowledge" koanf:"knowledge"`
}

// Interview holds settings for the adaptive question loop.
type Interview struct {
	// CategoriesFile optionally overrides the built-in category catalog.
	CategoriesFile string `yaml:"categories_file" koanf:"categories_file"`
	// QuestionsFile optionally overrides the built-in question catalog.
	QuestionsFile string `yaml:"questions_file" koanf:"questions_file"`
}

// Knowledge holds settings for the knowledge index.
type Knowledge struct {
	// AliasFile points at the category alias table.
	AliasFile string `yaml:"alias_file" koanf:"alias_file"`
	// TopK is the default number of search results.
	TopK int `yaml:"top_k" koanf:"top_k"`
	// SimilarityFloor excludes matches below this cosine similarity.
	SimilarityFloor float32 `yaml:"similarity_floor" koanf:"similarity_floor"`
}
