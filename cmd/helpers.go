package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/clearscope-ai/clearscope/internal/config"
	"github.com/clearscope-ai/clearscope/internal/db"
	"github.com/clearscope-ai/clearscope/internal/embeddings"
	"github.com/clearscope-ai/clearscope/internal/interview"
	"github.com/clearscope-ai/clearscope/internal/knowledge"
	"github.com/clearscope-ai/clearscope/internal/llm"
	"github.com/clearscope-ai/clearscope/internal/session"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `clearscope init` to create a config file", err)
	}
	return cfg, nil
}

// openDatabase opens the SQLite database under the configured data dir.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return db.Open(filepath.Join(cfg.DataDir, "clearscope.db"))
}

// vectorDir is where the embedded knowledge index persists between runs.
func vectorDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "vectors")
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}

	var embedder embeddings.Embedder
	switch provider {
	case config.ProviderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.ProviderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required for OpenAI embeddings")
		}
		embedder = embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel))
	case config.ProviderOllama:
		embedder = embeddings.NewOllamaEmbedder(cfg.EmbeddingModel, 768, "")
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
	return embeddings.NewRetryingEmbedder(embedder, llm.DefaultRetryConfig()), nil
}

// createLLMProviderFromConfig creates the completion provider, wrapped with
// the configured request-rate and concurrency limits.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConcurrency > 0 {
		provider = llm.NewConcurrencyLimitedProvider(provider, cfg.MaxConcurrency)
	}
	if cfg.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute)
	}
	return provider, nil
}

// loadCatalogs returns the category and question catalogs, from the
// configured files when set, built-in otherwise.
func loadCatalogs(cfg *config.Config) ([]session.Category, []interview.Question, error) {
	categories := interview.DefaultCategories()
	if cfg.Interview.CategoriesFile != "" {
		loaded, err := interview.LoadCategories(cfg.Interview.CategoriesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading categories: %w", err)
		}
		categories = loaded
	}

	questions := interview.DefaultQuestions()
	if cfg.Interview.QuestionsFile != "" {
		loaded, err := interview.LoadQuestions(cfg.Interview.QuestionsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("loading questions: %w", err)
		}
		questions = loaded
	}
	return categories, questions, nil
}

// buildKnowledgeIndex constructs the knowledge index over the given store
// and loads the persisted embeddings if any exist. A missing snapshot is not
// an error; the index starts empty until `clearscope knowledge import` runs.
func buildKnowledgeIndex(cfg *config.Config, store *knowledge.Store) (*knowledge.Index, error) {
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	var aliases *knowledge.Aliases
	if cfg.Knowledge.AliasFile != "" {
		aliases, err = knowledge.LoadAliases(cfg.Knowledge.AliasFile)
		if err != nil {
			return nil, fmt.Errorf("loading alias table: %w", err)
		}
	}

	index, err := knowledge.NewIndex(store, embedder, aliases, cfg.Knowledge.TopK, cfg.Knowledge.SimilarityFloor)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge index: %w", err)
	}

	dir := vectorDir(cfg)
	if _, statErr := os.Stat(filepath.Join(dir, "knowledge.gob.gz")); statErr == nil {
		if err := index.Load(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load knowledge index from %s: %v\n", dir, err)
		}
	}
	if index.Count() == 0 {
		fmt.Fprintf(os.Stderr, "Knowledge index is empty. Run `clearscope knowledge import` to load it.\n")
	}
	return index, nil
}
