package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/clearscope-ai/clearscope/internal/config"
	"github.com/clearscope-ai/clearscope/internal/knowledge"
	"github.com/clearscope-ai/clearscope/internal/progress"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the curated knowledge base",
}

// knowledgeFile is the on-disk YAML shape for bulk import.
type knowledgeFile struct {
	Items []knowledge.Item `yaml:"items"`
}

var knowledgeImportCmd = &cobra.Command{
	Use:   "import <glob>...",
	Short: "Import knowledge items from YAML files",
	Long: `Reads knowledge items from YAML files matching the given glob patterns
(doublestar globs like knowledge/**/*.yml), upserts them into the store, and
embeds them into the search index.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store := knowledge.NewStore(database)
		index, err := buildKnowledgeIndex(cfg, store)
		if err != nil {
			return err
		}

		var paths []string
		for _, pattern := range args {
			matches, err := doublestar.FilepathGlob(pattern)
			if err != nil {
				return fmt.Errorf("bad glob %q: %w", pattern, err)
			}
			paths = append(paths, matches...)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no files match the given patterns")
		}

		var items []knowledge.Item
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			var file knowledgeFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parsing %s: %w", path, err)
			}
			items = append(items, file.Items...)
		}

		ctx := context.Background()
		reporter := progress.NewReporter()
		reporter.Start("Importing knowledge", len(items))
		for i := range items {
			item := &items[i]
			if err := store.Upsert(ctx, item); err != nil {
				return fmt.Errorf("upserting %s: %w", item.Key(), err)
			}
			if err := index.IndexItem(ctx, item); err != nil {
				return fmt.Errorf("embedding %s: %w", item.Key(), err)
			}
			reporter.Update(i+1, item.Key())
		}
		reporter.Finish()

		if err := persistIndex(cfg, index); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Imported %d items from %d files\n", len(items), len(paths))
		return nil
	},
}

var (
	searchContentType string
	searchIndustry    string
	searchLimit       int
)

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the knowledge base semantically",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store := knowledge.NewStore(database)
		index, err := buildKnowledgeIndex(cfg, store)
		if err != nil {
			return err
		}

		filter := knowledge.SearchFilter{
			Industry: searchIndustry,
			TopK:     searchLimit,
		}
		if searchContentType != "" {
			if !knowledge.ValidContentTypes[knowledge.ContentType(searchContentType)] {
				return fmt.Errorf("unknown content type %q", searchContentType)
			}
			filter.ContentType = knowledge.ContentType(searchContentType)
		}

		results, err := index.Search(context.Background(), args[0], filter)
		if err != nil {
			return fmt.Errorf("searching: %w", err)
		}
		if len(results) == 0 {
			fmt.Println("No results.")
			return nil
		}
		for _, r := range results {
			staleNote := ""
			if r.NeedsUpdate {
				staleNote = " (stale embedding)"
			}
			fmt.Printf("%.3f  %-40s %s%s\n", r.Similarity, r.Item.Key(), r.Item.Title, staleNote)
		}
		return nil
	},
}

var knowledgeRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-embed knowledge items whose content changed",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := openDatabase(cfg)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store := knowledge.NewStore(database)
		index, err := buildKnowledgeIndex(cfg, store)
		if err != nil {
			return err
		}

		reporter := progress.NewReporter()
		started := false
		count, err := index.RefreshStale(context.Background(), func(current, total int, key string) {
			if !started {
				reporter.Start("Refreshing embeddings", total)
				started = true
			}
			reporter.Update(current, key)
		})
		if err != nil {
			return fmt.Errorf("refreshing: %w", err)
		}
		if started {
			reporter.Finish()
		}
		if count == 0 {
			fmt.Fprintln(os.Stderr, "All knowledge items are up to date")
			return nil
		}

		if err := persistIndex(cfg, index); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Re-embedded %d items\n", count)
		return nil
	},
}

func persistIndex(cfg *config.Config, index *knowledge.Index) error {
	dir := vectorDir(cfg)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating vector dir: %w", err)
	}
	if err := index.Persist(dir); err != nil {
		return fmt.Errorf("persisting knowledge index: %w", err)
	}
	return nil
}

func init() {
	knowledgeSearchCmd.Flags().StringVar(&searchContentType, "content-type", "", "restrict to one content type")
	knowledgeSearchCmd.Flags().StringVar(&searchIndustry, "industry", "", "industry filter (universal items always included)")
	knowledgeSearchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum results (default from config)")

	knowledgeCmd.AddCommand(knowledgeImportCmd)
	knowledgeCmd.AddCommand(knowledgeSearchCmd)
	knowledgeCmd.AddCommand(knowledgeRefreshCmd)
	rootCmd.AddCommand(knowledgeCmd)
}
