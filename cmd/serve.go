package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/clearscope-ai/clearscope/internal/audit"
	"github.com/clearscope-ai/clearscope/internal/interview"
	"github.com/clearscope-ai/clearscope/internal/knowledge"
	"github.com/clearscope-ai/clearscope/internal/review"
	"github.com/clearscope-ai/clearscope/internal/server"
	"github.com/clearscope-ai/clearscope/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the clearscope HTTP server",
	Long:  `Starts the interview loop, knowledge search, and review pipeline behind a REST API with a websocket confidence stream.`,
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

		knowledgeStore := knowledge.NewStore(database)
		index, err := buildKnowledgeIndex(cfg, knowledgeStore)
		if err != nil {
			return err
		}

		provider, err := createLLMProviderFromConfig(cfg)
		if err != nil {
			return fmt.Errorf("creating LLM provider: %w", err)
		}

		categories, questions, err := loadCatalogs(cfg)
		if err != nil {
			return err
		}

		auditLog := audit.NewLog(database)
		hub := interview.NewHub()
		tracker := session.NewTracker(categories)
		svc := interview.NewService(
			tracker,
			session.NewStore(database),
			interview.NewAnalyzer(provider, cfg.Model, categories),
			interview.NewSelector(tracker, questions),
			auditLog,
			hub,
		)
		pipeline := review.NewPipeline(
			review.NewReviewer(provider, cfg.Model),
			review.NewRefiner(provider, cfg.Model, index),
			auditLog,
		)

		port := servePort
		if port == 0 {
			port = cfg.Port
		}
		srv := server.New(server.Config{Port: port, AllowAll: true}, server.Deps{
			DB:             database,
			Interview:      svc,
			Hub:            hub,
			KnowledgeIndex: index,
			KnowledgeStore: knowledgeStore,
			Review:         pipeline,
			Audit:          auditLog,
		})

		// Graceful shutdown.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			srv.Shutdown(context.Background())
		}()

		fmt.Fprintf(os.Stderr, "clearscope server v%s starting on port %d\n", Version, port)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", filepath.Join(cfg.DataDir, "clearscope.db"))
		fmt.Fprintf(os.Stderr, "  Knowledge items embedded: %d\n", index.Count())

		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
