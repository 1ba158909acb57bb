package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clearscope-ai/clearscope/internal/audit"
	"github.com/clearscope-ai/clearscope/internal/interview"
	"github.com/clearscope-ai/clearscope/internal/knowledge"
	mcpserver "github.com/clearscope-ai/clearscope/internal/mcp"
	"github.com/clearscope-ai/clearscope/internal/session"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing knowledge search and session confidence tools to report-drafting agents.`,
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
		tracker := session.NewTracker(categories)
		svc := interview.NewService(
			tracker,
			session.NewStore(database),
			interview.NewAnalyzer(provider, cfg.Model, categories),
			interview.NewSelector(tracker, questions),
			audit.NewLog(database),
			nil,
		)

		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "clearscope MCP server started on stdio (knowledge items=%d)\n", index.Count())

		srv := mcpserver.NewServer(index, knowledgeStore, svc)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
