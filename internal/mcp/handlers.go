package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/clearscope-ai/clearscope/internal/knowledge"
	"github.com/clearscope-ai/clearscope/internal/session"
)

// handleSearchKnowledge performs semantic search over the knowledge index.
func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	filter := knowledge.SearchFilter{
		Industry: request.GetString("industry", ""),
		TopK:     request.GetInt("limit", 0),
	}
	if v := request.GetString("content_type", ""); v != "" {
		if !knowledge.ValidContentTypes[knowledge.ContentType(v)] {
			return mcp.NewToolResultError("unknown content_type: " + v), nil
		}
		filter.ContentType = knowledge.ContentType(v)
	}

	results, err := s.index.Search(ctx, query, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The knowledge base may be empty; run `clearscope knowledge import` to load it."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleGetConfidenceSummary returns the scores, gaps, and readiness of a
// session.
func (s *Server) handleGetConfidenceSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: session_id"), nil
	}
	if s.confidence == nil {
		return mcp.NewToolResultError("session service not available"), nil
	}

	state, summary, err := s.confidence.Summary(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return mcp.NewToolResultError("no session found with id " + sessionID), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("loading session: %v", err)), nil
	}

	return mcp.NewToolResultText(formatSummary(state, summary)), nil
}

// handleListStaleKnowledge lists items needing re-embedding.
func (s *Server) handleListStaleKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.store.ListStale(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing stale items: %v", err)), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("All knowledge items are up to date."), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d stale item(s); searches use their previous embedding until refreshed:\n", len(items)))
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s (%s, v%d): %s\n", item.Key(), item.Industry, item.Version, item.Title))
	}
	sb.WriteString("\nRun `clearscope knowledge refresh` to re-embed them.")
	return mcp.NewToolResultText(sb.String()), nil
}

// formatSearchResults converts search results into a text format for agent
// consumption.
func formatSearchResults(results []knowledge.SearchResult) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("\n--- Result %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Item: %s\n", r.Item.Key()))
		industry := r.Item.Industry
		if industry == "" {
			industry = "universal"
		}
		sb.WriteString(fmt.Sprintf("Industry: %s\n", industry))
		if category := r.Item.Metadata["category"]; category != "" {
			sb.WriteString(fmt.Sprintf("Category: %s\n", category))
		}
		sb.WriteString(fmt.Sprintf("Similarity: %.1f%%\n", r.Similarity*100))
		if r.NeedsUpdate {
			sb.WriteString("Note: content changed since last embedding\n")
		}
		sb.WriteString("\n")
		sb.WriteString(r.Item.Title)
		sb.WriteString("\n")
		sb.WriteString(r.Item.Body)
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatSummary renders a confidence summary as text.
func formatSummary(state *session.State, summary session.Summary) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session %s (%s)\n", state.ID, state.Industry))

	categories := make([]string, 0, len(summary.Scores))
	for c := range summary.Scores {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	for _, c := range categories {
		sb.WriteString(fmt.Sprintf("- %s: %d/100\n", c, summary.Scores[c]))
	}

	if len(summary.Gaps) > 0 {
		sb.WriteString("Open gaps: " + strings.Join(summary.Gaps, ", ") + "\n")
	}
	if summary.Ready {
		sb.WriteString("Status: ready for report generation\n")
	} else {
		sb.WriteString("Status: gathering evidence\n")
	}
	if state.Caveat != "" {
		sb.WriteString("Caveat: " + state.Caveat + "\n")
	}
	return sb.String()
}
