package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchKnowledgeTool defines the search_knowledge MCP tool.
var searchKnowledgeTool = mcp.NewTool("search_knowledge",
	mcp.WithDescription("Search the curated business knowledge base semantically. Returns vendors, benchmarks, opportunities, case studies, patterns, and insights relevant to the query."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithString("content_type",
		mcp.Description("Restrict results to one content type"),
		mcp.Enum("vendor", "benchmark", "opportunity", "case_study", "pattern", "insight"),
	),
	mcp.WithString("industry",
		mcp.Description("Industry to filter by; industry-universal items are always included"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of results to return (default 5)"),
	),
)

// getConfidenceSummaryTool defines the get_confidence_summary MCP tool.
var getConfidenceSummaryTool = mcp.NewTool("get_confidence_summary",
	mcp.WithDescription("Get the per-category confidence scores, open gaps, and readiness for an interview session."),
	mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("The interview session id"),
	),
)

// listStaleKnowledgeTool defines the list_stale_knowledge MCP tool.
var listStaleKnowledgeTool = mcp.NewTool("list_stale_knowledge",
	mcp.WithDescription("List knowledge items whose content changed since they were last embedded. Stale items still serve searches on their previous embedding."),
)
