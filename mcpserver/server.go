// Package mcpserver exposes the chat client as an MCP tool server over
// stdio, so editors and agents can query the knowledge base directly.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ragstack/ragchat"
)

const version = "1.0.0"

// New builds an MCP server with every knowledge-base tool registered.
func New(client *ragchat.Client, log *zap.Logger) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}
	s := server.NewMCPServer(
		"ragchat",
		version,
		server.WithInstructions("Retrieval-augmented chat over a local document knowledge base. Use chat for Q&A and the chunk tools for index management."),
		server.WithToolCapabilities(false),
	)

	s.AddTool(
		mcp.NewTool("chat",
			mcp.WithDescription("Answer a question using retrieved knowledge. Asks a clarifying question when the query is too vague to answer."),
			mcp.WithString("query", mcp.Required(), mcp.Description("The question to answer")),
			mcp.WithString("session_id", mcp.Description("Conversation session id; reuse it for follow-up questions")),
		),
		chatHandler(client, log),
	)
	s.AddTool(
		mcp.NewTool("search-chunks",
			mcp.WithDescription("Semantic search over indexed chunks. Returns the top matches with similarity scores."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Natural language search query")),
			mcp.WithNumber("top_k", mcp.Description("Maximum results to return")),
		),
		searchHandler(client, log),
	)
	s.AddTool(
		mcp.NewTool("create-chunk",
			mcp.WithDescription("Index a single piece of text as one chunk."),
			mcp.WithString("content", mcp.Required(), mcp.Description("Text to index")),
			mcp.WithString("source", mcp.Description("Source label stored in the chunk metadata")),
		),
		createChunkHandler(client, log),
	)
	s.AddTool(
		mcp.NewTool("list-chunks",
			mcp.WithDescription("List indexed chunks with their ids and sources."),
			mcp.WithNumber("limit", mcp.Description("Maximum chunks to return, 0 for all")),
		),
		listChunksHandler(client, log),
	)
	s.AddTool(
		mcp.NewTool("delete-chunk",
			mcp.WithDescription("Delete a chunk from the index by id."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Chunk id returned by list-chunks or create-chunk")),
		),
		deleteChunkHandler(client, log),
	)
	s.AddTool(
		mcp.NewTool("load-directory",
			mcp.WithDescription("Load every supported document under a directory into the index."),
			mcp.WithString("path", mcp.Required(), mcp.Description("Directory to scan")),
		),
		loadDirectoryHandler(client, log),
	)
	s.AddTool(
		mcp.NewTool("list-sessions",
			mcp.WithDescription("List active conversation sessions."),
		),
		listSessionsHandler(client, log),
	)
	return s
}

// ServeStdio runs the server on stdin/stdout until the client disconnects.
func ServeStdio(client *ragchat.Client, log *zap.Logger) error {
	return server.ServeStdio(New(client, log))
}

func chatHandler(client *ragchat.Client, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sessionID := request.GetString("session_id", "mcp-default")
		answer, state, err := client.Chat(ctx, sessionID, query)
		if err != nil {
			log.Warn("chat tool failed", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
		}
		payload := map[string]interface{}{
			"response":      answer,
			"session_id":    sessionID,
			"clarification": state.NeedsClarification,
		}
		if sources := state.Sources(); len(sources) > 0 {
			payload["sources"] = sources
		}
		return jsonResult(payload)
	}
}

func searchHandler(client *ragchat.Client, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		topK := request.GetInt("top_k", 0)
		results := client.SimilaritySearch(ctx, query, topK)
		out := make([]map[string]interface{}, 0, len(results))
		for _, r := range results {
			out = append(out, map[string]interface{}{
				"id":      r.Document.ID,
				"content": r.Document.Content,
				"source":  r.Document.Source(),
				"score":   r.Score,
			})
		}
		return jsonResult(map[string]interface{}{"results": out, "count": len(out)})
	}
}

func createChunkHandler(client *ragchat.Client, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		source := request.GetString("source", "")
		doc, err := client.CreateChunk(ctx, content, source)
		if err != nil {
			log.Warn("create-chunk tool failed", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("create chunk failed: %v", err)), nil
		}
		return jsonResult(map[string]interface{}{"id": doc.ID, "source": doc.Source()})
	}
}

func listChunksHandler(client *ragchat.Client, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 0)
		docs, err := client.ListChunks(ctx, limit)
		if err != nil {
			log.Warn("list-chunks tool failed", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("list chunks failed: %v", err)), nil
		}
		out := make([]map[string]interface{}, 0, len(docs))
		for _, d := range docs {
			out = append(out, map[string]interface{}{
				"id":      d.ID,
				"source":  d.Source(),
				"preview": preview(d.Content, 120),
			})
		}
		return jsonResult(map[string]interface{}{"chunks": out, "count": len(out)})
	}
}

func deleteChunkHandler(client *ragchat.Client, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := client.DeleteChunks(ctx, []string{id}); err != nil {
			log.Warn("delete-chunk tool failed", zap.String("id", id), zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("delete chunk failed: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("deleted chunk %s", id)), nil
	}
}

func loadDirectoryHandler(client *ragchat.Client, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		files, chunks, err := client.LoadDirectory(ctx, path)
		if err != nil {
			log.Warn("load-directory tool failed", zap.String("path", path), zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("load directory failed: %v", err)), nil
		}
		return jsonResult(map[string]interface{}{"files": files, "chunks": chunks})
	}
}

func listSessionsHandler(client *ragchat.Client, log *zap.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := client.Sessions().List()
		if err != nil {
			log.Warn("list-sessions tool failed", zap.Error(err))
			return mcp.NewToolResultError(fmt.Sprintf("list sessions failed: %v", err)), nil
		}
		return jsonResult(map[string]interface{}{"sessions": ids, "count": len(ids)})
	}
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
