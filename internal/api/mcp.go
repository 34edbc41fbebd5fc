package api

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/mentormirror/internal/pipeline"
	"github.com/kalambet/mentormirror/internal/style"
)

// NewMCPServer creates an MCP server exposing mentors as tools.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"mentormirror",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("mentormirror: learn an author's writing style from a URL and rewrite text in that style."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_mentors",
			mcp.WithDescription("List the saved mentors and whether each has a synthesized voice."),
		),
		mcpListMentors(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_url",
			mcp.WithDescription("Extract a document, infer its author, profile the author's style and save it as a mentor."),
			mcp.WithString("url", mcp.Description("http(s) URL of the document"), mcp.Required()),
			mcp.WithString("service", mcp.Description("Language model service (openai, google, anthropic, openrouter, ollama)")),
			mcp.WithString("model", mcp.Description("Model id for the service")),
		),
		mcpAnalyzeURL(deps),
	)

	s.AddTool(
		mcp.NewTool("rewrite_text",
			mcp.WithDescription("Rewrite text in a saved mentor's style."),
			mcp.WithString("mentor_id", mcp.Description("Mentor id, e.g. paul_graham"), mcp.Required()),
			mcp.WithString("text", mcp.Description("Text to rewrite"), mcp.Required()),
			mcp.WithBoolean("preserve_tone", mcp.Description("Keep the original wording and narrate it in the mentor's voice")),
			mcp.WithString("service", mcp.Description("Language model service")),
			mcp.WithString("model", mcp.Description("Model id for the service")),
		),
		mcpRewriteText(deps),
	)

	s.AddTool(
		mcp.NewTool("mentorgram",
			mcp.WithDescription("Generate a short daily quote, action and reflection in a mentor's voice."),
			mcp.WithString("mentor_id", mcp.Description("Mentor id"), mcp.Required()),
			mcp.WithString("topic", mcp.Description("Optional topic; a random one is picked when empty")),
			mcp.WithString("service", mcp.Description("Language model service")),
			mcp.WithString("model", mcp.Description("Model id for the service")),
		),
		mcpMentorgram(deps),
	)

	return s
}

func mcpListMentors(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		all, err := deps.Store.List(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list mentors: %v", err)), nil
		}
		if len(all) == 0 {
			return mcpText("No mentors yet. Use analyze_url to create one."), nil
		}
		sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

		var sb strings.Builder
		for _, m := range all {
			voice := ""
			if m.HasVoice() {
				voice = " (voice)"
			}
			fmt.Fprintf(&sb, "- %s: %s%s\n", m.ID, m.DisplayName, voice)
		}
		return mcpText(sb.String()), nil
	}
}

func mcpAnalyzeURL(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := req.RequireString("url")
		if err != nil {
			return mcpError("url is required"), nil
		}

		var steps []string
		res, err := deps.Analyzer.Run(ctx, pipeline.Request{
			URL:             url,
			ServiceSelector: req.GetString("service", ""),
			ModelID:         req.GetString("model", ""),
		}, func(ev pipeline.Event) error {
			if ev.Step != "" {
				steps = append(steps, ev.Message)
			}
			return nil
		})
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(strings.Join(steps, "\n") + "\n\n" + string(b)), nil
	}
}

func mcpRewriteText(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("mentor_id")
		if err != nil {
			return mcpError("mentor_id is required"), nil
		}
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}

		m, err := deps.Store.Get(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("mentor %q: %v", id, err)), nil
		}
		c, err := deps.LLM.Resolve(req.GetString("service", ""), req.GetString("model", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		out, err := style.Apply(ctx, c, m.StyleProfile, text, req.GetBool("preserve_tone", false))
		deps.Metrics.ObserveRewrite(err)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(out), nil
	}
}

func mcpMentorgram(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("mentor_id")
		if err != nil {
			return mcpError("mentor_id is required"), nil
		}

		m, err := deps.Store.Get(ctx, id)
		if err != nil {
			return mcpError(fmt.Sprintf("mentor %q: %v", id, err)), nil
		}
		c, err := deps.LLM.Resolve(req.GetString("service", ""), req.GetString("model", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}

		gram, err := style.GenerateMentorgram(ctx, c, m.DisplayName, m.StyleProfile, req.GetString("topic", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(fmt.Sprintf("%s on %s (%s)\n\n\"%s\"\n\nToday: %s\n\nReflect: %s",
			gram.Mentor, gram.Topic, gram.Date, gram.Quote, gram.Action, gram.Reflection)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
