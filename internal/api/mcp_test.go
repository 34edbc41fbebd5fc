package api

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/mentormirror/internal/llm"
	"github.com/kalambet/mentormirror/internal/mentor"
	"github.com/kalambet/mentormirror/internal/pipeline"
)

func newTestMCPDeps(t *testing.T, caps *fakeCapabilities) Deps {
	t.Helper()
	store := mentor.NewMemoryStore()
	return Deps{
		Store:    store,
		LLM:      caps,
		Analyzer: pipeline.NewAnalyzer(fakeExtractor{text: "Meditations, book one."}, caps, store, nil, nil, nil),
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected TextContent, got %T", result.Content[0])
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func TestMCPListMentors(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeCapabilities{})
	handler := mcpListMentors(deps)

	result, err := handler(context.Background(), makeCallToolRequest("list_mentors", nil))
	require.NoError(t, err)
	assert.Contains(t, toolText(t, result), "No mentors yet")

	deps.Store.Upsert(context.Background(), mentor.Mentor{DisplayName: "Steve Jobs"})
	deps.Store.Upsert(context.Background(), mentor.Mentor{DisplayName: "Paul Graham"})

	result, err = handler(context.Background(), makeCallToolRequest("list_mentors", nil))
	require.NoError(t, err)
	text := toolText(t, result)
	assert.Contains(t, text, "- paul_graham: Paul Graham\n")
	assert.Contains(t, text, "- steve_jobs: Steve Jobs (voice)\n")
	assert.Less(t, strings.Index(text, "paul_graham"), strings.Index(text, "steve_jobs"))
}

func TestMCPAnalyzeURL(t *testing.T) {
	caps := &fakeCapabilities{completer: llm.CompleterFunc(func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "determine who the author is") {
			return "Marcus Aurelius", nil
		}
		return `{"toneVoice":"Stoic"}`, nil
	})}
	deps := newTestMCPDeps(t, caps)

	result, err := mcpAnalyzeURL(deps)(context.Background(), makeCallToolRequest("analyze_url", map[string]any{
		"url": "https://example.com/meditations",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))
	assert.Contains(t, toolText(t, result), `"mentorId": "marcus_aurelius"`)

	_, err = deps.Store.Get(context.Background(), "marcus_aurelius")
	assert.NoError(t, err)
}

func TestMCPAnalyzeURLRequiresURL(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeCapabilities{})

	result, err := mcpAnalyzeURL(deps)(context.Background(), makeCallToolRequest("analyze_url", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPRewriteText(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeCapabilities{completer: echoCompleter("Rewritten.")})
	deps.Store.Upsert(context.Background(), mentor.Mentor{DisplayName: "Paul Graham", StyleProfile: sampleProfile()})

	result, err := mcpRewriteText(deps)(context.Background(), makeCallToolRequest("rewrite_text", map[string]any{
		"mentor_id": "paul_graham",
		"text":      "original",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Equal(t, "Rewritten.", toolText(t, result))

	result, err = mcpRewriteText(deps)(context.Background(), makeCallToolRequest("rewrite_text", map[string]any{
		"mentor_id": "nobody",
		"text":      "original",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestMCPMentorgram(t *testing.T) {
	deps := newTestMCPDeps(t, &fakeCapabilities{completer: echoCompleter("Do the work.")})
	deps.Store.Upsert(context.Background(), mentor.Mentor{DisplayName: "Marcus Aurelius", StyleProfile: sampleProfile()})

	result, err := mcpMentorgram(deps)(context.Background(), makeCallToolRequest("mentorgram", map[string]any{
		"mentor_id": "marcus_aurelius",
		"topic":     "patience",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, toolText(t, result))
	text := toolText(t, result)
	assert.Contains(t, text, "Marcus Aurelius on patience")
	assert.Contains(t, text, "Do the work.")
}

func TestNewMCPServerRegistersTools(t *testing.T) {
	s := NewMCPServer(newTestMCPDeps(t, &fakeCapabilities{}))
	require.NotNil(t, s)
}
