package generate

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/jonwraymond/toolgen/catalog"
)

// Prompt summary bounds.
const (
	maxPromptServers    = 5
	maxPromptCategories = 3
)

// NoToolsText replaces the tool list when no tool matched the request.
const NoToolsText = "No specific tools found. You can explore available tools using the agent."

var promptTemplate = template.Must(template.New("prompt").Parse(`You are a code generation assistant that writes Go code using MCP tools.

User Request: {{.Query}}

Available MCP Tools:
{{.Tools}}

Available Servers Structure:
{{.Servers}}

Task: Generate Go code that accomplishes the user's request using the appropriate MCP tools.

The code runs in a Go interpreter with package agent already imported:
    agent.Servers() ([]string, error)
    agent.Categories(server string) ([]agent.CategoryInfo, error)
    agent.Tools(server, category string) ([]agent.ToolInfo, error)
    agent.Search(query string) ([]agent.ToolInfo, error)
    agent.Describe(server, category, tool string) (agent.Doc, error)
    agent.Tree(server string) (string, error)
    agent.Execute(server, category, tool string, params map[string]any) (map[string]any, error)
    agent.Call(server, fullName string, args map[string]any) (map[string]any, error)

Requirements:
1. Use agent.Execute(server, category, tool, params) to run tools
2. Check every returned error
3. Assign the final value to a variable named result
4. Write top-level statements; only declare package main when a main function is needed
5. Import only fmt, strings, strconv, math, sort, errors, unicode, encoding/json or time
6. Add helpful comments
7. Keep code simple and focused

Response Format (JSON):
{
    "code": "// Go code here\n...",
    "language": "go",
    "description": "Brief description of what the code does",
    "required_tools": [
        {"server": "...", "category": "...", "tool": "..."}
    ],
    "explanation": "Step-by-step explanation"
}

Generate the code now:`))

type promptData struct {
	Query   string
	Tools   string
	Servers string
}

// BuildPrompt renders the generation prompt for query. tools are the
// relevant tools in rank order, cat supplies the server summary and
// contextText, when not empty, is appended as additional context.
func BuildPrompt(query string, tools []catalog.Tool, cat *catalog.Catalog, contextText string) (string, error) {
	var b strings.Builder
	err := promptTemplate.Execute(&b, promptData{
		Query:   query,
		Tools:   FormatTools(tools),
		Servers: FormatServers(cat),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	if contextText != "" {
		b.WriteString("\n\nAdditional Context: ")
		b.WriteString(contextText)
	}
	return b.String(), nil
}

// FormatTools renders tools as a numbered list with description and
// keywords, or NoToolsText when tools is empty.
func FormatTools(tools []catalog.Tool) string {
	if len(tools) == 0 {
		return NoToolsText
	}
	entries := make([]string, 0, len(tools))
	for i, t := range tools {
		entries = append(entries, fmt.Sprintf("%d. %s\n   Description: %s\n   Keywords: %s",
			i+1, t.Ref(), t.Description, strings.Join(t.Keywords, ", ")))
	}
	return strings.Join(entries, "\n\n")
}

// FormatServers summarizes the first five servers of cat with their first
// three categories and tool counts.
func FormatServers(cat *catalog.Catalog) string {
	if cat == nil {
		return ""
	}
	var lines []string
	for _, s := range cat.Servers() {
		if len(lines) == maxPromptServers {
			break
		}
		cats := s.Categories
		if len(cats) > maxPromptCategories {
			cats = cats[:maxPromptCategories]
		}
		parts := make([]string, 0, len(cats))
		for _, c := range cats {
			parts = append(parts, fmt.Sprintf("%s (%d tools)", c.Name, len(c.Tools)))
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", s.Name, strings.Join(parts, ", ")))
	}
	return strings.Join(lines, "\n")
}
