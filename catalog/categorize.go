package catalog

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jonwraymond/toolgen/config"
	"github.com/jonwraymond/toolgen/protocol"
)

// DefaultCategory is used when no rule, name hint or keyword applies.
const DefaultCategory = "general"

// Rule maps tool names matching Pattern to Category. Keywords are also
// matched against tool descriptions when neither a pattern nor a name hint
// applies, and become the category's keywords.
type Rule struct {
	Pattern     string   `yaml:"pattern" json:"pattern" toml:"pattern"`
	Category    string   `yaml:"category" json:"category" toml:"category"`
	Description string   `yaml:"description" json:"description" toml:"description"`
	Keywords    []string `yaml:"keywords" json:"keywords" toml:"keywords"`
}

// DefaultRules returns the built-in categorization rules.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: `repo|branch|commit`, Category: "repositories", Description: "Repository management", Keywords: []string{"repository", "branch", "commit"}},
		{Pattern: `pull_request|pr_|merge`, Category: "pull_requests", Description: "Pull request review and merging", Keywords: []string{"pull request", "review", "merge"}},
		{Pattern: `issue|ticket|bug`, Category: "issues", Description: "Issue tracking", Keywords: []string{"issue", "ticket", "bug"}},
		{Pattern: `file|dir|folder|path`, Category: "files", Description: "File and directory operations", Keywords: []string{"file", "directory", "folder"}},
		{Pattern: `user|member|team|profile`, Category: "users", Description: "Users and teams", Keywords: []string{"user", "member", "team"}},
		{Pattern: `message|chat|channel|email|mail`, Category: "messaging", Description: "Messages and channels", Keywords: []string{"message", "channel", "email"}},
		{Pattern: `search|query|find`, Category: "search", Description: "Search and lookup", Keywords: []string{"search", "query", "find"}},
		{Pattern: `account|contact|lead|opportunit`, Category: "crm", Description: "Customer records", Keywords: []string{"account", "contact", "lead"}},
	}
}

// Categorizer groups a server's flat tool list into categories.
type Categorizer struct {
	rules    []Rule
	patterns []*regexp.Regexp
	fallback string
}

// NewCategorizer compiles rules. An empty defaultCategory uses
// DefaultCategory. Invalid patterns wrap config.ErrConfiguration.
func NewCategorizer(rules []Rule, defaultCategory string) (*Categorizer, error) {
	if defaultCategory == "" {
		defaultCategory = DefaultCategory
	}
	c := &Categorizer{
		rules:    append([]Rule(nil), rules...),
		fallback: defaultCategory,
	}
	for i, r := range rules {
		if r.Category == "" {
			return nil, fmt.Errorf("%w: rule %d: category is required", config.ErrConfiguration, i)
		}
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %d: %w", config.ErrConfiguration, i, err)
		}
		c.patterns = append(c.patterns, re)
	}
	return c, nil
}

// ruleFile is the on-disk shape of a rules file.
type ruleFile struct {
	CategoryRules struct {
		Patterns        []Rule `yaml:"patterns" json:"patterns" toml:"patterns"`
		DefaultCategory string `yaml:"default_category" json:"default_category" toml:"default_category"`
	} `yaml:"category_rules" json:"category_rules" toml:"category_rules"`
}

// LoadCategorizer reads rules from a file with a category_rules section.
func LoadCategorizer(path string) (*Categorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: rules: %w", config.ErrConfiguration, err)
	}
	var rf ruleFile
	if err := config.Decode(data, config.Format(path), &rf); err != nil {
		return nil, err
	}
	return NewCategorizer(rf.CategoryRules.Patterns, rf.CategoryRules.DefaultCategory)
}

// Categorize groups tools into categories of a server named server.
// Categories appear in order of first use. A tool's category is, in order
// of precedence: the first rule whose pattern matches its lower-cased
// name; the middle part of a server__category__tool name, pluralized with
// a trailing "s"; the first rule with a keyword in its description; the
// default category.
func (c *Categorizer) Categorize(server string, tools []*mcp.Tool) Server {
	srv := Server{Name: server}
	index := make(map[string]int)

	for _, t := range tools {
		if t == nil {
			continue
		}
		name := c.categoryFor(t)
		i, ok := index[name]
		if !ok {
			i = len(srv.Categories)
			index[name] = i
			desc, keywords := c.categoryInfo(name)
			srv.Categories = append(srv.Categories, Category{Name: name, Description: desc, Keywords: keywords})
		}
		srv.Categories[i].Tools = append(srv.Categories[i].Tools, Tool{
			Server:      server,
			Category:    name,
			Name:        simpleName(t.Name),
			Description: t.Description,
			InputSchema: schemaMap(t.InputSchema),
		})
	}
	return srv
}

func (c *Categorizer) categoryFor(t *mcp.Tool) string {
	lower := strings.ToLower(t.Name)
	for i, re := range c.patterns {
		if re.MatchString(lower) {
			return c.rules[i].Category
		}
	}

	if _, hint, _, ok := protocol.SplitToolName(t.Name); ok {
		if !strings.HasSuffix(hint, "s") {
			hint += "s"
		}
		return hint
	}

	desc := strings.ToLower(t.Description)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(desc, strings.ToLower(kw)) {
				return r.Category
			}
		}
	}
	return c.fallback
}

func (c *Categorizer) categoryInfo(name string) (string, []string) {
	for _, r := range c.rules {
		if r.Category == name {
			return r.Description, append([]string(nil), r.Keywords...)
		}
	}
	return cases.Title(language.Und).String(strings.ReplaceAll(name, "_", " ")), []string{name}
}

// simpleName returns the last separator-delimited part of a tool name.
func simpleName(name string) string {
	if i := strings.LastIndex(name, protocol.ToolSeparator); i >= 0 && i+len(protocol.ToolSeparator) < len(name) {
		return name[i+len(protocol.ToolSeparator):]
	}
	return name
}

// schemaMap converts a decoded MCP input schema to a plain map.
func schemaMap(schema any) map[string]any {
	switch s := schema.(type) {
	case nil:
		return nil
	case map[string]any:
		return s
	default:
		var out map[string]any
		if err := remarshal(s, &out); err != nil {
			return nil
		}
		return out
	}
}
