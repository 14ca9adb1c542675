package generate

import "github.com/jonwraymond/toolgen/catalog"

// DefaultLanguage is the language of generated code.
const DefaultLanguage = "go"

// DegradedDescription marks a code unit built from an unparseable reply.
const DegradedDescription = "generation parsing failed"

// CodeUnit is generated code plus the metadata the backend reported.
type CodeUnit struct {
	Code          string            `json:"code"`
	Language      string            `json:"language"`
	Description   string            `json:"description"`
	RequiredTools []catalog.ToolRef `json:"required_tools"`
	Explanation   string            `json:"explanation"`
}

// ParseResult is the outcome of ParseResponse. It is either [Parsed] or
// [Degraded].
type ParseResult interface {
	// Unit returns the code unit to use. For Degraded results this is the
	// fallback unit carrying the raw reply.
	Unit() CodeUnit

	isParseResult()
}

// Parsed is a reply whose JSON object was extracted and decoded.
type Parsed struct {
	CodeUnit CodeUnit

	// Skipped holds the raw required_tools entries that were not tool
	// references.
	Skipped []string
}

// Unit returns the decoded code unit.
func (p Parsed) Unit() CodeUnit { return p.CodeUnit }

func (Parsed) isParseResult() {}

// Degraded is a reply that could not be parsed.
type Degraded struct {
	// Raw is the reply text, verbatim.
	Raw string

	// Reason describes why parsing failed.
	Reason string
}

// Unit returns the fallback code unit: the raw reply as code, marked as a
// parsing failure, with the reason as explanation.
func (d Degraded) Unit() CodeUnit {
	return CodeUnit{
		Code:          d.Raw,
		Language:      DefaultLanguage,
		Description:   DegradedDescription,
		RequiredTools: []catalog.ToolRef{},
		Explanation:   d.Reason,
	}
}

func (Degraded) isParseResult() {}
