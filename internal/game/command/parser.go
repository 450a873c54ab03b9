package command

import "strings"

// DirectivePrefix marks a console line as a driver directive rather than typed combat input.
const DirectivePrefix = ":"

// ParseResult holds the parsed directive name and arguments from a text line.
type ParseResult struct {
	// Directive is the first word after the prefix, lowercased.
	Directive string
	// Args are the remaining words after the directive.
	Args []string
}

// IsDirective reports whether line is a driver directive.
func IsDirective(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), DirectivePrefix)
}

// Parse splits a directive line into a name and arguments.
//
// Postcondition: Returns a ParseResult. If line is not a directive or is
// only the prefix, Directive is empty.
func Parse(line string) ParseResult {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, DirectivePrefix) {
		return ParseResult{}
	}
	fields := strings.Fields(strings.TrimPrefix(line, DirectivePrefix))
	if len(fields) == 0 {
		return ParseResult{}
	}
	res := ParseResult{Directive: strings.ToLower(fields[0])}
	if len(fields) > 1 {
		res.Args = fields[1:]
	}
	return res
}
