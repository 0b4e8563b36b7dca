package subunit

import "strings"

// tokenKind tags a classified line.
type tokenKind int

const (
	tokPassThrough tokenKind = iota
	tokStartTest
	tokSuccess
	tokFailure
	tokError
	tokSkip
	tokExpectedFailure
	tokProgress
	tokTags
	tokTime
)

// token is the result of classifying one line: a kind, the operand text
// (with the directive keyword stripped), and whether the operand opens a
// detail block (ends in " [").
type token struct {
	kind       tokenKind
	operand    string
	opensBlock bool
	raw        string // the original line, including its trailing newline
}

type keywordForm struct {
	kind   tokenKind
	prefix string
}

// keywordForms is the literal table of recognized directive keywords: a
// keyword is recognized followed by either a single space or a
// colon-then-space. progress/tags/time require the colon always.
var keywordForms = []keywordForm{
	{tokStartTest, "testing: "},
	{tokStartTest, "testing "},
	{tokStartTest, "test: "},
	{tokStartTest, "test "},
	{tokSuccess, "successful: "},
	{tokSuccess, "successful "},
	{tokSuccess, "success: "},
	{tokSuccess, "success "},
	{tokFailure, "failure: "},
	{tokFailure, "failure "},
	{tokError, "error: "},
	{tokError, "error "},
	{tokSkip, "skip: "},
	{tokSkip, "skip "},
	{tokExpectedFailure, "xfail: "},
	{tokExpectedFailure, "xfail "},
	{tokProgress, "progress: "},
	{tokTags, "tags: "},
	{tokTime, "time: "},
}

// classify recognizes a directive by exact keyword prefix. line must
// include its trailing "\n"; the newline is stripped only for matching
// purposes and is preserved in token.raw for pass-through/forwarding use.
// Forms are tried longest-prefix-first so "successful " isn't shadowed by
// "success " nor "testing " by "test ". A test or outcome directive with an
// empty test name is pass-through, since a TestID is never empty.
func classify(line string) token {
	stripped := strings.TrimSuffix(line, "\n")

	var best *keywordForm
	for i := range keywordForms {
		form := &keywordForms[i]
		if !strings.HasPrefix(stripped, form.prefix) {
			continue
		}
		if best == nil || len(form.prefix) > len(best.prefix) {
			best = form
		}
	}
	if best == nil {
		return token{kind: tokPassThrough, raw: line}
	}

	operand := stripped[len(best.prefix):]
	opens := strings.HasSuffix(operand, " [")
	if opens {
		operand = strings.TrimSuffix(operand, " [")
	}
	if operand == "" && best.kind >= tokStartTest && best.kind <= tokExpectedFailure {
		return token{kind: tokPassThrough, raw: line}
	}
	return token{kind: best.kind, operand: operand, opensBlock: opens, raw: line}
}
