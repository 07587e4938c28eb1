package css

import (
	"bytes"
	"fmt"

	parse "github.com/tdewolff/parse/v2"

	"stylec/common"
)

// SyntaxError reports malformed style-sheet source: unbalanced braces or
// parentheses, unterminated strings, nested rules without nesting enabled.
type SyntaxError struct {
	Source  string
	Offset  int
	Line    int
	Column  int
	Message string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Source, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s@%d: %s", e.Source, e.Offset, e.Message)
}

// Diagnostic converts error to compile diagnostic.
func (e *SyntaxError) Diagnostic() common.Diagnostic {
	return common.Diagnostic{
		Kind:     common.KindSyntax,
		Severity: common.SeverityError,
		Source:   e.Source,
		Offset:   e.Offset,
		Line:     e.Line,
		Column:   e.Column,
		Message:  e.Message,
	}
}

func newSyntaxError(name string, src []byte, offset int, format string, args ...any) *SyntaxError {
	e := &SyntaxError{
		Source:  name,
		Offset:  offset,
		Message: fmt.Sprintf(format, args...),
	}
	if offset >= 0 && offset <= len(src) {
		e.Line, e.Column, _ = parse.Position(bytes.NewReader(src), offset)
	}
	return e
}
