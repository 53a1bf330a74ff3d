package tools

import "fmt"

// InputError reports a tool call whose input could not be decoded or broke the
// tool's schema.
type InputError struct {
	Tool string
	Msg  string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input for %s: %s", e.Tool, e.Msg)
}

func inputErrorf(tool, format string, args ...any) error {
	return &InputError{Tool: tool, Msg: fmt.Sprintf(format, args...)}
}
