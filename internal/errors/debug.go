package errors

import (
	goerrors "errors"
	"fmt"
	"sort"
	"strings"
)

// DebugInfo is a snapshot of debug information captured during rendering.
// Locals hold the printable representation of the referenced variables.
type DebugInfo struct {
	Locals map[string]string
}

func formatErrorWithDebug(f fmt.State, err *Error, includeChain bool) {
	_, _ = fmt.Fprint(f, err.Error())
	if err.Source != "" || err.DebugInfo != nil {
		renderDebugInfo(f, err)
	}

	if includeChain {
		for cause := goerrors.Unwrap(err); cause != nil; cause = goerrors.Unwrap(cause) {
			_, _ = fmt.Fprint(f, "\n\ncaused by: ")
			if next, ok := cause.(*Error); ok {
				formatErrorWithDebug(f, next, false)
			} else {
				_, _ = fmt.Fprintf(f, "%v", cause)
			}
		}
	}
}

func renderDebugInfo(f fmt.State, err *Error) {
	if err.Source != "" {
		title := fmt.Sprintf(" %s ", templateTitle(err.Name))
		_, _ = fmt.Fprint(f, "\n")
		_, _ = fmt.Fprintln(f, centerLine(title, '-', 79))

		lines := strings.Split(err.Source, "\n")
		lineIdx := 0
		if err.Line > 0 {
			lineIdx = err.Line - 1
		}
		if lineIdx >= len(lines) {
			lineIdx = len(lines) - 1
		}

		skip := lineIdx - 3
		if skip < 0 {
			skip = 0
		}
		for idx := skip; idx < lineIdx; idx++ {
			_, _ = fmt.Fprintf(f, "%4d | %s\n", idx+1, lines[idx])
		}
		_, _ = fmt.Fprintf(f, "%4d > %s\n", lineIdx+1, lines[lineIdx])
		for idx := lineIdx + 1; idx <= lineIdx+3 && idx < len(lines); idx++ {
			_, _ = fmt.Fprintf(f, "%4d | %s\n", idx+1, lines[idx])
		}
		_, _ = fmt.Fprint(f, strings.Repeat("~", 79))
		_, _ = fmt.Fprint(f, "\n")
	}

	if err.DebugInfo != nil {
		renderReferencedLocals(f, err.DebugInfo.Locals)
		_, _ = fmt.Fprint(f, strings.Repeat("-", 79))
	}
}

func renderReferencedLocals(f fmt.State, locals map[string]string) {
	if len(locals) == 0 {
		_, _ = fmt.Fprint(f, "No referenced variables\n")
		return
	}

	_, _ = fmt.Fprint(f, "Referenced variables:\n")
	keys := make([]string, 0, len(locals))
	for key := range locals {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		_, _ = fmt.Fprintf(f, "    %s: %s\n", key, locals[key])
	}
}

func templateTitle(name string) string {
	if name == "" {
		return "Template Source"
	}
	parts := strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' })
	if len(parts) == 0 {
		return "Template Source"
	}
	return parts[len(parts)-1]
}

func centerLine(title string, fill rune, width int) string {
	if len(title) >= width {
		return title
	}
	pad := width - len(title)
	left := pad / 2
	right := pad - left
	return strings.Repeat(string(fill), left) + title + strings.Repeat(string(fill), right)
}
