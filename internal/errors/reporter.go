package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Level represents the severity of a diagnostic
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelNote    Level = "note"
)

// Reporter handles consistent error formatting for one host file
type Reporter struct {
	filename string
	source   string
	lines    []string
}

// NewReporter creates a new error reporter for a file
func NewReporter(filename, source string) *Reporter {
	return &Reporter{
		filename: filename,
		source:   source,
		lines:    strings.Split(source, "\n"),
	}
}

// Format renders a build error with a caret marker under the offending span
func (r *Reporter) Format(err *Error) string {
	var result strings.Builder

	levelColor := r.getLevelColor(LevelError)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	// Header: error[E0101]: message
	result.WriteString(fmt.Sprintf("%s[%s]: %s\n",
		levelColor(string(LevelError)), err.code(), err.Message))

	pos := err.Position
	filename := pos.Filename
	if filename == "" {
		filename = r.filename
	}

	lineNumberWidth := r.getLineNumberWidth(pos.Line)
	indent := strings.Repeat(" ", lineNumberWidth)

	if !pos.IsValid() {
		result.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("-->"), filename))
		r.writeTrailer(&result, err, indent)
		return result.String()
	}

	result.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n",
		indent, dim("-->"), filename, pos.Line, pos.Column))
	result.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))

	if pos.Line > 1 && pos.Line-1 < len(r.lines) {
		result.WriteString(fmt.Sprintf("%s %s %s\n",
			dim(fmt.Sprintf("%*d", lineNumberWidth, pos.Line-1)),
			dim("│"),
			r.lines[pos.Line-2]))
	}

	if pos.Line <= len(r.lines) {
		result.WriteString(fmt.Sprintf("%s %s %s\n",
			bold(fmt.Sprintf("%*d", lineNumberWidth, pos.Line)),
			dim("│"),
			r.lines[pos.Line-1]))

		marker := r.createMarker(pos.Column, err.Length, LevelError)
		result.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("│"), marker))
	}

	r.writeTrailer(&result, err, indent)
	return result.String()
}

func (r *Reporter) writeTrailer(result *strings.Builder, err *Error, indent string) {
	dim := color.New(color.Faint).SprintFunc()

	for _, note := range err.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		result.WriteString(fmt.Sprintf("%s %s %s %s\n",
			indent, dim("│"), noteColor("note:"), note))
	}

	if err.HelpText != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		result.WriteString(fmt.Sprintf("%s %s %s %s\n",
			indent, dim("│"), helpColor("help:"), err.HelpText))
	}

	result.WriteString("\n")
}

// getLevelColor returns the appropriate color function for a level
func (r *Reporter) getLevelColor(level Level) func(...interface{}) string {
	switch level {
	case LevelWarning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case LevelNote:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

// createMarker creates the underline marker for errors
func (r *Reporter) createMarker(column, length int, level Level) string {
	if length <= 0 {
		length = 1
	}

	spaces := strings.Repeat(" ", max(0, column-1))
	marker := strings.Repeat("^", length)
	return spaces + r.getLevelColor(level)(marker)
}

// getLineNumberWidth calculates the width needed for line numbers
func (r *Reporter) getLineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		width = 3 // minimum width for visual alignment
	}
	return width
}
