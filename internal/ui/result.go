package ui

import (
	"fmt"
	"strings"
)

// ResultType indicates success or failure.
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

// Detail is one key/value line of a result box.
type Detail struct {
	Key   string
	Value string
}

// Result is a bordered summary printed when a command finishes.
type Result struct {
	Type    ResultType
	Title   string
	Details []Detail
	Error   error
	// Hints are printed below a failure.
	Hints []string
	Width int
}

func NewSuccessResult(title string) *Result {
	return &Result{Type: ResultSuccess, Title: title, Width: GetTerminalWidth()}
}

func NewFailureResult(title string, err error, hints ...string) *Result {
	return &Result{Type: ResultFailure, Title: title, Error: err, Hints: hints, Width: GetTerminalWidth()}
}

func NewWarningResult(title string) *Result {
	return &Result{Type: ResultWarning, Title: title, Width: GetTerminalWidth()}
}

// SetWidth sets the terminal width for responsive rendering.
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// AddDetail appends a detail line; details render in insertion order.
func (r *Result) AddDetail(key, value string) *Result {
	r.Details = append(r.Details, Detail{Key: key, Value: value})
	return r
}

// Render returns the styled result box.
func (r *Result) Render() string {
	width := r.Width
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	var lines []string
	lines = append(lines, "")

	switch r.Type {
	case ResultFailure:
		lines = append(lines, ErrorTitleStyle.Render(fmt.Sprintf(" %s  FAILED  ─  %s", FailureMarker, r.Title)))
	case ResultWarning:
		lines = append(lines, WarningTitleStyle.Render(fmt.Sprintf(" %s  WARNING  ─  %s", WarningMarker, r.Title)))
	default:
		lines = append(lines, SuccessTitleStyle.Render(fmt.Sprintf(" %s  SUCCESS  ─  %s", SuccessMarker, r.Title)))
	}
	lines = append(lines, "")

	for _, d := range r.Details {
		lines = append(lines, ResultKeyStyle.Render(" "+d.Key+":")+" "+ResultValueStyle.Render(d.Value))
	}
	if len(r.Details) > 0 {
		lines = append(lines, "")
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render(" Error: "+r.Error.Error()), "")
	}
	for _, hint := range r.Hints {
		lines = append(lines, HintStyle.Render(" • "+hint))
	}
	if len(r.Hints) > 0 {
		lines = append(lines, "")
	}

	color := SuccessColor
	switch r.Type {
	case ResultFailure:
		color = ErrorColor
	case ResultWarning:
		color = WarningColor
	}
	return boxStyle(color, width).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer.
func (r *Result) String() string {
	return r.Render()
}
