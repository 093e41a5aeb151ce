package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/yuin/goldmark"
)

// Output formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

// Formats lists the accepted format names.
var Formats = []string{FormatText, FormatMarkdown, FormatHTML}

// Window is the time range a run covers.
type Window struct {
	Current  time.Time
	Previous time.Time
}

// Reporter emits a report. Begin is called once before any Report, End once
// after the last.
type Reporter interface {
	Begin(w Window) error
	Report(a Action) error
	End() error
}

// NewReporter returns the reporter for format writing to w. colorOutput only
// affects the text format.
func NewReporter(format string, w io.Writer, colorOutput bool) (Reporter, error) {
	switch format {
	case "", FormatText:
		return &textReporter{w: w, colorOutput: colorOutput}, nil
	case FormatMarkdown:
		return &markdownReporter{w: w}, nil
	case FormatHTML:
		return &markdownReporter{w: w, html: goldmark.New()}, nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want one of: %s)", format, strings.Join(Formats, ", "))
	}
}

func formatTime(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}

// textReporter prints the template blocks as is.
type textReporter struct {
	w           io.Writer
	colorOutput bool
}

func (r *textReporter) Begin(w Window) error {
	_, err := fmt.Fprintf(r.w, "current timestamp: %s\nprevious timestamp: %s\n",
		formatTime(w.Current), formatTime(w.Previous))
	return err
}

func (r *textReporter) Report(a Action) error {
	block := Render(a)
	if r.colorOutput {
		block = statusColor(a.Status).Sprint(a.Status) + strings.TrimPrefix(block, a.Status)
	}
	_, err := fmt.Fprintln(r.w, block)
	return err
}

func (r *textReporter) End() error {
	return nil
}

// statusColor picks the color for a result status. Color is forced on; the
// caller has already decided the output is a terminal.
func statusColor(status string) *color.Color {
	var c *color.Color
	switch status {
	case "failed", "unreachable":
		c = color.New(color.FgRed, color.Bold)
	case "changed":
		c = color.New(color.FgYellow)
	case "ignored":
		c = color.New(color.FgMagenta)
	default:
		c = color.New(color.FgCyan)
	}
	c.EnableColor()
	return c
}

// markdownReporter writes a markdown document, or HTML converted from it when
// html is set.
type markdownReporter struct {
	w       io.Writer
	html    goldmark.Markdown
	doc     bytes.Buffer
	entries int
}

func (r *markdownReporter) Begin(w Window) error {
	fmt.Fprintf(&r.doc, "# ARA report\n\n")
	fmt.Fprintf(&r.doc, "- current timestamp: `%s`\n", formatTime(w.Current))
	fmt.Fprintf(&r.doc, "- previous timestamp: `%s`\n\n", formatTime(w.Previous))
	return r.flush()
}

func (r *markdownReporter) Report(a Action) error {
	r.entries++
	fmt.Fprintf(&r.doc, "```\n%s\n```\n\n", Render(a))
	return r.flush()
}

func (r *markdownReporter) End() error {
	if r.entries == 0 {
		r.doc.WriteString("_No actionable results._\n")
	}
	if r.html != nil {
		if err := r.html.Convert(r.doc.Bytes(), r.w); err != nil {
			return fmt.Errorf("failed to render html: %w", err)
		}
		return nil
	}
	return r.flush()
}

// flush streams pending markdown. HTML output is held until End.
func (r *markdownReporter) flush() error {
	if r.html != nil {
		return nil
	}
	_, err := r.doc.WriteTo(r.w)
	return err
}
