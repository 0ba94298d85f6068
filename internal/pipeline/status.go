package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// StatusPrinter writes human-readable progress lines for a run.
type StatusPrinter struct {
	w       io.Writer
	noColor bool
}

// NewStatusPrinter creates a printer. A nil writer discards output.
func NewStatusPrinter(w io.Writer, noColor bool) *StatusPrinter {
	if w == nil {
		w = io.Discard
	}
	return &StatusPrinter{w: w, noColor: noColor}
}

func (p *StatusPrinter) paint(s string, attrs ...color.Attribute) string {
	if p.noColor {
		return s
	}
	return color.New(attrs...).Sprint(s)
}

// RunStarted prints the run header.
func (p *StatusPrinter) RunStarted(runID string) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint("Sales pipeline run", color.Bold), runID)
}

// StepStarted prints a line when a step begins.
func (p *StatusPrinter) StepStarted(step *StepState) {
	fmt.Fprintf(p.w, "%s %s...\n", p.paint("→", color.FgCyan), step.Name)
}

// StepFinished prints the outcome of a step.
func (p *StatusPrinter) StepFinished(step *StepState) {
	status, message := step.Snapshot()
	line := fmt.Sprintf("%s %s %s", p.icon(status), step.Name, p.statusText(status))
	if message != "" {
		line += ": " + message
	}
	fmt.Fprintln(p.w, line)
}

// Notice prints an informational line that is not tied to a step outcome.
func (p *StatusPrinter) Notice(msg string) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint("!", color.FgYellow), msg)
}

// Summary prints the scalar sales summary line.
func (p *StatusPrinter) Summary(line string) {
	fmt.Fprintln(p.w, p.paint(line, color.Bold))
}

// StepTable renders the final per-step table.
func (p *StatusPrinter) StepTable(run *RunState) {
	t := table.NewWriter()
	t.SetOutputMirror(p.w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"", "Step", "Status", "Duration", "Message"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 3, Align: text.AlignCenter},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: 60},
	})

	for _, step := range run.Steps {
		status, message := step.Snapshot()
		t.AppendRow(table.Row{
			p.icon(status),
			step.Name,
			p.statusText(status),
			formatDuration(step.Duration()),
			message,
		})
	}
	t.AppendFooter(table.Row{"", "Total", p.runStatusText(run.Status), formatDuration(run.Duration()), ""})
	t.Render()
}

func (p *StatusPrinter) icon(status StepStatus) string {
	switch status {
	case StepStatusCompleted:
		return p.paint("✓", color.FgGreen)
	case StepStatusDegraded:
		return p.paint("!", color.FgYellow)
	case StepStatusFailed:
		return p.paint("✗", color.FgRed)
	case StepStatusSkipped:
		return p.paint("↷", color.Faint)
	case StepStatusActive:
		return p.paint("…", color.FgYellow)
	default:
		return p.paint("○", color.Faint)
	}
}

func (p *StatusPrinter) statusText(status StepStatus) string {
	txt := string(status)
	switch status {
	case StepStatusCompleted:
		return p.paint(txt, color.FgGreen)
	case StepStatusDegraded:
		return p.paint(txt, color.FgYellow)
	case StepStatusFailed:
		return p.paint(txt, color.FgRed)
	default:
		return p.paint(txt, color.Faint)
	}
}

func (p *StatusPrinter) runStatusText(status RunStatus) string {
	txt := strings.ToUpper(string(status))
	if status == RunStatusFailed {
		return p.paint(txt, color.FgRed, color.Bold)
	}
	return p.paint(txt, color.FgGreen, color.Bold)
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}
