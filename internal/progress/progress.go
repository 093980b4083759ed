package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Stage represents a processing stage
type Stage struct {
	Number      int
	Total       int
	Name        string
	Description string
}

// Stages of a chart run
var (
	StageValidate = Stage{1, 5, "validate", "Validating parameters..."}
	StageGenerate = Stage{2, 5, "generate", "Generating chords..."}
	StageLayout   = Stage{3, 5, "layout", "Laying out staves..."}
	StageWrite    = Stage{4, 5, "write", "Writing LilyPond and MIDI..."}
	StageRender   = Stage{5, 5, "render", "Rendering with LilyPond..."}
)

// Reporter handles CLI progress output
type Reporter struct {
	out       io.Writer
	startTime time.Time
	verbose   bool

	stage   lipgloss.Style
	detail  lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

// NewReporter creates a new progress reporter. Colors are used only when out
// is a terminal.
func NewReporter(out io.Writer, verbose bool) *Reporter {
	r := lipgloss.NewRenderer(out)
	return &Reporter{
		out:       out,
		startTime: time.Now(),
		verbose:   verbose,
		stage:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		detail:    r.NewStyle().Foreground(lipgloss.Color("#6e7681")),
		success:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f")),
		warning:   r.NewStyle().Foreground(lipgloss.Color("#FFD700")),
		failure:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f")),
	}
}

// StartStage announces the beginning of a processing stage
func (r *Reporter) StartStage(stage Stage) {
	fmt.Fprintf(r.out, "%s %s\n", r.stage.Render(fmt.Sprintf("[%d/%d]", stage.Number, stage.Total)), stage.Description)
}

// Update shows a sub-progress message within a stage
func (r *Reporter) Update(format string, args ...any) {
	if r.verbose {
		fmt.Fprintf(r.out, "       %s\n", r.detail.Render(fmt.Sprintf(format, args...)))
	}
}

// StageComplete shows completion message for a stage
func (r *Reporter) StageComplete(format string, args ...any) {
	fmt.Fprintf(r.out, "       %s\n", fmt.Sprintf(format, args...))
}

// Done announces successful completion
func (r *Reporter) Done(outputPath string) {
	elapsed := time.Since(r.startTime)
	fmt.Fprintln(r.out, r.success.Render("Done! Chart generated."))
	if outputPath != "" {
		fmt.Fprintf(r.out, "Output saved to: %s\n", outputPath)
	}
	fmt.Fprintf(r.out, "Completed in %.1f seconds\n", elapsed.Seconds())
}

// Error announces an error
func (r *Reporter) Error(err error) {
	fmt.Fprintf(r.out, "%s %s\n", r.failure.Render("Error:"), err)
}

// Warning announces a non-fatal warning
func (r *Reporter) Warning(format string, args ...any) {
	fmt.Fprintf(r.out, "%s %s\n", r.warning.Render("Warning:"), fmt.Sprintf(format, args...))
}
