// Package ux provides terminal output helpers for the patchbrowser command line:
// colored status messages, a fetch spinner and plain-text tables of patch and
// installer rows.
package ux

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// Color definitions for consistent output
var (
	Success = color.New(color.FgGreen).SprintFunc()
	Error   = color.New(color.FgRed).SprintFunc()
	Warning = color.New(color.FgYellow).SprintFunc()
	Info    = color.New(color.FgCyan).SprintFunc()
	Bold    = color.New(color.Bold).SprintFunc()
	Dim     = color.New(color.Faint).SprintFunc()
)

// Output receives status messages. Tests swap it for a buffer.
var Output io.Writer = os.Stdout

// PrintSuccess prints a success message with green checkmark
func PrintSuccess(format string, args ...interface{}) {
	fmt.Fprintf(Output, "%s %s\n", Success("✓"), fmt.Sprintf(format, args...))
}

// PrintError prints an error message with red X
func PrintError(format string, args ...interface{}) {
	fmt.Fprintf(Output, "%s %s\n", Error("✗"), fmt.Sprintf(format, args...))
}

// PrintWarning prints a warning message with yellow triangle
func PrintWarning(format string, args ...interface{}) {
	fmt.Fprintf(Output, "%s %s\n", Warning("⚠"), fmt.Sprintf(format, args...))
}

// PrintInfo prints an info message with cyan dot
func PrintInfo(format string, args ...interface{}) {
	fmt.Fprintf(Output, "%s %s\n", Info("•"), fmt.Sprintf(format, args...))
}

// PrintHeader prints a bold header
func PrintHeader(text string) {
	fmt.Fprintln(Output, Bold(text))
	fmt.Fprintln(Output, Bold(repeat("=", utf8.RuneCountInString(text))))
	fmt.Fprintln(Output)
}

// PrintSection prints a section header
func PrintSection(text string) {
	fmt.Fprintln(Output)
	fmt.Fprintln(Output, Bold(text))
}

// NewProgressBar creates a new progress bar with consistent styling, used
// when writing export files.
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionClearOnFinish(),
	)
}

// Spinner shows an indeterminate progress indicator while a feed is fetched.
type Spinner struct {
	message string
	bar     *progressbar.ProgressBar
	done    chan struct{}
	stopped sync.Once
	wg      sync.WaitGroup
}

// NewSpinner creates a new spinner with a message. Frames go to w; a nil
// writer discards them.
func NewSpinner(message string, w io.Writer) *Spinner {
	if w == nil {
		w = io.Discard
	}
	return &Spinner{
		message: message,
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(message),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionClearOnFinish(),
		),
		done: make(chan struct{}),
	}
}

// Start begins the spinner animation
func (s *Spinner) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				_ = s.bar.Finish()
				return
			case <-ticker.C:
				_ = s.bar.Add(1)
			}
		}
	}()
}

// Stop stops the spinner and clears its line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.stopped.Do(func() { close(s.done) })
	s.wg.Wait()
}

// StopWithSuccess stops the spinner and shows success
func (s *Spinner) StopWithSuccess(format string, args ...interface{}) {
	s.Stop()
	PrintSuccess(format, args...)
}

// StopWithError stops the spinner and shows error
func (s *Spinner) StopWithError(format string, args ...interface{}) {
	s.Stop()
	PrintError(format, args...)
}

// FormatDuration formats a duration nicely
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return Dim(d.Round(time.Millisecond).String())
	}
	return Dim(d.Round(time.Second).String())
}

// FormatSecurity highlights security patches.
func FormatSecurity(flag string) string {
	if flag == "Y" {
		return Error(flag)
	}
	return Dim(flag)
}

// FormatCount renders "shown of total", warning when the list was capped.
func FormatCount(shown, total int) string {
	if shown < total {
		return Warning(fmt.Sprintf("showing %d of %d rows", shown, total))
	}
	return Info(fmt.Sprintf("%d rows", total))
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// visibleWidth is the printed width of s, ignoring color escape codes.
func visibleWidth(s string) int {
	return utf8.RuneCountInString(ansiPattern.ReplaceAllString(s, ""))
}

// PrintTable writes rows as aligned columns. The first row is the header and
// is printed in bold. Cells may carry color codes.
func PrintTable(w io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	// Calculate column widths
	colWidths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, col := range row {
			if i >= len(colWidths) {
				colWidths = append(colWidths, 0)
			}
			if n := visibleWidth(col); n > colWidths[i] {
				colWidths[i] = n
			}
		}
	}

	for r, row := range rows {
		var b strings.Builder
		for i, col := range row {
			if r == 0 {
				col = Bold(col)
			}
			b.WriteString(col)
			if i < len(row)-1 {
				b.WriteString(repeat(" ", colWidths[i]-visibleWidth(col)+2))
			}
		}
		fmt.Fprintln(w, b.String())
	}
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	runes := []rune(s)
	return string(runes[:n-1]) + "…"
}

// IsTerminal checks if output is going to a terminal
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Helper function to repeat a string
func repeat(s string, count int) string {
	if count <= 0 {
		return ""
	}
	return strings.Repeat(s, count)
}
