package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, TUI).
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

var (
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8AB4F8")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBC04")).Bold(true)
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EA4335")).Bold(true)
	debugStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#9AA0A6"))
)

// ConsoleLogger writes human-readable logs to stdout/stderr.
// Info and debug lines go to out, warnings and errors to errOut.
type ConsoleLogger struct {
	out     io.Writer
	errOut  io.Writer
	verbose bool
}

func NewConsoleLogger() *ConsoleLogger {
	return &ConsoleLogger{out: os.Stdout, errOut: os.Stderr}
}

// NewWriterLogger creates a ConsoleLogger writing to the given writers.
func NewWriterLogger(out, errOut io.Writer) *ConsoleLogger {
	return &ConsoleLogger{out: out, errOut: errOut}
}

// SetVerbose enables or disables debug output.
func (c *ConsoleLogger) SetVerbose(verbose bool) {
	c.verbose = verbose
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	fmt.Fprintf(c.out, infoStyle.Render("[INFO]")+" "+msg+"\n", args...)
}

func (c *ConsoleLogger) Warn(msg string, args ...interface{}) {
	fmt.Fprintf(c.errOut, warnStyle.Render("[WARN]")+" "+msg+"\n", args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(c.errOut, errorStyle.Render("[ERROR]")+" "+msg+"\n", args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if !c.verbose {
		return
	}
	fmt.Fprintf(c.out, debugStyle.Render("[DEBUG]")+" "+msg+"\n", args...)
}

// SilentLogger discards all log messages.
// Used when the TUI owns the terminal and in tests.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Warn(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}
