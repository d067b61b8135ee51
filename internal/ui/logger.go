package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger prints tagged, color-coded messages for the operator
type Logger struct {
	Verbose bool
	Quiet   bool

	out     io.Writer
	info    *color.Color
	success *color.Color
	warning *color.Color
	failure *color.Color
	debug   *color.Color
}

// NewLogger creates a logger writing to stderr
func NewLogger(verbose, quiet, noColor bool) *Logger {
	l := &Logger{
		Verbose: verbose,
		Quiet:   quiet,
		out:     os.Stderr,
		info:    color.New(color.FgBlue),
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed, color.Bold),
		debug:   color.New(color.FgCyan),
	}
	if noColor {
		for _, c := range []*color.Color{l.info, l.success, l.warning, l.failure, l.debug} {
			c.DisableColor()
		}
	}
	return l
}

// SetOutput redirects all messages to w
func (l *Logger) SetOutput(w io.Writer) {
	l.out = w
}

func (l *Logger) print(c *color.Color, tag, format string, args ...interface{}) {
	c.Fprintln(l.out, tag+" "+fmt.Sprintf(format, args...))
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.Quiet {
		return
	}
	l.print(l.info, "[INFO]", format, args...)
}

// Success logs a success message
func (l *Logger) Success(format string, args ...interface{}) {
	if l.Quiet {
		return
	}
	l.print(l.success, "[SUCCESS]", format, args...)
}

// Warning is printed even in quiet mode
func (l *Logger) Warning(format string, args ...interface{}) {
	l.print(l.warning, "[WARNING]", format, args...)
}

// Error is printed even in quiet mode
func (l *Logger) Error(format string, args ...interface{}) {
	l.print(l.failure, "[ERROR]", format, args...)
}

// Debug logs only when verbose
func (l *Logger) Debug(format string, args ...interface{}) {
	if !l.Verbose {
		return
	}
	l.print(l.debug, "[DEBUG]", format, args...)
}
