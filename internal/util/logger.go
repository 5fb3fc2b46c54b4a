package util

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

var Logger *log.Logger

// IsDebug enables debug lines and caller locations.
var IsDebug bool

func SetDebugMode(debug bool) {
	IsDebug = debug
}

// addonPrefix renders the red badge in front of every log line
func addonPrefix() string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#D7141A")).
		Bold(true).
		Padding(0, 1).
		MarginRight(1).
		Render("SvetSerialu")
}

// InitLogger sends log output to stderr
func InitLogger() {
	InitLoggerTo(os.Stderr)
}

// InitLoggerTo sends log output to w. Tests pass a buffer.
func InitLoggerTo(w io.Writer) {
	Logger = log.NewWithOptions(w, log.Options{
		ReportCaller:    IsDebug,
		ReportTimestamp: true,
		TimeFormat:      "2006-01-02 15:04:05",
		Prefix:          addonPrefix(),
	})
	Logger.SetColorProfile(termenv.TrueColor)

	level := log.InfoLevel
	if IsDebug {
		level = log.DebugLevel
	}
	Logger.SetLevel(level)
	Logger.Debug("Debug output on", "caller", true)
}

// ParseLevel maps LOG_LEVEL values onto debug mode
func ParseLevel(level string) bool {
	return strings.EqualFold(strings.TrimSpace(level), "debug")
}

// Debug is silent unless debug mode is on
func Debug(msg interface{}, keyvals ...interface{}) {
	if IsDebug && Logger != nil {
		Logger.Debug(fmt.Sprint(msg), keyvals...)
	}
}

func Info(msg interface{}, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(fmt.Sprint(msg), keyvals...)
	}
}

func Warn(msg interface{}, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(fmt.Sprint(msg), keyvals...)
	}
}

func Error(msg interface{}, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(fmt.Sprint(msg), keyvals...)
	}
}

// Fatal exits with status 1 even when no logger was set up
func Fatal(msg interface{}, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Fatal(fmt.Sprint(msg), keyvals...)
	}
	os.Exit(1)
}

// Truncate cuts s to n bytes and marks the cut with "..."
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
