// Package logging provides the leveled logging facade every other package
// logs through. It wraps pterm the way the original CLI already leaned on
// pterm for colored terminal output, just formalized into levels and
// per-component tags instead of ad-hoc pterm.Fatal.Println calls.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu      sync.Mutex
	current = LevelInfo
)

func init() {
	if os.Getenv("DEBUG") == "1" {
		current = LevelDebug
	}
}

// SetLevel overrides the active level, used by internal/config once the
// launcher settings file has been read.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	current = l
}

// Logger is a component-tagged handle returned by For.
type Logger struct {
	component string
}

// For returns a Logger tagged with component, e.g. logging.For("resolver").
func For(component string) Logger {
	return Logger{component: component}
}

func (l Logger) enabled(lvl Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return lvl >= current
}

func (l Logger) prefix() string {
	return pterm.Gray("[" + l.component + "]")
}

func (l Logger) Debug(format string, args ...any) {
	if !l.enabled(LevelDebug) {
		return
	}
	pterm.Debug.Println(l.prefix() + " " + fmt.Sprintf(format, args...))
}

func (l Logger) Info(format string, args ...any) {
	if !l.enabled(LevelInfo) {
		return
	}
	pterm.Info.Println(l.prefix() + " " + fmt.Sprintf(format, args...))
}

func (l Logger) Warn(format string, args ...any) {
	if !l.enabled(LevelWarn) {
		return
	}
	pterm.Warning.Println(l.prefix() + " " + fmt.Sprintf(format, args...))
}

func (l Logger) Error(format string, args ...any) {
	if !l.enabled(LevelError) {
		return
	}
	pterm.Error.Println(l.prefix() + " " + fmt.Sprintf(format, args...))
}

func (l Logger) Fatal(format string, args ...any) {
	pterm.Fatal.Println(l.prefix() + " " + fmt.Sprintf(format, args...))
}

// AuthDebugEnabled reports whether AUTHENTICATION=1 is set. Nothing in
// internal/auth consults it, so the variable adds no request/response
// logging.
func AuthDebugEnabled() bool {
	return os.Getenv("AUTHENTICATION") == "1"
}

// Redact truncates a secret to a short, log-safe prefix.
func Redact(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:6] + "..." + strings.Repeat("*", 4)
}
