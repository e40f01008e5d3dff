// Package logging builds the logrus logger shared by the CLI, the engine and the server.
package logging

import (
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// New returns a logger writing to out (stderr when nil) at level, formatted as
// text or json.
func New(level, format string, out io.Writer) (*log.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return nil, err
	}
	l := log.New()
	l.SetOutput(out)
	l.SetLevel(lvl)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return l, nil
}

// Discard is a logger that drops everything.
func Discard() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}
