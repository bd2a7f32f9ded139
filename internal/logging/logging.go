// Package logging configures the process-wide logrus logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Params controls logger setup.
type Params struct {
	Level string
	JSON  bool
	// Output defaults to stdout.
	Output io.Writer
}

// Setup configures the standard logrus logger and returns it. An unknown
// level is an error and leaves the logger untouched.
func Setup(p Params) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if strings.TrimSpace(p.Level) != "" {
		var err error
		level, err = logrus.ParseLevel(strings.TrimSpace(p.Level))
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
	}

	logger := logrus.StandardLogger()
	if p.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	out := p.Output
	if out == nil {
		out = os.Stdout
	}
	logger.SetOutput(out)
	logger.SetLevel(level)
	return logger, nil
}
