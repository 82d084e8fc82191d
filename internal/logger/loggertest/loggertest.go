// Package loggertest provides a logger that writes through the test runner.
package loggertest

import (
	"testing"

	"github.com/01moynul/ai-humanizer/internal/logger"
	"go.uber.org/zap/zaptest"
)

// New returns a logger whose output is attached to t and shown on failure.
func New(t testing.TB) logger.Logger {
	return logger.FromZap(zaptest.NewLogger(t))
}
