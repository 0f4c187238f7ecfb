package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	t.Run("json handler at debug level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := newLogger("debug", "json", buf)

		logger.Debug("Logger check.")
		assert.Contains(t, buf.String(), `"msg":"Logger check."`)
	})

	t.Run("unrecognized level falls back to info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := newLogger("bogus", "text", buf)

		logger.Debug("Hidden.")
		assert.Empty(t, buf.String())

		logger.Info("Shown.")
		assert.Contains(t, buf.String(), "Shown.")
	})
}
