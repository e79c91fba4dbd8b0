package logger

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncBuffer guards the buffer against the logrus writer goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureOutput(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	Logger.SetOutput(buf)
	t.Cleanup(func() {
		Logger.SetOutput(os.Stdout)
		Logger.SetLevel(logrus.InfoLevel)
	})
	return buf
}

func TestSetLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"bogus", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			SetLevel(tt.level)
			assert.Equal(t, tt.expected, Logger.GetLevel())
		})
	}
	SetLevel("info")
}

func TestServiceOutput(t *testing.T) {
	buf := captureOutput(t)

	w := ServiceOutput("api", "stdout")
	_, err := fmt.Fprintln(w, "listening on 4000")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// The writer is drained by a goroutine inside logrus.
	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "listening on 4000")
	}, time.Second, 10*time.Millisecond)
	assert.Contains(t, buf.String(), "service=api")
}

func TestRequestLogger(t *testing.T) {
	captureOutput(t)

	e := echo.New()
	handler := RequestLogger()(func(c echo.Context) error {
		assert.NotEmpty(t, c.Get("request_id"))
		assert.NotNil(t, GetLogger(c))
		return c.String(http.StatusOK, "ok")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
}
