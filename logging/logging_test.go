package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type providerSpy struct {
	byName map[string]Logger
	names  []string
}

func (p *providerSpy) GetLogger(name string) Logger {
	p.names = append(p.names, name)
	return p.byName[name]
}

func TestResolveLogger(t *testing.T) {
	t.Run("provider logger wins", func(t *testing.T) {
		named := Nop()
		spy := &providerSpy{byName: map[string]Logger{"authstate": named}}

		provider, logger := ResolveLogger("authstate", spy, nil)
		assert.Same(t, spy, provider)
		assert.Equal(t, named, logger)
		assert.Equal(t, []string{"authstate"}, spy.names)
	})

	t.Run("nil logger from provider uses fallback", func(t *testing.T) {
		fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
		spy := &providerSpy{byName: map[string]Logger{}}

		provider, logger := ResolveLogger("authstate", spy, fallback)
		require.NotNil(t, provider)
		assert.Same(t, fallback, logger)
		assert.Same(t, fallback, provider.GetLogger("anything"))
	})

	t.Run("nothing given resolves a default", func(t *testing.T) {
		provider, logger := ResolveLogger("authstate", nil, nil)
		require.NotNil(t, provider)
		require.NotNil(t, logger)
	})
}

func TestNewWritesStructuredOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := New(buf, "debug", "json")

	logger.Debug("observer notified", "count", 3)

	assert.Contains(t, buf.String(), `"msg":"observer notified"`)
	assert.Contains(t, buf.String(), `"count":3`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestSlogProviderNamesLoggers(t *testing.T) {
	buf := &bytes.Buffer{}
	provider := NewSlogProvider(New(buf, "info", "text"))

	provider.GetLogger("events").Info("started")

	assert.Contains(t, buf.String(), "logger=events")
}
