package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		Name    string
		Env     string
		Level   string
		Enabled zapcore.Level
		Err     bool
	}{
		{Name: "Local debug", Env: "local", Level: "debug", Enabled: zapcore.DebugLevel},
		{Name: "Production info", Env: "production", Level: "info", Enabled: zapcore.InfoLevel},
		{Name: "Invalid level", Env: "local", Level: "loud", Err: true},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			t.Parallel()

			l, err := New(tc.Env, tc.Level)
			if tc.Err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tc.Enabled))
			if tc.Enabled > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
			}
		})
	}
}

func TestContext(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, FromContext(context.Background()))

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	FromContext(ctx).Info("hello")
	assert.Equal(t, 1, logs.FilterMessage("hello").Len())
}
