package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		development bool
		debug       bool
	}{
		{name: "development", development: true, debug: true},
		{name: "production", development: false, debug: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, err := New(tc.development)
			require.NoError(t, err)
			require.NotNil(t, logger)
			require.Equal(t, tc.debug, logger.Core().Enabled(zapcore.DebugLevel))
			logger.Info("logger ready")
		})
	}
}
