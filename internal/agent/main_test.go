// File: internal/agent/main_test.go
package agent_test

import (
	"os"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/bmstoss13/HoleNOne/internal/config"
	"github.com/bmstoss13/HoleNOne/internal/observability"
)

// TestMain initializes the global logger before running the agent tests.
func TestMain(m *testing.M) {
	logConfig := config.NewDefaultConfig().Logger()
	logConfig.Level = "debug"
	logConfig.ServiceName = "test-suite"
	logConfig.Format = "console"
	logConfig.LogFile = ""

	observability.Initialize(logConfig, zapcore.Lock(os.Stdout))
	exitCode := m.Run()
	observability.Sync()
	observability.ResetForTest()
	os.Exit(exitCode)
}
