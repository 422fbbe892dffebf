package log

import (
	"context"
	"testing"
)

// TestTestLoggerCapture tests message and field capture
func TestTestLoggerCapture(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)

	logger.Info("training started", SamplesKey, 100, FeaturesKey, 5)
	logger.Debug("histogram built", IterationKey, 3)

	if !logger.ContainsMessage("training started") {
		t.Error("info message not captured")
	}
	if !logger.ContainsField(SamplesKey, float64(100)) {
		t.Error("samples field not captured")
	}
	if !logger.ContainsMessage("histogram built") {
		t.Error("debug message not captured at debug level")
	}
}

// TestTestLoggerLevelFilter tests the level threshold
func TestTestLoggerLevelFilter(t *testing.T) {
	logger, _ := NewTestLogger(LevelWarn)
	logger.Info("ignored")
	logger.Warn("kept")

	if logger.ContainsMessage("ignored") {
		t.Error("info message leaked through warn threshold")
	}
	if !logger.ContainsMessage("kept") {
		t.Error("warn message missing")
	}
	if logger.Enabled(context.Background(), LevelDebug) {
		t.Error("debug should be disabled at warn level")
	}
}

// TestWithFields tests contextual field chaining
func TestWithFields(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)
	scoped := logger.With(ComponentKey, "gbm.boost")
	scoped.Info("round finished")

	tl, ok := scoped.(*TestLogger)
	if !ok {
		t.Fatalf("With returned %T", scoped)
	}
	if !tl.ContainsField(ComponentKey, "gbm.boost") {
		t.Error("chained field missing from log entry")
	}
}

// TestProviderWiring tests the package-level provider swap
func TestProviderWiring(t *testing.T) {
	provider, _ := NewTestLoggerProvider(LevelInfo)
	SetProvider(provider)
	defer SetProvider(newDefaultProvider())

	GetLoggerWithName("exec").Info("checkpoint advanced")
	entries, err := provider.logger.GetLogEntries()
	if err != nil {
		t.Fatalf("log entries unreadable: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no entries captured through the provider")
	}
	if entries[0]["component"] != "exec" {
		t.Errorf("component = %v, want exec", entries[0]["component"])
	}
}
