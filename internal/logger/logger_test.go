package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

// SetupがJSON形式でログを出力することを検証
func TestSetup_OutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf)

	logger.Info("test message", slog.String("key", "value"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not valid JSON: %v", err)
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}

// デフォルトレベルがinfoであり、debugが抑制されることを検証
func TestSetup_DefaultLevelSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup(&buf)

	logger.Debug("should not appear")
	if buf.Len() != 0 {
		t.Errorf("debug log should be suppressed at default level, got: %s", buf.String())
	}
}

// LOG_LEVEL=debugでdebugログが出力されることを検証
func TestSetup_DebugLevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer
	logger := Setup(&buf)

	logger.Debug("visible")
	if buf.Len() == 0 {
		t.Error("debug log should appear when LOG_LEVEL=debug")
	}
}

// 不正なLOG_LEVELはinfoにフォールバックすることを検証
func TestLevelFromEnv_InvalidFallsBack(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	if got := levelFromEnv(); got != slog.LevelInfo {
		t.Errorf("levelFromEnv() = %v, want info", got)
	}
}
