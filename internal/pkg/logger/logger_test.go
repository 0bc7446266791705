package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"leadflow/internal/platform/config"
)

func TestInitLevelParsing(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected zerolog.Level
	}{
		{"Debug", "debug", zerolog.DebugLevel},
		{"Warn", "warn", zerolog.WarnLevel},
		{"Unknown Falls Back To Info", "loud", zerolog.InfoLevel},
		{"Empty Falls Back To Info", "", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Init(config.LoggingConfig{Level: tt.level})
			if got := zerolog.GlobalLevel(); got != tt.expected {
				t.Errorf("Expected level %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestWriterFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "leadflow.log")

	w := writer(config.LoggingConfig{Output: "file", FilePath: path})
	file, ok := w.(*os.File)
	if !ok {
		t.Fatalf("Expected a file writer, got %T", w)
	}
	defer file.Close()
	if file.Name() != path {
		t.Errorf("Expected log file at %s, got %s", path, file.Name())
	}
}

func TestWriterFallsBackToStdout(t *testing.T) {
	// Parent "directory" is a regular file, so the open fails.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create blocker file: %v", err)
	}

	w := writer(config.LoggingConfig{Output: "file", FilePath: filepath.Join(blocker, "leadflow.log")})
	if w != os.Stdout {
		t.Errorf("Expected stdout fallback, got %T", w)
	}
}
