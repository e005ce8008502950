package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewDevelopment(t *testing.T) {
	log, err := New(false, "debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if !log.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug enabled")
	}
}

func TestNewProductionLevel(t *testing.T) {
	log, err := New(true, "warn")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("expected info disabled at warn level")
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New(false, "loud"); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}
