package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestInitializeJSON(t *testing.T) {
	if err := Initialize(true); err != nil {
		t.Fatalf("Initialize(true) failed: %v", err)
	}
	if !JSONOutput {
		t.Error("JSONOutput flag not set")
	}
	if Logger == nil {
		t.Fatal("Logger is nil after Initialize")
	}
	Cleanup()
}

func TestInitializeConsole(t *testing.T) {
	if err := Initialize(false); err != nil {
		t.Fatalf("Initialize(false) failed: %v", err)
	}
	if JSONOutput {
		t.Error("JSONOutput flag should be false")
	}
	Cleanup()
}

func TestOrNilFallsBackToNop(t *testing.T) {
	log := Or(nil)
	if log == nil {
		t.Fatal("Or(nil) returned nil")
	}
	// Must not panic
	log.Infow("noop", "k", "v")
}

func TestOrPassthrough(t *testing.T) {
	in := zap.NewNop().Sugar()
	if Or(in) != in {
		t.Error("Or should return the logger it was given")
	}
}

func TestHelpersBeforeInitialize(t *testing.T) {
	// The init() nop logger must make these safe even if Initialize was
	// never called.
	Infow("msg", FieldDatasetID, "ds_1")
	Warnw("msg")
	Errorw("msg")
	Debugw("msg")
	Infof("formatted %d", 1)
}
