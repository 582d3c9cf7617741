package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.GasThreshold != 1500 {
		t.Errorf("expected gas threshold 1500, got %d", cfg.GasThreshold)
	}
	if cfg.NearCm != 3 || cfg.FarCm != 7 {
		t.Errorf("expected near/far 3/7, got %v/%v", cfg.NearCm, cfg.FarCm)
	}
	if cfg.LightMode != "AUTO" {
		t.Errorf("expected light mode AUTO, got %q", cfg.LightMode)
	}
	if cfg.StepInterval() != 30*time.Millisecond {
		t.Errorf("expected step interval 30ms, got %v", cfg.StepInterval())
	}
	if cfg.SafeDelay() != time.Second {
		t.Errorf("expected safe delay 1s, got %v", cfg.SafeDelay())
	}
	if cfg.LongPress() != 5*time.Second {
		t.Errorf("expected long press 5s, got %v", cfg.LongPress())
	}
}

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GasThreshold != 1500 {
		t.Errorf("expected defaults, got gas threshold %d", cfg.GasThreshold)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("defaults should have been written to %s: %v", path, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.GasThreshold = 1800
	cfg.LightMode = "ON"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.GasThreshold != 1800 {
		t.Errorf("expected gas threshold 1800, got %d", loaded.GasThreshold)
	}
	if loaded.LightMode != "ON" {
		t.Errorf("expected light mode ON, got %q", loaded.LightMode)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"gas_threshold": 1800}`), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GasThreshold != 1800 {
		t.Errorf("expected overridden gas threshold 1800, got %d", cfg.GasThreshold)
	}
	if cfg.NearCm != 3 {
		t.Errorf("unset fields must keep defaults, near=%v", cfg.NearCm)
	}
	if cfg.Pins.Servo != "GPIO18" {
		t.Errorf("unset pins must keep defaults, servo=%q", cfg.Pins.Servo)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestUpdateThreshold(t *testing.T) {
	cfg := Default()

	if err := cfg.UpdateThreshold("mq2_threshold", "1800"); err != nil {
		t.Fatalf("UpdateThreshold: %v", err)
	}
	if cfg.GasThreshold != 1800 {
		t.Errorf("expected 1800, got %d", cfg.GasThreshold)
	}

	if err := cfg.UpdateThreshold("near_cm", " 4.5 "); err != nil {
		t.Fatalf("UpdateThreshold with padding: %v", err)
	}
	if cfg.NearCm != 4.5 {
		t.Errorf("expected 4.5, got %v", cfg.NearCm)
	}

	if err := cfg.UpdateThreshold("bogus", "1"); err == nil {
		t.Error("expected an error for an unknown parameter")
	}
	if err := cfg.UpdateThreshold("near_cm", "soon"); err == nil {
		t.Error("expected an error for an unparsable value")
	}
	if cfg.NearCm != 4.5 {
		t.Errorf("failed update must not change the value, got %v", cfg.NearCm)
	}
}

func TestUpdateLightMode(t *testing.T) {
	cfg := Default()

	if err := cfg.UpdateLightMode(" on "); err != nil {
		t.Fatalf("UpdateLightMode: %v", err)
	}
	if cfg.LightMode != "ON" {
		t.Errorf("expected normalized ON, got %q", cfg.LightMode)
	}

	if err := cfg.UpdateLightMode("dim"); err == nil {
		t.Error("expected an error for an invalid mode")
	}
	if cfg.LightMode != "ON" {
		t.Errorf("failed update must not change the mode, got %q", cfg.LightMode)
	}
}

func TestResetThresholds(t *testing.T) {
	cfg := Default()
	cfg.GasThreshold = 9999
	cfg.NearCm = 42
	cfg.LightMode = "OFF"
	cfg.Pins.Servo = "GPIO12"
	cfg.StepIntervalMs = 77

	cfg.ResetThresholds()

	if cfg.GasThreshold != 1500 || cfg.NearCm != 3 || cfg.LightMode != "AUTO" {
		t.Errorf("thresholds not restored: gas=%d near=%v mode=%q",
			cfg.GasThreshold, cfg.NearCm, cfg.LightMode)
	}
	// Pins and motion parameters are deliberately untouched.
	if cfg.Pins.Servo != "GPIO12" {
		t.Errorf("pins must survive a threshold reset, got %q", cfg.Pins.Servo)
	}
	if cfg.StepIntervalMs != 77 {
		t.Errorf("motion parameters must survive a threshold reset, got %d", cfg.StepIntervalMs)
	}
}
