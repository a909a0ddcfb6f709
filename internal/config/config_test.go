package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.CameraIndex != 0 {
		t.Errorf("CameraIndex = %d, want 0", cfg.CameraIndex)
	}
	if cfg.EARThreshold != 0.3 {
		t.Errorf("EARThreshold = %v, want 0.3", cfg.EARThreshold)
	}
	if cfg.DrowsyFrames != 30 {
		t.Errorf("DrowsyFrames = %d, want 30", cfg.DrowsyFrames)
	}
	if cfg.YawnFrames != 3 {
		t.Errorf("YawnFrames = %d, want 3", cfg.YawnFrames)
	}
	if cfg.Cooldown != 5*time.Second {
		t.Errorf("Cooldown = %s, want 5s", cfg.Cooldown)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.SMTPPort)
	}
	if cfg.HTTPPort != "8080" {
		t.Errorf("HTTPPort = %q, want 8080", cfg.HTTPPort)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CAMERA_INDEX", "2")
	t.Setenv("EAR_THRESHOLD", "0.25")
	t.Setenv("EAR_FRAMES", "20")
	t.Setenv("YAWN_FRAMES", "2")
	t.Setenv("ALERT_COOLDOWN", "10s")
	t.Setenv("CLOUD_MODE", "true")
	t.Setenv("HTTP_PORT", "9090")

	cfg := Load()

	if cfg.CameraIndex != 2 {
		t.Errorf("CameraIndex = %d, want 2", cfg.CameraIndex)
	}
	if cfg.EARThreshold != 0.25 {
		t.Errorf("EARThreshold = %v, want 0.25", cfg.EARThreshold)
	}
	if cfg.DrowsyFrames != 20 {
		t.Errorf("DrowsyFrames = %d, want 20", cfg.DrowsyFrames)
	}
	if cfg.YawnFrames != 2 {
		t.Errorf("YawnFrames = %d, want 2", cfg.YawnFrames)
	}
	if cfg.Cooldown != 10*time.Second {
		t.Errorf("Cooldown = %s, want 10s", cfg.Cooldown)
	}
	if !cfg.CloudMode {
		t.Error("CloudMode = false, want true")
	}
	if cfg.HTTPPort != "9090" {
		t.Errorf("HTTPPort = %q, want 9090", cfg.HTTPPort)
	}
}

func TestMalformedValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("CAMERA_INDEX", "not-a-number")
	t.Setenv("EAR_THRESHOLD", "high")
	t.Setenv("ALERT_COOLDOWN", "soon")
	t.Setenv("CLOUD_MODE", "maybe")

	cfg := Load()

	if cfg.CameraIndex != 0 {
		t.Errorf("CameraIndex = %d, want default 0", cfg.CameraIndex)
	}
	if cfg.EARThreshold != 0.3 {
		t.Errorf("EARThreshold = %v, want default 0.3", cfg.EARThreshold)
	}
	if cfg.Cooldown != 5*time.Second {
		t.Errorf("Cooldown = %s, want default 5s", cfg.Cooldown)
	}
	if cfg.CloudMode {
		t.Error("CloudMode = true, want default false")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"zero threshold", func(c *Config) { c.EARThreshold = 0 }, true},
		{"zero drowsy frames", func(c *Config) { c.DrowsyFrames = 0 }, true},
		{"negative yawn frames", func(c *Config) { c.YawnFrames = -1 }, true},
		{"zero cooldown", func(c *Config) { c.Cooldown = 0 }, true},
		{"negative camera index", func(c *Config) { c.CameraIndex = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
