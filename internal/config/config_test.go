package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/char5742/joystick-spacemouse/internal/navigator"
)

func TestDefaultConfigMatchesNavigatorDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if got, want := cfg.Settings(), navigator.DefaultSettings(); !reflect.DeepEqual(got, want) {
		t.Errorf("Settings() = %+v, want %+v", got, want)
	}
}

func TestLoadConfigCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file was not written: %v", err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Errorf("got %+v, want defaults", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := DefaultConfig()
	cfg.Navigation.StartMode = navigator.ModeRotate
	cfg.Navigation.ModeCycle = []navigator.Mode{navigator.ModeRotate, navigator.ModeNormal}
	cfg.Navigation.InvertMouse = true
	cfg.Navigation.LongPressInterval = 350 * time.Millisecond
	cfg.Modes.Zoom.Sensitivity = 300
	cfg.Input.Backend = BackendGPIO
	cfg.Input.GPIO.I2CBus = "1"
	cfg.DevicePrefs.PreferredJoystickDevice = "usb-Thrustmaster-event-joystick"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, cfg)
	}
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[navigation]
start_mode = "pan"
long_press_interval = "300ms"

[modes.zoom]
sensitivity = 200
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Navigation.StartMode != navigator.ModePan {
		t.Errorf("start mode = %v, want pan", cfg.Navigation.StartMode)
	}
	if cfg.Navigation.LongPressInterval != 300*time.Millisecond {
		t.Errorf("long press = %v, want 300ms", cfg.Navigation.LongPressInterval)
	}
	if cfg.Modes.Zoom.Sensitivity != 200 {
		t.Errorf("zoom sensitivity = %d, want 200", cfg.Modes.Zoom.Sensitivity)
	}
	// 書かれていない項目は既定値のまま
	if cfg.Modes.Normal.Sensitivity != 75 {
		t.Errorf("normal sensitivity = %d, want 75", cfg.Modes.Normal.Sensitivity)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[navigation]
mode_cycle = ["normal", "zoom"]
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); !errors.Is(err, navigator.ErrInvalidSettings) {
		t.Errorf("got %v, want ErrInvalidSettings", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"unknown backend", func(c *Config) { c.Input.Backend = "serial" }},
		{"zero key", func(c *Config) { c.Keys.FitViewKey = 0 }},
		{"key out of range", func(c *Config) { c.Keys.Button3Key = 0x300 }},
		{"zero evdev button", func(c *Config) { c.Input.Evdev.Click = 0 }},
		{"gpio without voltage", func(c *Config) {
			c.Input.Backend = BackendGPIO
			c.Input.GPIO.SupplyVoltage = 0
		}},
		{"sub-millisecond long press", func(c *Config) { c.Navigation.LongPressInterval = time.Microsecond }},
		{"start mode outside cycle", func(c *Config) {
			c.Navigation.ModeCycle = []navigator.Mode{navigator.ModePan}
		}},
		{"zero sensitivity", func(c *Config) { c.Modes.Rotate.Sensitivity = 0 }},
		{"unknown debug format", func(c *Config) { c.Debug.Format = "json" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestWatchReloadsConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	changed := make(chan *Config, 1)
	w, err := Watch(path, func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	// 別ファイルの変更は無視される
	if err := os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x = 1"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Navigation.StartMode = navigator.ModePan
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changed:
		if got.Navigation.StartMode != navigator.ModePan {
			t.Errorf("start mode = %v, want pan", got.Navigation.StartMode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not reported")
	}
}
