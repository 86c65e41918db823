package navigator

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	for i, name := range []string{"normal", "PAN", " Rotate ", "zoom"} {
		m, err := ParseMode(name)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", name, err)
		}
		if m != Mode(i) {
			t.Errorf("ParseMode(%q) = %v, want %v", name, m, Mode(i))
		}
	}
	if _, err := ParseMode("orbit"); err == nil {
		t.Error("ParseMode accepted an unknown mode")
	}
}

func TestModeText(t *testing.T) {
	var m Mode
	if err := m.UnmarshalText([]byte("rotate")); err != nil {
		t.Fatal(err)
	}
	text, err := m.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "rotate" {
		t.Errorf("got %q, want rotate", text)
	}
	if _, err := Mode(9).MarshalText(); err == nil {
		t.Error("invalid mode was marshaled")
	}
}

func TestSettingsValidate(t *testing.T) {
	if err := DefaultSettings().Validate(); err != nil {
		t.Fatalf("default settings: %v", err)
	}

	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"empty cycle", func(s *Settings) { s.Cycle = nil }},
		{"zoom in cycle", func(s *Settings) { s.Cycle = []Mode{ModeNormal, ModeZoom} }},
		{"duplicate", func(s *Settings) { s.Cycle = []Mode{ModeNormal, ModeNormal} }},
		{"start outside cycle", func(s *Settings) { s.Cycle = []Mode{ModeRotate, ModePan}; s.StartMode = ModeNormal }},
		{"zero sensitivity", func(s *Settings) { s.Modes[ModePan].Sensitivity = 0 }},
		{"negative threshold", func(s *Settings) { s.Modes[ModeZoom].Threshold = -1 }},
		{"zero long press", func(s *Settings) { s.LongPress = 0 }},
	}
	for _, test := range tests {
		s := DefaultSettings()
		test.modify(&s)
		if err := s.Validate(); !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("%s: got %v, want ErrInvalidSettings", test.name, err)
		}
	}
}
