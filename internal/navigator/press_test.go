package navigator

import "testing"

func TestPressTimer(t *testing.T) {
	tests := []struct {
		name      string
		press     uint32
		release   uint32
		wantShort bool
	}{
		{"instant", 0, 0, true},
		{"just short", 0, 499, true},
		{"boundary", 0, 500, false},
		{"long", 0, 1500, false},
		{"wraparound short", 0xffffff00, 0x50, true},
		{"wraparound long", 0xffffff00, 0x200, false},
	}
	for _, test := range tests {
		var p PressTimer
		p.Press(test.press)
		short, ok := p.Release(test.release, 500)
		if !ok {
			t.Errorf("%s: release not accepted", test.name)
			continue
		}
		if short != test.wantShort {
			t.Errorf("%s: short = %v, want %v", test.name, short, test.wantShort)
		}
	}
}

func TestPressTimerSpuriousRelease(t *testing.T) {
	var p PressTimer
	if _, ok := p.Release(10, 500); ok {
		t.Fatal("release without press was accepted")
	}

	p.Press(0)
	if _, ok := p.Release(100, 500); !ok {
		t.Fatal("armed release was not accepted")
	}
	if _, ok := p.Release(200, 500); ok {
		t.Fatal("second release was accepted")
	}
}
