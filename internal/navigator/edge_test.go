package navigator

import "testing"

func TestButtonStateSingleFire(t *testing.T) {
	for _, n := range []int{1, 2, 10} {
		for _, m := range []int{1, 3, 7} {
			var b ButtonState
			var pressed, released int
			count := func(e Edge) {
				switch e {
				case EdgePressed:
					pressed++
				case EdgeReleased:
					released++
				}
			}
			for i := 0; i < n; i++ {
				count(b.Update(true))
			}
			for i := 0; i < m; i++ {
				count(b.Update(false))
			}
			if pressed != 1 || released != 1 {
				t.Errorf("held %d, released %d cycles: got %d pressed, %d released events", n, m, pressed, released)
			}
		}
	}
}

func TestButtonStateIdle(t *testing.T) {
	var b ButtonState
	for i := 0; i < 5; i++ {
		if e := b.Update(false); e != EdgeNone {
			t.Fatalf("cycle %d: got %v on idle button", i, e)
		}
	}
}

func TestDebouncer(t *testing.T) {
	tests := []struct {
		name   string
		stable int
		in     []bool
		want   []bool
	}{
		{
			name:   "disabled",
			stable: 1,
			in:     []bool{true, false, true, true},
			want:   []bool{true, false, true, true},
		},
		{
			name:   "glitch",
			stable: 3,
			in:     []bool{true, false, false, false},
			want:   []bool{false, false, false, false},
		},
		{
			name:   "stable press",
			stable: 3,
			in:     []bool{true, true, true, true, false, true},
			want:   []bool{false, false, true, true, true, true},
		},
		{
			name:   "bounce then settle",
			stable: 2,
			in:     []bool{true, false, true, true, false, false},
			want:   []bool{false, false, false, true, true, false},
		},
	}
	for _, test := range tests {
		d := NewDebouncer(test.stable)
		for i, raw := range test.in {
			if got := d.Filter(raw); got != test.want[i] {
				t.Errorf("%s: read %d: got %v, want %v", test.name, i, got, test.want[i])
			}
		}
	}
}
