package features

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/char5742/joystick-spacemouse/internal/event"
	"github.com/char5742/joystick-spacemouse/internal/navigator"
	"github.com/char5742/joystick-spacemouse/internal/types"
)

// recordingHID は呼び出しを文字列で記録するHID
type recordingHID struct {
	calls  []string
	failOn string
}

func (r *recordingHID) record(call string) error {
	r.calls = append(r.calls, call)
	if call == r.failOn {
		return errors.New("write failed")
	}
	return nil
}

func (r *recordingHID) Move(dx, dy, wheel int32) error {
	return r.record(navigator.Move(dx, dy, wheel).String())
}
func (r *recordingHID) PressButton(code uint16) error {
	return r.record(navigator.Command{Kind: navigator.CmdButtonPress, Code: code}.String())
}
func (r *recordingHID) ReleaseButton(code uint16) error {
	return r.record(navigator.Command{Kind: navigator.CmdButtonRelease, Code: code}.String())
}
func (r *recordingHID) PressKey(code uint16) error {
	return r.record(navigator.Command{Kind: navigator.CmdKeyPress, Code: code}.String())
}
func (r *recordingHID) ReleaseKey(code uint16) error {
	return r.record(navigator.Command{Kind: navigator.CmdKeyRelease, Code: code}.String())
}
func (r *recordingHID) WriteKey(code uint16) error {
	return r.record(navigator.Command{Kind: navigator.CmdKeyWrite, Code: code}.String())
}
func (r *recordingHID) Close() error { return nil }

func TestDispatch(t *testing.T) {
	cmds := []navigator.Command{
		{Kind: navigator.CmdKeyPress, Code: event.KeyLeftShift},
		{Kind: navigator.CmdButtonPress, Code: event.BtnMiddle},
		navigator.Move(0, -2, 0),
		{Kind: navigator.CmdKeyRelease, Code: event.KeyLeftShift},
		{Kind: navigator.CmdButtonRelease, Code: event.BtnMiddle},
		{Kind: navigator.CmdKeyWrite, Code: event.KeyF6},
	}
	hid := &recordingHID{}
	if err := Dispatch(hid, cmds); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	want := make([]string, len(cmds))
	for i, c := range cmds {
		want[i] = c.String()
	}
	if !slices.Equal(hid.calls, want) {
		t.Errorf("got %v, want %v", hid.calls, want)
	}
}

func TestDispatchContinuesAfterError(t *testing.T) {
	move := navigator.Move(1, 0, 0)
	hid := &recordingHID{failOn: move.String()}
	cmds := []navigator.Command{move, {Kind: navigator.CmdKeyWrite, Code: event.KeyEsc}, {Kind: navigator.CommandKind(99)}}

	err := Dispatch(hid, cmds)
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(hid.calls) != 2 {
		t.Errorf("got %d calls, want 2", len(hid.calls))
	}
	if !strings.Contains(err.Error(), "unknown command kind") {
		t.Errorf("error %q does not mention the unknown command", err)
	}
}

func TestVirtualHIDWritesEvents(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "uinput")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	vh := &virtualHID{deviceFile: f}

	if err := vh.Move(0, 0, 0); err != nil {
		t.Fatal(err)
	}
	if err := vh.Move(3, 0, -1); err != nil {
		t.Fatal(err)
	}
	if err := vh.WriteKey(event.KeyF6); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	size := binary.Size(types.Event{})
	if len(data)%size != 0 {
		t.Fatalf("file size %d is not a multiple of %d", len(data), size)
	}
	events := make([]types.Event, len(data)/size)
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, events); err != nil {
		t.Fatal(err)
	}

	type ev struct {
		typ, code uint16
		value     int32
	}
	want := []ev{
		{event.Rel, event.RelX, 3},
		{event.Rel, event.RelWheel, -1},
		{event.Syn, event.SynReport, 0},
		{event.Key, event.KeyF6, 1},
		{event.Syn, event.SynReport, 0},
		{event.Key, event.KeyF6, 0},
		{event.Syn, event.SynReport, 0},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, w := range want {
		got := ev{events[i].Type, events[i].Code, events[i].Value}
		if got != w {
			t.Errorf("event %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestDiagnosticsReportsChanges(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewDiagnostics(&buf, DiagText)
	if err != nil {
		t.Fatal(err)
	}

	st := navigator.Status{DefaultMode: navigator.ModePan, CurrentMode: navigator.ModeZoom}
	st.Buttons[navigator.Click] = true
	if err := d.Report(st); err != nil {
		t.Fatal(err)
	}
	want := "B1: 0\nB2: 0\nB3: 0\nSEL: 1\nDefault mode: pan\nMode: zoom\n\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}

	// 同じ状態は繰り返さない
	if err := d.Report(st); err != nil {
		t.Fatal(err)
	}
	if buf.String() != want {
		t.Errorf("repeated status was written again: %q", buf.String())
	}

	st.CurrentMode = navigator.ModePan
	st.Buttons[navigator.Click] = false
	if err := d.Report(st); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), "SEL: 0\nDefault mode: pan\nMode: pan\n\n") {
		t.Errorf("change was not written: %q", buf.String())
	}
}

func TestDiagnosticsCBORFrames(t *testing.T) {
	var buf bytes.Buffer
	d, err := NewDiagnostics(&buf, DiagCBOR)
	if err != nil {
		t.Fatal(err)
	}

	first := navigator.Status{DefaultMode: navigator.ModeRotate, CurrentMode: navigator.ModeRotate, Moving: true}
	second := navigator.Status{DefaultMode: navigator.ModeRotate, CurrentMode: navigator.ModeZoom}
	second.Buttons[navigator.Click] = true
	for _, st := range []navigator.Status{first, first, second} {
		if err := d.Report(st); err != nil {
			t.Fatal(err)
		}
	}

	dec := cbor.NewDecoder(&buf)
	var frames []statusFrame
	for {
		var f statusFrame
		if err := dec.Decode(&f); err != nil {
			break
		}
		frames = append(frames, f)
	}
	want := []statusFrame{
		{DefaultMode: "rotate", CurrentMode: "rotate", Moving: true},
		{Buttons: [navigator.NumButtons]bool{false, false, false, true}, DefaultMode: "rotate", CurrentMode: "zoom"},
	}
	if !slices.Equal(frames, want) {
		t.Errorf("got %+v, want %+v", frames, want)
	}
}

func TestNewDiagnosticsUnknownFormat(t *testing.T) {
	if _, err := NewDiagnostics(&bytes.Buffer{}, "json"); err == nil {
		t.Error("expected an error")
	}
}

type scriptedJoystick struct {
	reads  []Levels
	closed bool
}

func (s *scriptedJoystick) Read() (Levels, error) {
	if len(s.reads) == 0 {
		return Levels{}, errors.New("disconnected")
	}
	l := s.reads[0]
	s.reads = s.reads[1:]
	return l, nil
}

func (s *scriptedJoystick) Close() error {
	s.closed = true
	return nil
}

func TestCalibrateSubtractsZeroPoint(t *testing.T) {
	raw := &scriptedJoystick{reads: []Levels{
		{Axis: navigator.AxisSample{Horizontal: 512, Vertical: 498}},
		{Axis: navigator.AxisSample{Horizontal: 662, Vertical: 400}, Buttons: [navigator.NumButtons]bool{true}},
	}}

	j, err := Calibrate(raw, 0)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	l, err := j.Read()
	if err != nil {
		t.Fatal(err)
	}
	if l.Axis != (navigator.AxisSample{Horizontal: 150, Vertical: -98}) {
		t.Errorf("axis = %+v, want {150 -98}", l.Axis)
	}
	if !l.Buttons[navigator.Button1] {
		t.Error("button levels were not passed through")
	}

	if _, err := j.Read(); err == nil {
		t.Error("expected read error to be passed through")
	}
	j.Close()
	if !raw.closed {
		t.Error("Close did not reach the underlying joystick")
	}
}

func TestCalibrateReadError(t *testing.T) {
	if _, err := Calibrate(&scriptedJoystick{}, 0); err == nil {
		t.Error("expected an error")
	}
}

func TestKeyBitSet(t *testing.T) {
	bits := make([]byte, 96)
	bits[event.BtnTrigger/8] |= 1 << (event.BtnTrigger % 8)

	if !keyBitSet(bits, event.BtnTrigger) {
		t.Error("BTN_TRIGGER should be set")
	}
	if keyBitSet(bits, event.BtnThumb) {
		t.Error("BTN_THUMB should not be set")
	}
	if keyBitSet(bits, 0xffff) {
		t.Error("out of range code should not be set")
	}
}

func makeByID(t *testing.T, names map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "input", "by-id")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for name, target := range names {
		if err := os.Symlink(target, filepath.Join(dir, name)); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestScanDir(t *testing.T) {
	dir := makeByID(t, map[string]string{
		"usb-Logitech_Extreme_3D-event-joystick": "../event7",
		"usb-Logitech_Extreme_3D-joystick":       "../js0",
		"usb-Generic_Keyboard-event-kbd":         "../event2",
		"usb-Generic_Mouse-event-mouse":          "../event3",
		"usb-Arduino_Leonardo-event-joystick":    "../event9",
	})

	devices, err := scanDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	base := filepath.Dir(dir)
	want := []Device{
		{Name: "usb-Arduino_Leonardo-event-joystick", Path: filepath.Join(base, "event9"), Type: DeviceTypeJoystick},
		{Name: "usb-Generic_Keyboard-event-kbd", Path: filepath.Join(base, "event2"), Type: DeviceTypeKeyboard},
		{Name: "usb-Generic_Mouse-event-mouse", Path: filepath.Join(base, "event3"), Type: DeviceTypeMouse},
		{Name: "usb-Logitech_Extreme_3D-event-joystick", Path: filepath.Join(base, "event7"), Type: DeviceTypeJoystick},
	}
	if !slices.Equal(devices, want) {
		t.Errorf("got %+v, want %+v", devices, want)
	}
}

func TestSelectJoystick(t *testing.T) {
	devices := []Device{
		{Name: "kbd", Type: DeviceTypeKeyboard},
		{Name: "stick-a", Type: DeviceTypeJoystick},
		{Name: "stick-b", Type: DeviceTypeJoystick},
	}

	tests := []struct {
		preferred string
		want      string
	}{
		{"", "stick-a"},
		{"stick-b", "stick-b"},
		{"missing", "stick-a"},
		{"kbd", "stick-a"},
	}
	for _, tt := range tests {
		got, err := SelectJoystick(devices, tt.preferred)
		if err != nil {
			t.Fatalf("SelectJoystick(%q): %v", tt.preferred, err)
		}
		if got.Name != tt.want {
			t.Errorf("SelectJoystick(%q) = %s, want %s", tt.preferred, got.Name, tt.want)
		}
	}

	if _, err := SelectJoystick(devices[:1], ""); !errors.Is(err, ErrNoJoystick) {
		t.Errorf("got %v, want ErrNoJoystick", err)
	}
}

func TestDeviceMonitorNotifiesHotplug(t *testing.T) {
	dir := makeByID(t, nil)

	monitor, err := NewDeviceMonitor(dir)
	if err != nil {
		t.Fatal(err)
	}
	events := make(chan DeviceEvent, 4)
	monitor.RegisterCallback(func(ev DeviceEvent) { events <- ev })
	if err := monitor.Start(); err != nil {
		t.Fatal(err)
	}
	defer monitor.Stop()

	name := "usb-Arduino_Leonardo-event-joystick"
	if err := os.Symlink("../event9", filepath.Join(dir, name)); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-events:
		if ev.Type != DeviceAdded || ev.Device.Name != name || ev.Device.Type != DeviceTypeJoystick {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the added joystick")
	}

	if got := monitor.GetConnectedDevices(); len(got) != 1 || got[0].Name != name {
		t.Errorf("connected devices = %+v", got)
	}

	if err := os.Remove(filepath.Join(dir, name)); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-events:
		if ev.Type != DeviceRemoved || ev.Device.Name != name {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event for the removed joystick")
	}
}
