package features

import (
	"fmt"
	"slices"
	"unsafe"

	evdev "github.com/gvalkov/golang-evdev"
	"golang.org/x/sys/unix"

	"github.com/char5742/joystick-spacemouse/internal/consts"
	"github.com/char5742/joystick-spacemouse/internal/event"
	"github.com/char5742/joystick-spacemouse/internal/navigator"
	"github.com/char5742/joystick-spacemouse/internal/types"
)

// EvdevMapping はevdevのコードとスティック・ボタンの対応
type EvdevMapping struct {
	HorizontalAxis uint16
	VerticalAxis   uint16
	Buttons        [navigator.NumButtons]uint16 // Button1, Button2, Button3, Click の順
}

// DefaultEvdevMapping は一般的なUSBジョイスティックの割り当てを返す
func DefaultEvdevMapping() EvdevMapping {
	return EvdevMapping{
		HorizontalAxis: event.AbsX,
		VerticalAxis:   event.AbsY,
		Buttons:        [navigator.NumButtons]uint16{event.BtnThumb, event.BtnThumb2, event.BtnTop, event.BtnTrigger},
	}
}

type evdevJoystick struct {
	dev     *evdev.InputDevice
	mapping EvdevMapping
	grabbed bool
	keyBits []byte
}

// 指定されたパスのevdevデバイスをジョイスティックとして開く
func OpenEvdevJoystick(path string, mapping EvdevMapping, grab bool) (Joystick, error) {
	dev, err := evdev.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open joystick device: %w", err)
	}

	absCodes := dev.CapabilitiesFlat[evdev.EV_ABS]
	for _, code := range []uint16{mapping.HorizontalAxis, mapping.VerticalAxis} {
		if !slices.Contains(absCodes, int(code)) {
			_ = dev.File.Close()
			return nil, fmt.Errorf("%s (%s) does not report absolute axis %#x", dev.Name, path, code)
		}
	}

	j := &evdevJoystick{
		dev:     dev,
		mapping: mapping,
		keyBits: make([]byte, event.KeyMax/8+1),
	}
	if grab {
		if err := dev.Grab(); err != nil {
			_ = dev.File.Close()
			return nil, fmt.Errorf("failed to grab device: %w", err)
		}
		j.grabbed = true
	}
	return j, nil
}

func (j *evdevJoystick) Read() (Levels, error) {
	var l Levels

	h, err := readAbs(j.dev.File.Fd(), j.mapping.HorizontalAxis)
	if err != nil {
		return l, fmt.Errorf("failed to read horizontal axis: %w", err)
	}
	v, err := readAbs(j.dev.File.Fd(), j.mapping.VerticalAxis)
	if err != nil {
		return l, fmt.Errorf("failed to read vertical axis: %w", err)
	}
	l.Axis = navigator.AxisSample{Horizontal: h, Vertical: v}

	if err := readKeyBits(j.dev.File.Fd(), j.keyBits); err != nil {
		return l, fmt.Errorf("failed to read buttons: %w", err)
	}
	for i, code := range j.mapping.Buttons {
		l.Buttons[i] = keyBitSet(j.keyBits, code)
	}
	return l, nil
}

func (j *evdevJoystick) Close() error {
	if j.grabbed {
		_ = j.dev.Release()
		j.grabbed = false
	}
	return j.dev.File.Close()
}

// 軸の現在値を取得する
func readAbs(fd uintptr, axis uint16) (int32, error) {
	var info types.AbsInfo
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		fd,
		uintptr(consts.EVIOCGABS+uint32(axis)),
		uintptr(unsafe.Pointer(&info)),
	)
	if errno != 0 {
		return 0, errno
	}
	return info.Value, nil
}

// 押されているキーのビットマップを取得する
func readKeyBits(fd uintptr, keyBits []byte) error {
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		fd,
		uintptr(consts.EVIOCGKEY),
		uintptr(unsafe.Pointer(&keyBits[0])),
	)
	if errno != 0 {
		return errno
	}
	return nil
}

func keyBitSet(keyBits []byte, code uint16) bool {
	byteIndex := int(code / 8)
	bitIndex := code % 8
	if byteIndex >= len(keyBits) {
		return false
	}
	return keyBits[byteIndex]&(1<<bitIndex) != 0
}
