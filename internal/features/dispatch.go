package features

import (
	"errors"
	"fmt"

	"github.com/char5742/joystick-spacemouse/internal/navigator"
)

// Dispatch はステートマシンが生成したコマンドを順番にHIDデバイスへ送る。
// 途中で失敗しても残りのコマンドは送り、エラーをまとめて返す。
func Dispatch(hid HID, cmds []navigator.Command) error {
	var errs []error
	for _, c := range cmds {
		var err error
		switch c.Kind {
		case navigator.CmdMove:
			err = hid.Move(c.DX, c.DY, c.Wheel)
		case navigator.CmdButtonPress:
			err = hid.PressButton(c.Code)
		case navigator.CmdButtonRelease:
			err = hid.ReleaseButton(c.Code)
		case navigator.CmdKeyPress:
			err = hid.PressKey(c.Code)
		case navigator.CmdKeyRelease:
			err = hid.ReleaseKey(c.Code)
		case navigator.CmdKeyWrite:
			err = hid.WriteKey(c.Code)
		default:
			err = fmt.Errorf("unknown command kind %d", int(c.Kind))
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%v: %w", c, err))
		}
	}
	return errors.Join(errs...)
}
