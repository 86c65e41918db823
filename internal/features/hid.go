package features

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/char5742/joystick-spacemouse/internal/consts"
	"github.com/char5742/joystick-spacemouse/internal/event"
	"github.com/char5742/joystick-spacemouse/internal/types"
	"github.com/char5742/joystick-spacemouse/internal/utils"
)

// マウスとキーボードを兼ねる仮想HIDデバイスのインターフェース
type HID interface {
	// 相対移動とホイール
	Move(dx, dy, wheel int32) error
	PressButton(code uint16) error
	ReleaseButton(code uint16) error
	PressKey(code uint16) error
	ReleaseKey(code uint16) error
	// キーを押してすぐ離す
	WriteKey(code uint16) error
	io.Closer
}

type virtualHID struct {
	name       []byte
	deviceFile *os.File
}

// 登録するキーコードの範囲（KEY_ESC から KEY_MICMUTE まで）
const (
	firstKeyCode = event.KeyEsc
	lastKeyCode  = 248
)

// 新しい仮想HIDデバイスを作成する
func CreateHID(path string, name []byte) (HID, error) {
	fd, err := createHID(path, name)
	if err != nil {
		return nil, err
	}

	return &virtualHID{name: name, deviceFile: fd}, nil
}

func (vh *virtualHID) Close() error {
	_ = releaseDevice(vh.deviceFile)
	return vh.deviceFile.Close()
}

func createHID(path string, name []byte) (*os.File, error) {
	deviceFile, err := createDeviceFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not create virtual hid device: %v", err)
	}

	// キー入力イベント(EV_KEY)を登録する
	err = registerDevice(deviceFile, uintptr(event.Key))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("キー入力イベント(EV_KEY)の登録に失敗しました: %v", err)
	}

	// マウスボタンを登録する
	for _, ev := range []int{
		event.BtnLeft,   // マウス左ボタン
		event.BtnRight,  // マウス右ボタン
		event.BtnMiddle, // マウス中ボタン
	} {
		if err = utils.IOCtl(deviceFile, consts.SetKeyBit, uintptr(ev)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("マウスボタンの登録に失敗しました %v: %v", ev, err)
		}
	}

	// キーボードのキーを登録する
	for code := firstKeyCode; code <= lastKeyCode; code++ {
		if err = utils.IOCtl(deviceFile, consts.SetKeyBit, uintptr(code)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("キーの登録に失敗しました %v: %v", code, err)
		}
	}

	// 相対座標入力イベント(EV_REL)を登録する
	err = registerDevice(deviceFile, uintptr(event.Rel))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("相対座標入力イベント(EV_REL)の登録に失敗しました: %v", err)
	}

	for _, ev := range []int{event.RelX, event.RelY, event.RelWheel} {
		if err = utils.IOCtl(deviceFile, consts.SetRelBit, uintptr(ev)); err != nil {
			_ = deviceFile.Close()
			return nil, fmt.Errorf("相対座標軸の登録に失敗しました %v: %v", ev, err)
		}
	}

	userDev := types.UserDev{
		Name: toUinputName(name),
		ID: types.InputID{
			Bustype: consts.BusUsb,
			Vendor:  0x4711,
			Product: 0x0818,
			Version: 1,
		},
	}

	fd, err := createUsbDevice(deviceFile, userDev)
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("USBデバイスの作成に失敗しました: %v", err)
	}

	return fd, nil
}

// 相対移動を送る。0の軸は送らない
func (vh *virtualHID) Move(dx, dy, wheel int32) error {
	events := make([]types.Event, 0, 4)
	if dx != 0 {
		events = append(events, types.Event{Type: event.Rel, Code: event.RelX, Value: dx})
	}
	if dy != 0 {
		events = append(events, types.Event{Type: event.Rel, Code: event.RelY, Value: dy})
	}
	if wheel != 0 {
		events = append(events, types.Event{Type: event.Rel, Code: event.RelWheel, Value: wheel})
	}
	if len(events) == 0 {
		return nil
	}
	events = append(events, syncEvent())

	return writeEvents(vh.deviceFile, events)
}

func (vh *virtualHID) PressButton(code uint16) error {
	return vh.key(code, 1)
}

func (vh *virtualHID) ReleaseButton(code uint16) error {
	return vh.key(code, 0)
}

func (vh *virtualHID) PressKey(code uint16) error {
	return vh.key(code, 1)
}

func (vh *virtualHID) ReleaseKey(code uint16) error {
	return vh.key(code, 0)
}

func (vh *virtualHID) WriteKey(code uint16) error {
	events := []types.Event{
		{Type: event.Key, Code: code, Value: 1},
		syncEvent(),
		{Type: event.Key, Code: code, Value: 0},
		syncEvent(),
	}

	return writeEvents(vh.deviceFile, events)
}

func (vh *virtualHID) key(code uint16, value int32) error {
	events := []types.Event{
		{Type: event.Key, Code: code, Value: value},
		syncEvent(),
	}

	return writeEvents(vh.deviceFile, events)
}

func syncEvent() types.Event {
	return types.Event{Type: event.Syn, Code: event.SynReport, Value: 0}
}

// デバイスファイルを作成する
func createDeviceFile(path string) (fd *os.File, err error) {
	deviceFile, err := os.OpenFile(path, syscall.O_WRONLY|syscall.O_NONBLOCK, 0660)
	if err != nil {
		return nil, errors.New("デバイスファイルを開くのに失敗しました")
	}
	return deviceFile, err
}

// デバイスを解放する
func releaseDevice(deviceFile *os.File) error {
	return utils.IOCtl(deviceFile, consts.DevDestroy, uintptr(0))
}

// デバイスを登録する
func registerDevice(deviceFile *os.File, evType uintptr) error {
	err := utils.IOCtl(deviceFile, consts.SetEvBit, evType)
	if err != nil {
		defer deviceFile.Close()
		err = releaseDevice(deviceFile)
		if err != nil {
			return fmt.Errorf("デバイスを解放するのに失敗しました: %v", err)
		}
		return fmt.Errorf("無効なファイルハンドルがutils.IOCtlから返されました: %v", err)
	}
	return nil
}

// USBデバイスを作成する
func createUsbDevice(deviceFile *os.File, dev types.UserDev) (fd *os.File, err error) {
	buf := new(bytes.Buffer)
	err = binary.Write(buf, binary.LittleEndian, dev)
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("ユーザーデバイスバッファの書き込みに失敗しました: %v", err)
	}
	_, err = deviceFile.Write(buf.Bytes())
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイス構造体をデバイスファイルに書き込むのに失敗しました: %v", err)
	}

	err = utils.IOCtl(deviceFile, consts.DevCreate, uintptr(0))
	if err != nil {
		_ = deviceFile.Close()
		return nil, fmt.Errorf("デバイスの作成に失敗しました: %v", err)
	}

	return deviceFile, err
}

// イベントを書き込む
func writeEvents(w io.Writer, events []types.Event) error {
	for _, ev := range events {
		buf := new(bytes.Buffer)
		if err := binary.Write(buf, binary.LittleEndian, ev); err != nil {
			return fmt.Errorf("イベントをバッファに書き込むのに失敗しました: %v", err)
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return fmt.Errorf("イベントの書き込みに失敗しました: %v", err)
		}
	}
	return nil
}

// 名前をuinput用の固定長配列に変換する
func toUinputName(name []byte) (uinputName [consts.MaxNameSize]byte) {
	var fixedSizeName [consts.MaxNameSize]byte
	copy(fixedSizeName[:], name)
	return fixedSizeName
}
