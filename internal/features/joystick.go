package features

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/char5742/joystick-spacemouse/internal/navigator"
)

// Levels は入力デバイスから読み取った1回分の値
type Levels struct {
	Axis    navigator.AxisSample
	Buttons [navigator.NumButtons]bool // true = 押下中
}

// アナログ2軸とボタン4つを持つ入力デバイスのインターフェース
type Joystick interface {
	// 現在の軸の値とボタンのレベルを読み取る
	Read() (Levels, error)
	io.Closer
}

type calibratedJoystick struct {
	Joystick
	zero navigator.AxisSample
}

// Calibrate はスティックが中立にある前提で settle 待ってから軸を読み取り、
// その値をゼロ点とするJoystickを返す
func Calibrate(j Joystick, settle time.Duration) (Joystick, error) {
	time.Sleep(settle)

	l, err := j.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read zero point: %w", err)
	}
	log.Printf("ゼロ点を取得しました: 水平=%d 垂直=%d", l.Axis.Horizontal, l.Axis.Vertical)

	return &calibratedJoystick{Joystick: j, zero: l.Axis}, nil
}

func (c *calibratedJoystick) Read() (Levels, error) {
	l, err := c.Joystick.Read()
	if err != nil {
		return l, err
	}
	l.Axis.Horizontal -= c.zero.Horizontal
	l.Axis.Vertical -= c.zero.Vertical
	return l, nil
}
