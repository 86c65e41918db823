package navigator

import (
	"fmt"
	"strings"
)

// Mode はナビゲーションモードを表す列挙型
type Mode int

const (
	ModeNormal Mode = iota // 通常のマウス移動
	ModePan                // 中ボタンを押しながら移動してビューをパン
	ModeRotate             // 修飾キー + 中ボタンでビューを回転
	ModeZoom               // クリック中のみ有効なホイールズーム
)

// NumModes はモードの総数
const NumModes = 4

var modeNames = [NumModes]string{"normal", "pan", "rotate", "zoom"}

func (m Mode) String() string {
	if m < 0 || int(m) >= NumModes {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Valid はモードが定義済みの値かどうかを返す
func (m Mode) Valid() bool {
	return m >= 0 && int(m) < NumModes
}

// ParseMode はモード名を解析する（大文字小文字は区別しない）
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	mode, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}
