package navigator

import (
	"errors"
	"fmt"
	"time"

	"github.com/char5742/joystick-spacemouse/internal/event"
)

// ErrInvalidSettings は設定値の検証に失敗したことを表す
var ErrInvalidSettings = errors.New("invalid navigator settings")

// ModeSettings はモードごとの軸フィルタとループ周期
type ModeSettings struct {
	Threshold   int32         // この値以下のオフセットは無入力として扱う
	Sensitivity int32         // オフセットをこの値で割る。大きいほどゆっくり動く
	Delay       time.Duration // このモードでの1サイクル後の待ち時間
}

// Settings はステートマシンの動作を決める設定
type Settings struct {
	StartMode      Mode
	Cycle          []Mode // モード切り替えボタンで巡回する順序（ZOOMは含めない）
	Invert         bool   // マウス移動の向きを反転する（ZOOMは常に逆向き）
	LongPress      uint32 // この時間(ms)以上の押し込みは長押し
	DebounceReads  int    // レベル確定に必要な連続読み取り回数（1以下で無効）
	Modes          [NumModes]ModeSettings
	PrimaryButton  uint16 // ボタン1で押すマウスボタン
	PanButton      uint16 // PAN/ROTATE中に押し続けるマウスボタン
	RotateModifier uint16 // ROTATE中に押し続ける修飾キー
	EscapeKey      uint16 // ボタン3で送るキー
	FitViewKey     uint16 // 短押しで送る全体表示キー
}

// DefaultSettings は Fusion 360 向けの既定値を返す
func DefaultSettings() Settings {
	return Settings{
		StartMode:     ModeNormal,
		Cycle:         []Mode{ModeNormal, ModePan, ModeRotate},
		Invert:        false,
		LongPress:     500,
		DebounceReads: 1,
		Modes: [NumModes]ModeSettings{
			ModeNormal: {Threshold: 1, Sensitivity: 75, Delay: 5 * time.Millisecond},
			ModePan:    {Threshold: 1, Sensitivity: 75, Delay: 5 * time.Millisecond},
			ModeRotate: {Threshold: 1, Sensitivity: 150, Delay: 10 * time.Millisecond},
			ModeZoom:   {Threshold: 1, Sensitivity: 150, Delay: 40 * time.Millisecond},
		},
		PrimaryButton:  event.BtnLeft,
		PanButton:      event.BtnMiddle,
		RotateModifier: event.KeyLeftShift,
		EscapeKey:      event.KeyEsc,
		FitViewKey:     event.KeyF6,
	}
}

// Validate は設定値の整合性を検証する
func (s Settings) Validate() error {
	if len(s.Cycle) == 0 {
		return fmt.Errorf("%w: mode cycle is empty", ErrInvalidSettings)
	}
	seen := make(map[Mode]bool, len(s.Cycle))
	for _, m := range s.Cycle {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown mode %d in cycle", ErrInvalidSettings, int(m))
		}
		if m == ModeZoom {
			return fmt.Errorf("%w: zoom cannot be part of the mode cycle", ErrInvalidSettings)
		}
		if seen[m] {
			return fmt.Errorf("%w: mode %s appears twice in cycle", ErrInvalidSettings, m)
		}
		seen[m] = true
	}
	if !seen[s.StartMode] {
		return fmt.Errorf("%w: start mode %s is not in the mode cycle", ErrInvalidSettings, s.StartMode)
	}
	if s.LongPress == 0 {
		return fmt.Errorf("%w: long press threshold must be positive", ErrInvalidSettings)
	}
	for i, ms := range s.Modes {
		if ms.Sensitivity <= 0 {
			return fmt.Errorf("%w: %s sensitivity must be positive, got %d", ErrInvalidSettings, Mode(i), ms.Sensitivity)
		}
		if ms.Threshold < 0 {
			return fmt.Errorf("%w: %s threshold must not be negative, got %d", ErrInvalidSettings, Mode(i), ms.Threshold)
		}
		if ms.Delay < 0 {
			return fmt.Errorf("%w: %s delay must not be negative", ErrInvalidSettings, Mode(i))
		}
	}
	return nil
}
