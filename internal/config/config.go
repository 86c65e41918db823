package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"periph.io/x/conn/v3/physic"

	"github.com/char5742/joystick-spacemouse/internal/event"
	"github.com/char5742/joystick-spacemouse/internal/features"
	"github.com/char5742/joystick-spacemouse/internal/navigator"
)

// 入力デバイスの種類
const (
	BackendEvdev = "evdev" // USB/Bluetoothジョイスティック (/dev/input/event*)
	BackendGPIO  = "gpio"  // Raspberry Pi に直結したスティック (ADS1115 + GPIO)
)

// Config はアプリケーション全体の設定を表す構造体
type Config struct {
	Navigation  NavigationConfig  `toml:"navigation"`
	Modes       ModesConfig       `toml:"modes"`
	Keys        KeysConfig        `toml:"keys"`
	Input       InputConfig       `toml:"input"`
	Debug       DebugConfig       `toml:"debug"`
	DevicePrefs DevicePrefsConfig `toml:"device_prefs"`
}

// NavigationConfig はモード切り替えと押し込み判定の設定
type NavigationConfig struct {
	StartMode         navigator.Mode   `toml:"start_mode"`          // 起動時のモード
	ModeCycle         []navigator.Mode `toml:"mode_cycle"`          // ボタン2で巡回するモード（zoomは不可）
	InvertMouse       bool             `toml:"invert_mouse"`        // マウス移動の向きを反転する
	LongPressInterval time.Duration    `toml:"long_press_interval"` // これ未満の押し込みで全体表示キーを送る
	DebounceReads     int              `toml:"debounce_reads"`      // ボタンのレベル確定に必要な連続読み取り回数
}

// ModeConfig はモードごとの軸の設定
type ModeConfig struct {
	MoveThreshold int32         `toml:"move_threshold"` // この値以下の揺れは無視する（1か2）
	Sensitivity   int32         `toml:"sensitivity"`    // 大きいほどゆっくり動く（500程度まで）
	SlowDown      time.Duration `toml:"slow_down"`      // 1サイクルごとの待ち時間
}

// ModesConfig は各モードの設定
type ModesConfig struct {
	Normal ModeConfig `toml:"normal"`
	Pan    ModeConfig `toml:"pan"`
	Rotate ModeConfig `toml:"rotate"`
	Zoom   ModeConfig `toml:"zoom"`
}

// KeysConfig は送信するボタンとキーのコード（input-event-codes.h の値）
type KeysConfig struct {
	Button1MouseButton int `toml:"button1_mouse_button"` // ボタン1で押すマウスボタン
	PanMouseButton     int `toml:"pan_mouse_button"`     // PAN/ROTATE中に押し続けるマウスボタン
	RotateModifierKey  int `toml:"rotate_modifier_key"`  // ROTATE中に押し続けるキー
	Button3Key         int `toml:"button3_key"`          // ボタン3で送るキー
	FitViewKey         int `toml:"fit_view_key"`         // 短押しで送るキー
}

// InputConfig は入力デバイスの設定
type InputConfig struct {
	Backend    string        `toml:"backend"`     // "evdev" または "gpio"
	SettleTime time.Duration `toml:"settle_time"` // ゼロ点取得までの待ち時間
	Evdev      EvdevConfig   `toml:"evdev"`
	GPIO       GPIOConfig    `toml:"gpio"`
}

// EvdevConfig はevdevジョイスティックの割り当て
type EvdevConfig struct {
	Device         string `toml:"device"` // 空なら /dev/input/by-id から自動選択
	Grab           bool   `toml:"grab"`   // 他のアプリケーションに入力を渡さない
	HorizontalAxis int    `toml:"horizontal_axis"`
	VerticalAxis   int    `toml:"vertical_axis"`
	Button1        int    `toml:"button1"`
	Button2        int    `toml:"button2"`
	Button3        int    `toml:"button3"`
	Click          int    `toml:"click"`
}

// GPIOConfig はRaspberry Piへの配線
type GPIOConfig struct {
	I2CBus            string  `toml:"i2c_bus"`
	I2CAddress        int     `toml:"i2c_address"`
	HorizontalChannel int     `toml:"horizontal_channel"`
	VerticalChannel   int     `toml:"vertical_channel"`
	Button1Pin        string  `toml:"button1_pin"`
	Button2Pin        string  `toml:"button2_pin"`
	Button3Pin        string  `toml:"button3_pin"`
	ClickPin          string  `toml:"click_pin"`
	SupplyVoltage     float64 `toml:"supply_voltage"`
}

// DebugConfig はデバッグ出力の設定
type DebugConfig struct {
	Enabled    bool   `toml:"enabled"`     // ボタンとモードの状態を出力する
	SerialPort string `toml:"serial_port"` // 空ならログに出力する
	Baud       int    `toml:"baud"`
	Format     string `toml:"format"` // シリアル出力の形式 "text" または "cbor"
}

// DevicePrefsConfig はデバイス設定の設定
type DevicePrefsConfig struct {
	PreferredJoystickDevice string `toml:"preferred_joystick_device"`
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() *Config {
	return &Config{
		Navigation: NavigationConfig{
			StartMode:         navigator.ModeNormal,
			ModeCycle:         []navigator.Mode{navigator.ModeNormal, navigator.ModePan, navigator.ModeRotate},
			InvertMouse:       false,
			LongPressInterval: 500 * time.Millisecond,
			DebounceReads:     1,
		},
		Modes: ModesConfig{
			Normal: ModeConfig{MoveThreshold: 1, Sensitivity: 75, SlowDown: 5 * time.Millisecond},
			Pan:    ModeConfig{MoveThreshold: 1, Sensitivity: 75, SlowDown: 5 * time.Millisecond},
			Rotate: ModeConfig{MoveThreshold: 1, Sensitivity: 150, SlowDown: 10 * time.Millisecond},
			Zoom:   ModeConfig{MoveThreshold: 1, Sensitivity: 150, SlowDown: 40 * time.Millisecond},
		},
		Keys: KeysConfig{
			Button1MouseButton: event.BtnLeft,
			PanMouseButton:     event.BtnMiddle,
			RotateModifierKey:  event.KeyLeftShift,
			Button3Key:         event.KeyEsc,
			FitViewKey:         event.KeyF6,
		},
		Input: InputConfig{
			Backend:    BackendEvdev,
			SettleTime: time.Second,
			Evdev: EvdevConfig{
				HorizontalAxis: event.AbsX,
				VerticalAxis:   event.AbsY,
				Button1:        event.BtnThumb,
				Button2:        event.BtnThumb2,
				Button3:        event.BtnTop,
				Click:          event.BtnTrigger,
			},
			GPIO: GPIOConfig{
				I2CAddress:        0x48,
				HorizontalChannel: 0,
				VerticalChannel:   1,
				Button1Pin:        "GPIO17",
				Button2Pin:        "GPIO27",
				Button3Pin:        "GPIO22",
				ClickPin:          "GPIO23",
				SupplyVoltage:     3.3,
			},
		},
		Debug: DebugConfig{
			Enabled: false,
			Baud:    9600,
			Format:  features.DiagText,
		},
	}
}

// GetDefaultConfigDir はデフォルトの設定ディレクトリを返す
func GetDefaultConfigDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "joystick-spacemouse"), nil
}

// LoadConfig は設定ファイルから設定を読み込む
func LoadConfig(configPath string) (*Config, error) {
	// デフォルト設定を用意
	config := DefaultConfig()

	// ファイルが存在しない場合はデフォルト設定を保存して返す
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := SaveConfig(configPath, config); err != nil {
			return config, err
		}
		return config, nil
	}

	// 設定ファイルの読み込み
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return config, err
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("%s: %w", configPath, err)
	}

	return config, nil
}

// SaveConfig は設定をTOMLファイルに保存する
func SaveConfig(configPath string, config *Config) error {
	// 設定ディレクトリの作成
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	// ファイルを開く（なければ作成）
	f, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// TOML形式でエンコードして書き込み
	encoder := toml.NewEncoder(f)
	return encoder.Encode(config)
}

// Validate は設定値を検証する
func (c *Config) Validate() error {
	if err := c.Settings().Validate(); err != nil {
		return err
	}
	if c.Navigation.LongPressInterval < time.Millisecond {
		return fmt.Errorf("long_press_interval must be at least 1ms, got %v", c.Navigation.LongPressInterval)
	}

	keys := map[string]int{
		"button1_mouse_button": c.Keys.Button1MouseButton,
		"pan_mouse_button":     c.Keys.PanMouseButton,
		"rotate_modifier_key":  c.Keys.RotateModifierKey,
		"button3_key":          c.Keys.Button3Key,
		"fit_view_key":         c.Keys.FitViewKey,
	}
	for name, code := range keys {
		if code <= 0 || code > event.KeyMax {
			return fmt.Errorf("keys.%s: invalid event code %d", name, code)
		}
	}

	if c.Debug.Format != features.DiagText && c.Debug.Format != features.DiagCBOR {
		return fmt.Errorf("debug.format: unknown format %q", c.Debug.Format)
	}

	switch c.Input.Backend {
	case BackendEvdev:
		for name, code := range map[string]int{
			"button1": c.Input.Evdev.Button1,
			"button2": c.Input.Evdev.Button2,
			"button3": c.Input.Evdev.Button3,
			"click":   c.Input.Evdev.Click,
		} {
			if code <= 0 || code > event.KeyMax {
				return fmt.Errorf("input.evdev.%s: invalid event code %d", name, code)
			}
		}
	case BackendGPIO:
		if c.Input.GPIO.SupplyVoltage <= 0 {
			return fmt.Errorf("input.gpio.supply_voltage must be positive")
		}
	default:
		return fmt.Errorf("input.backend: unknown backend %q", c.Input.Backend)
	}
	return nil
}

// Settings はステートマシン用の設定に変換する
func (c *Config) Settings() navigator.Settings {
	mode := func(m ModeConfig) navigator.ModeSettings {
		return navigator.ModeSettings{Threshold: m.MoveThreshold, Sensitivity: m.Sensitivity, Delay: m.SlowDown}
	}
	return navigator.Settings{
		StartMode:     c.Navigation.StartMode,
		Cycle:         append([]navigator.Mode(nil), c.Navigation.ModeCycle...),
		Invert:        c.Navigation.InvertMouse,
		LongPress:     uint32(c.Navigation.LongPressInterval / time.Millisecond),
		DebounceReads: c.Navigation.DebounceReads,
		Modes: [navigator.NumModes]navigator.ModeSettings{
			navigator.ModeNormal: mode(c.Modes.Normal),
			navigator.ModePan:    mode(c.Modes.Pan),
			navigator.ModeRotate: mode(c.Modes.Rotate),
			navigator.ModeZoom:   mode(c.Modes.Zoom),
		},
		PrimaryButton:  uint16(c.Keys.Button1MouseButton),
		PanButton:      uint16(c.Keys.PanMouseButton),
		RotateModifier: uint16(c.Keys.RotateModifierKey),
		EscapeKey:      uint16(c.Keys.Button3Key),
		FitViewKey:     uint16(c.Keys.FitViewKey),
	}
}

// EvdevMapping はevdevジョイスティックの割り当てに変換する
func (c *Config) EvdevMapping() features.EvdevMapping {
	e := c.Input.Evdev
	return features.EvdevMapping{
		HorizontalAxis: uint16(e.HorizontalAxis),
		VerticalAxis:   uint16(e.VerticalAxis),
		Buttons:        [navigator.NumButtons]uint16{uint16(e.Button1), uint16(e.Button2), uint16(e.Button3), uint16(e.Click)},
	}
}

// GPIOPins はGPIOジョイスティックの配線に変換する
func (c *Config) GPIOPins() features.GPIOPins {
	g := c.Input.GPIO
	return features.GPIOPins{
		I2CBus:         g.I2CBus,
		I2CAddress:     uint16(g.I2CAddress),
		HorizontalChan: g.HorizontalChannel,
		VerticalChan:   g.VerticalChannel,
		Buttons:        [navigator.NumButtons]string{g.Button1Pin, g.Button2Pin, g.Button3Pin, g.ClickPin},
		MaxVoltage:     physic.ElectricPotential(g.SupplyVoltage * float64(physic.Volt)),
	}
}
