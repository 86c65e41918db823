package features

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"

	"github.com/char5742/joystick-spacemouse/internal/navigator"
)

// GPIOPins はRaspberry Piに直結したジョイスティックの配線
type GPIOPins struct {
	I2CBus         string                       // ADS1115が接続されたI2Cバス（空なら既定のバス）
	I2CAddress     uint16                       // 0なら既定のアドレス(0x48)
	HorizontalChan int                          // 水平軸のADCチャンネル (0-3)
	VerticalChan   int                          // 垂直軸のADCチャンネル (0-3)
	Buttons        [navigator.NumButtons]string // Button1, Button2, Button3, Click のGPIO名
	MaxVoltage     physic.ElectricPotential     // ジョイスティックの電源電圧
}

var adcChannels = [...]ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

type gpioJoystick struct {
	horizontal analog.PinADC
	vertical   analog.PinADC
	buttons    [navigator.NumButtons]gpio.PinIn
	closers    []io.Closer
}

// OpenGPIOJoystick はホストドライバを初期化し、ADS1115とGPIOボタンを開く
func OpenGPIOJoystick(pins GPIOPins) (Joystick, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize host drivers: %w", err)
	}

	bus, err := i2creg.Open(pins.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus %q: %w", pins.I2CBus, err)
	}

	h, v, err := openADC(bus, pins)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}

	j, err := assembleGPIOJoystick(h, v, pins.Buttons, bus)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// assembleGPIOJoystick はボタンのピンを名前で探してJoystickを組み立てる。
// 失敗した場合はADCチャンネルを止め、バスを閉じる。
func assembleGPIOJoystick(h, v analog.PinADC, names [navigator.NumButtons]string, bus io.Closer) (*gpioJoystick, error) {
	fail := func(err error) (*gpioJoystick, error) {
		_ = h.Halt()
		_ = v.Halt()
		_ = bus.Close()
		return nil, err
	}

	var buttons [navigator.NumButtons]gpio.PinIn
	for i, name := range names {
		p := gpioreg.ByName(name)
		if p == nil {
			return fail(fmt.Errorf("gpio pin %q not found", name))
		}
		buttons[i] = p
	}

	j, err := newGPIOJoystick(h, v, buttons)
	if err != nil {
		return fail(err)
	}
	j.closers = append(j.closers, bus)
	return j, nil
}

func openADC(bus i2c.Bus, pins GPIOPins) (analog.PinADC, analog.PinADC, error) {
	if pins.HorizontalChan < 0 || pins.HorizontalChan >= len(adcChannels) ||
		pins.VerticalChan < 0 || pins.VerticalChan >= len(adcChannels) {
		return nil, nil, errors.New("adc channel must be between 0 and 3")
	}

	opts := ads1x15.DefaultOpts
	if pins.I2CAddress != 0 {
		opts.I2cAddress = pins.I2CAddress
	}
	adc, err := ads1x15.NewADS1115(bus, &opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ads1115: %w", err)
	}

	const rate = 860 * physic.Hertz
	h, err := adc.PinForChannel(adcChannels[pins.HorizontalChan], pins.MaxVoltage, rate, ads1x15.BestQuality)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open horizontal channel: %w", err)
	}
	v, err := adc.PinForChannel(adcChannels[pins.VerticalChan], pins.MaxVoltage, rate, ads1x15.BestQuality)
	if err != nil {
		_ = h.Halt()
		return nil, nil, fmt.Errorf("failed to open vertical channel: %w", err)
	}
	return h, v, nil
}

// NewGPIOJoystick は開いたピンからJoystickを作る。
// ボタンはプルアップで、押すとLowになる配線を前提とする。
func NewGPIOJoystick(horizontal, vertical analog.PinADC, buttons [navigator.NumButtons]gpio.PinIn) (Joystick, error) {
	j, err := newGPIOJoystick(horizontal, vertical, buttons)
	if err != nil {
		return nil, err
	}
	return j, nil
}

func newGPIOJoystick(horizontal, vertical analog.PinADC, buttons [navigator.NumButtons]gpio.PinIn) (*gpioJoystick, error) {
	for i, b := range buttons {
		if err := b.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("failed to configure %s (%s): %w", navigator.Button(i), b, err)
		}
	}
	return &gpioJoystick{horizontal: horizontal, vertical: vertical, buttons: buttons}, nil
}

func (j *gpioJoystick) Read() (Levels, error) {
	var l Levels

	h, err := j.horizontal.Read()
	if err != nil {
		return l, fmt.Errorf("failed to read horizontal axis: %w", err)
	}
	v, err := j.vertical.Read()
	if err != nil {
		return l, fmt.Errorf("failed to read vertical axis: %w", err)
	}
	// 16bitの生の値をArduinoのanalogReadと同じ10bit相当に揃える
	l.Axis = navigator.AxisSample{Horizontal: h.Raw >> 5, Vertical: v.Raw >> 5}

	for i, b := range j.buttons {
		l.Buttons[i] = b.Read() == gpio.Low
	}
	return l, nil
}

func (j *gpioJoystick) Close() error {
	var errs []error
	for _, p := range []analog.PinADC{j.horizontal, j.vertical} {
		if err := p.Halt(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range j.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
