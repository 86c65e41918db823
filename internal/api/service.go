package api

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/char5742/joystick-spacemouse/internal/config"
	"github.com/char5742/joystick-spacemouse/internal/features"
	"github.com/char5742/joystick-spacemouse/internal/navigator"
)

// 切断後に再接続を試みる間隔
const reconnectInterval = 2 * time.Second

// ServiceStatus はサービスの状態を表す構造体
type ServiceStatus struct {
	Running     bool   `json:"running"`
	Connected   bool   `json:"connected"`
	DefaultMode string `json:"default_mode"`
	CurrentMode string `json:"current_mode"`
	Moving      bool   `json:"moving"`
}

// NavigatorService はジョイスティックの入力を仮想マウス・キーボードに変換するサービス
type NavigatorService struct {
	cfg          *config.Config
	stopChan     chan struct{}
	done         chan struct{}
	running      bool
	starting     bool
	statusMutex  sync.RWMutex
	status       ServiceStatus
	hid          features.HID
	joystick     features.Joystick
	diag         *features.Diagnostics
	diagCloser   io.Closer
	updateConfig chan *config.Config
	reconnect    chan struct{}

	openHID      func() (features.HID, error)
	openJoystick func(cfg *config.Config) (features.Joystick, error)
}

// NewNavigatorService は新しいサービスを作成する
func NewNavigatorService(cfg *config.Config) *NavigatorService {
	return &NavigatorService{
		cfg:          cfg,
		stopChan:     make(chan struct{}),
		running:      false,
		updateConfig: make(chan *config.Config, 1),
		reconnect:    make(chan struct{}, 1),
		openHID: func() (features.HID, error) {
			return features.CreateHID("/dev/uinput", []byte("Joystick SpaceMouse"))
		},
		openJoystick: openJoystick,
	}
}

// openJoystick は設定に従って入力デバイスを開き、ゼロ点を取得する
func openJoystick(cfg *config.Config) (features.Joystick, error) {
	var (
		j   features.Joystick
		err error
	)

	switch cfg.Input.Backend {
	case config.BackendGPIO:
		j, err = features.OpenGPIOJoystick(cfg.GPIOPins())
	default:
		path := cfg.Input.Evdev.Device
		if path == "" {
			devices, err := features.GetDevices()
			if err != nil {
				return nil, fmt.Errorf("デバイス一覧の取得に失敗しました: %w", err)
			}
			device, err := features.SelectJoystick(devices, cfg.DevicePrefs.PreferredJoystickDevice)
			if err != nil {
				return nil, err
			}
			path = device.Path
			log.Printf("使用するジョイスティック: %s", device.Name)
		}
		j, err = features.OpenEvdevJoystick(path, cfg.EvdevMapping(), cfg.Input.Evdev.Grab)
	}
	if err != nil {
		return nil, err
	}

	// スティックは中立にある前提でゼロ点を取る
	calibrated, err := features.Calibrate(j, cfg.Input.SettleTime)
	if err != nil {
		j.Close()
		return nil, err
	}
	return calibrated, nil
}

// Start はサービスを開始する。
// キャリブレーションで待つ間も Status を返せるよう、デバイスはロックの外で開く。
func (s *NavigatorService) Start() error {
	s.statusMutex.Lock()
	if s.running || s.starting {
		s.statusMutex.Unlock()
		return fmt.Errorf("サービスは既に実行中です")
	}
	s.starting = true
	cfg := s.cfg
	s.statusMutex.Unlock()

	hid, joystick, err := s.openDevices(cfg)

	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()
	s.starting = false
	if err != nil {
		return err
	}

	s.hid = hid
	s.joystick = joystick
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	s.status = ServiceStatus{Running: true, Connected: true}

	go s.runNavigatorLoop()

	return nil
}

// openDevices は仮想HID、ジョイスティック、デバッグ出力を順に開く
func (s *NavigatorService) openDevices(cfg *config.Config) (features.HID, features.Joystick, error) {
	hid, err := s.openHID()
	if err != nil {
		return nil, nil, fmt.Errorf("仮想HIDデバイスの作成に失敗しました: %v", err)
	}

	joystick, err := s.openJoystick(cfg)
	if err != nil {
		hid.Close()
		return nil, nil, fmt.Errorf("ジョイスティックのオープンに失敗しました: %w", err)
	}

	if err := s.openDiagnostics(cfg); err != nil {
		hid.Close()
		joystick.Close()
		return nil, nil, err
	}
	return hid, joystick, nil
}

func (s *NavigatorService) openDiagnostics(cfg *config.Config) error {
	if !cfg.Debug.Enabled {
		return nil
	}
	if cfg.Debug.SerialPort == "" {
		diag, err := features.NewDiagnostics(log.Writer(), features.DiagText)
		if err != nil {
			return err
		}
		s.diag = diag
		return nil
	}
	diag, closer, err := features.OpenSerialDiagnostics(cfg.Debug.SerialPort, cfg.Debug.Baud, cfg.Debug.Format)
	if err != nil {
		return fmt.Errorf("デバッグ出力の準備に失敗しました: %w", err)
	}
	s.diag = diag
	s.diagCloser = closer
	return nil
}

func (s *NavigatorService) closeDiagnostics() {
	if s.diagCloser != nil {
		s.diagCloser.Close()
		s.diagCloser = nil
	}
	s.diag = nil
}

// Stop はサービスを停止し、押したままのボタンとキーを離すまで待つ
func (s *NavigatorService) Stop() error {
	s.statusMutex.Lock()
	if !s.running {
		s.statusMutex.Unlock()
		return fmt.Errorf("サービスは実行されていません")
	}

	close(s.stopChan)
	s.running = false
	done := s.done
	s.statusMutex.Unlock()

	<-done
	return nil
}

// UpdateConfig は設定を更新する
func (s *NavigatorService) UpdateConfig(cfg *config.Config) {
	select {
	case s.updateConfig <- cfg:
		// 設定更新チャネルに送信成功
	default:
		// チャネルがブロックされている場合は古い設定を破棄して新しい設定を送信
		select {
		case <-s.updateConfig:
		default:
		}
		s.updateConfig <- cfg
	}
}

// NotifyDevice はデバイスの接続を受け取り、切断中なら再接続を促す
func (s *NavigatorService) NotifyDevice(ev features.DeviceEvent) {
	if ev.Type != features.DeviceAdded || ev.Device.Type != features.DeviceTypeJoystick {
		return
	}
	select {
	case s.reconnect <- struct{}{}:
	default:
	}
}

// IsRunning はサービスが実行中かどうかを返す
func (s *NavigatorService) IsRunning() bool {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	return s.running
}

// Status は現在のモードなどの状態を返す
func (s *NavigatorService) Status() ServiceStatus {
	s.statusMutex.RLock()
	defer s.statusMutex.RUnlock()
	st := s.status
	st.Running = s.running
	return st
}

func (s *NavigatorService) publish(st navigator.Status, connected bool) {
	s.statusMutex.Lock()
	defer s.statusMutex.Unlock()
	s.status = ServiceStatus{
		Running:     s.running,
		Connected:   connected,
		DefaultMode: st.DefaultMode.String(),
		CurrentMode: st.CurrentMode.String(),
		Moving:      st.Moving,
	}
}

func (s *NavigatorService) dispatch(cmds []navigator.Command) {
	if len(cmds) == 0 {
		return
	}
	if err := features.Dispatch(s.hid, cmds); err != nil {
		log.Printf("HIDイベントの送信に失敗しました: %v", err)
	}
}

// runNavigatorLoop はメインループ。
// 入力の読み取り、状態の更新、HID出力、待機を1サイクルとして繰り返す。
func (s *NavigatorService) runNavigatorLoop() {
	state := navigator.NewState(s.cfg.Settings())

	defer func() {
		// 押したままのボタンとキーを離してからデバイスをクローズ
		s.dispatch(state.Release())
		if s.joystick != nil {
			s.joystick.Close()
			s.joystick = nil
		}
		if s.hid != nil {
			s.hid.Close()
		}
		s.closeDiagnostics()
		log.Println("ナビゲーションサービスを停止しました")
		close(s.done)
	}()

	log.Printf("ナビゲーションを開始しました (モード: %s)", state.CurrentMode())
	start := time.Now()

	for {
		select {
		case <-s.stopChan:
			return
		case newCfg := <-s.updateConfig:
			s.applyConfig(state, newCfg)
		default:
		}

		if s.joystick == nil {
			if !s.waitReconnect() {
				return
			}
			continue
		}

		levels, err := s.joystick.Read()
		if err != nil {
			log.Printf("ジョイスティックの読み取りに失敗しました: %v", err)
			s.dispatch(state.Release())
			s.joystick.Close()
			s.joystick = nil
			s.publish(state.Status(), false)
			continue
		}

		cmds := state.Tick(navigator.Snapshot{
			Axis:    levels.Axis,
			Buttons: levels.Buttons,
			Now:     uint32(time.Since(start).Milliseconds()),
		})
		s.dispatch(cmds)

		st := state.Status()
		s.publish(st, true)
		if s.diag != nil {
			if err := s.diag.Report(st); err != nil {
				log.Printf("デバッグ出力に失敗しました: %v", err)
			}
		}

		time.Sleep(state.Delay())
	}
}

// applyConfig は新しい設定をステートマシンに反映する。
// 入力デバイスやデバッグ出力の設定が変わった場合は開き直す。
func (s *NavigatorService) applyConfig(state *navigator.State, newCfg *config.Config) {
	old := s.cfg
	s.dispatch(state.Reconfigure(newCfg.Settings()))
	s.cfg = newCfg

	if newCfg.Debug != old.Debug {
		s.closeDiagnostics()
		if err := s.openDiagnostics(newCfg); err != nil {
			log.Printf("デバッグ出力の再設定に失敗しました: %v", err)
		}
	}

	if (newCfg.Input != old.Input || newCfg.DevicePrefs != old.DevicePrefs) && s.joystick != nil {
		// 古い設定で開いたデバイスを閉じ、次のサイクルで新しい設定で開き直す
		s.joystick.Close()
		s.joystick = nil
		s.publish(state.Status(), false)
		select {
		case s.reconnect <- struct{}{}:
		default:
		}
		log.Println("入力デバイスの設定が変わったため開き直します")
	}
	log.Println("設定を更新しました")
}

// waitReconnect はジョイスティックの再接続を待つ。停止要求があれば false を返す
func (s *NavigatorService) waitReconnect() bool {
	select {
	case <-s.stopChan:
		return false
	case <-s.reconnect:
	case <-time.After(reconnectInterval):
	}

	joystick, err := s.openJoystick(s.cfg)
	if err != nil {
		return true
	}
	log.Println("ジョイスティックに再接続しました")
	s.joystick = joystick
	return true
}
