package features

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const byIDDir = "/dev/input/by-id"

type Device struct {
	Name string
	Path string
	Type DeviceType
}

// デバイスタイプを表す列挙型
type DeviceType int

const (
	DeviceTypeKeyboard DeviceType = iota
	DeviceTypeMouse
	DeviceTypeJoystick
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeKeyboard:
		return "keyboard"
	case DeviceTypeMouse:
		return "mouse"
	case DeviceTypeJoystick:
		return "joystick"
	}
	return "unknown"
}

func (t DeviceType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// DeviceEventType はデバイスイベントの種類を表す
type DeviceEventType int

const (
	DeviceAdded DeviceEventType = iota
	DeviceRemoved
)

// DeviceEvent はデバイスの変更イベントを表す
type DeviceEvent struct {
	Type   DeviceEventType
	Device Device
}

// DeviceCallback はデバイスイベント発生時に呼び出されるコールバック関数の型
type DeviceCallback func(event DeviceEvent)

// ErrNoJoystick はジョイスティックが1台も見つからないことを表す
var ErrNoJoystick = errors.New("no joystick device found")

// ScanDevices は現在接続されている入力デバイスの一覧を返す
func ScanDevices() ([]Device, error) {
	return scanDir(byIDDir)
}

func scanDir(dir string) ([]Device, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var devices []Device
	for _, entry := range entries {
		// eventが含まれない場合はスキップ（js* や mouse* のレガシーノード）
		if !strings.Contains(entry.Name(), "event") {
			continue
		}
		fullPath := filepath.Join(dir, entry.Name())
		realPath, err := os.Readlink(fullPath)
		if err != nil {
			continue
		}

		// 絶対パスを構築
		absPath := realPath
		if !filepath.IsAbs(realPath) {
			absPath = filepath.Join(filepath.Dir(dir), filepath.Base(realPath))
		}

		name := entry.Name()
		switch {
		case strings.Contains(name, "joystick"):
			devices = append(devices, Device{Name: name, Path: absPath, Type: DeviceTypeJoystick})
		case strings.Contains(name, "kbd"):
			devices = append(devices, Device{Name: name, Path: absPath, Type: DeviceTypeKeyboard})
		case strings.Contains(name, "mouse"):
			devices = append(devices, Device{Name: name, Path: absPath, Type: DeviceTypeMouse})
		}
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}

// SelectJoystick は優先デバイス名に一致するジョイスティック、なければ最初のジョイスティックを返す
func SelectJoystick(devices []Device, preferred string) (Device, error) {
	var first *Device
	for i := range devices {
		device := &devices[i]
		if device.Type != DeviceTypeJoystick {
			continue
		}
		if preferred != "" && device.Name == preferred {
			return *device, nil
		}
		if first == nil {
			first = device
		}
	}
	if first == nil {
		return Device{}, ErrNoJoystick
	}
	if preferred != "" {
		log.Printf("優先デバイスが見つかりません: %s, %s を使用します", preferred, first.Name)
	}
	return *first, nil
}

// DeviceMonitor はデバイスの接続状態を監視する構造体
type DeviceMonitor struct {
	watcher   *fsnotify.Watcher
	dir       string
	callbacks []DeviceCallback
	devices   map[string]Device // 名前をキーにしたデバイスマップ
	mutex     sync.RWMutex
	stopChan  chan struct{}
	isRunning bool
}

// グローバルなDeviceMonitorインスタンス
var (
	globalDeviceMonitor *DeviceMonitor
	deviceMonitorMutex  sync.Mutex
)

// GetDevices は監視中ならキャッシュを、そうでなければ直接スキャンした結果を返す
func GetDevices() ([]Device, error) {
	deviceMonitorMutex.Lock()
	monitor := globalDeviceMonitor
	deviceMonitorMutex.Unlock()

	if monitor != nil {
		return monitor.GetConnectedDevices(), nil
	}
	return ScanDevices()
}

// NewDeviceMonitor は dir を監視する新しいDeviceMonitorを作成する
func NewDeviceMonitor(dir string) (*DeviceMonitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &DeviceMonitor{
		watcher:  watcher,
		dir:      dir,
		devices:  make(map[string]Device),
		stopChan: make(chan struct{}),
	}, nil
}

// StartDeviceMonitor は /dev/input/by-id のグローバルモニターを開始する
func StartDeviceMonitor() (*DeviceMonitor, error) {
	deviceMonitorMutex.Lock()
	defer deviceMonitorMutex.Unlock()

	if globalDeviceMonitor != nil {
		return globalDeviceMonitor, nil
	}

	monitor, err := NewDeviceMonitor(byIDDir)
	if err != nil {
		return nil, err
	}
	if err := monitor.Start(); err != nil {
		monitor.watcher.Close()
		return nil, err
	}
	globalDeviceMonitor = monitor
	return monitor, nil
}

// Start はデバイスの監視を開始する
func (dm *DeviceMonitor) Start() error {
	if dm.isRunning {
		return nil // すでに実行中
	}

	log.Println("デバイスモニターを開始します")

	// by-id はデバイスが1台もないと存在しないので親ディレクトリも監視する
	for _, dir := range []string{filepath.Dir(dm.dir), dm.dir} {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := dm.watcher.Add(dir); err != nil {
			log.Printf("ディレクトリの監視に失敗しました: %s - %v", dir, err)
		}
	}

	dm.rescan()
	dm.isRunning = true

	go dm.watchEvents()
	return nil
}

// Stop はデバイスの監視を停止する
func (dm *DeviceMonitor) Stop() {
	if !dm.isRunning {
		return
	}

	log.Println("デバイスモニターを停止します")
	close(dm.stopChan)
	dm.watcher.Close()
	dm.isRunning = false
}

// RegisterCallback はデバイスイベントのコールバック関数を登録する
func (dm *DeviceMonitor) RegisterCallback(callback DeviceCallback) {
	dm.mutex.Lock()
	defer dm.mutex.Unlock()

	dm.callbacks = append(dm.callbacks, callback)
}

// rescan はデバイス一覧を取り直し、差分をコールバックに通知する
func (dm *DeviceMonitor) rescan() {
	devices, err := scanDir(dm.dir)
	if err != nil && !os.IsNotExist(err) {
		log.Printf("デバイススキャンに失敗しました: %v", err)
		return
	}

	current := make(map[string]Device, len(devices))
	for _, d := range devices {
		current[d.Name] = d
	}

	var events []DeviceEvent
	dm.mutex.Lock()
	for name, d := range current {
		if old, ok := dm.devices[name]; !ok || old.Path != d.Path {
			events = append(events, DeviceEvent{Type: DeviceAdded, Device: d})
		}
	}
	for name, d := range dm.devices {
		if _, ok := current[name]; !ok {
			events = append(events, DeviceEvent{Type: DeviceRemoved, Device: d})
		}
	}
	dm.devices = current
	callbacks := append([]DeviceCallback(nil), dm.callbacks...)
	dm.mutex.Unlock()

	for _, ev := range events {
		if ev.Type == DeviceAdded {
			log.Printf("デバイス接続: %s (%s)", ev.Device.Name, ev.Device.Path)
		} else {
			log.Printf("デバイス切断: %s (%s)", ev.Device.Name, ev.Device.Path)
		}
		for _, cb := range callbacks {
			cb(ev)
		}
	}
}

// watchEvents はfsnotifyのイベントを監視する
func (dm *DeviceMonitor) watchEvents() {
	// 一時的なファイルシステムイベントをまとめて処理する
	eventDebounceTime := 500 * time.Millisecond
	eventTimer := time.NewTimer(eventDebounceTime)
	eventTimer.Stop()
	pendingRescan := false

	for {
		select {
		case <-dm.stopChan:
			return

		case <-eventTimer.C:
			if pendingRescan {
				pendingRescan = false
				dm.rescan()
			}

		case event, ok := <-dm.watcher.Events:
			if !ok {
				return
			}

			// by-id ディレクトリが後から作られた場合は監視に追加する
			if event.Name == dm.dir && event.Op&fsnotify.Create == fsnotify.Create {
				if err := dm.watcher.Add(dm.dir); err != nil {
					log.Printf("ディレクトリの監視に失敗しました: %s - %v", dm.dir, err)
				}
			}

			if event.Op&(fsnotify.Create|fsnotify.Remove) != 0 && !pendingRescan {
				pendingRescan = true
				eventTimer.Reset(eventDebounceTime)
			}

		case err, ok := <-dm.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("ファイルシステム監視エラー: %v", err)
		}
	}
}

// GetConnectedDevices は現在接続されているデバイスのスナップショットを返す
func (dm *DeviceMonitor) GetConnectedDevices() []Device {
	dm.mutex.RLock()
	defer dm.mutex.RUnlock()

	devices := make([]Device, 0, len(dm.devices))
	for _, device := range dm.devices {
		devices = append(devices, device)
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })

	return devices
}
