package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/browser"

	"github.com/char5742/joystick-spacemouse/internal/api"
	"github.com/char5742/joystick-spacemouse/internal/config"
	"github.com/char5742/joystick-spacemouse/internal/features"
)

func main() {
	// コマンドライン引数の解析
	useApi := flag.Bool("api", false, "APIサーバーモードで起動します")
	configPath := flag.String("config", "", "設定ファイルのパス (指定しない場合はデフォルトパスを使用)")
	port := flag.Int("port", 8080, "APIサーバーのポート番号")
	openBrowser := flag.Bool("open", false, "APIサーバーモードで状態ページをブラウザで開きます")
	device := flag.String("device", "", "使用するジョイスティックのデバイスパス (設定ファイルより優先)")
	debug := flag.Bool("debug", false, "ボタンとモードの状態を出力します")
	flag.Parse()

	// デフォルト設定ファイルパスの設定
	defaultConfigPath := ""
	configDir, err := config.GetDefaultConfigDir()
	if err == nil {
		defaultConfigPath = filepath.Join(configDir, "config.toml")
	}

	// 設定ファイルパスの決定
	cfgPath := defaultConfigPath
	if *configPath != "" {
		cfgPath = *configPath
	}

	// 設定ファイルの読み込み
	var cfg *config.Config
	if cfgPath != "" {
		cfg, err = config.LoadConfig(cfgPath)
		if err != nil {
			fmt.Printf("設定ファイルの読み込みに失敗しました: %v\nデフォルト設定を使用します\n", err)
			cfg = config.DefaultConfig()
		} else {
			fmt.Printf("設定ファイルを読み込みました: %s\n", cfgPath)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	overrides := func(c *config.Config) *config.Config {
		if *device != "" {
			c.Input.Backend = config.BackendEvdev
			c.Input.Evdev.Device = *device
		}
		if *debug {
			c.Debug.Enabled = true
		}
		return c
	}
	cfg = overrides(cfg)

	// APIモードかCLIモードかを判断
	if *useApi {
		// APIモードで実行
		fmt.Printf("APIサーバーモードで起動します (ポート: %d)...\n", *port)
		runApiServer(cfg, cfgPath, *port, *openBrowser)
	} else {
		// CLIモードで実行
		fmt.Println("CLIモードで起動します...")
		runCLI(cfg, cfgPath, overrides)
	}
}

// APIサーバーモードでの実行
func runApiServer(cfg *config.Config, cfgPath string, port int, openBrowser bool) {
	// APIサーバーを作成
	server := api.NewServer(cfg, cfgPath, port)
	handleSignals(func() { _ = server.Stop() })

	if openBrowser {
		go func() {
			if err := browser.OpenURL(server.URL()); err != nil {
				log.Printf("ブラウザを開けませんでした: %v", err)
			}
		}()
	}

	// サーバー起動
	if err := server.Start(); err != nil {
		log.Fatalf("APIサーバーの起動に失敗しました: %v", err)
	}
}

// CLIモードでの実行
func runCLI(cfg *config.Config, cfgPath string, overrides func(*config.Config) *config.Config) {
	// ナビゲーションサービスを作成
	service := api.NewNavigatorService(cfg)

	// ジョイスティックの再接続に備えてデバイスを監視
	monitor, err := features.StartDeviceMonitor()
	if err != nil {
		log.Printf("デバイスモニターの起動に失敗しました: %v", err)
	} else {
		monitor.RegisterCallback(service.NotifyDevice)
	}

	// サービス開始
	if err := service.Start(); err != nil {
		fmt.Printf("ナビゲーションサービスの起動に失敗しました: %v\n", err)
		os.Exit(1)
	}

	// 設定ファイルの変更を反映
	var watcher *config.Watcher
	if cfgPath != "" {
		watcher, err = config.Watch(cfgPath, func(c *config.Config) {
			service.UpdateConfig(overrides(c))
		})
		if err != nil {
			log.Printf("設定ファイルの監視に失敗しました: %v", err)
		}
	}

	handleSignals(func() {
		if watcher != nil {
			watcher.Close()
		}
		if monitor != nil {
			monitor.Stop()
		}
		_ = service.Stop()
	})

	// シグナルが来るまで待機（終了処理はhandleSignals内で行われる）
	select {}
}

// handleSignals は終了シグナルを受けたら cleanup を実行して終了する
func handleSignals(cleanup func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("シャットダウンします...")
		cleanup()
		os.Exit(0)
	}()
}
