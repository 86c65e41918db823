package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/char5742/joystick-spacemouse/internal/config"
	"github.com/char5742/joystick-spacemouse/internal/features"
)

// Server はAPIサーバーを表す構造体
type Server struct {
	server     *http.Server
	cfg        *config.Config
	configPath string
	service    *NavigatorService
	mutex      sync.RWMutex
	port       int

	listDevices func() ([]features.Device, error)
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(cfg *config.Config, configPath string, port int) *Server {
	return &Server{
		cfg:        cfg,
		configPath: configPath,
		port:       port,
		service:    NewNavigatorService(cfg),

		listDevices: features.GetDevices,
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()
	s.setupRoutes(router)
	return router
}

// Start はAPIサーバーを開始する
func (s *Server) Start() error {
	// デバイスの接続監視を開始し、切断中のサービスに再接続を促す
	monitor, err := features.StartDeviceMonitor()
	if err != nil {
		log.Printf("デバイスモニターの起動に失敗しました: %v", err)
	} else {
		monitor.RegisterCallback(s.service.NotifyDevice)
	}

	// HTTPサーバーの設定
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.Handler(),
	}

	// サーバーの起動
	log.Printf("APIサーバーを開始します: %s", s.URL())
	return s.server.ListenAndServe()
}

// URL はサービス状態を確認できるURLを返す
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d/api/service/status", s.port)
}

// Stop はAPIサーバーを停止する
func (s *Server) Stop() error {
	if s.service.IsRunning() {
		_ = s.service.Stop()
	}
	if s.server != nil {
		log.Println("APIサーバーを停止します...")
		return s.server.Shutdown(context.Background())
	}
	return nil
}

// GetConfig は現在の設定を返す
func (s *Server) GetConfig() *config.Config {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.cfg
}

// UpdateConfig は設定を更新し、実行中のサービスにも反映する
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.mutex.Lock()
	s.cfg = cfg
	s.mutex.Unlock()

	if s.service.IsRunning() {
		s.service.UpdateConfig(cfg)
	}
}

// writeJSON はJSONレスポンスを書き込む
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("JSONエンコードエラー: %v", err)
		}
	}
}

// writeError はエラーレスポンスを書き込む
func writeError(w http.ResponseWriter, status int, message string) {
	response := map[string]string{"error": message}
	writeJSON(w, status, response)
}
