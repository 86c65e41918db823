package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"

	"github.com/char5742/joystick-spacemouse/internal/config"
	"github.com/char5742/joystick-spacemouse/internal/features"
	"github.com/char5742/joystick-spacemouse/internal/navigator"
)

// ルートの設定
func (s *Server) setupRoutes(router *http.ServeMux) {
	// 設定関連のエンドポイント
	router.HandleFunc("GET /api/config", s.handleGetConfig)
	router.HandleFunc("PUT /api/config", s.handleUpdateConfig)
	router.HandleFunc("POST /api/config/save", s.handleSaveConfig)

	// デバイス関連のエンドポイント
	router.HandleFunc("GET /api/devices", s.handleGetDevices)
	router.HandleFunc("PUT /api/devices/preferred", s.handleSetPreferredDevices)

	// サービス関連のエンドポイント
	router.HandleFunc("POST /api/service/start", s.handleStartService)
	router.HandleFunc("POST /api/service/stop", s.handleStopService)
	router.HandleFunc("GET /api/service/status", s.handleServiceStatus)

	// ヘルスチェック用エンドポイント
	router.HandleFunc("GET /api/health", s.handleHealthCheck)
}

// 設定取得ハンドラ
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GetConfig())
}

// cloneConfig はスライスも含めて設定を複製する
func cloneConfig(cfg *config.Config) *config.Config {
	c := *cfg
	c.Navigation.ModeCycle = append([]navigator.Mode(nil), cfg.Navigation.ModeCycle...)
	return &c
}

// 設定更新ハンドラ（指定されたフィールドだけを上書きする）
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	newConfig := cloneConfig(s.GetConfig())

	if err := json.NewDecoder(r.Body).Decode(newConfig); err != nil {
		writeError(w, http.StatusBadRequest, "設定の解析に失敗しました")
		return
	}
	if err := newConfig.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "設定が不正です: "+err.Error())
		return
	}

	s.UpdateConfig(newConfig)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// 設定保存ハンドラ
func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var saveRequest struct {
		Path string `json:"path"`
	}

	if err := json.NewDecoder(r.Body).Decode(&saveRequest); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	configPath := saveRequest.Path
	if configPath == "" {
		configPath = s.configPath
	}
	if configPath == "" {
		// デフォルトパスを使用
		userConfigDir, err := config.GetDefaultConfigDir()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "デフォルト設定ディレクトリの取得に失敗しました")
			return
		}
		configPath = filepath.Join(userConfigDir, "config.toml")
	}

	if err := config.SaveConfig(configPath, s.GetConfig()); err != nil {
		writeError(w, http.StatusInternalServerError, "設定の保存に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"path":   configPath,
	})
}

// デバイス一覧取得ハンドラ
func (s *Server) handleGetDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.listDevices()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "デバイス一覧の取得に失敗しました: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, devices)
}

// 優先ジョイスティック設定ハンドラ。
// 空文字で優先設定を解除する。それ以外は接続中のジョイスティック名でなければならない。
func (s *Server) handleSetPreferredDevices(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JoystickDevice string `json:"joystick_device"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	response := map[string]any{"status": "success"}
	if request.JoystickDevice != "" {
		devices, err := s.listDevices()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "デバイス一覧の取得に失敗しました: "+err.Error())
			return
		}
		i := slices.IndexFunc(devices, func(d features.Device) bool {
			return d.Name == request.JoystickDevice
		})
		switch {
		case i < 0:
			writeError(w, http.StatusNotFound, "デバイスが接続されていません: "+request.JoystickDevice)
			return
		case devices[i].Type != features.DeviceTypeJoystick:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s はジョイスティックではありません (%s)", devices[i].Name, devices[i].Type))
			return
		}
		response["path"] = devices[i].Path
	}

	cfg := cloneConfig(s.GetConfig())
	cfg.DevicePrefs.PreferredJoystickDevice = request.JoystickDevice
	s.UpdateConfig(cfg)

	writeJSON(w, http.StatusOK, response)
}

// サービス起動ハンドラ
func (s *Server) handleStartService(w http.ResponseWriter, r *http.Request) {
	if s.service.IsRunning() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_running"})
		return
	}

	// 停止中に変更された設定で起動する
	s.service.cfg = s.GetConfig()
	if err := s.service.Start(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("サービスの起動に失敗しました: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// サービス停止ハンドラ
func (s *Server) handleStopService(w http.ResponseWriter, r *http.Request) {
	if !s.service.IsRunning() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_running"})
		return
	}

	if err := s.service.Stop(); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("サービスの停止に失敗しました: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// サービス状態取得ハンドラ
func (s *Server) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

// ヘルスチェックハンドラ
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
