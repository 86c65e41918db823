package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher は設定ファイルの変更を監視し、読み直した設定を通知する
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*Config)
	stopChan chan struct{}
	done     chan struct{}
}

// エディタの連続書き込みをまとめる時間
const reloadDelay = 200 * time.Millisecond

// Watch は configPath の監視を開始する。
// 読み込みや検証に失敗した設定は通知せずログに出す。
func Watch(configPath string, onChange func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// 置き換え保存に対応するためディレクトリごと監視する
	if err := fw.Add(filepath.Dir(configPath)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		path:     filepath.Clean(configPath),
		onChange: onChange,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close は監視を停止する
func (w *Watcher) Close() error {
	close(w.stopChan)
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()

	for {
		select {
		case <-w.stopChan:
			timer.Stop()
			return

		case <-timer.C:
			cfg, err := LoadConfig(w.path)
			if err != nil {
				log.Printf("設定ファイルの再読み込みに失敗しました: %v", err)
				continue
			}
			log.Printf("設定ファイルを再読み込みしました: %s", w.path)
			w.onChange(cfg)

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				timer.Reset(reloadDelay)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("設定ファイル監視エラー: %v", err)
		}
	}
}
