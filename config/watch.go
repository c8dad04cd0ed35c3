package config

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听配置文件变更并推送热更新。
// 仅 trading/risk 调参字段允许热更；symbol、gateway 等需要重启。
type Watcher struct {
	Path     string
	Cooldown time.Duration // 两次重载的最小间隔，默认 5s

	watcher *fsnotify.Watcher
}

// Update 热更新载荷。
type Update struct {
	Trading TradingConfig
	Risk    RiskConfig
}

// NewWatcher 创建 fsnotify 监听器。
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	return &Watcher{Path: path, Cooldown: 5 * time.Second, watcher: fw}, nil
}

// Run blocks until ctx is done, invoking onUpdate after each valid reload.
// Reload errors are swallowed: a half-written file must not kill the run.
func (w *Watcher) Run(ctx context.Context, onUpdate func(Update)) error {
	defer w.watcher.Close()
	var lastReload time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(lastReload) < w.Cooldown {
				continue
			}
			cfg, err := Load(w.Path)
			if err != nil {
				continue
			}
			lastReload = time.Now()
			if onUpdate != nil {
				onUpdate(Update{Trading: cfg.Trading, Risk: cfg.Risk})
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
