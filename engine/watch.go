package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch 监听数据文件变化，在 debounce 时间内没有新事件后触发一次 Rebuild。
// 监听的是文件所在目录（编辑器常用 rename 替换文件），再按文件名过滤事件。
// 阻塞直到 ctx 取消。
func (e *Engine) Watch(ctx context.Context, paths []string, debounce time.Duration) error {
	if len(paths) == 0 {
		return nil
	}
	if debounce <= 0 {
		debounce = e.cfg.WatchDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("engine: create watcher: %w", err)
	}
	defer w.Close()

	watched := make(map[string]struct{}, len(paths))
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("engine: watch %s: %w", p, err)
		}
		watched[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("engine: watch %s: %w", dir, err)
		}
	}
	e.logger.Info().Strs("paths", paths).Dur("debounce", debounce).Msg("watching data files")

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := watched[abs]; !ok {
				continue
			}
			e.logger.Debug().Str("path", abs).Str("op", event.Op.String()).Msg("data file changed")
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn().Err(err).Msg("watcher error")
		case <-timer.C:
			// 失败时 Rebuild 已记录日志并保留旧快照
			_, _ = e.Rebuild(ctx)
		}
	}
}
