package config

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"fxbot/internal/logger"
)

// Watch 监听主配置文件，变更后重新 Load 并回调；解析失败只记日志，保留旧配置。
// ctx 结束后不再触发回调。
func Watch(ctx context.Context, path string, onChange func(*Config)) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		logger.Warnf("config watch disabled for %s: %v", path, err)
		return
	}
	var mu sync.Mutex
	v.OnConfigChange(func(ev fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		cfg, err := Load(path)
		if err != nil {
			logger.Warnf("config reload failed (%s): %v", ev.Name, err)
			return
		}
		logger.Infof("config reloaded from %s", ev.Name)
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
}
