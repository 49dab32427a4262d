package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch re-reads the config file whenever it changes and passes the newly
// validated configuration to onChange. Invalid changes are logged and
// skipped. It returns false when no config file is in use.
//
// The returned Config has no Registry; workers are fixed at startup.
func Watch(v *viper.Viper, logger *slog.Logger, onChange func(*Config)) bool {
	if v.ConfigFileUsed() == "" {
		return false
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info("Config file changed",
			slog.String("file", e.Name),
			slog.String("op", e.Op.String()))

		cfg, err := decode(v)
		if err != nil {
			logger.Warn("Ignoring invalid config change", slog.Any("err", err))
			return
		}

		onChange(cfg)
	})
	v.WatchConfig()

	return true
}
