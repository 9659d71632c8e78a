// Package autoload initialises the global logger from LOG_* variables when imported.
package autoload

import (
	configx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/config"
	logx "github.com/tanpawarit/Chative-Helpdesk-Router/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		logx.Warn().Err(err).Msg("falling back to default logger config")
		return
	}
	logx.Init(*cfg)
}
