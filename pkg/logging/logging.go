package logging

import (
	"sync"

	"github.com/sirupsen/logrus"
	"tarely-backend/pkg/config"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Get returns the process logger: JSON output in production, colored text in
// development, debug level when DEBUG is set.
func Get() *logrus.Logger {
	once.Do(func() {
		logger = logrus.New()
		cfg := config.GetCached()
		if cfg.IsProduction() {
			logger.SetFormatter(&logrus.JSONFormatter{})
		} else {
			logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}
		if cfg.Debug {
			logger.SetLevel(logrus.DebugLevel)
		}
	})
	return logger
}
