package logger

import (
	"strings"

	"go.uber.org/zap"
)

// New returns a JSON production logger for prod environments and a console logger otherwise.
func New(env string) (*zap.Logger, error) {
	switch strings.ToLower(env) {
	case "prod", "production":
		return zap.NewProduction()
	default:
		return zap.NewDevelopment()
	}
}
