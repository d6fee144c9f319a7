package logger

import (
	"go.uber.org/zap"
)

// New はGO_ENVに応じたzapロガーを返す。
// devは人間が読む形式、それ以外はJSON。
func New(goEnv string) (*zap.Logger, error) {
	if goEnv == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
