package logging

import (
	"go.uber.org/zap"
)

// New builds the production JSON logger at the given level. Output goes to
// stdout unless paths are given.
func New(level string, paths ...string) (*zap.Logger, error) {
	logCfg := zap.NewProductionConfig()

	var err error
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}

	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	logCfg.OutputPaths = paths
	logCfg.ErrorOutputPaths = paths
	logCfg.Sampling = nil

	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}
