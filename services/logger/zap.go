package logsvc

import (
	"go.uber.org/zap"

	"github.com/learnweb/moodleoverflow/core"
)

// ZapLogger backs the cron jobs, where structured output matters more than
// error aggregation.
type ZapLogger struct {
	sugar   *zap.SugaredLogger
	enabled bool
}

var _ core.Logger = (*ZapLogger)(nil)

func NewZapLogger(conf *core.Config) (*ZapLogger, error) {
	var zl *zap.Logger
	var err error
	if conf.Debug {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: zl.Sugar().With("app", conf.AppName), enabled: true}, nil
}

func (l *ZapLogger) Enable(enabled bool) { l.enabled = enabled }

func (l *ZapLogger) Debug(msg string, args ...interface{}) {
	if l.enabled {
		l.sugar.Debugw(msg, kvArgs(args)...)
	}
}

func (l *ZapLogger) Info(msg string, args ...interface{}) {
	if l.enabled {
		l.sugar.Infow(msg, kvArgs(args)...)
	}
}

func (l *ZapLogger) Warn(msg string, args ...interface{}) {
	if l.enabled {
		l.sugar.Warnw(msg, kvArgs(args)...)
	}
}

func (l *ZapLogger) Error(msg string, args ...interface{}) {
	if l.enabled {
		l.sugar.Errorw(msg, kvArgs(args)...)
	}
}

func (l *ZapLogger) Fatal(msg string, args ...interface{}) {
	l.sugar.Fatalw(msg, kvArgs(args)...)
}

// kvArgs keeps zap's key/value contract: stray values get a key.
func kvArgs(args []interface{}) []interface{} {
	if len(args)%2 == 0 {
		return args
	}
	return append([]interface{}{"detail"}, args...)
}
