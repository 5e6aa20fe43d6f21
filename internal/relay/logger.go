package relay

import (
	"fmt"

	"cdpmock/internal/logger"
)

// RestyLogger 将 resty 客户端日志接入内部 Logger
type RestyLogger struct {
	logger.Logger
}

// NewRestyLogger 创建 resty 日志适配器
func NewRestyLogger(l logger.Logger) *RestyLogger {
	return &RestyLogger{Logger: l}
}

// Errorf 打印error级别日志
func (l *RestyLogger) Errorf(format string, v ...any) {
	l.Logger.Error(fmt.Sprintf(format, v...), "component", "resty")
}

// Warnf 打印warn级别日志
func (l *RestyLogger) Warnf(format string, v ...any) {
	l.Logger.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

// Debugf 打印debug级别日志
func (l *RestyLogger) Debugf(format string, v ...any) {
	l.Logger.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
