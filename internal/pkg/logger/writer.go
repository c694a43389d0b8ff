package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap/zapcore"
)

// LogWriter 供 gorm logger 使用的 Printf 适配
type LogWriter struct {
	zapcore.WriteSyncer
}

func (l *LogWriter) Printf(format string, args ...interface{}) {
	_, _ = l.WriteSyncer.Write([]byte(fmt.Sprintf(format, args...) + "\n"))
	_ = l.WriteSyncer.Sync()
}

// GetWriter 获取日志 writer, 未初始化时写到标准输出
func GetWriter() *LogWriter {
	if logWriter == nil {
		return &LogWriter{zapcore.Lock(os.Stdout)}
	}
	return logWriter
}
