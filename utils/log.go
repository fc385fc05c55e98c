// Package utils provides utilities that is used in all sub-packages in xrelay
package utils

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	Log_debug = iota
	Log_info
	Log_warning
	Log_error
	Log_fatal

	DefaultLL = Log_info
)

// LogLevel 值越小越唠叨, 见 Log_ 开头的常量; 默认 info.
//
// LogOutFileName 若不为空, 则日志会额外写入该文件 (由 lumberjack 负责切割).
var (
	LogLevel       int
	LogOutFileName string
	ZapLogger      *zap.Logger
)

func init() {
	// 保证在 InitLog 被调用之前使用 CanLogXxx 也不会 panic
	ZapLogger = zap.NewNop()
}

func InitLog() {
	atomicLevel := zap.NewAtomicLevel()
	atomicLevel.SetLevel(zapcore.Level(LogLevel - 1))

	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:  "msg",
		LevelKey:    "level",
		TimeKey:     "time",
		EncodeLevel: zapcore.CapitalColorLevelEncoder,
		EncodeTime:  zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000"),
		EncodeName:  zapcore.FullNameEncoder,
		LineEnding:  zapcore.DefaultLineEnding,
	}), zapcore.AddSync(os.Stdout), atomicLevel)

	cores := []zapcore.Core{consoleCore}

	if LogOutFileName != "" {
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   LogOutFileName,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})

		fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(zapcore.EncoderConfig{
			MessageKey:  "msg",
			LevelKey:    "level",
			TimeKey:     "time",
			EncodeLevel: zapcore.CapitalLevelEncoder,
			EncodeTime:  zapcore.ISO8601TimeEncoder,
			LineEnding:  zapcore.DefaultLineEnding,
		}), fileWriter, atomicLevel)

		cores = append(cores, fileCore)
	}

	ZapLogger = zap.New(zapcore.NewTee(cores...))
	if ce := CanLogDebug("log initialized"); ce != nil {
		ce.Write(zap.String("file", LogOutFileName))
	}
}

func canLogLevel(l zapcore.Level, msg string) *zapcore.CheckedEntry {
	return ZapLogger.Check(l, msg)
}

func CanLogErr(msg string) *zapcore.CheckedEntry {
	return canLogLevel(zap.ErrorLevel, msg)
}

func CanLogInfo(msg string) *zapcore.CheckedEntry {
	return canLogLevel(zap.InfoLevel, msg)
}

func CanLogWarn(msg string) *zapcore.CheckedEntry {
	return canLogLevel(zap.WarnLevel, msg)
}

func CanLogDebug(msg string) *zapcore.CheckedEntry {
	return canLogLevel(zap.DebugLevel, msg)
}
