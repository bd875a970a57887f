package server

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Log 是全局可用的 SugaredLogger；InitLogger 之前为 no-op，测试中无需初始化
var Log = zap.NewNop().Sugar()

// 日志文件滚动策略：10MB 每文件，保留3个备份，最多7天
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 7
)

// InitLogger 将日志写入 filePath（按大小滚动），level 为 debug/info/warn/error，空串视为 debug
func InitLogger(filePath, level string) error {
	lvl := zapcore.DebugLevel
	if level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(level); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
	})
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), sink, lvl)
	// 房间 id 等字段由调用方写进消息，这里只附加调用位置和进程级字段
	Log = zap.New(core, zap.AddCaller()).Named("conquerors").Sugar()
	return nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

// SyncLogger 清理和同步缓冲
func SyncLogger() {
	_ = Log.Sync()
}
