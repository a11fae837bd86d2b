package logger

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	CoreLogFileName = "core.log"
	GinLogFileName  = "gin.log"
)

const (
	encodeTimeFormat = "2006-01-02 15:04:05.000"
)

type LogRotateConfig struct {
	MaxSize    int
	MaxAge     int
	MaxBackups int
}

type logInitMeta struct {
	fileName             string
	setSugaredLoggerFunc func(*zap.SugaredLogger)
}

var fileLoggerMeta = []logInitMeta{
	{
		fileName:             CoreLogFileName,
		setSugaredLoggerFunc: SetCoreLogger,
	},
	{
		fileName:             GinLogFileName,
		setSugaredLoggerFunc: SetGinLogger,
	},
}

// InitServer replaces the default loggers with console or rotated file loggers.
// Verbose switches every logger to debug level once they are built.
func InitServer(verbose, console bool, dir string, rotateConfig LogRotateConfig) error {
	var err error
	if console {
		err = createConsoleLogger()
	} else {
		err = createFileLogger(fileLoggerMeta, filepath.Join(dir, "rop-server"), rotateConfig)
	}
	if err != nil {
		return err
	}

	if verbose {
		SetLevel(zap.DebugLevel)
	}

	return nil
}

func createConsoleLogger() error {
	levels = nil
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)

	log, err := config.Build(zap.AddCaller(), zap.AddStacktrace(zap.WarnLevel), zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build console logger: %w", err)
	}

	sugar := log.Sugar()
	SetCoreLogger(sugar)
	SetGinLogger(sugar)
	levels = append(levels, config.Level)
	return nil
}

func createFileLogger(meta []logInitMeta, logDir string, rotateConfig LogRotateConfig) error {
	levels = nil
	for _, m := range meta {
		log, level := CreateLogger(filepath.Join(logDir, m.fileName), rotateConfig)
		m.setSugaredLoggerFunc(log.Sugar())
		levels = append(levels, level)
	}

	return nil
}

// CreateLogger builds a json logger writing to a lumberjack rotated file.
func CreateLogger(filePath string, rotateConfig LogRotateConfig) (*zap.Logger, zap.AtomicLevel) {
	syncer := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    rotateConfig.MaxSize,
		MaxAge:     rotateConfig.MaxAge,
		MaxBackups: rotateConfig.MaxBackups,
		LocalTime:  true,
	})

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(encodeTimeFormat)

	level := zap.NewAtomicLevelAt(zap.InfoLevel)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), syncer, level)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.WarnLevel), zap.AddCallerSkip(1)), level
}
