package internal

// Internal logging utility.

import (
	"io"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Logger struct {
	logLevel atomic.Int32
	level    zap.AtomicLevel
	sugar    atomic.Pointer[zap.SugaredLogger]
}

type LogLevel int

const (
	// error levels that should almost always be printed
	LevelFatal LogLevel = iota // error that must stop the program (panics)
	LevelError                 // error that does not need to stop execution

	// debugging levels, okay to disable
	LevelWarn // something may be wrong, but not necessarily an error
	LevelInfo // nothing wrong, informational only

	// Production code by default only shows warnings and above.
	LogLevelDefault = LevelWarn

	// min, max levels for setting print level
	LevelMin = LevelFatal
	LevelMax = LevelInfo
)

var (
	levelToZap = []zapcore.Level{
		zapcore.FatalLevel,
		zapcore.ErrorLevel,
		zapcore.WarnLevel,
		zapcore.InfoLevel,
	}

	defaultLogger = NewLogger()
)

// Default returns the logger shared by every package of the module.
func Default() *Logger {
	return defaultLogger
}

func NewLogger() *Logger {
	l := &Logger{level: zap.NewAtomicLevelAt(levelToZap[LogLevelDefault])}
	l.logLevel.Store(int32(LogLevelDefault))
	l.setSink(zapcore.Lock(os.Stderr))
	return l
}

func (l *Logger) setSink(ws zapcore.WriteSyncer) {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), ws, l.level)
	zl := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.FatalLevel))
	l.sugar.Store(zl.Sugar())
}

// SetOutput sends subsequent log lines to w.
func (l *Logger) SetOutput(w io.Writer) {
	l.setSink(zapcore.Lock(zapcore.AddSync(w)))
}

// SetFile sends subsequent log lines to a size-rotated file.
func (l *Logger) SetFile(path string, maxSizeMB, maxBackups int) {
	l.SetOutput(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		Compress:   true,
	})
}

func (l *Logger) LogLevel() LogLevel {
	return LogLevel(l.logLevel.Load())
}

// SetLogLevel returns the old level
func (l *Logger) SetLogLevel(level LogLevel) LogLevel {
	if level < LevelMin || level > LevelMax {
		panic("trying to set invalid log level")
	}
	old := LogLevel(l.logLevel.Swap(int32(level)))
	l.level.SetLevel(levelToZap[level])
	return old
}

// Sync flushes buffered log lines.
func (l *Logger) Sync() error {
	return l.sugar.Load().Sync()
}

func (l *Logger) Info(v ...any)                 { l.sugar.Load().Infoln(v...) }
func (l *Logger) Infof(format string, v ...any) { l.sugar.Load().Infof(format, v...) }

func (l *Logger) Warn(v ...any)                 { l.sugar.Load().Warnln(v...) }
func (l *Logger) Warnf(format string, v ...any) { l.sugar.Load().Warnf(format, v...) }

func (l *Logger) Error(v ...any)                 { l.sugar.Load().Errorln(v...) }
func (l *Logger) Errorf(format string, v ...any) { l.sugar.Load().Errorf(format, v...) }

func (l *Logger) Fatal(v ...any)                 { l.sugar.Load().Fatalln(v...) }
func (l *Logger) Fatalf(format string, v ...any) { l.sugar.Load().Fatalf(format, v...) }
