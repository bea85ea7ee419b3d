// internal/cmdutil/log.go
package cmdutil

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// consoleEncoder is a terse console format for humans watching stderr.
var consoleEncoder = zapcore.EncoderConfig{
	TimeKey:          "T",
	LevelKey:         "L",
	NameKey:          "N",
	CallerKey:        zapcore.OmitKey,
	FunctionKey:      zapcore.OmitKey,
	MessageKey:       "M",
	StacktraceKey:    zapcore.OmitKey,
	LineEnding:       zapcore.DefaultLineEnding,
	EncodeLevel:      zapcore.CapitalLevelEncoder,
	EncodeTime:       zapcore.TimeEncoderOfLayout("15:04:05.000"),
	EncodeDuration:   zapcore.StringDurationEncoder,
	EncodeName:       zapcore.FullNameEncoder,
	ConsoleSeparator: " ",
}

// Level picks the log level for the -v/-q flags. Quiet wins.
func Level(verbose, quiet bool) zapcore.Level {
	switch {
	case quiet:
		return zapcore.WarnLevel
	case verbose:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger returns a console logger writing to w.
func NewLogger(w io.Writer, verbose, quiet bool) *zap.Logger {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoder), zapcore.AddSync(w), Level(verbose, quiet))
	return zap.New(core).Named("phredavg")
}

func Warnf(dst io.Writer, quiet bool, format string, a ...any) {
	if quiet {
		return
	}
	_, _ = fmt.Fprintf(dst, "WARN: "+format+"\n", a...)
}
