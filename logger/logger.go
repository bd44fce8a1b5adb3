// Package logger 封装 zerolog，为渲染流程与命令行提供结构化日志。
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options 描述创建日志器时的配置。
type Options struct {
	Level         string
	HumanReadable bool
	// Writer 为空时写入 os.Stderr，避免与写到标准输出的渲染结果混在一起。
	Writer io.Writer
}

// Logger 是对 zerolog 的精简包装；nil *Logger 的所有方法都是空操作。
type Logger struct {
	base zerolog.Logger
}

// New 按 Options 创建日志器。
func New(opts Options) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, err
		}
		level = parsed
	}

	output := writer
	if opts.HumanReadable {
		console := zerolog.NewConsoleWriter()
		console.Out = writer
		console.TimeFormat = time.RFC3339
		output = console
	}

	return &Logger{base: zerolog.New(output).Level(level).With().Timestamp().Logger()}, nil
}

// Nop 返回丢弃全部输出的日志器。
func Nop() *Logger {
	return &Logger{base: zerolog.Nop()}
}

// WithFields 返回总是携带给定字段的派生日志器。
func (l *Logger) WithFields(fields map[string]any) *Logger {
	if l == nil {
		return nil
	}
	builder := l.base.With()
	for key, value := range fields {
		builder = builder.Interface(key, value)
	}
	return &Logger{base: builder.Logger()}
}

// With 是单个字段的 WithFields。
func (l *Logger) With(key string, value any) *Logger {
	return l.WithFields(map[string]any{key: value})
}

// Enabled 报告 level 级别的日志是否会被输出。
func (l *Logger) Enabled(level zerolog.Level) bool {
	if l == nil {
		return false
	}
	return l.base.GetLevel() <= level
}

func (l *Logger) Info(msg string) {
	if l == nil {
		return
	}
	l.base.Info().Msg(msg)
}

func (l *Logger) Debug(msg string) {
	if l == nil {
		return
	}
	l.base.Debug().Msg(msg)
}

func (l *Logger) Warn(msg string) {
	if l == nil {
		return
	}
	l.base.Warn().Msg(msg)
}

// Error 记录错误日志，err 不为空时附带 error 字段。
func (l *Logger) Error(err error, msg string) {
	if l == nil {
		return
	}
	event := l.base.Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(msg)
}
