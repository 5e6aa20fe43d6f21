package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger 结构化日志接口，kv 为成对的键值
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Err(err error, msg string, kv ...any)
	With(kv ...any) Logger
}

// Options 日志配置
type Options struct {
	Level      string
	Writers    []string // console / file
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type zlog struct {
	l zerolog.Logger
}

// New 按配置创建日志实例
func New(opts Options) Logger {
	var writers []io.Writer
	for _, w := range opts.Writers {
		switch strings.ToLower(w) {
		case "console":
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
		case "file":
			if opts.File == "" {
				continue
			}
			writers = append(writers, &lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    opts.MaxSizeMB,
				MaxBackups: opts.MaxBackups,
				MaxAge:     opts.MaxAgeDays,
			})
		}
	}
	if len(writers) == 0 {
		return NewNop()
	}
	return NewWithWriter(zerolog.MultiLevelWriter(writers...), opts.Level)
}

// NewWithWriter 输出到指定 writer 的日志实例
func NewWithWriter(w io.Writer, level string) Logger {
	return &zlog{l: zerolog.New(w).Level(parseLevel(level)).With().Timestamp().Logger()}
}

// NewNop 丢弃所有输出
func NewNop() Logger {
	return &zlog{l: zerolog.Nop()}
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func (z *zlog) Debug(msg string, kv ...any) { z.l.Debug().Fields(kv).Msg(msg) }

func (z *zlog) Info(msg string, kv ...any) { z.l.Info().Fields(kv).Msg(msg) }

func (z *zlog) Warn(msg string, kv ...any) { z.l.Warn().Fields(kv).Msg(msg) }

func (z *zlog) Error(msg string, kv ...any) { z.l.Error().Fields(kv).Msg(msg) }

func (z *zlog) Err(err error, msg string, kv ...any) {
	z.l.Error().Err(err).Fields(kv).Msg(msg)
}

func (z *zlog) With(kv ...any) Logger {
	return &zlog{l: z.l.With().Fields(kv).Logger()}
}
