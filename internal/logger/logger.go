// Package logger builds the prefixed *log.Logger values handed to each
// component. When a log file is configured, output goes to both stderr and a
// size-rotated file.
package logger

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Quiet      bool
}

// Factory hands out loggers sharing one output.
type Factory struct {
	out    io.Writer
	closer io.Closer
}

func New(opts Options) *Factory {
	var out io.Writer = os.Stderr
	if opts.Quiet {
		out = io.Discard
	}

	f := &Factory{out: out}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		f.out = io.MultiWriter(out, rotator)
		f.closer = rotator
	}

	return f
}

// For returns a logger whose lines start with "[component] ".
func (f *Factory) For(component string) *log.Logger {
	return log.New(f.out, "["+component+"] ", log.LstdFlags)
}

func (f *Factory) Close() error {
	if f.closer == nil {
		return nil
	}
	return f.closer.Close()
}
