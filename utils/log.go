package utils

/*
A wrapper of the standard library logger, supports log level and module tags
*/

import (
	"fmt"
	"log"
	"os"
)

const (
	LogErrorLevel int = 0
	LogWarnLevel  int = 1
	LogInfoLevel  int = 2
	LogDebugLevel int = 3

	logCallDepth = 3
)

var (
	stdout    = log.New(os.Stdout, "", log.LstdFlags|log.Lshortfile)
	stdoutLog = NewLogger("")
	logLevel  = LogDebugLevel
)

func SetLogLevel(level int) {
	logLevel = level
}

func GetLogLevel() int {
	return logLevel
}

func GetStdoutLog() *Logger {
	return stdoutLog
}

type Logger struct {
	*log.Logger
	tag string
}

func NewLogger(tag string) *Logger {
	if len(tag) != 0 {
		tag = "[" + tag + "]"
	}
	return &Logger{
		Logger: stdout,
		tag:    tag,
	}
}

func (l *Logger) output(level string, format string, v ...interface{}) {
	l.Logger.Output(logCallDepth, fmt.Sprintf(l.tag+level+format, v...))
}

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.output("[Fatal] ", format, v...)
	os.Exit(1)
}

func (l *Logger) Fatalln(v ...interface{}) {
	l.output("[Fatal] ", "%v\n", v...)
	os.Exit(1)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.output("[Error] ", format, v...)
}

func (l *Logger) Errorln(v ...interface{}) {
	l.output("[Error] ", "%v\n", v...)
}

func (l *Logger) Warn(format string, v ...interface{}) {
	if LogWarnLevel <= logLevel {
		l.output("[Warn] ", format, v...)
	}
}

func (l *Logger) Warnln(v ...interface{}) {
	if LogWarnLevel <= logLevel {
		l.output("[Warn] ", "%v\n", v...)
	}
}

func (l *Logger) Info(format string, v ...interface{}) {
	if LogInfoLevel <= logLevel {
		l.output("[Info] ", format, v...)
	}
}

func (l *Logger) Infoln(v ...interface{}) {
	if LogInfoLevel <= logLevel {
		l.output("[Info] ", "%v\n", v...)
	}
}

func (l *Logger) Debug(format string, v ...interface{}) {
	if LogDebugLevel <= logLevel {
		l.output("[Debug] ", format, v...)
	}
}

func (l *Logger) Debugln(v ...interface{}) {
	if LogDebugLevel <= logLevel {
		l.output("[Debug] ", "%v\n", v...)
	}
}
