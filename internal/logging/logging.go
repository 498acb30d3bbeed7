package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the application logger. Unknown levels fall back to info.
func New(level string, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if strings.EqualFold(format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// Discard returns a logger that drops everything. Tests use it.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// GormWriter adapts a logrus entry to gorm's logger.Writer.
type GormWriter struct {
	Entry *logrus.Entry
}

func (writer GormWriter) Printf(format string, args ...interface{}) {
	writer.Entry.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// RequestWriter returns an io.Writer for the fiber access log, one info line per request.
func RequestWriter(logger *logrus.Logger) io.Writer {
	return requestWriter{entry: logger.WithField("component", "http")}
}

type requestWriter struct {
	entry *logrus.Entry
}

func (writer requestWriter) Write(p []byte) (int, error) {
	line := strings.TrimSpace(string(p))
	if line != "" {
		writer.entry.Info(line)
	}
	return len(p), nil
}
