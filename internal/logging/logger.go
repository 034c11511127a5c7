package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger
var runLogger *logrus.Logger

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
	})
	logger.SetLevel(logrus.InfoLevel)

	runLogger = logrus.New()
	runLogger.SetOutput(os.Stdout)
	runLogger.SetFormatter(runTextFormatter())
	runLogger.SetLevel(logrus.InfoLevel)
}

func runTextFormatter() *logrus.TextFormatter {
	return &logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "time",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "run_msg",
		},
	}
}

func GetLogger() *logrus.Logger {
	return logger
}

// GetRunLogger returns the logger used for per-run extractor diagnostics.
func GetRunLogger() *logrus.Logger {
	return runLogger
}

func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(logLevel)
	return nil
}

func SetRunLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	runLogger.SetLevel(logLevel)
	return nil
}

// SetFormat switches both loggers between "text" and "json" output.
func SetFormat(format string) error {
	switch format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		runLogger.SetFormatter(runTextFormatter())
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
		runLogger.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{logrus.FieldKeyMsg: "run_msg"},
		})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	return nil
}
