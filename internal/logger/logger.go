package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogConfig struct {
	Level      string `yaml:"level"` // debug, info, warn, error, fatal
	Console    bool   `yaml:"console"`
	LogToFile  bool   `yaml:"log_to_file"`
	LogToJSON  bool   `yaml:"log_to_json"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`    // megabytes
	MaxBackups int    `yaml:"max_backups"` // number of backups
	MaxAge     int    `yaml:"max_age"`     // days
	Compress   bool   `yaml:"compress"`    // compress old log files
}

// DefaultLogConfig logs info and above to the console only.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Console:    true,
		LogToFile:  false,
		LogToJSON:  false,
		FilePath:   "relay.log",
		MaxSize:    10, // 10 MB
		MaxBackups: 5,  // 5 backups
		MaxAge:     30, // 30 days
		Compress:   true,
	}
}

func InitLogger(config LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	var writers []io.Writer
	if config.Console {
		if config.LogToJSON {
			writers = append(writers, os.Stdout)
		} else {
			writers = append(writers, consoleWriter(os.Stdout))
		}
	}
	if config.LogToFile && config.FilePath != "" {
		fileWriter := &lumberjack.Logger{
			Filename:   config.FilePath,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
		writers = append(writers, fileWriter)
	}
	var output io.Writer
	switch len(writers) {
	case 0:
		output = io.Discard
	case 1:
		output = writers[0]
	default:
		output = io.MultiWriter(writers...)
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		PartsOrder: []string{
			zerolog.TimestampFieldName,
			zerolog.LevelFieldName,
			"component",
			zerolog.MessageFieldName,
		},
		FieldsExclude: []string{"component"},
		FormatLevel: func(i interface{}) string {
			level := strings.ToUpper(fmt.Sprintf("%s", i))
			badge := "[ " + fmt.Sprintf("%-5s", level) + " ]"
			switch level {
			case "DEBUG":
				return "\033[36m" + badge + "\033[0m"
			case "INFO":
				return "\033[32m" + badge + "\033[0m"
			case "WARN":
				return "\033[33m" + badge + "\033[0m"
			case "ERROR":
				return "\033[31m" + badge + "\033[0m"
			case "FATAL":
				return "\033[35m" + badge + "\033[0m"
			default:
				return "\033[37m" + badge + "\033[0m"
			}
		},
		FormatTimestamp: func(i interface{}) string {
			return fmt.Sprintf("\033[90m%s\033[0m", i)
		},
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("\033[1m%s\033[0m", i)
		},
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("\033[34m%s\033[0m: ", i)
		},
		FormatFieldValue: func(i interface{}) string {
			return fmt.Sprintf("\033[37m%s\033[0m", i)
		},
		FormatErrFieldName: func(i interface{}) string {
			return fmt.Sprintf("\033[31m%s\033[0m: ", i)
		},
		FormatErrFieldValue: func(i interface{}) string {
			return fmt.Sprintf("\033[31m%s\033[0m", i)
		},
	}
}

type Logger struct {
	logger zerolog.Logger
}

// NewLogger returns a logger tagged with component.
func NewLogger(component string) *Logger {
	return &Logger{
		logger: log.With().Str("component", component).Logger(),
	}
}

// Nop returns a logger that discards everything. Tests use it.
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{
		logger: l.logger.With().Interface(key, value).Logger(),
	}
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{
		logger: ctx.Logger(),
	}
}

func (l *Logger) Debug(msg string)                       { l.logger.Debug().Msg(msg) }
func (l *Logger) Debugf(format string, v ...interface{}) { l.logger.Debug().Msgf(format, v...) }
func (l *Logger) Info(msg string)                        { l.logger.Info().Msg(msg) }
func (l *Logger) Infof(format string, v ...interface{})  { l.logger.Info().Msgf(format, v...) }
func (l *Logger) Warn(msg string)                        { l.logger.Warn().Msg(msg) }
func (l *Logger) Warnf(format string, v ...interface{})  { l.logger.Warn().Msgf(format, v...) }
func (l *Logger) Error(msg string)                       { l.logger.Error().Msg(msg) }
func (l *Logger) Errorf(format string, v ...interface{}) { l.logger.Error().Msgf(format, v...) }
func (l *Logger) Fatal(msg string)                       { l.logger.Fatal().Msg(msg) }
func (l *Logger) Fatalf(format string, v ...interface{}) { l.logger.Fatal().Msgf(format, v...) }

// LogEvent writes a relay lifecycle event. Known events get a readable
// message; anything else falls back to the event name with underscores
// replaced.
func (l *Logger) LogEvent(level string, event string, clientID string, detail string) {
	evt := l.logger.With().Str("event", event)
	if clientID != "" {
		evt = evt.Str("client", clientID)
	}
	if detail != "" {
		evt = evt.Str("detail", detail)
	}
	logger := evt.Logger()

	var message string
	switch event {
	case "client_connected":
		message = fmt.Sprintf("\033[96m%s\033[0m connected", orDefault(clientID, "client"))
	case "client_disconnected":
		message = fmt.Sprintf("\033[96m%s\033[0m disconnected", orDefault(clientID, "client"))
	case "subscribed":
		message = fmt.Sprintf("\033[96m%s\033[0m subscribed to \033[93m%s\033[0m", orDefault(clientID, "client"), detail)
	case "send_failed":
		message = fmt.Sprintf("dropping \033[96m%s\033[0m: %s", orDefault(clientID, "client"), detail)
		if level == "info" {
			level = "warn"
		}
	case "read_error":
		message = fmt.Sprintf("ERROR: \033[31m%s\033[0m", orDefault(detail, "read error occurred"))
		level = "error"
	default:
		message = strings.ReplaceAll(event, "_", " ")
		if detail != "" {
			message = fmt.Sprintf("%s: %s", message, detail)
		}
	}

	switch level {
	case "debug":
		logger.Debug().Msg(message)
	case "warn":
		logger.Warn().Msg(message)
	case "error":
		logger.Error().Msg(message)
	case "fatal":
		logger.Fatal().Msg(message)
	default:
		logger.Info().Msg(message)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
