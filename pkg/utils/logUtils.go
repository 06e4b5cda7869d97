package utils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v2"
)

const (
	buildInfoFilename = "build-info.yaml"
	buildInfoPrefix   = "build."
	modulePath        = "github.com/lucasdreger/microsoft-teams-apps-icebreaker"
)

type BuildInfoMode int

const (
	BuildInfoNever BuildInfoMode = iota
	BuildInfoOnce
	BuildInfoAlways
)

type LoggerConfig struct {
	LogToFile        bool   `json:"log_to_file" yaml:"log_to_file"`
	Filename         string `json:"filename" yaml:"filename"`
	MaxSize          int    `json:"max_size" yaml:"max_size"`
	MaxAge           int    `json:"max_age" yaml:"max_age"`
	MaxBackups       int    `json:"max_backups" yaml:"max_backups"`
	LogLevel         string `json:"log_level" yaml:"log_level"`
	IncludeSrc       bool   `json:"include_src" yaml:"include_src"`
	CompressOldLogs  bool   `json:"compress_old_logs" yaml:"compress_old_logs"`
	IncludeBuildInfo string `json:"include_build_info" yaml:"include_build_info"` // never, always, once
}

type buildInfoHandler struct {
	slog.Handler
	attrs []slog.Attr
}

func (h *buildInfoHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.attrs...)
	return h.Handler.Handle(ctx, r)
}

func (h *buildInfoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &buildInfoHandler{Handler: h.Handler.WithAttrs(attrs), attrs: h.attrs}
}

func (h *buildInfoHandler) WithGroup(name string) slog.Handler {
	return &buildInfoHandler{Handler: h.Handler.WithGroup(name), attrs: h.attrs}
}

// InitLogger sets up the default slog logger writing JSON to stdout and, if configured, to a
// rotated log file.
func InitLogger(conf LoggerConfig) {
	slog.SetDefault(NewLogger(conf, os.Stdout))
}

// NewLogger builds the logger InitLogger installs, writing to out and the optional log file.
func NewLogger(conf LoggerConfig, out io.Writer) *slog.Logger {
	mode := getBuildInfoMode(conf.IncludeBuildInfo)

	buildInfoAttrs := []slog.Attr{}
	if mode != BuildInfoNever {
		var err error
		buildInfoAttrs, err = loadBuildInfoAsSlogAttrs(buildInfoFilename, buildInfoPrefix)
		if err != nil {
			panic("Error reading build info: " + err.Error())
		}
	}

	opts := &slog.HandlerOptions{
		Level:     logLevelFromString(conf.LogLevel),
		AddSource: conf.IncludeSrc,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				source, _ := a.Value.Any().(*slog.Source)
				if source != nil {
					source.File = filepath.Base(source.File)
					source.Function = strings.TrimPrefix(source.Function, modulePath)
				}
			}
			return a
		},
	}

	w := out
	if conf.LogToFile && conf.Filename != "" {
		logTarget := &lumberjack.Logger{
			Filename:   conf.Filename,
			MaxSize:    conf.MaxSize, // megabytes
			MaxAge:     conf.MaxAge,  // days
			MaxBackups: conf.MaxBackups,
			Compress:   conf.CompressOldLogs,
		}
		w = io.MultiWriter(out, logTarget)
	}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if mode == BuildInfoAlways && len(buildInfoAttrs) > 0 {
		handler = &buildInfoHandler{Handler: handler, attrs: buildInfoAttrs}
	}
	logger := slog.New(handler)

	if mode == BuildInfoOnce {
		attrs := make([]any, len(buildInfoAttrs))
		for i, attr := range buildInfoAttrs {
			attrs[i] = attr
		}
		logger.Info("Build info", attrs...)
	}
	return logger
}

func logLevelFromString(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getBuildInfoMode(includeBuildInfo string) BuildInfoMode {
	switch includeBuildInfo {
	case "always":
		return BuildInfoAlways
	case "once":
		return BuildInfoOnce
	default:
		return BuildInfoNever
	}
}

func loadBuildInfoAsSlogAttrs(filename, prefix string) ([]slog.Attr, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	buildInfo := make(map[string]string)
	if err := yaml.Unmarshal(data, &buildInfo); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	attrs := make([]slog.Attr, 0, len(buildInfo))
	for k, v := range buildInfo {
		attrs = append(attrs, slog.String(prefix+k, v))
	}
	return attrs, nil
}
