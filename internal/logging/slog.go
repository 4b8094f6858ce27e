package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// console receives records when no log file could be opened. It is stderr
// because the CLI prints its results on stdout.
var console io.Writer = os.Stderr

const instrumentationName = "github.com/twinlayout/sceneedit"

// SlogManager owns the process logger: a text sink (file or console), the
// OTel bridge when a provider is given, and any extra sinks such as Graylog.
type SlogManager struct {
	logger   *slog.Logger
	provider *sdklog.LoggerProvider
	context  ContextProvider
	sinks    []slog.Handler
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts slog level names in any case plus "warning".
// Anything else is info.
func parseLevel(level string) slog.Level {
	s := strings.TrimSpace(level)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// WithContext makes records carry the attributes returned by cp, starting
// with the next Setup.
func (m *SlogManager) WithContext(cp ContextProvider) *SlogManager {
	m.context = cp
	return m
}

// AddSink registers an extra handler for the next Setup.
func (m *SlogManager) AddSink(h slog.Handler) *SlogManager {
	m.sinks = append(m.sinks, h)
	return m
}

// Setup (re)builds the logger. A nil file logs to the console; a nil
// provider disables the OTel bridge.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider) {
	m.provider = provider

	out := file
	if out == nil {
		out = console
	}
	text := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level:       parseLevel(level),
		ReplaceAttr: utcTime,
	})

	sinks := append([]slog.Handler{text}, m.sinks...)
	if provider != nil {
		sinks = append(sinks, otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider)))
	}

	var h slog.Handler = NewFanout(sinks...)
	if m.context != nil {
		h = NewSceneHandler(h, m.context)
	}
	m.logger = slog.New(h)
	m.logger.Debug("Logging initialized", "level", parseLevel(level).String(), "otel", provider != nil, "sinks", len(sinks))
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
	}
	return a
}

// Logger returns slog.Default until Setup has run.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes buffered OTel records to the exporter.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.ForceFlush(ctx)
}

// WriteLog logs data at the named level, tagged with the command or
// function that produced it. It is a no-op before Setup.
func (m *SlogManager) WriteLog(source, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "source", source)
}
