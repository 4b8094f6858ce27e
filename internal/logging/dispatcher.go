package logging

import "github.com/rs/zerolog"

// DispatcherLogger lets the command dispatcher log through zerolog. Records
// carry component=dispatcher; odd trailing keys are dropped by zerolog.
type DispatcherLogger struct {
	z zerolog.Logger
}

func NewDispatcherLogger(z zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{z: z.With().Str("component", "dispatcher").Logger()}
}

func (l *DispatcherLogger) Debug(msg string, kv ...any) { l.z.Debug().Fields(kv).Msg(msg) }
func (l *DispatcherLogger) Info(msg string, kv ...any)  { l.z.Info().Fields(kv).Msg(msg) }
func (l *DispatcherLogger) Warn(msg string, kv ...any)  { l.z.Warn().Fields(kv).Msg(msg) }
func (l *DispatcherLogger) Error(msg string, kv ...any) { l.z.Error().Fields(kv).Msg(msg) }
