package logger

import (
	"go.uber.org/zap"
)

// HTTP

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Route(v string) zap.Field     { return zap.String("route", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func Device(v string) zap.Field    { return zap.String("device", v) }

// Auth

func UserID(v string) zap.Field    { return zap.String("user_id", v) }
func SessionID(v string) zap.Field { return zap.String("session_id", v) }

// Op names the operation being performed, e.g. "auth.refresh".
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer names the architectural layer that logged, e.g. "service" or "repo".
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err attaches an error; nil errors produce a skipped field.
func Err(err error) zap.Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.Error(err)
}
