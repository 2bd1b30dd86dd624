package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger define a interface para logging estruturado.
// A aplicação (Handler, Service) deve depender apenas desta interface.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error)
	Fatal(msg string, err error)
}

// ZapLogger é a implementação concreta da interface Logger sobre o zap.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

// NewLogger cria o logger JSON usado pelo servidor. Níveis desconhecidos caem em "info".
// Esta função é chamada no main.go.
func NewLogger(level string) Logger {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.DisableStacktrace = true

	z, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		z = zap.NewNop()
	}
	return &ZapLogger{sugar: z.Sugar()}
}

// NewNop devolve um logger que descarta tudo (útil em testes).
func NewNop() Logger {
	return &ZapLogger{sugar: zap.NewNop().Sugar()}
}

// Sync descarrega buffers pendentes; chamado no encerramento.
func (l *ZapLogger) Sync() {
	_ = l.sugar.Sync()
}

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.sugar.Debugw(msg, keysAndValues(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.sugar.Infow(msg, keysAndValues(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.sugar.Warnw(msg, keysAndValues(fields)...)
}

func (l *ZapLogger) Error(msg string, err error) {
	l.sugar.Errorw(msg, zap.Error(err))
}

func (l *ZapLogger) Fatal(msg string, err error) {
	l.sugar.Fatalw(msg, zap.Error(err))
}

// Campos com dados pessoais nunca vão em claro para o log.
var sensitiveKeys = map[string]bool{
	"email": true,
	"phone": true,
}

func keysAndValues(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		if sensitiveKeys[strings.ToLower(k)] {
			v = mask(v)
		}
		kv = append(kv, k, v)
	}
	return kv
}

func mask(v interface{}) string {
	s, ok := v.(string)
	if !ok || len(s) <= 2 {
		return "***"
	}
	return s[:2] + "***"
}
