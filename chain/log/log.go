// Package log provides the module-scoped contextual logger used throughout
// the chain packages. It follows the same shape as klaytn's log package:
// a package obtains a logger with NewModuleLogger(module) and narrows it
// with NewWith(key, value, ...) as it descends into a request.
package log

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Module identifies the subsystem a logger belongs to. Kept as a string
// so new packages can mint their own without touching this file.
type Module string

const (
	StorageDatabase Module = "storage/database"
	Trie            Module = "chain/trie"
	UTXO            Module = "chain/utxo"
	Liveness        Module = "chain/liveness"
	Slashing        Module = "chain/slashing"
	Enclave         Module = "chain/enclave"
	TxValidate      Module = "chain/tx/validate"
	ABCI            Module = "chain/abci"
	Validator       Module = "chain/validator"
	Coin            Module = "chain/coin"
	Merkle          Module = "chain/merkle"
	Cmd             Module = "cmd"
)

var base *zap.SugaredLogger

func init() {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		// zap construction should never fail with this config; if it does,
		// fall back to a bare stderr writer rather than panicking on boot.
		os.Stderr.WriteString("log: failed to build zap logger: " + err.Error() + "\n")
		l = zap.NewNop()
	}
	base = l.Sugar()
}

// Logger is a contextual logger; NewWith narrows it with additional fields.
type Logger interface {
	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	Crit(msg string, ctx ...interface{})
	NewWith(ctx ...interface{}) Logger
}

type logger struct {
	z *zap.SugaredLogger
}

// NewModuleLogger returns the root logger for a module.
func NewModuleLogger(m Module) Logger {
	return &logger{z: base.With("module", string(m))}
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.z.Debugw(msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.z.Debugw(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.z.Infow(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.z.Warnw(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.z.Errorw(msg, ctx...) }

// Crit logs at fatal level and terminates the process. Only the ABCI
// handler and storage layer should call this, per the fatal-error taxonomy.
func (l *logger) Crit(msg string, ctx ...interface{}) { l.z.Fatalw(msg, ctx...) }

func (l *logger) NewWith(ctx ...interface{}) Logger {
	return &logger{z: l.z.With(ctx...)}
}
