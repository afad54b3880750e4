package backend

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// debugLogName is the append-only debug log kept under the user cache dir.
const debugLogName = "debug.log"

// cacheDirName is the subdirectory of the user cache dir this package owns.
const cacheDirName = "tabql"

// cacheDir returns the on-disk state directory, creating it if needed.
func cacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(base, cacheDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// NewDebugLogger opens the append-only debug log. Logging is an optional
// convenience: when the file cannot be opened, a nop logger is returned and
// no operation fails.
func NewDebugLogger() *zap.Logger {
	dir, err := cacheDir()
	if err != nil {
		return zap.NewNop()
	}
	f, err := os.OpenFile(filepath.Join(dir, debugLogName),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zap.NewNop()
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(enc),
		zapcore.Lock(f),
		zap.DebugLevel,
	)
	return zap.New(core)
}
