package lib

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Logger holds the logging state for one run: temp dir, main log, error log,
// and the non-fatal error count. Records are zerolog JSON lines tagged with
// the run ID. Safe for concurrent use.
type Logger struct {
	tempDir   string
	mainPath  string
	errorPath string
	mainFile  *os.File
	errorFile *os.File
	runID     string
	main      zerolog.Logger
	errs      zerolog.Logger
	nonFatal  int
	mu        sync.Mutex
}

// NewLogger creates a temp dir and opens main and error log files named
// fr-YYYYMMDD-<run>-main.log and fr-YYYYMMDD-<run>-errors.log. Records below
// level are dropped from the main log; the error log takes every LogError.
func NewLogger(level string) (*Logger, error) {
	tmp, err := os.MkdirTemp("", "fr-*")
	if err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	date := time.Now().Format("20060102")
	base := filepath.Join(tmp, fmt.Sprintf("fr-%s-%s", date, runID[:8]))
	mainPath := base + "-main.log"
	errorPath := base + "-errors.log"
	mainFile, err := os.Create(mainPath)
	if err != nil {
		os.RemoveAll(tmp)
		return nil, err
	}
	errorFile, err := os.Create(errorPath)
	if err != nil {
		mainFile.Close()
		os.RemoveAll(tmp)
		return nil, err
	}
	mainWriter := zerolog.SyncWriter(mainFile)
	errorWriter := zerolog.SyncWriter(errorFile)
	return &Logger{
		tempDir:   tmp,
		mainPath:  mainPath,
		errorPath: errorPath,
		mainFile:  mainFile,
		errorFile: errorFile,
		runID:     runID,
		main:      newZerolog(mainWriter, runID).Level(ParseLevel(level)),
		errs:      newZerolog(zerolog.MultiLevelWriter(mainWriter, errorWriter), runID),
	}, nil
}

// NewWriterLogger logs to w only (no files, no temp dir). Used by library
// callers and tests that want records in a buffer or on stderr.
func NewWriterLogger(w io.Writer, level string) *Logger {
	runID := uuid.NewString()
	writer := zerolog.SyncWriter(w)
	return &Logger{
		runID: runID,
		main:  newZerolog(writer, runID).Level(ParseLevel(level)),
		errs:  newZerolog(writer, runID),
	}
}

// NopLogger discards every record but still counts LogError calls.
func NopLogger() *Logger {
	return &Logger{main: zerolog.Nop(), errs: zerolog.Nop()}
}

func newZerolog(w io.Writer, runID string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("run_id", runID).Logger()
}

// ParseLevel converts a level name to zerolog.Level; unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

func (logger *Logger) TempDir() string { return logger.tempDir }

func (logger *Logger) RunID() string { return logger.runID }

// Zerolog returns the main-log zerolog instance for components that take one.
func (logger *Logger) Zerolog() zerolog.Logger {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	return logger.main
}

// Log writes msg to the main log at info level.
func (logger *Logger) Log(msg string) {
	zl := logger.Zerolog()
	zl.Info().Msg(msg)
}

func (logger *Logger) Debug() *zerolog.Event {
	zl := logger.Zerolog()
	return zl.Debug()
}

func (logger *Logger) Info() *zerolog.Event {
	zl := logger.Zerolog()
	return zl.Info()
}

func (logger *Logger) Warn() *zerolog.Event {
	zl := logger.Zerolog()
	return zl.Warn()
}

// LogError writes err to both logs and increments the non-fatal count.
func (logger *Logger) LogError(err error) {
	logger.mu.Lock()
	logger.nonFatal++
	errs := logger.errs
	logger.mu.Unlock()
	errs.Error().Err(err).Msg("error")
}

// PrintLogPaths prints the two log file paths to w. Skipped when stdout is not a TTY.
func (logger *Logger) PrintLogPaths(w io.Writer) {
	if !IsTTY(os.Stdout) {
		return
	}
	logger.mu.Lock()
	mainPath := logger.mainPath
	errorPath := logger.errorPath
	logger.mu.Unlock()
	if mainPath != "" {
		fmt.Fprintln(w, "Main log:", mainPath)
	}
	if errorPath != "" {
		fmt.Fprintln(w, "Error log:", errorPath)
	}
}

func (logger *Logger) NonFatalCount() int {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	return logger.nonFatal
}

// Close flushes and closes the log files. Later records are discarded.
func (logger *Logger) Close() error {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.main = zerolog.Nop()
	logger.errs = zerolog.Nop()
	var closeError error
	if logger.mainFile != nil {
		if closeErr := logger.mainFile.Close(); closeErr != nil && closeError == nil {
			closeError = closeErr
		}
		logger.mainFile = nil
	}
	if logger.errorFile != nil {
		if closeErr := logger.errorFile.Close(); closeErr != nil && closeError == nil {
			closeError = closeErr
		}
		logger.errorFile = nil
	}
	return closeError
}
