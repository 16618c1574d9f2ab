// Package logging provides structured logging for lifedecomp.
//
// It wraps log/slog to write one JSON object per line, either to stderr or
// to a size-rotated file in the configured log directory.
//
// # Context Propagation
//
// Child loggers carry persistent attributes:
//
//	runLogger := logger.WithRun(runID).WithCommand("decompose")
//	runLogger.WithSelection("France", "Female").WithYear(2019).Info("built life table", "e0", 85.1)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"built life table","run_id":"...","command":"decompose","country":"France","sex":"Female","year":2019,"e0":85.1}
//
// # Log Rotation
//
//	logger, err := logging.NewLogger(afero.NewOsFs(), dir, "INFO", logging.RotationConfig{
//	    MaxSizeMB:  10,
//	    MaxBackups: 3,
//	    Compress:   true,
//	})
//
// Rotated files are named lifedecomp.log.1 (newest) to lifedecomp.log.N,
// with a .gz suffix when compression is enabled.
//
// # Reading Logs
//
// [ReadEntries] and [FilterEntries] load and narrow the active log file;
// [WriteText] renders entries for a terminal.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewLoggerTo] with a buffer to
// assert on it.
package logging
