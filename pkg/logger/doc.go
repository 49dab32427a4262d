// Package logger builds the process-wide slog logger. Production
// environments log JSON, everything else logs text. The level lives in a
// slog.LevelVar so it can be changed while the process runs.
package logger
