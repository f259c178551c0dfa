// Package logger provides leveled logging for the profilesync engine and CLI.
//
// The logger supports multiple verbosity levels controlled by command-line
// flags. Output is formatted with semantic prefixes and colors.
//
// # Verbosity Levels
//
// Logging behavior is controlled by two flags:
//
//   - --verbose: Shows info and warning messages
//   - --debug: Shows all messages including debug details
//
// Without flags, only warnings and errors are shown.
//
// # Usage
//
// Create a logger with the desired verbosity and pass it by value to the
// engine components:
//
//	log := logger.Logger{Verbose: verbose, Debug: debug}
//	log.Infof("Synced %d profile halves", count)
//
// Commands typically create a logger in their PersistentPreRun and pass it
// to the facade.
package logger
