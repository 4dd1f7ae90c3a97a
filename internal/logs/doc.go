// Package logs reads the dated scummsync log files for the CLI "logs"
// command.
//
// Tail returns the last lines of a file plus the offset after them; passing
// that offset back with Follow set waits for new lines, which is how
// `scummsync logs --follow` streams a running launch from a second terminal.
package logs
