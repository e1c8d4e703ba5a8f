/*
Package log provides structured logging for halo components.

It wraps zerolog with a global logger configured once at process start, plus
helpers for component-scoped child loggers:

	log.Init(log.Config{Level: log.InfoLevel})
	logger := log.WithComponent("engine")
	logger.Info().Str("group", "mdt00").Msg("Group loop started")

Separate from the structured logger, LineBuffer implements the line-oriented
stream that carries the manager's verbose status-transition output. In
production this output goes to stdout; in tests a LineBuffer lets the test
block on the next emitted line without polling.
*/
package log
