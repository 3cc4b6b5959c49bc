// Package log is the logging port used by timelinewatch components.
//
// Library packages accept a [Logger] and default to [NoopLogger], so an
// embedding application decides where output goes. A zerolog-backed
// implementation is provided:
//
//	logger := log.NewZerologLogger(zerolog.New(os.Stderr))
//	obs := observer.New(sched, observer.WithLogger(logger))
//
// Any other logging library can be plugged in by implementing the four
// level methods.
package log
