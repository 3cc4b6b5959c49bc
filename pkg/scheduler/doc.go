// Package scheduler provides the recurring-tick driver the observer polls
// on.
//
// A [Scheduler] runs a callback once, on the next tick. Recurring polling is
// built by rescheduling from inside the callback, the way a display-refresh
// callback is chained. Two implementations are provided:
//
//   - [Frame] fires on a timer at a fixed interval, 60 per second by default.
//   - [Manual] fires only when [Manual.Step] is called, advancing a synthetic
//     clock. Tests and offline simulations use it to control time exactly.
package scheduler
