// Package timeline holds the host-independent core of timelinewatch: the
// capability interfaces a host document or symbol must satisfy, the lifecycle
// vocabulary, and the Tracker state machine that turns successive playhead
// samples into lifecycle transitions.
//
// The host runtime reports positions as floats with sub-millisecond jitter, so
// every comparison is made on values rounded to three decimal places (see
// [Round]). Completion detection depends on that precision.
package timeline
