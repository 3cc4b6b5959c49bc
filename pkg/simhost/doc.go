// Package simhost is an in-memory host runtime: documents with scenes,
// timelines and symbol instances whose playheads move when the document is
// advanced. It implements host.Document and host.Symbol so the observer and
// host extension can be exercised without the real runtime.
//
// A [Script] describes a document and timed playback actions; [Runner]
// plays a script through a real observer and records every lifecycle event.
package simhost
