// Package progress carries install progress events from the pipeline to an observer.
//
// Producers report through a Sink and never block. The Reporter buffers events in
// a bounded channel and guarantees that the last reported event reaches the
// observer, so a successful run always ends with its final 100% event.
package progress
