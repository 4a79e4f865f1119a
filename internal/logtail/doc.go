// Package logtail follows the MTG Arena client log as it grows.
//
// # Overview
//
// A Tailer watches one file and emits every newly appended byte span on
// Chunks. It never buffers history: by default it starts at end-of-file and
// only reports what the client writes afterwards. FromStart rewinds to offset
// zero, which replay and tests use.
//
//	t := logtail.New(path)
//	if err := t.Start(ctx); err != nil {
//		// errors.Is(err, logtail.ErrNotFound) when Arena has not run yet
//	}
//	defer t.Stop()
//	for chunk := range t.Chunks() {
//		events := parser.Feed(chunk)
//		...
//	}
//
// # Change Detection
//
// Two triggers drive a read:
//
//   - fsnotify events on the containing directory, filtered to the log file
//   - a fallback poll ticker (500ms by default, see WithPollInterval)
//
// Each read stats the file and compares the size with the last known offset.
// A smaller size means the client truncated or replaced the log at startup,
// so the offset resets to zero and the new contents are read from the top.
// Equal sizes are a no-op. Chunks are raw bytes and may end mid-line; line
// assembly belongs to the parser.
//
// # Errors
//
// A missing file at Start is the only fatal condition. Start returns a
// wrapped ErrNotFound, reports it once on Errors, and closes Chunks so the
// rest of the pipeline sits idle. Read and watch failures after Start are
// reported on Errors and the next trigger retries. Sends on Errors never
// block.
//
// # Lifecycle
//
// Stop cancels the run goroutine, closes the watcher and waits for Chunks to
// close. It is idempotent and may be called before Start. Cancelling the
// context passed to Start has the same effect.
package logtail
