// Package pipeline provides the download orchestration logic: fetch every
// discovered file and pack it into one archive.
//
// # Manager
//
// The Manager drives one run at a time:
//
//  1. Open the scratch archive
//  2. For each link, in order: fetch its bytes, then add them to the archive
//  3. Mark the link complete and move on
//  4. Close the archive once every link succeeded
//
// The first failure aborts the run. Remaining links are never fetched and
// the archive is abandoned without being finalized.
//
// # Basic Usage
//
//	manager := pipeline.NewManager(fetcher, scratch, tracker, capacity, func(event pipeline.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	blob, err := manager.RunAll(ctx, links)
//	if err != nil {
//	    fmt.Println("Download failed:", pipeline.UserMessage(err))
//	}
//
// # Progress Tracking
//
// Each link owns a progress entry split into two halves: the fetch moves it
// through [0,50] and the archive write through [50,100]. It reaches 100 only
// when both phases succeed.
//
// Run-level messages are reported via a callback receiving ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// # Concurrency
//
// Links are processed strictly one after another. A second RunAll while a
// run is active fails with ErrRunInProgress.
package pipeline
