// Package download provides the download orchestration logic for
// fetching a shared folder tree.
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Resolve the share link (share ID and root folder name)
//  2. Discover the folder tree and build a manifest
//  3. Create every directory of the manifest
//  4. Download files concurrently
//
// # Basic Usage
//
//	manager := download.NewManager(settings, logger, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//
//	err := manager.Initialize(ctx, "https://cloud.tsinghua.edu.cn/d/0123456789abcdef0123/")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := manager.StartDownloads(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, o := range report.Failed() {
//	    fmt.Println(o.Err)
//	}
//
// # Concurrency
//
// The Engine runs at most settings.MaxConcurrentDownloads jobs at once
// (5 by default). A failed job does not cancel the others; the run ends
// when every job has finished.
//
// # Progress Tracking
//
// Human-readable progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// Byte counts live in a Tracker: one Slot per running job plus an aggregate
// counter. Manager.Snapshot returns both at once.
//
// # Retry Logic
//
// Connection failures are retried by the HTTP client with exponential
// backoff, configurable via settings.DownloadMaxRetries and
// settings.DownloadRetryCooldown. Once a stream is open nothing is retried:
// a failed transfer is removed and reported, and a re-run starts it over.
package download
