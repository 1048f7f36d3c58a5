// Package http provides the HTTP client used for share listing and file
// downloads.
//
// The Client in this package handles:
//   - User-Agent headers
//   - A fixed retry budget for connection-level failures
//   - JSON requests with a timeout
//   - Streaming downloads controlled by a context
//
// # Basic Usage
//
//	client := http.NewClient(http.DefaultOptions())
//
//	var listing dto.DirentList
//	err := client.GetJSON(ctx, listURL, &listing)
//
//	stream, err := client.Open(ctx, downloadURL)
//	if err != nil {
//	    return err
//	}
//	defer stream.Body.Close()
//
// # Retries
//
// Only failures before a response arrives are retried. Status errors map to
// ErrNotFound, ErrForbidden or ErrUnexpectedStatus and are returned at once.
// When the budget runs out the error wraps ErrRetriesExhausted and the last
// transport error.
//
// # Progress Tracking
//
// The ProgressWriter type can wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    OnUpdate: func(n, written int64) { /* update counters */ },
//	}
package http
