// Package audit records who did what through the API.
//
// Recording is fire-and-forget: Record serializes the entry on the caller's
// goroutine and hands it to a bounded queue drained by background workers.
// Persistence failures and queue overflows are logged and counted, and never
// reach the request that triggered them.
package audit
