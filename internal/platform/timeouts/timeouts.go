// Package timeouts holds the duration constants shared by the HTTP
// surfaces, kept in one place so server and tooling agree on them.
package timeouts

import "time"

// ReadHeader bounds how long the server waits for a client to finish
// sending request headers.
const ReadHeader = 5 * time.Second

// Shutdown bounds how long graceful shutdown waits for in-flight
// requests before the listener is torn down.
const Shutdown = 5 * time.Second
