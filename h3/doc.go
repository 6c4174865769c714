// Package h3 implements the server side of HTTP/3 stream admission.
//
// Every stream a peer opens must identify itself within a bounded time: a
// unidirectional stream by its stream type, a request stream by a complete
// HEADERS frame. Until then the stream is "starting" and occupies resources
// without doing anything useful. The package tracks starting streams per
// connection and resets those that stay silent past the request headers
// timeout (RFC 9114 §6.1, §6.2).
//
// # Key Features
//
//   - Per-connection StartTracker aborting late streams with a kind-specific code
//   - Exactly one of start, close or abort takes effect for every stream
//   - A single Heartbeat per server; no timer per stream
//   - Connection teardown aborts every starting stream with the connection's code
//   - Tracer hooks for metrics
//
// # Basic Usage
//
//	server := &h3.Server{
//	    Addr:      ":4433",
//	    TLSConfig: tlsConfig,
//	    Config: &h3.Config{
//	        RequestHeadersTimeout: 10 * time.Second,
//	    },
//	    Handler: h3.HandlerFunc(func(r *h3.Request) {
//	        // write a response on r.Stream()
//	    }),
//	}
//	if err := server.ListenAndServe(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Codes
//
//	| Stream kind | Timeout reset code      |
//	|-------------|-------------------------|
//	| control     | H3_STREAM_CREATION_ERROR|
//	| request     | H3_REQUEST_REJECTED     |
//
// A stream is aborted on the first heartbeat strictly after its deadline, so
// a stream may live up to one HeartbeatInterval longer than the timeout.
package h3
