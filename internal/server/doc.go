// Package server provides HTTP server setup and initialization.
//
// It wires every component from configuration:
//   - Host backend selection (in-process memory fakes or the browser
//     bridge over HTTP)
//   - Bookmark mirror repository and session lifecycle manager
//   - Event log store with its periodic flush loop
//   - Persistent page digest cache
//   - Gin router, middleware stack (CORS, rate limiting, recovery,
//     metrics), and the WebSocket event stream
//
// Server Lifecycle:
//  1. Load configuration from environment/flags
//  2. Initialize logger (production or development)
//  3. Select the host backend
//  4. Construct the engine (repository, manager, caches, event log)
//  5. Setup HTTP routes and middleware
//  6. Start the event log flush loop and the HTTP server
//  7. Graceful shutdown on signal, with a final flush
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
