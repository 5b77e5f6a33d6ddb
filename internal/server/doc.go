// Package server is the HTTP transport of the control API.
//
// It is built on echo with CORS open to every origin, panic recovery,
// uuid request ids and a sonic JSON serializer. Routes:
//
//	/cmd/*    control commands, rate limited, dispatched through the router
//	/metrics  Prometheus metrics
//	/*        files from storage; /index.html at /, HTML rendered as a template
//
// Unknown paths answer 404 with a plain text body.
//
// # Loop ownership
//
// echo serves every request on its own goroutine, but the settings store and
// the radio belong to the loop goroutine. Handlers therefore queue a job and
// wait; the orchestrator drains the queue through Process on every tick. A
// request that is not served within Config.RequestTimeout answers 503.
//
// Basic usage:
//
//	srv := server.New(server.Config{Port: 80}, r, fsys)
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop(ctx)
//	for {
//	    srv.Process(ctx, 4)
//	}
package server
