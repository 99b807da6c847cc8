// Package api provides the token-authenticated HTTP server for the
// orchestrator's API endpoints.
//
// Key components:
//   - API: Manages server setup and endpoint registration.
//   - RequireToken: Wraps handlers with bearer token validation.
//
// Usage example:
//
//	server := api.New("secure-token", ":8080")
//	server.RegisterFunc("/v1/status", server.RequireToken(statusHandler))
//	if err := server.Start(ctx, true); err != nil {
//	    logrus.WithError(err).Error("API start failed")
//	}
//
// The package uses a dedicated ServeMux for routing, supports graceful
// shutdown, and integrates with logrus for logging server operations.
package api
