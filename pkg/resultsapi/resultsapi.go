// Package resultsapi serves the results of a pipeline run over a REST API:
// job statuses, job logs, and artifact downloads.
package resultsapi

import (
	"time"

	"github.com/berth-ci/berth-cmd/pkg/artifactstore"
	"github.com/berth-ci/berth-cmd/pkg/config"
	"github.com/berth-ci/berth-cmd/pkg/resultstore"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

var log = logger.NewScoped("RESULTS-API")

// Server is the interface for the results REST server.
type Server interface {
	// Serve starts the HTTP server. This is a blocking call.
	Serve() error
	// GracefulStop stops the server gracefully, waiting for pending requests
	// to finish.
	GracefulStop() error
	// ForceStop forcefully stops the server, cancelling pending requests.
	ForceStop() error
	// IsRunning returns true if the server is currently serving requests.
	IsRunning() bool
	// WaitUntilRunningWithTimeout blocks until the server is responding to
	// requests, or until the timeout has passed.
	WaitUntilRunningWithTimeout(timeout time.Duration) bool
}

// NewServer creates a new results REST server that serves the given stores.
// Start it by calling Serve.
func NewServer(cfg config.APIConfig, store resultstore.Store, artifacts artifactstore.Store) Server {
	return &httpServer{
		cfg:       cfg,
		store:     store,
		artifacts: artifacts,
	}
}
