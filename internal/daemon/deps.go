// SPDX-License-Identifier: MIT

package daemon

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Deps contains dependencies required by the daemon Manager.
type Deps struct {
	Logger zerolog.Logger

	// APIHandler serves the public API and probes.
	APIHandler http.Handler

	// MetricsHandler is served on MetricsAddr; either empty disables the
	// metrics listener.
	MetricsHandler http.Handler
	MetricsAddr    string
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Logger.GetLevel() == zerolog.Disabled {
		return ErrMissingLogger
	}
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	return nil
}
