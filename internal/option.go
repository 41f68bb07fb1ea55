package internal

import (
	"io"
	"net/http"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config     *Config
	logOutput  io.Writer
	httpClient *http.Client
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput sends logs to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithHTTPClient sets the client used to reach the recipes backend.
func WithHTTPClient(c *http.Client) Option {
	return func(a *application) {
		a.httpClient = c
	}
}
