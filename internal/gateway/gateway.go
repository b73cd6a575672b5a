package gateway

// Gateway defines the interface for serving surfaces (HTTP today).
type Gateway interface {
	// Start begins serving and blocks until the listener stops.
	Start() error
	// Stop gracefully shuts the gateway down.
	Stop() error
}
