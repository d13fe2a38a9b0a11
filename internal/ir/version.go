package ir

// Version constants for the description schema and resolver.
const (
	// SchemaVersion is the scene description schema version.
	SchemaVersion = "1"

	// ResolverVersion is the prism resolver version.
	ResolverVersion = "0.1.0"
)
