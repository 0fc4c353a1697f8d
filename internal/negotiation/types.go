// Package negotiation gates HTTP callers on the version they announce in the
// Client-Agent header. The header is an RFC 8941 dictionary:
//
//	Client-Agent: name="shopctl", version="1.4.0"
//
// A missing header is accepted (browsers and curl). A header that is present
// must parse and, when a minimum is configured, carry a version at or above it.
package negotiation

// ClientAgent is the parsed Client-Agent header.
type ClientAgent struct {
	Name    string
	Version string
}

// contextKey is the type for context values to avoid collisions
type contextKey string

// ClientAgentContextKey is the context key for storing the parsed ClientAgent
const ClientAgentContextKey contextKey = "shop.client_agent"

// Error codes written in the negotiation error envelope.
const (
	ClientAgentInvalid       = "client_agent_invalid"
	ClientVersionUnsupported = "client_version_unsupported"
)
