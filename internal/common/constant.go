// Package common contains shared constants and sentinel errors used across
// the authentication service components.
package common

const (
	// AuthorizationHeaderName is the HTTP header carrying the bearer credential.
	AuthorizationHeaderName = "Authorization"

	// AuthorizationMetadataKey is the gRPC metadata key carrying the bearer
	// credential. gRPC lower-cases metadata keys on the wire.
	AuthorizationMetadataKey = "authorization"

	// BearerPrefix is matched exactly (case-sensitive) against the header value.
	BearerPrefix = "Bearer "

	// TokenType is reported to clients next to every issued access token.
	TokenType = "Bearer"

	// PurposePasswordReset marks tokens minted by the forgot-password flow.
	PurposePasswordReset = "password_reset"
)
