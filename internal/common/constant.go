package common

const (
	// IdentityTokenHeaderName is the gRPC metadata key carrying the identity
	// token issued after a successful authentication.
	IdentityTokenHeaderName = "identity_token"

	// AdminTokenHeaderName is the gRPC metadata key carrying the admin API token.
	AdminTokenHeaderName = "admin_token"

	// RequestIDHeaderName is echoed back to callers in response headers.
	RequestIDHeaderName = "x-request-id"
)
