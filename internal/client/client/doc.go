// Package client talks to the keygate server.
//
// GRPCClient wraps the generated-style rpc.LicenseServiceClient. An interceptor
// attaches the identity token (once known) and the admin token (when
// configured) as metadata on every call, and gRPC status codes come back as
// the sentinel errors in errors.go, matchable with errors.Is. The server's
// status message is kept in the error text.
package client
