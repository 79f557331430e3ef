// Package client is the CLI's view of the comicvault HTTP API.
//
// APIClient wraps each endpoint in a method taking a context. Failed calls
// return *APIError, which unwraps to the matching sentinel from
// internal/common when the server names one, so callers match with
// errors.Is. Network failures wrap ErrUnavailable.
//
// The client keeps no state besides the bearer token set with SetToken;
// persisting the token between runs is the caller's job.
package client
