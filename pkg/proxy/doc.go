// Package proxy holds the HTTP surface shared by handlers and middleware:
// the {"detail": "..."} error body and the mapping from analysis errors to
// status codes.
//
//	| error                              | status |
//	|------------------------------------|--------|
//	| *analysis.ValidationError          | 422    |
//	| context.DeadlineExceeded           | 504    |
//	| *routing.AllProvidersFailedError   | 500    |
//	| *routing.ConfigurationError        | 500    |
//
// Undecodable bodies (400) and oversized bodies (413) are detected by the
// analyze handler before an error exists.
package proxy
