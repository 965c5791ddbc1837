// Package generate implements the adapter for Ollama-style generate
// backends.
//
// An invocation sends
//
//	POST {base}/api/generate
//	{"model": ..., "prompt": ..., "stream": false, "options": {"temperature": ..., "top_p": ...}}
//
// without an Authorization header and returns the "response" field.
// Liveness is GET {base}/api/tags.
package generate
