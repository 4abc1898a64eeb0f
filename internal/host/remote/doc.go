// Package remote implements the host interfaces over an HTTP bridge to
// the browser extension. Each primitive maps to one POST endpoint with a
// JSON body; bridge failures surface as errors and are never retried at
// this layer.
package remote
