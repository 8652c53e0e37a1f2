// Package api exposes the minipay operations over HTTP.
//
// Handlers translate between JSON envelopes and the domain services; typed
// domain errors map onto HTTP statuses by error code, so the transport never
// inspects error strings.
package api
