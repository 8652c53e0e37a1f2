// Package log defines the minipay logging interface and typed logging fields.
//
// Adapters (such as the zap package) implement Logger so minipay components
// can keep logging calls consistent across backends. Components that receive
// a nil Logger fall back to the no-op implementation.
package log
