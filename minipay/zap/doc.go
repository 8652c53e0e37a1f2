// Package zap adapts go.uber.org/zap to the minipay log.Logger interface.
//
// New builds a production JSON logger with a runtime-adjustable level; tests
// typically keep the nil-safe zero value, which drops everything.
package zap
