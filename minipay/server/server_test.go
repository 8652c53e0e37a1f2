package server

import (
	"errors"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type trackingCloser struct {
	closed bool
	err    error
	order  *[]string
	name   string
}

func (t *trackingCloser) Close() error {
	t.closed = true

	if t.order != nil {
		*t.order = append(*t.order, t.name)
	}

	return t.err
}

func newQuietApp() *fiber.App {
	return fiber.New(fiber.Config{DisableStartupMessage: true})
}

func TestRunRequiresServer(t *testing.T) {
	err := NewManager(nil).Run()
	require.ErrorIs(t, err, ErrNoServerConfigured)
}

func TestRunShutsDownOnChannelClose(t *testing.T) {
	shutdown := make(chan struct{})

	var order []string

	first := &trackingCloser{order: &order, name: "first"}
	second := &trackingCloser{order: &order, name: "second"}

	manager := NewManager(nil).
		WithHTTPServer(newQuietApp(), "127.0.0.1:0").
		WithCloser(first).
		WithCloser(second).
		WithShutdownChannel(shutdown).
		WithShutdownTimeout(time.Second)

	done := make(chan error, 1)

	go func() {
		done <- manager.Run()
	}()

	<-manager.Started()
	close(shutdown)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not shut down in time")
	}

	assert.True(t, first.closed)
	assert.True(t, second.closed)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestRunShutsDownOnStartupError(t *testing.T) {
	// An address that cannot be bound forces a startup error.
	manager := NewManager(nil).
		WithHTTPServer(newQuietApp(), "256.256.256.256:0").
		WithShutdownTimeout(time.Second)

	done := make(chan error, 1)

	go func() {
		done <- manager.Run()
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not shut down after startup failure")
	}
}

func TestCloserErrorsDoNotAbortShutdown(t *testing.T) {
	shutdown := make(chan struct{})

	failing := &trackingCloser{err: errors.New("close failed")}
	trailing := &trackingCloser{}

	manager := NewManager(nil).
		WithHTTPServer(newQuietApp(), "127.0.0.1:0").
		WithCloser(failing).
		WithCloser(trailing).
		WithShutdownChannel(shutdown).
		WithShutdownTimeout(time.Second)

	done := make(chan error, 1)

	go func() {
		done <- manager.Run()
	}()

	<-manager.Started()
	close(shutdown)

	require.NoError(t, <-done)
	assert.True(t, failing.closed)
	assert.True(t, trailing.closed)
}
