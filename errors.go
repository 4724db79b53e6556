package sfuworker

import (
	"errors"
	"fmt"
)

var (
	ErrWorkerStartTimeout       = errors.New("start worker timed out")
	ErrWorkerClosed             = errors.New("worker is closed")
	ErrRouterClosed             = errors.New("router is closed")
	ErrTransportClosed          = errors.New("transport is closed")
	ErrProducerClosed           = errors.New("producer is closed")
	ErrConsumerClosed           = errors.New("consumer is closed")
	ErrDataProducerClosed       = errors.New("dataProducer is closed")
	ErrDataConsumerClosed       = errors.New("dataConsumer is closed")
	ErrMissSctpStreamParameters = errors.New("sctpStreamParameters is missing")
	ErrNotImplemented           = errors.New("not implemented")
)

// TypeError mirrors mediasoup's TypeError: invalid arguments or options
// were passed to an API.
type TypeError struct {
	msg string
}

func NewTypeError(format string, args ...interface{}) error {
	return &TypeError{msg: fmt.Sprintf(format, args...)}
}

func (e *TypeError) Error() string {
	return e.msg
}

// UnsupportedError mirrors mediasoup's UnsupportedError: a valid request
// that refers to unsupported functionality (e.g. an unsupported codec).
type UnsupportedError struct {
	msg string
}

func NewUnsupportedError(format string, args ...interface{}) error {
	return &UnsupportedError{msg: fmt.Sprintf(format, args...)}
}

func (e *UnsupportedError) Error() string {
	return e.msg
}

// InvalidStateError mirrors mediasoup's InvalidStateError: the method was
// called on an object that has already been closed.
type InvalidStateError struct {
	msg string
}

func NewInvalidStateError(format string, args ...interface{}) error {
	return &InvalidStateError{msg: fmt.Sprintf(format, args...)}
}

func (e *InvalidStateError) Error() string {
	return e.msg
}
