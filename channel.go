package sfuworker

import (
	"strings"
	"sync/atomic"
)

// Channel is the control-channel dispatch loop. It reads
// RequestFrames off the wire, resolves each one to a handler — the
// Worker itself for "worker."-prefixed methods, or whatever object is
// currently registered under the request's handler-id — invokes it, and
// writes back exactly one ResponseFrame before reading the next frame.
// Running one frame at a time, synchronously, is what gives
// ordering guarantee ("responses are issued in the order requests were
// received") for free: there is no per-request goroutine racing to write
// its response first.
type Channel struct {
	logger        Logger
	wire          *WireCodec
	registrator   *MessageRegistrator
	workerHandler ControlHandler
	closed        int32
	closeCh       chan struct{}
}

func newChannel(wire *WireCodec, registrator *MessageRegistrator, workerHandler ControlHandler) *Channel {
	return &Channel{
		logger:        NewLogger("Channel"),
		wire:          wire,
		registrator:   registrator,
		workerHandler: workerHandler,
		closeCh:       make(chan struct{}),
	}
}

// Start launches the dispatch loop in the background.
func (c *Channel) Start() {
	go c.runDispatchLoop()
}

// Close tears down the underlying wire. An unrecoverable control channel
// closure is a fatal condition for the worker; callers
// observe it through CloseNotify.
func (c *Channel) Close() error {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		close(c.closeCh)
		return c.wire.Close()
	}
	return nil
}

func (c *Channel) Closed() bool {
	return atomic.LoadInt32(&c.closed) > 0
}

// CloseNotify returns a channel that is closed when the Channel closes,
// either through Close or because the dispatch loop exited.
func (c *Channel) CloseNotify() <-chan struct{} {
	return c.closeCh
}

func (c *Channel) runDispatchLoop() {
	defer c.Close()

	for {
		frame, _, err := c.wire.ReadFrame()
		if err != nil {
			c.logger.Error("control channel closed: %s", err)
			return
		}
		if frame == nil {
			continue
		}

		switch {
		case frame.Request != nil:
			c.dispatch(frame.Request)
		case frame.Notification != nil:
			// The control channel only ever carries notifications the
			// worker itself emits; an inbound one here is a protocol
			// violation from the control plane, not a fatal error.
			c.logger.Warn("ignoring inbound notification %q on control channel", frame.Notification.Event)
		}
	}
}

func (c *Channel) dispatch(req *RequestFrame) {
	body, err := c.invoke(req)

	if werr := c.wire.WriteResponse(buildResponseFrame(req.Id, body, err)); werr != nil {
		c.logger.Error("failed to write response for request %d: %s", req.Id, werr)
	}
}

func (c *Channel) invoke(req *RequestFrame) (interface{}, error) {
	if isWorkerMethod(req.Method) {
		if c.workerHandler == nil {
			return nil, ErrHandlerNotFound
		}
		return c.workerHandler(req.Method, req.Data)
	}

	handlerId := req.HandlerId
	if handlerId == "" {
		handlerId = targetHandlerId(req.Internal)
	}
	if handlerId == "" {
		return nil, ErrHandlerNotFound
	}

	handler := c.registrator.LookupControl(handlerId)
	if handler == nil {
		return nil, ErrHandlerNotFound
	}
	return handler(req.Method, req.Data)
}

func isWorkerMethod(method string) bool {
	return strings.HasPrefix(method, "worker.")
}

// targetHandlerId picks the most specific object id present in internal,
// matching the cascading internalData a request carries (e.g. a Consumer
// request carries RouterId+TransportId+ProducerId+ConsumerId, but it is
// addressed to the Consumer alone).
func targetHandlerId(internal internalData) string {
	switch {
	case internal.ConsumerId != "":
		return internal.ConsumerId
	case internal.ProducerId != "":
		return internal.ProducerId
	case internal.DataConsumerId != "":
		return internal.DataConsumerId
	case internal.DataProducerId != "":
		return internal.DataProducerId
	case internal.RtpObserverId != "":
		return internal.RtpObserverId
	case internal.TransportId != "":
		return internal.TransportId
	case internal.WebRtcServerId != "":
		return internal.WebRtcServerId
	case internal.RouterId != "":
		return internal.RouterId
	default:
		return ""
	}
}

func buildResponseFrame(id int64, body interface{}, err error) ResponseFrame {
	if err != nil {
		return ResponseFrame{Id: id, Error: errorKind(err), Reason: err.Error()}
	}

	data, merr := marshalNotificationData(body)
	if merr != nil {
		return ResponseFrame{Id: id, Error: "error", Reason: merr.Error()}
	}
	return ResponseFrame{Id: id, Accepted: true, Data: data}
}

// errorKind maps an error onto one of the three wire error kinds.
func errorKind(err error) string {
	if err == ErrHandlerNotFound {
		return "not-found"
	}
	switch err.(type) {
	case *TypeError:
		return "type-error"
	default:
		return "error"
	}
}
