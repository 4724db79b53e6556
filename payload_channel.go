package sfuworker

import (
	"sync/atomic"
)

// PayloadChannel is the payload-channel dispatch loop: it
// decodes Request/Notification frames paired with a raw binary tail
// (RTP/RTCP/SCTP-message bytes) and resolves each to whatever object is
// registered under its handler-id. Requests get a ResponseFrame reply
// with no payload of their own; notifications get none.
type PayloadChannel struct {
	logger      Logger
	wire        *WireCodec
	registrator *MessageRegistrator
	closed      int32
	closeCh     chan struct{}
}

func newPayloadChannel(wire *WireCodec, registrator *MessageRegistrator) *PayloadChannel {
	return &PayloadChannel{
		logger:      NewLogger("PayloadChannel"),
		wire:        wire,
		registrator: registrator,
		closeCh:     make(chan struct{}),
	}
}

func (c *PayloadChannel) Start() {
	go c.runDispatchLoop()
}

func (c *PayloadChannel) Close() error {
	if atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		close(c.closeCh)
		return c.wire.Close()
	}
	return nil
}

func (c *PayloadChannel) Closed() bool {
	return atomic.LoadInt32(&c.closed) > 0
}

func (c *PayloadChannel) CloseNotify() <-chan struct{} {
	return c.closeCh
}

func (c *PayloadChannel) runDispatchLoop() {
	defer c.Close()

	for {
		frame, _, err := c.wire.ReadFrame()
		if err != nil {
			c.logger.Error("payload channel closed: %s", err)
			return
		}
		if frame == nil {
			continue
		}

		switch {
		case frame.Request != nil:
			c.dispatchRequest(frame.Request, frame.Payload)
		case frame.Notification != nil:
			c.dispatchNotification(frame.Notification, frame.Payload)
		}
	}
}

func (c *PayloadChannel) dispatchRequest(req *RequestFrame, payload []byte) {
	handlerId := req.HandlerId
	if handlerId == "" {
		handlerId = targetHandlerId(req.Internal)
	}

	var body interface{}
	var err error

	if handlerId == "" {
		err = ErrHandlerNotFound
	} else if handler := c.registrator.LookupPayloadRequest(handlerId); handler == nil {
		err = ErrHandlerNotFound
	} else {
		body, err = handler(req.Method, req.Data, payload)
	}

	if werr := c.wire.WriteResponse(buildResponseFrame(req.Id, body, err)); werr != nil {
		c.logger.Error("failed to write payload response for request %d: %s", req.Id, werr)
	}
}

func (c *PayloadChannel) dispatchNotification(notif *NotificationFrame, payload []byte) {
	handlerId := notif.HandlerId
	if handlerId == "" {
		c.logger.Warn("dropping payload notification %q with no handler-id", notif.Event)
		return
	}

	handler := c.registrator.LookupPayloadNotification(handlerId)
	if handler == nil {
		// A notification for an unknown or already-closed
		// handler-id is silently dropped: notifications have no response
		// to reject.
		return
	}
	handler(notif.Event, notif.Data, payload)
}
