package sfuworker

import (
	"encoding/json"
	"fmt"
	"sync"
)

// ControlHandler answers a single control-channel request addressed to
// the object it was registered for. The returned value is marshaled
// into the response body; a nil, nil result accepts the request with an
// empty body.
type ControlHandler func(method string, data json.RawMessage) (interface{}, error)

// PayloadRequestHandler answers a single payload-channel request that
// carries a raw binary tail alongside its body.
type PayloadRequestHandler func(method string, data json.RawMessage, payload []byte) (interface{}, error)

// PayloadNotificationHandler handles a one-way payload-channel
// notification; notifications never receive a response.
type PayloadNotificationHandler func(event string, data json.RawMessage, payload []byte)

type registration struct {
	control      ControlHandler
	payloadReq   PayloadRequestHandler
	payloadNotif PayloadNotificationHandler
}

// MessageRegistrator is the process-wide map from handler-id to the
// object currently responsible for control requests, payload requests,
// and payload notifications addressed to it. It is mutated
// only from the Worker's single dispatch context (see §5); it is a plain
// map guarded by a sync.RWMutex, so Len can give an exact count.
type MessageRegistrator struct {
	mu   sync.RWMutex
	byId map[string]*registration
}

// NewMessageRegistrator returns an empty registrator, one per Worker.
func NewMessageRegistrator() *MessageRegistrator {
	return &MessageRegistrator{byId: make(map[string]*registration)}
}

// Register binds handlerId to the given handlers. Any of the three may
// be nil for objects that don't participate in that channel (e.g. a
// Router has no payload handlers). Fails with a conflict error if
// handlerId is already registered.
func (r *MessageRegistrator) Register(handlerId string, control ControlHandler, payloadReq PayloadRequestHandler, payloadNotif PayloadNotificationHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byId[handlerId]; exists {
		return NewInvalidStateError("handler-id %q already registered", handlerId)
	}

	r.byId[handlerId] = &registration{control: control, payloadReq: payloadReq, payloadNotif: payloadNotif}
	return nil
}

// Unregister removes handlerId. Unregistering an unknown id is a no-op.
func (r *MessageRegistrator) Unregister(handlerId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byId, handlerId)
}

// LookupControl returns the control handler for handlerId, or nil if
// handlerId is unregistered or was registered without one.
func (r *MessageRegistrator) LookupControl(handlerId string) ControlHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byId[handlerId]
	if !ok {
		return nil
	}
	return reg.control
}

// LookupPayloadRequest returns the payload-request handler for handlerId.
func (r *MessageRegistrator) LookupPayloadRequest(handlerId string) PayloadRequestHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byId[handlerId]
	if !ok {
		return nil
	}
	return reg.payloadReq
}

// LookupPayloadNotification returns the payload-notification handler
// for handlerId.
func (r *MessageRegistrator) LookupPayloadNotification(handlerId string) PayloadNotificationHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byId[handlerId]
	if !ok {
		return nil
	}
	return reg.payloadNotif
}

// Len reports the number of live registrations; used to assert the
// "closing the Worker leaves the MessageRegistrator empty" invariant.
func (r *MessageRegistrator) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byId)
}

// ErrHandlerNotFound is returned by request dispatch when a request's
// handler-id has no registration.
var ErrHandlerNotFound = fmt.Errorf("not-found")
