package sfuworker

import (
	"encoding/json"
	"sync"
)

// Notifier is the worker's one-way emission path toward the control
// plane: every object with a live handler-id can push a
// typed event, optionally carrying a raw binary payload, without
// waiting on or expecting a reply. It serializes writes onto the
// control and payload WireCodecs so concurrent emitters never interleave
// two frames.
type Notifier struct {
	mu      sync.Mutex
	control *WireCodec
	payload *WireCodec
}

// NewNotifier builds a Notifier over the worker's control and payload
// WireCodecs.
func NewNotifier(control, payload *WireCodec) *Notifier {
	return &Notifier{control: control, payload: payload}
}

// Emit writes a control-channel notification for handlerId.
func (n *Notifier) Emit(handlerId, event string, data interface{}) error {
	body, err := marshalNotificationData(data)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	return n.control.WriteNotification(NotificationFrame{
		HandlerId: handlerId,
		Event:     event,
		Data:      body,
	}, nil)
}

// EmitWithPayload writes a payload-channel notification for handlerId,
// carrying payload as its raw binary tail (RTP/RTCP/data-message bytes,
// on the payload channel).
func (n *Notifier) EmitWithPayload(handlerId, event string, data interface{}, payload []byte) error {
	body, err := marshalNotificationData(data)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	return n.payload.WriteNotification(NotificationFrame{
		HandlerId: handlerId,
		Event:     event,
		Data:      body,
	}, payload)
}

func marshalNotificationData(data interface{}) (json.RawMessage, error) {
	if data == nil {
		return nil, nil
	}
	if raw, ok := data.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(data)
}
