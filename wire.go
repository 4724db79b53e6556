package sfuworker

import (
	"encoding/json"
	"fmt"

	"sfuworker/netcodec"
)

// RequestFrame is a single control-plane → worker request. HandlerId
// addresses the object the method targets; WORKER_* methods have no
// HandlerId and are handled by the Worker itself.
type RequestFrame struct {
	Id        int64           `json:"id"`
	Method    string          `json:"method"`
	HandlerId string          `json:"handlerId,omitempty"`
	Internal  internalData    `json:"internal,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ResponseFrame is the worker's single reply to a RequestFrame, carrying
// either an accepted body or one of the three error kinds from §7:
// "type-error", "error", "not-found".
type ResponseFrame struct {
	Id       int64           `json:"id"`
	Accepted bool            `json:"accepted,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
	Reason   string          `json:"reason,omitempty"`
}

// NotificationFrame is emitted one-way by the worker toward the control
// plane; it has no request id and receives no response.
type NotificationFrame struct {
	HandlerId string          `json:"handlerId,omitempty"`
	Event     string          `json:"event,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// Frame is the tagged union a WireCodec decodes off the wire: exactly
// one of Request or Notification is set. Payload holds the raw binary
// tail that follows a payload-channel frame (always nil on the control
// channel).
type Frame struct {
	Request      *RequestFrame
	Notification *NotificationFrame
	Payload      []byte
}

// WireCodec encodes and decodes control-channel and payload-channel
// frames on top of netcodec's length-delimited byte transport. The
// payload channel additionally pairs every inbound Request/Notification
// with a second, raw netcodec frame carrying the binary tail (RTP/RTCP/
// data-message bytes); the control channel never does.
type WireCodec struct {
	codec       netcodec.Codec
	withPayload bool
	pending     *Frame
}

// NewWireCodec wraps codec as a control-channel WireCodec: frames are
// JSON only, with no binary tail.
func NewWireCodec(codec netcodec.Codec) *WireCodec {
	return &WireCodec{codec: codec}
}

// NewPayloadWireCodec wraps codec as a payload-channel WireCodec: every
// decoded Request/Notification is paired with a following raw frame.
func NewPayloadWireCodec(codec netcodec.Codec) *WireCodec {
	return &WireCodec{codec: codec, withPayload: true}
}

func (w *WireCodec) Close() error {
	return w.codec.Close()
}

// ReadFrame blocks for the next frame and decodes it as a Request or a
// Notification. Out-of-band textual debug/warn/error/dump lines (the
// donor's 'D'/'W'/'E'/'X' prefixed lines) are surfaced through their
// leading byte so callers can route them to the logger instead of the
// JSON decoder.
func (w *WireCodec) ReadFrame() (*Frame, []byte, error) {
	if w.withPayload && w.pending != nil {
		payload, err := w.codec.ReadPayload()
		if err != nil {
			return nil, nil, err
		}
		frame := w.pending
		frame.Payload = payload
		w.pending = nil
		return frame, nil, nil
	}

	raw, err := w.codec.ReadPayload()
	if err != nil {
		return nil, nil, err
	}

	if len(raw) == 0 {
		return nil, raw, nil
	}

	if raw[0] != '{' {
		return nil, raw, nil
	}

	var probe struct {
		Method    string `json:"method,omitempty"`
		HandlerId string `json:"handlerId,omitempty"`
		Event     string `json:"event,omitempty"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, nil, fmt.Errorf("malformed wire frame: %w", err)
	}

	var frame Frame
	switch {
	case len(probe.Method) > 0:
		var req RequestFrame
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, nil, fmt.Errorf("malformed request frame: %w", err)
		}
		frame.Request = &req
	case len(probe.Event) > 0:
		var notif NotificationFrame
		if err := json.Unmarshal(raw, &notif); err != nil {
			return nil, nil, fmt.Errorf("malformed notification frame: %w", err)
		}
		frame.Notification = &notif
	default:
		return nil, nil, fmt.Errorf("wire frame is neither a request nor a notification")
	}

	if !w.withPayload {
		return &frame, nil, nil
	}

	w.pending = &frame
	return w.ReadFrame()
}

// WriteResponse writes resp as the single reply to a RequestFrame.
func (w *WireCodec) WriteResponse(resp ResponseFrame) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if len(data) > NS_MESSAGE_MAX_LEN {
		return fmt.Errorf("response frame too big")
	}
	return w.codec.WritePayload(data)
}

// WriteNotification emits frame (optionally with a binary payload tail
// on the payload channel) toward the control plane. Notifications never
// receive a response.
func (w *WireCodec) WriteNotification(frame NotificationFrame, payload []byte) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	if len(data) > NS_MESSAGE_MAX_LEN {
		return fmt.Errorf("notification frame too big")
	}
	if err := w.codec.WritePayload(data); err != nil {
		return err
	}
	if w.withPayload && len(payload) > 0 {
		if len(payload) > NS_PAYLOAD_MAX_LEN {
			return fmt.Errorf("notification payload too big")
		}
		return w.codec.WritePayload(payload)
	}
	return nil
}
