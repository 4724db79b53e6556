package sfuworker

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

type dataProducerData struct {
	Type                 DataProducerType      `json:"type,omitempty"`
	SctpStreamParameters *SctpStreamParameters `json:"sctpStreamParameters,omitempty"`
	Label                string                `json:"label,omitempty"`
	Protocol             string                `json:"protocol,omitempty"`
}

type dataProducerParams struct {
	// internal uses with routerId, transportId, dataProducerId
	internal    internalData
	data        dataProducerData
	registrator *MessageRegistrator
	notifier    *Notifier
	appData     interface{}
	paused      bool
}

// DataProducer represents an endpoint capable of injecting data messages
// into a mediasoup router, in the form of a SCTP-backed or direct
// DataChannel.
//
// - @emits transportclose
// - @emits @close
type DataProducer struct {
	IEventEmitter
	locker      sync.Mutex
	logger      Logger
	internal    internalData
	data        dataProducerData
	registrator *MessageRegistrator
	notifier    *Notifier
	appData     interface{}
	paused      uint32
	closed      uint32
	observer    IEventEmitter

	messagesReceived uint64
	bytesReceived    uint64
	consumers        sync.Map // dataConsumerId -> *DataConsumer
}

func newDataProducer(params dataProducerParams) *DataProducer {
	logger := NewLogger("DataProducer")

	logger.Debug("constructor()")

	if params.appData == nil {
		params.appData = H{}
	}

	p := &DataProducer{
		IEventEmitter: NewEventEmitter(),
		logger:        logger,
		internal:      params.internal,
		data:          params.data,
		registrator:   params.registrator,
		notifier:      params.notifier,
		appData:       params.appData,
		observer:      NewEventEmitter(),
	}
	if params.paused {
		p.paused = 1
	}

	return p
}

// register binds the dataProducer's handler-id, and its payload-plane
// message ingestion handler, into the MessageRegistrator.
func (p *DataProducer) register() error {
	return p.registrator.Register(p.Id(), p.handleControlRequest, nil, p.handlePayloadNotification)
}

func (p *DataProducer) handleControlRequest(method string, data json.RawMessage) (interface{}, error) {
	switch method {
	case "dataProducer.dump":
		return p.Dump()
	case "dataProducer.getStats":
		return p.GetStats()
	case "dataProducer.pause":
		return nil, p.Pause()
	case "dataProducer.resume":
		return nil, p.Resume()
	default:
		return nil, ErrHandlerNotFound
	}
}

// handlePayloadNotification receives a message fed in from the control
// plane (event "dataProducer.send", or the short form "send") for a
// DataProducer created on a DirectTransport.
func (p *DataProducer) handlePayloadNotification(event string, data json.RawMessage, payload []byte) {
	if event != "dataProducer.send" && event != "send" {
		p.logger.Warn("ignoring unknown payload event: %s", event)
		return
	}
	p.ingestMessage(payload)
}

// addConsumer attaches dataConsumer as a forwarding target of this
// DataProducer's messages.
func (p *DataProducer) addConsumer(dataConsumer *DataConsumer) {
	p.consumers.Store(dataConsumer.Id(), dataConsumer)
	dataConsumer.On("@close", func() {
		p.consumers.Delete(dataConsumer.Id())
	})
}

func (p *DataProducer) closeConsumers() {
	p.consumers.Range(func(_, value interface{}) bool {
		value.(*DataConsumer).producerClosed()
		return true
	})
	p.consumers = sync.Map{}
}

// Id returns DataProducer id.
func (p *DataProducer) Id() string {
	return p.internal.DataProducerId
}

// Closed returns whether the DataProducer is closed.
func (p *DataProducer) Closed() bool {
	return atomic.LoadUint32(&p.closed) > 0
}

// Type returns DataProducer type.
func (p *DataProducer) Type() DataProducerType {
	return p.data.Type
}

// SctpStreamParameters returns SCTP stream parameters.
func (p *DataProducer) SctpStreamParameters() *SctpStreamParameters {
	return p.data.SctpStreamParameters
}

// Label returns DataChannel label.
func (p *DataProducer) Label() string {
	return p.data.Label
}

// Protocol returns DataChannel sub-protocol.
func (p *DataProducer) Protocol() string {
	return p.data.Protocol
}

// AppData returns app custom data.
func (p *DataProducer) AppData() interface{} {
	return p.appData
}

// Observer.
//
// - @emits close
func (p *DataProducer) Observer() IEventEmitter {
	return p.observer
}

// Close the DataProducer.
func (p *DataProducer) Close() (err error) {
	if atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		p.logger.Debug("close()")

		p.registrator.Unregister(p.Id())
		p.closeConsumers()

		p.Emit("@close")
		p.RemoveAllListeners()

		// Emit observer event.
		p.observer.SafeEmit("close")
		p.observer.RemoveAllListeners()
	}

	return
}

// transportClosed is called when transport was closed.
func (p *DataProducer) transportClosed() {
	if atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		p.logger.Debug("transportClosed()")

		p.registrator.Unregister(p.Id())
		p.closeConsumers()

		p.SafeEmit("transportclose")
		p.RemoveAllListeners()

		// Emit observer event.
		p.observer.SafeEmit("close")
		p.observer.RemoveAllListeners()
	}
}

// Dump DataProducer.
func (p *DataProducer) Dump() (DataProducerDump, error) {
	p.logger.Debug("dump()")

	if p.Closed() {
		return DataProducerDump{}, ErrDataProducerClosed
	}

	return DataProducerDump{
		Id:                   p.Id(),
		Paused:               p.Paused(),
		Type:                 p.Type(),
		SctpStreamParameters: p.SctpStreamParameters(),
		Label:                p.Label(),
		Protocol:             p.Protocol(),
	}, nil
}

// GetStats returns DataProducer stats.
func (p *DataProducer) GetStats() ([]*DataProducerStat, error) {
	p.logger.Debug("getStats()")

	if p.Closed() {
		return nil, ErrDataProducerClosed
	}

	p.locker.Lock()
	defer p.locker.Unlock()

	return []*DataProducerStat{{
		Type:             "data-producer",
		Label:            p.Label(),
		Protocol:         p.Protocol(),
		MessagesReceived: p.messagesReceived,
		BytesReceived:    p.bytesReceived,
	}}, nil
}

// Paused returns whether the DataProducer is paused.
func (p *DataProducer) Paused() bool {
	return atomic.LoadUint32(&p.paused) > 0
}

// Pause the DataProducer. Messages arriving while paused are still
// accounted for in stats but are not forwarded to consumers.
func (p *DataProducer) Pause() error {
	if p.Closed() {
		return ErrDataProducerClosed
	}

	p.logger.Debug("pause()")

	if atomic.CompareAndSwapUint32(&p.paused, 0, 1) {
		p.observer.SafeEmit("pause")
	}

	return nil
}

// Resume the DataProducer.
func (p *DataProducer) Resume() error {
	if p.Closed() {
		return ErrDataProducerClosed
	}

	p.logger.Debug("resume()")

	if atomic.CompareAndSwapUint32(&p.paused, 1, 0) {
		p.observer.SafeEmit("resume")
	}

	return nil
}

// Send data (just valid for DataProducers created on a DirectTransport).
// It shares the ingestion path with the inbound "dataProducer.send"
// payload notification, so a Go-API caller and a wire caller behave the
// same way. ppid is not carried through: DataConsumers emit every
// forwarded message with SctpPayloadWebRTCBinary.
func (p *DataProducer) Send(message []byte, ppid uint32) error {
	p.ingestMessage(message)
	return nil
}

// ingestMessage fans an inbound data message out to every attached
// DataConsumer, unless the DataProducer is paused.
func (p *DataProducer) ingestMessage(message []byte) {
	p.locker.Lock()
	p.messagesReceived++
	p.bytesReceived += uint64(len(message))
	p.locker.Unlock()

	if p.Paused() {
		return
	}

	p.consumers.Range(func(_, value interface{}) bool {
		value.(*DataConsumer).forwardMessage(message)
		return true
	})
}
