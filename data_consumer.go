package sfuworker

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

type dataConsumerData struct {
	Type                 DataConsumerType      `json:"type,omitempty"`
	SctpStreamParameters *SctpStreamParameters `json:"sctpStreamParameters,omitempty"`
	Label                string                `json:"label,omitempty"`
	Protocol             string                `json:"protocol,omitempty"`
}

type dataConsumerParams struct {
	// internal uses with routerId, transportId, dataProducerId, dataConsumerId
	internal     internalData
	data         dataConsumerData
	registrator  *MessageRegistrator
	notifier     *Notifier
	dataProducer *DataProducer
	paused       bool
	subchannels  []uint16
	appData      interface{}
}

// DataConsumer represents an endpoint capable of receiving data messages
// from a mediasoup router, in the form of a SCTP-backed or direct
// DataChannel.
//
// - @emits transportclose
// - @emits dataproducerclose
// - @emits message - (message []byte, ppid uint32)
// - @emits sctpsendbufferfull
// - @emits bufferedamountlow - (bufferedAmount uint32)
// - @emits @close
// - @emits @dataproducerclose
type DataConsumer struct {
	IEventEmitter
	locker       sync.Mutex
	logger       Logger
	internal     internalData
	data         dataConsumerData
	registrator  *MessageRegistrator
	notifier     *Notifier
	dataProducer *DataProducer
	appData      interface{}
	closed       uint32
	observer     IEventEmitter

	paused                     bool
	subchannels                map[uint16]bool
	bufferedAmount             uint32
	bufferedAmountLowThreshold uint32
	messagesSent               uint64
	bytesSent                  uint64
}

func newDataConsumer(params dataConsumerParams) *DataConsumer {
	logger := NewLogger("DataConsumer")

	logger.Debug("constructor()")

	if params.appData == nil {
		params.appData = H{}
	}

	subchannels := make(map[uint16]bool, len(params.subchannels))
	for _, sub := range params.subchannels {
		subchannels[sub] = true
	}

	return &DataConsumer{
		IEventEmitter: NewEventEmitter(),
		logger:        logger,
		internal:      params.internal,
		data:          params.data,
		registrator:   params.registrator,
		notifier:      params.notifier,
		dataProducer:  params.dataProducer,
		appData:       params.appData,
		observer:      NewEventEmitter(),
		paused:        params.paused,
		subchannels:   subchannels,
	}
}

// register binds the dataConsumer's handler-id into the MessageRegistrator.
func (c *DataConsumer) register() error {
	return c.registrator.Register(c.Id(), c.handleControlRequest, nil, nil)
}

func (c *DataConsumer) handleControlRequest(method string, data json.RawMessage) (interface{}, error) {
	switch method {
	case "dataConsumer.dump":
		return c.Dump()
	case "dataConsumer.getStats":
		return c.GetStats()
	case "dataConsumer.getBufferedAmount":
		amount, err := c.GetBufferedAmount()
		return H{"bufferedAmount": amount}, err
	case "dataConsumer.setBufferedAmountLowThreshold":
		var req struct {
			Threshold uint32 `json:"threshold"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid dataConsumer.setBufferedAmountLowThreshold data: %s", err)
		}
		return nil, c.SetBufferedAmountLowThreshold(req.Threshold)
	case "dataConsumer.setSubchannels":
		var req struct {
			Subchannels []uint16 `json:"subchannels"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid dataConsumer.setSubchannels data: %s", err)
		}
		return nil, c.SetSubchannels(req.Subchannels)
	default:
		return nil, ErrHandlerNotFound
	}
}

// Id returns DataConsumer id.
func (c *DataConsumer) Id() string {
	return c.internal.DataConsumerId
}

// DataProducerId returns the associated DataProducer id.
func (c *DataConsumer) DataProducerId() string {
	return c.internal.DataProducerId
}

// Closed returns whether the DataConsumer is closed.
func (c *DataConsumer) Closed() bool {
	return atomic.LoadUint32(&c.closed) > 0
}

// Type returns DataConsumer type.
func (c *DataConsumer) Type() DataConsumerType {
	return c.data.Type
}

// SctpStreamParameters returns SCTP stream parameters.
func (c *DataConsumer) SctpStreamParameters() *SctpStreamParameters {
	return c.data.SctpStreamParameters
}

// Label returns DataChannel label.
func (c *DataConsumer) Label() string {
	return c.data.Label
}

// Protocol returns DataChannel sub-protocol.
func (c *DataConsumer) Protocol() string {
	return c.data.Protocol
}

// AppData returns app custom data.
func (c *DataConsumer) AppData() interface{} {
	return c.appData
}

// Observer.
//
// - @emits close
func (c *DataConsumer) Observer() IEventEmitter {
	return c.observer
}

// Close the DataConsumer.
func (c *DataConsumer) Close() (err error) {
	if atomic.CompareAndSwapUint32(&c.closed, 0, 1) {
		c.logger.Debug("close()")

		c.registrator.Unregister(c.Id())

		c.Emit("@close")
		c.RemoveAllListeners()

		// Emit observer event.
		c.observer.SafeEmit("close")
		c.observer.RemoveAllListeners()
	}

	return
}

// transportClosed is called when transport was closed.
func (c *DataConsumer) transportClosed() {
	if atomic.CompareAndSwapUint32(&c.closed, 0, 1) {
		c.logger.Debug("transportClosed()")

		c.registrator.Unregister(c.Id())

		c.SafeEmit("transportclose")
		c.RemoveAllListeners()

		// Emit observer event.
		c.observer.SafeEmit("close")
		c.observer.RemoveAllListeners()
	}
}

// producerClosed is called when the associated DataProducer closes.
func (c *DataConsumer) producerClosed() {
	if atomic.CompareAndSwapUint32(&c.closed, 0, 1) {
		c.logger.Debug("producerClosed()")

		c.registrator.Unregister(c.Id())

		c.Emit("@dataproducerclose")
		c.SafeEmit("dataproducerclose")
		c.RemoveAllListeners()

		// Emit observer event.
		c.observer.SafeEmit("close")
		c.observer.RemoveAllListeners()
	}
}

// Dump DataConsumer.
func (c *DataConsumer) Dump() (DataConsumerDump, error) {
	c.logger.Debug("dump()")

	if c.Closed() {
		return DataConsumerDump{}, ErrDataConsumerClosed
	}

	c.locker.Lock()
	defer c.locker.Unlock()

	dump := DataConsumerDump{
		Id:                         c.Id(),
		Paused:                     c.paused,
		DataProducerId:             c.DataProducerId(),
		Type:                       c.Type(),
		SctpStreamParameters:       c.SctpStreamParameters(),
		Label:                      c.Label(),
		Protocol:                   c.Protocol(),
		BufferedAmountLowThreshold: c.bufferedAmountLowThreshold,
	}
	for sub := range c.subchannels {
		dump.Subchannels = append(dump.Subchannels, sub)
	}

	return dump, nil
}

// GetStats returns DataConsumer stats.
func (c *DataConsumer) GetStats() ([]*DataConsumerStat, error) {
	c.logger.Debug("getStats()")

	if c.Closed() {
		return nil, ErrDataConsumerClosed
	}

	c.locker.Lock()
	defer c.locker.Unlock()

	return []*DataConsumerStat{{
		Type:           "data-consumer",
		Label:          c.Label(),
		Protocol:       c.Protocol(),
		MessagesSent:   c.messagesSent,
		BytesSent:      c.bytesSent,
		BufferedAmount: c.bufferedAmount,
	}}, nil
}

// GetBufferedAmount returns the size (in bytes) of queued messages.
func (c *DataConsumer) GetBufferedAmount() (uint32, error) {
	c.logger.Debug("getBufferedAmount()")

	c.locker.Lock()
	defer c.locker.Unlock()

	return c.bufferedAmount, nil
}

// SetBufferedAmountLowThreshold sets the buffered amount low threshold.
func (c *DataConsumer) SetBufferedAmountLowThreshold(threshold uint32) error {
	c.logger.Debug("setBufferedAmountLowThreshold()")

	c.locker.Lock()
	c.bufferedAmountLowThreshold = threshold
	c.locker.Unlock()

	return nil
}

// SetSubchannels sets the set of subchannels this DataConsumer subscribes to.
func (c *DataConsumer) SetSubchannels(subchannels []uint16) error {
	c.logger.Debug("setSubchannels()")

	c.locker.Lock()
	defer c.locker.Unlock()

	c.subchannels = make(map[uint16]bool, len(subchannels))
	for _, sub := range subchannels {
		c.subchannels[sub] = true
	}

	return nil
}

// Send data (just valid for DataConsumers created on a DirectTransport).
func (c *DataConsumer) Send(message []byte, options ...DataConsumerSendOption) error {
	sendOptions := DataConsumerSendOptions{PPID: SctpPayloadWebRTCBinary}
	if len(message) == 0 {
		sendOptions.PPID = SctpPayloadWebRTCBinaryEmpty
	}

	for _, option := range options {
		option(&sendOptions)
	}

	c.locker.Lock()
	c.messagesSent++
	c.bytesSent += uint64(len(message))
	c.locker.Unlock()

	c.notifier.EmitWithPayload(c.Id(), "message", H{"ppid": sendOptions.PPID}, message)

	return nil
}

// forwardMessage is invoked by the owning DataProducer for every
// ingested message. It drops the message while paused (subchannels are
// not consulted) and otherwise increments the buffered-amount counter
// the way a real SCTP socket would until the transport drains it back
// down.
func (c *DataConsumer) forwardMessage(message []byte) {
	c.locker.Lock()
	if c.paused {
		c.locker.Unlock()
		return
	}
	c.bufferedAmount += uint32(len(message))
	c.messagesSent++
	c.bytesSent += uint64(len(message))
	crossedLow := c.bufferedAmount <= c.bufferedAmountLowThreshold
	c.locker.Unlock()

	c.SafeEmit("message", message, uint32(SctpPayloadWebRTCBinary))

	if crossedLow {
		c.SafeEmit("bufferedamountlow", c.bufferedAmount)
	}
}

// AckBufferedAmount drains bytes off the tracked buffered amount once the
// transport has actually flushed them to the wire.
func (c *DataConsumer) AckBufferedAmount(n uint32) {
	c.locker.Lock()
	if n > c.bufferedAmount {
		n = c.bufferedAmount
	}
	c.bufferedAmount -= n
	low := c.bufferedAmount <= c.bufferedAmountLowThreshold
	amount := c.bufferedAmount
	c.locker.Unlock()

	if low {
		c.SafeEmit("bufferedamountlow", amount)
	}
}
