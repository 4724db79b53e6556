package sfuworker

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/pion/rtp"
)

type consumerData struct {
	Kind                   MediaKind               `json:"kind,omitempty"`
	RtpParameters          RtpParameters           `json:"rtpParameters,omitempty"`
	Type                   ConsumerType            `json:"type,omitempty"`
	ConsumableRtpEncodings []RtpEncodingParameters `json:"consumableRtpEncodings,omitempty"`
}

type consumerParams struct {
	// internal uses with routerId, transportId, producerId, consumerId
	internal        internalData
	data            consumerData
	registrator     *MessageRegistrator
	notifier        *Notifier
	producer        *Producer
	appData         interface{}
	paused          bool
	producerPaused  bool
	score           ConsumerScore
	preferredLayers *ConsumerLayers
}

// Consumer represents an audio or video source being forwarded from a
// mediasoup router Producer to an endpoint. It's created on top of a
// transport that defines how the media packets are carried.
//
// - @emits transportclose
// - @emits producerclose
// - @emits producerpause
// - @emits producerresume
// - @emits score - (score ConsumerScore)
// - @emits layerschange - (layers *ConsumerLayers)
// - @emits trace - (trace *ConsumerTraceEventData)
// - @emits rtp - (rtpPacket []byte)
// - @emits @close
// - @emits @producerclose
type Consumer struct {
	IEventEmitter
	locker          sync.Mutex
	logger          Logger
	internal        internalData
	data            consumerData
	registrator     *MessageRegistrator
	notifier        *Notifier
	producer        *Producer
	appData         interface{}
	paused          bool
	producerPaused  bool
	priority        uint8
	score           ConsumerScore
	preferredLayers *ConsumerLayers
	currentLayers   *ConsumerLayers
	closed          uint32
	observer        IEventEmitter

	traceEventTypes map[ConsumerTraceEventType]bool
	rtpStream       *producerRtpStream
}

func newConsumer(params consumerParams) *Consumer {
	logger := NewLogger("Consumer")

	logger.Debug("constructor()")

	if params.appData == nil {
		params.appData = H{}
	}

	consumer := &Consumer{
		IEventEmitter:   NewEventEmitter(),
		logger:          logger,
		internal:        params.internal,
		data:            params.data,
		registrator:     params.registrator,
		notifier:        params.notifier,
		producer:        params.producer,
		appData:         params.appData,
		paused:          params.paused,
		producerPaused:  params.producerPaused,
		priority:        1,
		score:           params.score,
		preferredLayers: params.preferredLayers,
		observer:        NewEventEmitter(),
		traceEventTypes: make(map[ConsumerTraceEventType]bool),
	}

	if params.data.Type == ConsumerType_Simulcast || params.data.Type == ConsumerType_Svc {
		spatial := int8(0)
		if params.preferredLayers != nil {
			spatial = int8(params.preferredLayers.SpatialLayer)
		}
		consumer.currentLayers = &ConsumerLayers{SpatialLayer: uint8(spatial)}
	}

	return consumer
}

// register binds the consumer's handler-id into the MessageRegistrator.
func (consumer *Consumer) register() error {
	return consumer.registrator.Register(consumer.Id(), consumer.handleControlRequest, nil, nil)
}

func (consumer *Consumer) handleControlRequest(method string, data json.RawMessage) (interface{}, error) {
	switch method {
	case "consumer.dump":
		return consumer.Dump()
	case "consumer.getStats":
		return consumer.GetStats()
	case "consumer.pause":
		return nil, consumer.Pause()
	case "consumer.resume":
		return nil, consumer.Resume()
	case "consumer.setPreferredLayers":
		var layers ConsumerLayers
		if err := json.Unmarshal(data, &layers); err != nil {
			return nil, NewTypeError("invalid consumer.setPreferredLayers data: %s", err)
		}
		return nil, consumer.SetPreferredLayers(layers)
	case "consumer.setPriority":
		var req struct {
			Priority uint8 `json:"priority"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid consumer.setPriority data: %s", err)
		}
		return nil, consumer.SetPriority(req.Priority)
	case "consumer.requestKeyFrame":
		return nil, consumer.RequestKeyFrame()
	case "consumer.enableTraceEvent":
		var req struct {
			Types []ConsumerTraceEventType `json:"types"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid consumer.enableTraceEvent data: %s", err)
		}
		return nil, consumer.EnableTraceEvent(req.Types...)
	default:
		return nil, ErrHandlerNotFound
	}
}

// Id returns consumer id.
func (consumer *Consumer) Id() string {
	return consumer.internal.ConsumerId
}

// ProducerId returns the associated Producer id.
func (consumer *Consumer) ProducerId() string {
	return consumer.internal.ProducerId
}

// Closed returns whether the Consumer is closed.
func (consumer *Consumer) Closed() bool {
	return atomic.LoadUint32(&consumer.closed) > 0
}

// Kind returns media kind.
func (consumer *Consumer) Kind() MediaKind {
	return consumer.data.Kind
}

// RtpParameters returns RTP parameters.
func (consumer *Consumer) RtpParameters() RtpParameters {
	return consumer.data.RtpParameters
}

// Type returns consumer type.
func (consumer *Consumer) Type() ConsumerType {
	return consumer.data.Type
}

// Paused returns whether the Consumer is paused.
func (consumer *Consumer) Paused() bool {
	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	return consumer.paused
}

// ProducerPaused returns whether the associated Producer is paused.
func (consumer *Consumer) ProducerPaused() bool {
	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	return consumer.producerPaused
}

// Priority returns the current priority.
func (consumer *Consumer) Priority() uint8 {
	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	return consumer.priority
}

// Score returns the consumer score.
func (consumer *Consumer) Score() ConsumerScore {
	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	return consumer.score
}

// PreferredLayers returns the preferred video layers.
func (consumer *Consumer) PreferredLayers() *ConsumerLayers {
	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	return consumer.preferredLayers
}

// CurrentLayers returns the current video layers.
func (consumer *Consumer) CurrentLayers() *ConsumerLayers {
	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	return consumer.currentLayers
}

// AppData returns app custom data.
func (consumer *Consumer) AppData() interface{} {
	return consumer.appData
}

// Observer.
//
// - @emits close
// - @emits pause
// - @emits resume
// - @emits score - (score ConsumerScore)
// - @emits layerschange - (layers *ConsumerLayers)
// - @emits trace - (trace *ConsumerTraceEventData)
func (consumer *Consumer) Observer() IEventEmitter {
	return consumer.observer
}

// Close the consumer.
func (consumer *Consumer) Close() (err error) {
	if atomic.CompareAndSwapUint32(&consumer.closed, 0, 1) {
		consumer.logger.Debug("close()")

		consumer.registrator.Unregister(consumer.Id())

		consumer.Emit("@close")
		consumer.RemoveAllListeners()

		// Emit observer event.
		consumer.observer.SafeEmit("close")
		consumer.observer.RemoveAllListeners()
	}

	return
}

// transportClosed is called when transport was closed.
func (consumer *Consumer) transportClosed() {
	if atomic.CompareAndSwapUint32(&consumer.closed, 0, 1) {
		consumer.logger.Debug("transportClosed()")

		consumer.registrator.Unregister(consumer.Id())

		consumer.SafeEmit("transportclose")
		consumer.RemoveAllListeners()

		// Emit observer event.
		consumer.observer.SafeEmit("close")
		consumer.observer.RemoveAllListeners()
	}
}

// producerClosed is invoked by the owning Producer when it closes, so this
// Consumer tears itself down instead of waiting on a wire notification.
func (consumer *Consumer) producerClosed() {
	if !atomic.CompareAndSwapUint32(&consumer.closed, 0, 1) {
		return
	}
	consumer.logger.Debug("producerClosed()")

	consumer.registrator.Unregister(consumer.Id())

	consumer.Emit("@producerclose")
	consumer.SafeEmit("producerclose")
	consumer.RemoveAllListeners()

	// Emit observer event.
	consumer.observer.SafeEmit("close")
	consumer.observer.RemoveAllListeners()
}

// Dump the consumer.
func (consumer *Consumer) Dump() (ConsumerDump, error) {
	consumer.logger.Debug("dump()")

	if consumer.Closed() {
		return ConsumerDump{}, ErrConsumerClosed
	}

	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	dump := ConsumerDump{
		Id:                     consumer.Id(),
		ProducerId:             consumer.ProducerId(),
		Kind:                   consumer.Kind(),
		Type:                   consumer.Type(),
		RtpParameters:          consumer.RtpParameters(),
		ConsumableRtpEncodings: consumer.data.ConsumableRtpEncodings,
		Paused:                 consumer.paused,
		ProducerPaused:         consumer.producerPaused,
		Priority:               consumer.priority,
	}
	for t := range consumer.traceEventTypes {
		dump.TraceEventTypes = append(dump.TraceEventTypes, t)
	}

	var streamDump *RtpStreamDump
	if consumer.rtpStream != nil {
		streamDump = &RtpStreamDump{Params: RtpStreamParametersDump{
			Ssrc:      consumer.rtpStream.Ssrc,
			ClockRate: consumer.rtpStream.ClockRate,
		}}
	}

	switch consumer.data.Type {
	case ConsumerType_Simulcast, ConsumerType_Svc:
		simulcast := &SimulcastConsumerDump{RtpStream: streamDump}
		if consumer.preferredLayers != nil {
			simulcast.PreferredSpatialLayer = consumer.preferredLayers.SpatialLayer
		}
		if consumer.currentLayers != nil {
			simulcast.CurrentSpatialLayer = int8(consumer.currentLayers.SpatialLayer)
			simulcast.TargetSpatialLayer = int8(consumer.currentLayers.SpatialLayer)
		} else {
			simulcast.CurrentSpatialLayer = -1
			simulcast.TargetSpatialLayer = -1
		}
		dump.SimulcastConsumerDump = simulcast
	case ConsumerType_Pipe:
		if streamDump != nil {
			dump.PipeConsumerDump = &PipeConsumerDump{RtpStreams: []*RtpStreamDump{streamDump}}
		}
	default:
		dump.SimpleConsumerDump = &SimpleConsumerDump{RtpStream: streamDump}
	}

	return dump, nil
}

// GetStats returns consumer stats.
func (consumer *Consumer) GetStats() ([]*ConsumerStat, error) {
	consumer.logger.Debug("getStats()")

	if consumer.Closed() {
		return nil, ErrConsumerClosed
	}

	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	if consumer.rtpStream == nil {
		return nil, nil
	}

	return []*ConsumerStat{{
		BaseRtpStreamStats: BaseRtpStreamStats{
			Ssrc: consumer.rtpStream.Ssrc,
			Kind: consumer.Kind(),
		},
		Type:        "outbound-rtp",
		PacketCount: consumer.rtpStream.PacketCount,
		ByteCount:   consumer.rtpStream.ByteCount,
	}}, nil
}

// Pause the consumer.
func (consumer *Consumer) Pause() (err error) {
	if consumer.Closed() {
		return ErrConsumerClosed
	}

	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	consumer.logger.Debug("pause()")

	wasPaused := consumer.paused
	consumer.paused = true

	// Emit observer event.
	if !wasPaused && !consumer.producerPaused {
		consumer.observer.SafeEmit("pause")
	}

	return nil
}

// Resume the consumer.
func (consumer *Consumer) Resume() (err error) {
	if consumer.Closed() {
		return ErrConsumerClosed
	}

	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	consumer.logger.Debug("resume()")

	wasPaused := consumer.paused
	consumer.paused = false

	// Emit observer event.
	if wasPaused && !consumer.producerPaused {
		consumer.observer.SafeEmit("resume")
	}

	return nil
}

// SetPreferredLayers sets preferred video layers.
func (consumer *Consumer) SetPreferredLayers(layers ConsumerLayers) (err error) {
	consumer.logger.Debug("setPreferredLayers()")

	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	if consumer.data.Type != ConsumerType_Simulcast && consumer.data.Type != ConsumerType_Svc {
		return nil
	}

	numLayers := len(consumer.data.ConsumableRtpEncodings)
	if numLayers == 0 {
		numLayers = 1
	}
	if int(layers.SpatialLayer) >= numLayers {
		layers.SpatialLayer = uint8(numLayers - 1)
	}

	consumer.preferredLayers = &layers
	consumer.currentLayers = &ConsumerLayers{SpatialLayer: layers.SpatialLayer, TemporalLayer: layers.TemporalLayer}

	consumer.SafeEmit("layerschange", consumer.currentLayers)
	consumer.observer.SafeEmit("layerschange", consumer.currentLayers)

	return nil
}

// SetPriority sets the consumer priority.
func (consumer *Consumer) SetPriority(priority uint8) (err error) {
	consumer.logger.Debug("setPriority()")

	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	consumer.priority = priority

	return nil
}

// UnsetPriority unsets the consumer priority (resets it to 1).
func (consumer *Consumer) UnsetPriority() error {
	return consumer.SetPriority(1)
}

// RequestKeyFrame requests a key frame to the Producer.
func (consumer *Consumer) RequestKeyFrame() error {
	consumer.logger.Debug("requestKeyFrame()")

	if consumer.producer != nil {
		consumer.producer.RequestKeyFrame()
	}

	return nil
}

// EnableTraceEvent enables "trace" event.
func (consumer *Consumer) EnableTraceEvent(types ...ConsumerTraceEventType) error {
	consumer.logger.Debug("enableTraceEvent()")

	consumer.locker.Lock()
	defer consumer.locker.Unlock()

	consumer.traceEventTypes = make(map[ConsumerTraceEventType]bool, len(types))
	for _, t := range types {
		consumer.traceEventTypes[t] = true
	}

	return nil
}

// forwardRtp is invoked by the owning Producer for every ingested RTP
// packet. It applies the pause/layer gating and, if the packet passes,
// emits it on the "rtp" event for the transport to write to the wire.
func (consumer *Consumer) forwardRtp(raw []byte, pkt *rtp.Packet) {
	consumer.locker.Lock()

	if consumer.paused || consumer.producerPaused {
		consumer.locker.Unlock()
		return
	}

	if !consumer.acceptsSsrcLocked(pkt.SSRC) {
		consumer.locker.Unlock()
		return
	}

	if consumer.rtpStream == nil {
		consumer.rtpStream = &producerRtpStream{Ssrc: pkt.SSRC, ClockRate: 90000}
	}
	consumer.rtpStream.PacketCount++
	consumer.rtpStream.ByteCount += uint64(len(raw))

	consumer.locker.Unlock()

	consumer.SafeEmit("rtp", raw)
}

// acceptsSsrcLocked decides, under consumer.locker, whether a packet
// from ssrc matches the currently selected spatial layer. Simple and
// pipe consumers forward every stream; simulcast/SVC consumers forward
// only the encoding chosen by SetPreferredLayers.
func (consumer *Consumer) acceptsSsrcLocked(ssrc uint32) bool {
	if consumer.data.Type != ConsumerType_Simulcast && consumer.data.Type != ConsumerType_Svc {
		return true
	}

	encodings := consumer.data.ConsumableRtpEncodings
	if len(encodings) == 0 {
		return true
	}

	spatial := 0
	if consumer.currentLayers != nil {
		spatial = int(consumer.currentLayers.SpatialLayer)
	}
	if spatial >= len(encodings) {
		spatial = len(encodings) - 1
	}

	return encodings[spatial].Ssrc == ssrc
}
