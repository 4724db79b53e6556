package sfuworker

import (
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

// ProducerOptions define options to create a producer.
type ProducerOptions struct {
	// Id is the producer id (just for Router.pipeToRouter() method).
	Id string `json:"id,omitempty"`

	// Kind is media kind ("audio" or "video").
	Kind MediaKind `json:"kind,omitempty"`

	// RtpParameters define what the endpoint is sending.
	RtpParameters RtpParameters `json:"rtpParameters,omitempty"`

	// Paused define whether the producer must start in paused mode. Default false.
	Paused bool `json:"paused,omitempty"`

	// KeyFrameRequestDelay is just used for video. Time (in ms) before asking
	// the sender for a new key frame after having asked a previous one. Default 0.
	KeyFrameRequestDelay uint32 `json:"keyFrameRequestDelay,omitempty"`

	// AppData is custom application data.
	AppData interface{} `json:"appData,omitempty"`
}

// ProducerTraceEventType define the type for "trace" event.
type ProducerTraceEventType string

const (
	ProducerTraceEventType_Rtp      ProducerTraceEventType = "rtp"
	ProducerTraceEventType_Keyframe ProducerTraceEventType = "keyframe"
	ProducerTraceEventType_Nack     ProducerTraceEventType = "nack"
	ProducerTraceEventType_Pli      ProducerTraceEventType = "pli"
	ProducerTraceEventType_Fir      ProducerTraceEventType = "fir"
)

// ProducerTraceEventData define "trace" event data.
type ProducerTraceEventData struct {
	// Type is the trace type.
	Type ProducerTraceEventType `json:"type,omitempty"`

	// Timestamp is event timestamp.
	Timestamp uint32 `json:"timestamp,omitempty"`

	// Direction is event direction, "in" | "out".
	Direction string `json:"direction,omitempty"`

	// Info is per type information.
	Info H `json:"info,omitempty"`
}

// ProducerScore define "score" event data
type ProducerScore struct {
	// Ssrc of the RTP stream.
	Ssrc uint32 `json:"ssrc,omitempty"`

	// Rid of the RTP stream.
	Rid string `json:"rid,omitempty"`

	// Score of the RTP stream.
	Score uint32 `json:"score"`
}

// ProducerVideoOrientation define "videoorientationchange" event data
type ProducerVideoOrientation struct {
	// Camera define whether the source is a video camera.
	Camera bool `json:"Camera,omitempty"`

	// Flip define whether the video source is flipped.
	Flip bool `json:"flip,omitempty"`

	// Rotation degrees (0, 90, 180 or 270).
	Rotation uint32 `json:"rotation"`
}

// ProducerStat define the statistic info of a producer.
type ProducerStat = RtpStreamRecvStats

// ProducerType define Producer type.
type ProducerType string

const (
	ProducerType_Simple    ProducerType = "simple"
	ProducerType_Simulcast ProducerType = "simulcast"
	ProducerType_Svc       ProducerType = "svc"
)

// ProducerDump is the dump info of a Producer.
type ProducerDump struct {
	Id              string                   `json:"id,omitempty"`
	Kind            MediaKind                `json:"kind,omitempty"`
	Type            ProducerType             `json:"type,omitempty"`
	RtpParameters   RtpParameters            `json:"rtpParameters,omitempty"`
	RtpMapping      RtpMapping               `json:"rtpMapping,omitempty"`
	RtpStreams      []*RtpStreamDump         `json:"rtpStreams,omitempty"`
	TraceEventTypes []ProducerTraceEventType `json:"traceEventTypes,omitempty"`
	Paused          bool                     `json:"paused,omitempty"`
}

type producerData struct {
	Kind                    MediaKind     `json:"kind,omitempty"`
	Type                    ProducerType  `json:"type,omitempty"`
	RtpParameters           RtpParameters `json:"rtpParameters,omitempty"`
	RtpMapping              RtpMapping    `json:"rtpMapping,omitempty"`
	ConsumableRtpParameters RtpParameters `json:"consumableRtpParameters,omitempty"`
}

type producerParams struct {
	// internal uses with routerId, transportId, producerId
	internal             internalData
	data                 producerData
	registrator          *MessageRegistrator
	notifier             *Notifier
	appData              interface{}
	paused               bool
	keyFrameRequestDelay uint32
}

// Producer represents an audio or video source being injected into a mediasoup router.
// It's created on top of a transport that defines how the media packets are carried.
//
// - @emits transportclose
// - @emits score - (scores []ProducerScore)
// - @emits videoorientationchange - (videoOrientation *ProducerVideoOrientation)
// - @emits trace - (trace *ProducerTraceEventData)
// - @emits @close
type Producer struct {
	IEventEmitter
	locker      sync.Mutex
	logger      Logger
	internal    internalData
	data        producerData
	registrator *MessageRegistrator
	notifier    *Notifier
	appData     interface{}
	paused      bool
	closed      uint32
	score       []ProducerScore
	observer    IEventEmitter

	consumers        sync.Map // consumerId -> *Consumer
	rtpStreams       map[uint32]*producerRtpStream
	traceEventTypes  map[ProducerTraceEventType]bool
	pendingKeyFrames map[uint32]bool
}

// producerRtpStream tracks the minimal per-SSRC counters needed to
// render ProducerDump.RtpStreams and GetStats() without a remote worker
// to ask.
type producerRtpStream struct {
	Ssrc        uint32
	ClockRate   uint32
	PacketCount uint64
	ByteCount   uint64
}

func newProducer(params producerParams) *Producer {
	logger := NewLogger("Producer")

	logger.Debug("constructor()")

	if params.appData == nil {
		params.appData = H{}
	}

	producer := &Producer{
		IEventEmitter:    NewEventEmitter(),
		logger:           logger,
		internal:         params.internal,
		data:             params.data,
		registrator:      params.registrator,
		notifier:         params.notifier,
		appData:          params.appData,
		paused:           params.paused,
		observer:         NewEventEmitter(),
		rtpStreams:       make(map[uint32]*producerRtpStream),
		traceEventTypes:  make(map[ProducerTraceEventType]bool),
		pendingKeyFrames: make(map[uint32]bool),
	}

	return producer
}

// register binds the producer's handler-id, and its payload-plane RTP
// ingestion handler, into the MessageRegistrator: the control plane feeds
// RTP into a Producer as an inbound payload-channel notification
// addressed to the Producer's handler-id.
func (producer *Producer) register() error {
	return producer.registrator.Register(producer.Id(), producer.handleControlRequest, nil, producer.handlePayloadNotification)
}

func (producer *Producer) handleControlRequest(method string, data json.RawMessage) (interface{}, error) {
	switch method {
	case "producer.dump":
		return producer.Dump()
	case "producer.getStats":
		return producer.GetStats()
	case "producer.pause":
		return nil, producer.Pause()
	case "producer.resume":
		return nil, producer.Resume()
	case "producer.enableTraceEvent":
		var req struct {
			Types []ProducerTraceEventType `json:"types"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid producer.enableTraceEvent data: %s", err)
		}
		return nil, producer.EnableTraceEvent(req.Types...)
	default:
		return nil, ErrHandlerNotFound
	}
}

// handlePayloadNotification receives RTP fed in from the control plane
// (event "producer.send", or the short form "send") for a Producer
// created on a DirectTransport.
func (producer *Producer) handlePayloadNotification(event string, data json.RawMessage, payload []byte) {
	if event != "producer.send" && event != "send" {
		producer.logger.Warn("ignoring unknown payload event: %s", event)
		return
	}
	producer.ingestRtp(payload)
}

// Id returns producer id
func (producer *Producer) Id() string {
	return producer.internal.ProducerId
}

// Closed returns whether the Producer is closed.
func (producer *Producer) Closed() bool {
	return atomic.LoadUint32(&producer.closed) > 0
}

// Kind returns media kind.
func (producer *Producer) Kind() MediaKind {
	return producer.data.Kind
}

// totalBytesReceived sums the byte counters tracked across every SSRC
// this producer has ingested, for observers that gauge activity by
// throughput rather than by decoding RTP payloads.
func (producer *Producer) totalBytesReceived() uint64 {
	producer.locker.Lock()
	defer producer.locker.Unlock()

	var total uint64
	for _, stream := range producer.rtpStreams {
		total += stream.ByteCount
	}
	return total
}

// RtpParameters returns RTP parameters.
func (producer *Producer) RtpParameters() RtpParameters {
	return producer.data.RtpParameters
}

// Type returns producer type.
func (producer *Producer) Type() ProducerType {
	return producer.data.Type
}

// ConsumableRtpParameters returns consumable RTP parameters.
func (producer *Producer) ConsumableRtpParameters() RtpParameters {
	return producer.data.ConsumableRtpParameters
}

// Paused returns whether the Producer is paused.
func (producer *Producer) Paused() bool {
	producer.locker.Lock()
	defer producer.locker.Unlock()

	return producer.paused
}

// Score returns producer score list.
func (producer *Producer) Score() []ProducerScore {
	return producer.score
}

// AppData returns app custom data.
func (producer *Producer) AppData() interface{} {
	return producer.appData
}

// Observer.
//
// - @emits close
// - @emits pause
// - @emits resume
// - @emits score - (scores []ProducerScore)
// - @emits videoorientationchange - (videoOrientation *ProducerVideoOrientation)
// - @emits trace - (trace *ProducerTraceEventData)
func (producer *Producer) Observer() IEventEmitter {
	return producer.observer
}

// addConsumer attaches consumer as a forwarding target of this
// Producer's RTP stream: a consume() call on any transport in the
// router registers here so ingestRtp can fan packets out to every live
// Consumer.
func (producer *Producer) addConsumer(consumer *Consumer) {
	producer.consumers.Store(consumer.Id(), consumer)
	consumer.On("@close", func() {
		producer.consumers.Delete(consumer.Id())
	})
}

// closeConsumers tears down every Consumer still attached to this
// Producer's RTP stream, since they have nothing left to forward.
func (producer *Producer) closeConsumers() {
	producer.consumers.Range(func(_, value interface{}) bool {
		value.(*Consumer).producerClosed()
		return true
	})
	producer.consumers = sync.Map{}
}

// Close the producer.
func (producer *Producer) Close() (err error) {
	if atomic.CompareAndSwapUint32(&producer.closed, 0, 1) {
		producer.logger.Debug("close()")

		producer.registrator.Unregister(producer.Id())
		producer.closeConsumers()

		producer.Emit("@close")
		producer.RemoveAllListeners()

		// Emit observer event.
		producer.observer.SafeEmit("close")
		producer.observer.RemoveAllListeners()
	}

	return
}

// transportClosed is called when transport was closed.
func (producer *Producer) transportClosed() {
	if atomic.CompareAndSwapUint32(&producer.closed, 0, 1) {
		producer.logger.Debug("transportClosed()")

		producer.registrator.Unregister(producer.Id())
		producer.closeConsumers()

		producer.SafeEmit("transportclose")
		producer.RemoveAllListeners()

		// Emit observer event.
		producer.observer.SafeEmit("close")
		producer.observer.RemoveAllListeners()
	}
}

// Dump producer.
func (producer *Producer) Dump() (ProducerDump, error) {
	producer.logger.Debug("dump()")

	if producer.Closed() {
		return ProducerDump{}, ErrProducerClosed
	}

	dump := ProducerDump{
		Id:            producer.Id(),
		Kind:          producer.Kind(),
		Type:          producer.Type(),
		RtpParameters: producer.RtpParameters(),
		RtpMapping:    producer.data.RtpMapping,
		Paused:        producer.Paused(),
	}
	for t := range producer.traceEventTypes {
		dump.TraceEventTypes = append(dump.TraceEventTypes, t)
	}
	for _, stream := range producer.rtpStreams {
		dump.RtpStreams = append(dump.RtpStreams, &RtpStreamDump{
			Params: RtpStreamParametersDump{
				Ssrc:      stream.Ssrc,
				ClockRate: stream.ClockRate,
			},
		})
	}

	return dump, nil
}

// GetStats returns producer stats.
func (producer *Producer) GetStats() ([]*ProducerStat, error) {
	producer.logger.Debug("getStats()")

	if producer.Closed() {
		return nil, ErrProducerClosed
	}

	producer.locker.Lock()
	defer producer.locker.Unlock()

	stats := make([]*ProducerStat, 0, len(producer.rtpStreams))
	for _, stream := range producer.rtpStreams {
		stats = append(stats, &RtpStreamRecvStats{
			BaseRtpStreamStats: BaseRtpStreamStats{
				Ssrc: stream.Ssrc,
				Kind: producer.Kind(),
			},
			Type:        "inbound-rtp",
			PacketCount: stream.PacketCount,
			ByteCount:   stream.ByteCount,
		})
	}
	return stats, nil
}

// Pause the producer.
func (producer *Producer) Pause() (err error) {
	if producer.Closed() {
		return ErrProducerClosed
	}

	producer.locker.Lock()
	defer producer.locker.Unlock()

	producer.logger.Debug("pause()")

	wasPaused := producer.paused
	producer.paused = true

	if !wasPaused {
		producer.observer.SafeEmit("pause")
	}

	return nil
}

// Resume the producer.
func (producer *Producer) Resume() (err error) {
	if producer.Closed() {
		return ErrProducerClosed
	}

	producer.locker.Lock()
	defer producer.locker.Unlock()

	producer.logger.Debug("resume()")

	wasPaused := producer.paused
	producer.paused = false

	if wasPaused {
		producer.observer.SafeEmit("resume")
	}

	return nil
}

// EnableTraceEvent enable "trace" event.
func (producer *Producer) EnableTraceEvent(types ...ProducerTraceEventType) error {
	producer.logger.Debug("enableTraceEvent()")

	producer.locker.Lock()
	defer producer.locker.Unlock()

	producer.traceEventTypes = make(map[ProducerTraceEventType]bool, len(types))
	for _, t := range types {
		producer.traceEventTypes[t] = true
	}

	return nil
}

// Send RTP packet (just valid for Producers created on a DirectTransport).
// It performs the exact same ingestion the control plane's inbound
// "producer.send" payload notification triggers, so a Go-API caller and
// a wire caller share one code path.
func (producer *Producer) Send(rtpPacket []byte) error {
	producer.ingestRtp(rtpPacket)
	return nil
}

// ingestRtp is the Producer's receive path: it parses the packet, tracks
// minimal per-SSRC stats, and fans the raw bytes out to every attached
// Consumer, unless this Producer is currently paused.
func (producer *Producer) ingestRtp(packet []byte) {
	if producer.Paused() {
		return
	}

	var pkt rtp.Packet
	if err := pkt.Unmarshal(packet); err != nil {
		producer.logger.Warn("dropping malformed RTP packet: %s", err)
		return
	}

	producer.locker.Lock()
	stream, ok := producer.rtpStreams[pkt.SSRC]
	if !ok {
		stream = &producerRtpStream{Ssrc: pkt.SSRC, ClockRate: 90000}
		producer.rtpStreams[pkt.SSRC] = stream
	}
	stream.PacketCount++
	stream.ByteCount += uint64(len(packet))
	producer.locker.Unlock()

	producer.consumers.Range(func(_, value interface{}) bool {
		value.(*Consumer).forwardRtp(packet, &pkt)
		return true
	})
}

// RequestKeyFrame asks every RTP stream this Producer owns for a fresh
// key frame, deduplicated so at most one PLI is considered pending per
// SSRC at a time.
func (producer *Producer) RequestKeyFrame() {
	producer.locker.Lock()
	defer producer.locker.Unlock()

	for ssrc := range producer.rtpStreams {
		if producer.pendingKeyFrames[ssrc] {
			continue
		}
		producer.pendingKeyFrames[ssrc] = true

		pli, err := (&rtcp.PictureLossIndication{MediaSSRC: ssrc}).Marshal()
		if err != nil {
			producer.logger.Warn("failed to marshal PLI for ssrc %d: %s", ssrc, err)
			continue
		}

		producer.notifier.Emit(producer.Id(), "trace", &ProducerTraceEventData{
			Type:      ProducerTraceEventType_Pli,
			Direction: "out",
			Info:      H{"ssrc": ssrc, "rtcp": pli},
		})
	}
}
