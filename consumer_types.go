package sfuworker

// ConsumerOptions define options to create a consumer.
type ConsumerOptions struct {
	// ProducerId is the id of the Producer to consume.
	ProducerId string `json:"producerId,omitempty"`

	// RtpCapabilities represent the RTP capabilities of the receiving endpoint.
	RtpCapabilities RtpCapabilities `json:"rtpCapabilities,omitempty"`

	// Paused define whether the Consumer must start in paused mode. Default false.
	Paused bool `json:"paused,omitempty"`

	// PreferredLayers define preferred spatial and temporal layer for simulcast
	// or SVC media sources.
	PreferredLayers *ConsumerLayers `json:"preferredLayers,omitempty"`

	// Pipe define whether this Consumer should consume all RTP streams
	// generated by the Producer.
	Pipe bool `json:"-"`

	// AppData is custom application data.
	AppData interface{} `json:"appData,omitempty"`
}

// ConsumerLayers are the spatial and temporal layers, used both for
// preferred and current layers.
type ConsumerLayers struct {
	// SpatialLayer index (from 0 to N).
	SpatialLayer uint8 `json:"spatialLayer"`

	// TemporalLayer index (from 0 to N), can be nil.
	TemporalLayer *uint8 `json:"temporalLayer,omitempty"`
}

// ConsumerScore define "score" event data.
type ConsumerScore struct {
	// Score of the RTP stream of the consumer.
	Score uint8 `json:"score"`

	// ProducerScore is the score of the currently selected RTP stream of the
	// producer.
	ProducerScore uint8 `json:"producerScore"`

	// ProducerScores are the scores of all RTP streams in the producer ordered
	// by encoding (just useful when the producer uses simulcast).
	ProducerScores []uint8 `json:"producerScores,omitempty"`
}

// ConsumerType defines the Consumer type.
type ConsumerType string

const (
	ConsumerType_Simple    ConsumerType = "simple"
	ConsumerType_Simulcast ConsumerType = "simulcast"
	ConsumerType_Svc       ConsumerType = "svc"
	ConsumerType_Pipe      ConsumerType = "pipe"
)

// ConsumerTraceEventType define the type for "trace" event.
type ConsumerTraceEventType string

const (
	ConsumerTraceEventType_Rtp       ConsumerTraceEventType = "rtp"
	ConsumerTraceEventType_Keyframe  ConsumerTraceEventType = "keyframe"
	ConsumerTraceEventType_Nack      ConsumerTraceEventType = "nack"
	ConsumerTraceEventType_Pli       ConsumerTraceEventType = "pli"
	ConsumerTraceEventType_Fir       ConsumerTraceEventType = "fir"
)

// ConsumerTraceEventData define "trace" event data.
type ConsumerTraceEventData struct {
	Type      ConsumerTraceEventType `json:"type,omitempty"`
	Timestamp uint64                 `json:"timestamp,omitempty"`
	Direction string                 `json:"direction,omitempty"`
	Info      interface{}            `json:"info,omitempty"`
}

// ConsumerDump is the dump info of a Consumer.
type ConsumerDump struct {
	Id                         string                    `json:"id,omitempty"`
	ProducerId                 string                    `json:"producerId,omitempty"`
	Kind                       MediaKind                 `json:"kind,omitempty"`
	Type                       ConsumerType              `json:"type,omitempty"`
	RtpParameters              RtpParameters             `json:"rtpParameters,omitempty"`
	ConsumableRtpEncodings     []RtpEncodingParameters   `json:"consumableRtpEncodings,omitempty"`
	SupportedCodecPayloadTypes []int                     `json:"supportedCodecPayloadTypes,omitempty"`
	TraceEventTypes            []ConsumerTraceEventType  `json:"traceEventTypes,omitempty"`
	Paused                     bool                      `json:"paused,omitempty"`
	ProducerPaused             bool                      `json:"producerPaused,omitempty"`
	Priority                   uint8                     `json:"priority,omitempty"`

	// Exactly one of the following is set, depending on Type.
	SimpleConsumerDump    *SimpleConsumerDump    `json:"simpleConsumerDump,omitempty"`
	SimulcastConsumerDump *SimulcastConsumerDump `json:"simulcastConsumerDump,omitempty"`
	SvcConsumerDump       *SvcConsumerDump       `json:"svcConsumerDump,omitempty"`
	PipeConsumerDump      *PipeConsumerDump      `json:"pipeConsumerDump,omitempty"`
}

// SimpleConsumerDump adds the fields specific to a simple Consumer.
type SimpleConsumerDump struct {
	RtpStream *RtpStreamDump `json:"rtpStream,omitempty"`
}

// SimulcastConsumerDump adds the fields specific to a simulcast/SVC Consumer.
type SimulcastConsumerDump struct {
	RtpStream              *RtpStreamDump `json:"rtpStream,omitempty"`
	PreferredSpatialLayer  uint8          `json:"preferredSpatialLayer"`
	TargetSpatialLayer     int8           `json:"targetSpatialLayer"`
	CurrentSpatialLayer    int8           `json:"currentSpatialLayer"`
	PreferredTemporalLayer uint8          `json:"preferredTemporalLayer"`
	TargetTemporalLayer    int8           `json:"targetTemporalLayer"`
	CurrentTemporalLayer   int8           `json:"currentTemporalLayer"`
}

// SvcConsumerDump has the same shape as SimulcastConsumerDump.
type SvcConsumerDump = SimulcastConsumerDump

// PipeConsumerDump adds the fields specific to a pipe Consumer.
type PipeConsumerDump struct {
	RtpStreams []*RtpStreamDump `json:"rtpStreams,omitempty"`
}

// ConsumerStat define the statistic info of a consumer.
type ConsumerStat = RtpStreamRecvStats
