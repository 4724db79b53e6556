package sfuworker

// internalData is the cascading id-addressing struct carried by every
// control/payload frame: each nested object (Router → Transport →
// Producer/Consumer/...) adds its own id on top of its parent's, so a
// Consumer request, say, carries RouterId+TransportId+ProducerId+
// ConsumerId all at once. targetHandlerId (channel.go) picks the most
// specific one to resolve the actual addressee.
type internalData struct {
	RouterId       string `json:"routerId,omitempty"`
	TransportId    string `json:"transportId,omitempty"`
	ProducerId     string `json:"producerId,omitempty"`
	ConsumerId     string `json:"consumerId,omitempty"`
	DataProducerId string `json:"dataProducerId,omitempty"`
	DataConsumerId string `json:"dataConsumerId,omitempty"`
	RtpObserverId  string `json:"rtpObserverId,omitempty"`
	WebRtcServerId string `json:"webRtcServerId,omitempty"`
}

const (
	NS_MESSAGE_MAX_LEN = 4194308
	NS_PAYLOAD_MAX_LEN = 4194304
)
