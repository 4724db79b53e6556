package sfuworker

// RtpStreamParametersDump are the static RTP stream parameters.
type RtpStreamParametersDump struct {
	EncodingIdx    uint32   `json:"encodingIdx"`
	Ssrc           uint32   `json:"ssrc"`
	PayloadType    uint8    `json:"payloadType"`
	MimeType       string   `json:"mimeType"`
	ClockRate      uint32   `json:"clockRate"`
	Rid            string   `json:"rid,omitempty"`
	Cname          string   `json:"cname,omitempty"`
	RtxSsrc        *uint32  `json:"rtxSsrc,omitempty"`
	RtxPayloadType *uint8   `json:"rtxPayloadType,omitempty"`
	UseNack        bool     `json:"useNack"`
	UsePli         bool     `json:"usePli"`
	UseFir         bool     `json:"useFir"`
	UseInBandFec   bool     `json:"useInBandFec"`
	UseDtx         bool     `json:"useDtx"`
	SpatialLayers  uint8    `json:"spatialLayers,omitempty"`
	TemporalLayers uint8    `json:"temporalLayers,omitempty"`
}

// RtxStreamParameters are the static parameters of a retransmission stream.
type RtxStreamParameters struct {
	Ssrc        uint32 `json:"ssrc"`
	PayloadType uint8  `json:"payloadType"`
	MimeType    string `json:"mimeType"`
	ClockRate   uint32 `json:"clockRate"`
	Rrid        string `json:"rrid,omitempty"`
	Cname       string `json:"cname,omitempty"`
}

// RtxStreamDump is the dump of a retransmission stream.
type RtxStreamDump struct {
	Params RtxStreamParameters `json:"params"`
}

// RtpStreamDump is the dump of a producer or consumer RTP stream.
type RtpStreamDump struct {
	Params    RtpStreamParametersDump `json:"params"`
	Score     uint8                   `json:"score"`
	RtxStream *RtxStreamDump          `json:"rtxStream,omitempty"`
}
