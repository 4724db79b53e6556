package sfuworker

import (
	"sync"
)

// WebRtcTransportOptions defines the options to create webrtc t.
type WebRtcTransportOptions struct {
	// WebRtcServer is an instance of WebRtcServer. Mandatory unless listenIps is given.
	WebRtcServer *WebRtcServer

	// ListenIps are listening IP address or addresses in order of preference (first one
	// is the preferred one). Mandatory unless webRtcServer is given.
	ListenIps []TransportListenIp `json:"listenIps,omitempty"`

	// EnableUdp enables listening in UDP. Default true.
	EnableUdp *bool `json:"enableUdp,omitempty"`

	// EnableTcp enables listening in TCP. Default false.
	EnableTcp bool `json:"enableTcp,omitempty"`

	// PreferUdp prefers UDP. Default false.
	PreferUdp bool `json:"preferUdp,omitempty"`

	// PreferTcp prefers TCP. Default false.
	PreferTcp bool `json:"preferTcp,omitempty"`

	// InitialAvailableOutgoingBitrate sets the initial available outgoing bitrate (in bps). Default 600000.
	InitialAvailableOutgoingBitrate int `json:"initialAvailableOutgoingBitrate,omitempty"`

	// EnableSctp creates a SCTP association. Default false.
	EnableSctp bool `json:"enableSctp,omitempty"`

	// NumSctpStreams set up SCTP streams.
	NumSctpStreams NumSctpStreams `json:"numSctpStreams,omitempty"`

	// MaxSctpMessageSize defines the maximum allowed size for SCTP messages sent by DataProducers. Default 262144.
	MaxSctpMessageSize int `json:"maxSctpMessageSize,omitempty"`

	// SctpSendBufferSize defines the maximum SCTP send buffer used by DataConsumers. Default 262144.
	SctpSendBufferSize int `json:"sctpSendBufferSize,omitempty"`

	// AppData is the custom application data.
	AppData interface{} `json:"appData,omitempty"`
}

type IceParameters struct {
	UsernameFragment string `json:"usernameFragment"`
	Password         string `json:"password"`
	IceLite          bool   `json:"iceLite,omitempty"`
}

type IceCandidate struct {
	Foundation string            `json:"foundation"`
	Priority   uint32            `json:"priority"`
	Ip         string            `json:"ip"`
	Protocol   TransportProtocol `json:"protocol"`
	Port       uint16            `json:"port"`
	// alway "host"
	Type string `json:"type,omitempty"`
	// "passive" | ""
	TcpType string `json:"tcpType,omitempty"`
}

type DtlsParameters struct {
	Role         DtlsRole          `json:"role,omitempty"`
	Fingerprints []DtlsFingerprint `json:"fingerprints"`
}

// DtlsFingerprint defines the hash function algorithm (as defined in the
// "Hash function Textual Names" registry initially specified in RFC 4572 Section 8)
// and its corresponding certificate fingerprint value (a hex string as expressed
// utilizing the syntax of "fingerprint" in RFC 4572 Section 5; locally generated
// fingerprints use upper-case hex pairs separated by colons).
type DtlsFingerprint struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

type IceState string

const (
	IceState_New          IceState = "new"
	IceState_Connected    IceState = "connected"
	IceState_Completed    IceState = "completed"
	IceState_Disconnected IceState = "disconnected"
	IceState_Closed       IceState = "closed"
)

type DtlsRole string

const (
	DtlsRole_Auto   DtlsRole = "auto"
	DtlsRole_Client DtlsRole = "client"
	DtlsRole_Server DtlsRole = "server"
)

type DtlsState string

const (
	DtlsState_New        = "new"
	DtlsState_Connecting = "connecting"
	DtlsState_Connected  = "connected"
	DtlsState_Failed     = "failed"
	DtlsState_Closed     = "closed"
)

type WebRtcTransportSpecificStat struct {
	IceRole          string          `json:"iceRole"`
	IceState         IceState        `json:"iceState"`
	DtlsState        DtlsRole        `json:"dtlsState"`
	IceSelectedTuple *TransportTuple `json:"iceSelectedTuple,omitempty"`
}

type webrtcTransportData struct {
	// alway be "controlled"
	IceRole          string          `json:"iceRole,omitempty"`
	IceParameters    IceParameters   `json:"iceParameters,omitempty"`
	IceCandidates    []IceCandidate  `json:"iceCandidates,omitempty"`
	IceState         IceState        `json:"iceState,omitempty"`
	IceSelectedTuple *TransportTuple `json:"iceSelectedTuple,omitempty"`
	DtlsParameters   DtlsParameters  `json:"dtlsParameters,omitempty"`
	DtlsState        DtlsState       `json:"dtlsState,omitempty"`
	DtlsRemoteCert   string          `json:"dtlsRemoteCert,omitempty"`
	SctpParameters   SctpParameters  `json:"sctpParameters,omitempty"`
	SctpState        SctpState       `json:"sctpState,omitempty"`
}

// WebRtcTransport represents a network path negotiated by both, a WebRTC endpoint and mediasoup,
// via ICE and DTLS procedures. A WebRTC transport may be used to receive media, to send media or
// to both receive and send. There is no limitation in mediasoup. However, due to their design,
// mediasoup-client and libmediasoupclient require separate WebRTC transports for sending and
// receiving.
//
// The WebRTC transport implementation of mediasoup is ICE Lite, meaning that it does not initiate
// ICE connections but expects ICE Binding Requests from endpoints.
//
// - @emits icestatechange - (iceState IceState)
// - @emits iceselectedtuplechange - (tuple *TransportTuple)
// - @emits dtlsstatechange - (dtlsState DtlsState)
// - @emits sctpstatechange - (sctpState SctpState)
// - @emits trace - (trace TransportTraceEventData)
type WebRtcTransport struct {
	ITransport
	logger   Logger
	internal internalData
	locker   sync.Mutex
	data     *webrtcTransportData
}

func newWebRtcTransport(params transportParams) ITransport {
	data, _ := params.data.(*webrtcTransportData)
	params.data = transportData{
		sctpParameters: data.SctpParameters,
		sctpState:      data.SctpState,
		transportType:  TransportType_Webrtc,
	}
	params.logger = NewLogger("WebRtcTransport")

	transport := &WebRtcTransport{
		ITransport: newTransport(params),
		logger:     params.logger,
		internal:   params.internal,
		data:       data,
	}

	transport.ITransport.(*Transport).connectHandler = transport.handleConnect

	return transport
}

// IceRole returns ICE role.
func (t WebRtcTransport) IceRole() string {
	return t.data.IceRole
}

// IceParameters returns ICE parameters.
func (t WebRtcTransport) IceParameters() IceParameters {
	return t.data.IceParameters
}

// returns IceCandidates ICE candidates.
func (t WebRtcTransport) IceCandidates() []IceCandidate {
	return t.data.IceCandidates
}

// IceState returns ICE state.
func (t WebRtcTransport) IceState() IceState {
	return t.data.IceState
}

// IceSelectedTuple returns ICE selected tuple.
func (t WebRtcTransport) IceSelectedTuple() *TransportTuple {
	return t.data.IceSelectedTuple
}

// DtlsParameters returns DTLS parameters.
func (t WebRtcTransport) DtlsParameters() DtlsParameters {
	return t.data.DtlsParameters
}

// DtlsState returns DTLS state.
func (t WebRtcTransport) DtlsState() DtlsState {
	return t.data.DtlsState
}

// DtlsRemoteCert returns the value of the first fingerprint the remote endpoint passed to
// Connect. No certificate is exchanged, so this is not a PEM certificate.
func (t WebRtcTransport) DtlsRemoteCert() string {
	return t.data.DtlsRemoteCert
}

// SctpParameters returns SCTP parameters.
func (t WebRtcTransport) SctpParameters() SctpParameters {
	return t.data.SctpParameters
}

// SctpState returns SCTP state.
func (t WebRtcTransport) SctpState() SctpState {
	return t.data.SctpState
}

// Observer returns an EventEmitter object.
//
// - @emits close
// - @emits newproducer - (producer *Producer)
// - @emits newconsumer - (consumer *Consumer)
// - @emits newdataproducer - (dataProducer *DataProducer)
// - @emits newdataconsumer - (dataConsumer *DataConsumer)
// - @emits icestatechange - (iceState IceState)
// - @emits iceselectedtuplechange - (tuple *TransportTuple)
// - @emits dtlsstatechange - (dtlsState DtlsState)
// - @emits sctpstatechange - (sctpState SctpState)
// - @emits trace - (trace TransportTraceEventData)
func (t *WebRtcTransport) Observer() IEventEmitter {
	return t.ITransport.Observer()
}

// Close the WebRtcTransport.
func (t *WebRtcTransport) Close() {
	if t.Closed() {
		return
	}

	t.data.IceState = IceState_Closed
	t.data.IceSelectedTuple = nil
	t.data.DtlsState = DtlsState_Closed

	if len(t.data.SctpState) > 0 {
		t.data.SctpState = SctpState_Closed
	}

	t.ITransport.Close()
}

// routerClosed called when router was closed.
func (t *WebRtcTransport) routerClosed() {
	if t.Closed() {
		return
	}

	t.data.IceState = IceState_Closed
	t.data.IceSelectedTuple = nil
	t.data.DtlsState = DtlsState_Closed

	if len(t.data.SctpState) > 0 {
		t.data.SctpState = SctpState_Closed
	}

	t.ITransport.routerClosed()
}

// webRtcServerClosed called when closing the associated WebRtcServer.
func (t *WebRtcTransport) webRtcServerClosed() {
	if t.Closed() {
		return
	}
	t.data.IceState = IceState_Closed
	t.data.IceSelectedTuple = nil
	t.data.DtlsState = DtlsState_Closed

	if len(t.data.SctpState) > 0 {
		t.data.SctpState = SctpState_Closed
	}
}

// handleConnect answers "transport.connect": it picks the local DTLS role
// against the endpoint's offered role and moves the transport straight to
// the connected ICE/DTLS state, since there is no real ICE agent racing
// STUN checks behind this in-process transport.
func (t *WebRtcTransport) handleConnect(options TransportConnectOptions) error {
	t.logger.Debug("connect()")

	if options.DtlsParameters == nil {
		return NewTypeError("missing dtlsParameters")
	}

	t.locker.Lock()

	localRole := options.DtlsParameters.Role
	switch localRole {
	case DtlsRole_Client:
		localRole = DtlsRole_Server
	default:
		localRole = DtlsRole_Client
	}
	t.data.DtlsParameters.Role = localRole
	t.data.DtlsState = DtlsState_Connecting

	t.locker.Unlock()

	t.SafeEmit("dtlsstatechange", DtlsState_Connecting)
	t.Observer().SafeEmit("dtlsstatechange", DtlsState_Connecting)

	t.locker.Lock()
	t.data.DtlsState = DtlsState_Connected
	t.data.DtlsRemoteCert = fingerprintForDtlsParameters(*options.DtlsParameters)
	t.data.IceState = IceState_Connected
	t.locker.Unlock()

	t.SafeEmit("dtlsstatechange", DtlsState_Connected)
	t.Observer().SafeEmit("dtlsstatechange", DtlsState_Connected)

	t.SafeEmit("icestatechange", IceState_Connected)
	t.Observer().SafeEmit("icestatechange", IceState_Connected)

	if len(t.data.IceCandidates) > 0 {
		tuple := &TransportTuple{
			LocalIp:   t.data.IceCandidates[0].Ip,
			LocalPort: t.data.IceCandidates[0].Port,
			Protocol:  string(t.data.IceCandidates[0].Protocol),
		}
		t.locker.Lock()
		t.data.IceSelectedTuple = tuple
		t.locker.Unlock()

		t.SafeEmit("iceselectedtuplechange", tuple)
		t.Observer().SafeEmit("iceselectedtuplechange", tuple)
	}

	return nil
}

// RestartIce regenerates the local ICE username fragment and password.
func (t *WebRtcTransport) RestartIce() (IceParameters, error) {
	t.logger.Debug("restartIce()")

	if t.Closed() {
		return IceParameters{}, ErrTransportClosed
	}

	t.locker.Lock()
	t.data.IceParameters = generateIceParameters(t.data.IceParameters.IceLite)
	iceParameters := t.data.IceParameters
	t.locker.Unlock()

	return iceParameters, nil
}
