package sfuworker

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

type WebRtcServerListenInfo struct {
	// Network protocol.
	Protocol TransportProtocol `json:"protocol,omitempty"`

	// Listening IPv4 or IPv6.
	Ip string `json:"ip,omitempty"`

	// Announced IPv4 or IPv6 (useful when running mediasoup behind NAT with private IP).
	AnnouncedIp string `json:"announcedIp,omitempty"`

	// Listening port.
	Port uint16 `json:"port,omitempty"`
}

type WebRtcServerOptions struct {
	// Listen infos.
	ListenInfos []WebRtcServerListenInfo

	// appData
	AppData interface{}
}

type WebRtcServerDump struct {
	Id                        string                `json:"id,omitempty"`
	UdpSockets                []IpPort              `json:"udpSockets,omitempty"`
	TcpServers                []IpPort              `json:"tcpServers,omitempty"`
	WebRtcTransportIds        []string              `json:"webRtcTransportIds,omitempty"`
	LocalIceUsernameFragments []IceUserNameFragment `json:"localIceUsernameFragments,omitempty"`
	TupleHashes               []TupleHash           `json:"tupleHashes,omitempty"`
}

type IpPort struct {
	Ip   string `json:"ip,omitempty"`
	Port uint16 `json:"port,omitempty"`
}

type IceUserNameFragment struct {
	LocalIceUsernameFragment string `json:"localIceUsernameFragment,omitempty"`
	WebRtcTransportId        string `json:"webRtcTransportId,omitempty"`
}

type TupleHash struct {
	TupleHash         uint64 `json:"tupleHash,omitempty"`
	WebRtcTransportId string `json:"webRtcTransportId,omitempty"`
}

type webrtcServerParams struct {
	internal    internalData
	data        interface{}
	listenInfos []WebRtcServerListenInfo
	registrator *MessageRegistrator
	notifier    *Notifier
	appData     interface{}
}

// WebRtcServer is a shared host for WebRtcTransports: a transport created
// against it takes its listen IPs from the server's listen infos instead of
// its own ListenIps. No sockets are opened; each transport still gets its own
// ICE candidates, each with its own port.
type WebRtcServer struct {
	IEventEmitter
	logger           Logger
	internal         internalData
	listenInfos      []WebRtcServerListenInfo
	registrator      *MessageRegistrator
	notifier         *Notifier
	closed           uint32
	appData          interface{}
	webRtcTransports sync.Map // string:WebRtcTransport
	observer         IEventEmitter
}

func NewWebRtcServer(params webrtcServerParams) *WebRtcServer {
	logger := NewLogger("WebRtcServer")
	logger.Debug("constructor()")

	return &WebRtcServer{
		IEventEmitter: NewEventEmitter(),
		logger:        logger,
		internal:      params.internal,
		listenInfos:   params.listenInfos,
		registrator:   params.registrator,
		notifier:      params.notifier,
		appData:       params.appData,
		observer:      NewEventEmitter(),
	}
}

// ListenIps derives the TransportListenIp set a WebRtcTransport created
// against this server announces: the Ip and AnnouncedIp of each listen
// info. Protocol and Port are not used.
func (s *WebRtcServer) ListenIps() []TransportListenIp {
	listenIps := make([]TransportListenIp, 0, len(s.listenInfos))
	for _, info := range s.listenInfos {
		listenIps = append(listenIps, TransportListenIp{Ip: info.Ip, AnnouncedIp: info.AnnouncedIp})
	}
	return listenIps
}

// register binds the server's handler-id into the MessageRegistrator so
// "webRtcServer."-addressed control requests reach handleControlRequest.
func (s *WebRtcServer) register() error {
	return s.registrator.Register(s.Id(), s.handleControlRequest, nil, nil)
}

func (s *WebRtcServer) handleControlRequest(method string, data json.RawMessage) (interface{}, error) {
	switch method {
	case "webRtcServer.dump":
		return s.dump()
	case "webRtcServer.close":
		s.Close()
		return nil, nil
	default:
		return nil, ErrHandlerNotFound
	}
}

// WebRtcServer id
func (s *WebRtcServer) Id() string {
	return s.internal.WebRtcServerId
}

// Whether the WebRtcServer is closed.
func (s *WebRtcServer) Closed() bool {
	return atomic.LoadUint32(&s.closed) > 0
}

// AppData returns App custom data.
func (s *WebRtcServer) AppData() interface{} {
	return s.appData
}

func (s *WebRtcServer) Observer() IEventEmitter {
	return s.observer
}

// Just for testing purposes.
func (s *WebRtcServer) webRtcTransportsForTesting() map[string]*WebRtcTransport {
	transports := make(map[string]*WebRtcTransport)

	s.webRtcTransports.Range(func(key, value interface{}) bool {
		transports[key.(string)] = value.(*WebRtcTransport)
		return true
	})

	return transports
}

func (s *WebRtcServer) Close() {
	if !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return
	}
	s.logger.Debug("close()")

	s.registrator.Unregister(s.Id())

	s.webRtcTransports.Range(func(key, value interface{}) bool {
		webRtcTransport := value.(*WebRtcTransport)
		webRtcTransport.webRtcServerClosed()

		// Emit observer event.
		s.observer.SafeEmit("webrtctransportunhandled", webRtcTransport)
		return true
	})
	s.webRtcTransports = sync.Map{}

	s.Emit("@close")
	s.RemoveAllListeners()

	// Emit observer event.
	s.observer.SafeEmit("close")
	s.observer.RemoveAllListeners()
}

// Worker was closed.
func (s *WebRtcServer) workerClosed() {
	if !atomic.CompareAndSwapUint32(&s.closed, 0, 1) {
		return
	}
	s.logger.Debug("workerClosed()")

	s.registrator.Unregister(s.Id())

	// NOTE: No need to close WebRtcTransports since they are closed by their
	// respective Router parents.
	s.webRtcTransports = sync.Map{}

	s.Emit("workerclose")

	// Emit observer event.
	s.observer.SafeEmit("close")
}

// Dump WebRtcServer.
func (s *WebRtcServer) Dump() (WebRtcServerDump, error) {
	s.logger.Debug("dump()")
	return s.dump()
}

func (s *WebRtcServer) dump() (WebRtcServerDump, error) {
	dump := WebRtcServerDump{Id: s.Id()}

	s.webRtcTransports.Range(func(key, _ interface{}) bool {
		dump.WebRtcTransportIds = append(dump.WebRtcTransportIds, key.(string))
		return true
	})

	return dump, nil
}

func (s *WebRtcServer) handleWebRtcTransport(webRtcTransport *WebRtcTransport) {
	s.webRtcTransports.Store(webRtcTransport.Id(), webRtcTransport)

	s.observer.SafeEmit("webrtctransporthandled", webRtcTransport)

	webRtcTransport.On("@close", func() {
		s.webRtcTransports.Delete(webRtcTransport.Id())
		// Emit observer event.
		s.observer.SafeEmit("webrtctransportunhandled", webRtcTransport)
	})
}
