package sfuworker

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

type ITransport interface {
	IEventEmitter
	Id() string
	Closed() bool
	AppData() interface{}
	Observer() IEventEmitter
	Close()
	routerClosed()
	register() error
	Dump() (*TransportDump, error)
	GetStats() ([]*TransportStat, error)
	Connect(TransportConnectOptions) error
	SetMaxIncomingBitrate(bitrate int) error
	Produce(ProducerOptions) (*Producer, error)
	Consume(ConsumerOptions) (*Consumer, error)
	ProduceData(DataProducerOptions) (*DataProducer, error)
	ConsumeData(DataConsumerOptions) (*DataConsumer, error)
	EnableTraceEvent(types ...TransportTraceEventType) error
}

type TransportListenIp struct {
	/**
	 * Listening IPv4 or IPv6.
	 */
	Ip string `json:"ip,omitempty"`

	/**
	 * Announced IPv4 or IPv6 (useful when running mediasoup behind NAT with
	 * private IP).
	 */
	AnnouncedIp string `json:"announcedIp,omitempty"`
}

/**
 * Transport protocol.
 */
type TransportProtocol string

const (
	TransportProtocol_Udp TransportProtocol = "udp"
	TransportProtocol_Tcp                   = "tcp"
)

type TransportTraceEventType string

const (
	TransportTraceEventType_Probation TransportTraceEventType = "probation"
	TransportTraceEventType_Bwe                               = "bwe"
)

type TransportTuple struct {
	LocalIp    string `json:"localIp,omitempty"`
	LocalPort  uint16 `json:"localPort,omitempty"`
	RemoteIp   string `json:"remoteIp,omitempty"`
	RemotePort uint16 `json:"remotePort,omitempty"`
	Protocol   string `json:"protocol,omitempty"`
}

type TransportTraceEventData struct {
	/**
	 * Trace type.
	 */
	Type TransportTraceEventType `json:"type,omitempty"`
	/**
	 * Event timestamp.
	 */
	Timestamp int64 `json:"timestamp,omitempty"`
	/**
	 * Event direction.
	 */
	Direction string `json:"direction,omitempty"`
	/**
	 * Per type information.
	 */
	Info interface{} `json:"info,omitempty"`
}

type SctpState string

const (
	SctpState_New        = "new"
	SctpState_Connecting = "connecting"
	SctpState_Connected  = "connected"
	SctpState_Failed     = "failed"
	SctpState_Closed     = "closed"
)

type TransportStat struct {
	// Common to all Transports.
	Type                     string    `json:"type"`
	TransportId              string    `json:"transportId"`
	Timestamp                int64     `json:"timestamp"`
	SctpState                SctpState `json:"sctpState,omitempty"`
	BytesReceived            int64     `json:"bytesReceived"`
	RecvBitrate              int64     `json:"recvBitrate"`
	BytesSent                int64     `json:"bytesSent"`
	SendBitrate              int64     `json:"sendBitrate"`
	RtpBytesReceived         int64     `json:"rtpBytesReceived"`
	RtpRecvBitrate           int64     `json:"rtpRecvBitrate"`
	RtpBytesSent             int64     `json:"rtpBytesSent"`
	RtpSendBitrate           int64     `json:"rtpSendBitrate"`
	RtxBytesReceived         int64     `json:"rtxBytesReceived"`
	RtxRecvBitrate           int64     `json:"rtxRecvBitrate"`
	RtxBytesSent             int64     `json:"rtxBytesSent"`
	RtxSendBitrate           int64     `json:"rtxSendBitrate"`
	ProbationBytesSent       int64     `json:"probationBytesSent"`
	ProbationSendBitrate     int64     `json:"probationSendBitrate"`
	AvailableOutgoingBitrate int64     `json:"availableOutgoingBitrate,omitempty"`
	AvailableIncomingBitrate int64     `json:"availableIncomingBitrate,omitempty"`
	MaxIncomingBitrate       int64     `json:"maxIncomingBitrate,omitempty"`

	*WebRtcTransportSpecificStat
	*PlainTransportSpecificStat // share tuple with pipe transport stat
}

type TransportConnectOptions struct {
	// pipe and plain transport
	Ip             string          `json:"ip,omitempty"`
	Port           uint16          `json:"port,omitempty"`
	SrtpParameters *SrtpParameters `json:"srtpParameters,omitempty"`

	// plain transport
	RtcpPort uint16 `json:"rtcpPort,omitempty"`

	// webrtc transport
	DtlsParameters *DtlsParameters `json:"dtlsParameters,omitempty"`
}

type TransportType string

const (
	TransportType_Direct TransportType = "DirectTransport"
	TransportType_Plain                = "PlainTransport"
	TransportType_Pipe                 = "PipeTransport"
	TransportType_Webrtc               = "WebrtcTransport"
)

type transportData struct {
	sctpParameters SctpParameters
	sctpState      SctpState
	transportType  TransportType
}

type transportParams struct {
	// {
	// 	routerId: string;
	// 	transportId: string;
	// };
	internal                 internalData
	data                     interface{}
	registrator              *MessageRegistrator
	notifier                 *Notifier
	appData                  interface{}
	getRouterRtpCapabilities func() RtpCapabilities
	getProducerById          func(string) *Producer
	getDataProducerById      func(string) *DataProducer
	logger                   Logger
}

/**
 * Transport
 * @emits routerclose
 * @emits @close
 * @emits @newproducer - (producer: Producer)
 * @emits @producerclose - (producer: Producer)
 * @emits @newdataproducer - (dataProducer: DataProducer)
 * @emits @dataproducerclose - (dataProducer: DataProducer)
 */
type Transport struct {
	IEventEmitter
	logger Logger
	// Internal data.
	internal internalData
	// Transport data. This is set by the subclass.
	data transportData
	// MessageRegistrator this transport's handler-id is bound in.
	registrator *MessageRegistrator
	// Notifier for outbound state-change events.
	notifier *Notifier
	// Close flag.
	closed uint32
	// Custom app data.
	appData interface{}
	// Method to retrieve Router RTP capabilities.
	getRouterRtpCapabilities func() RtpCapabilities
	// Method to retrieve a Producer.
	getProducerById func(string) *Producer
	// Method to retrieve a DataProducer.
	getDataProducerById func(string) *DataProducer
	// Producers map.
	producers sync.Map
	// Consumers map.
	consumers sync.Map
	// DataProducers map.
	dataProducers sync.Map
	// DataConsumers map.
	dataConsumers sync.Map
	// RTCP CNAME for Producers.
	cnameForProducers string
	// Next MID for Consumers. It's converted into string when used.
	nextMidForConsumers uint32
	// Buffer with available SCTP stream ids.
	sctpStreamIds []byte
	// Next SCTP stream id.
	nextSctpStreamId int
	// Observer instance.
	observer IEventEmitter
	// locker instance
	locker sync.Mutex
	// connectHandler lets each transport subclass answer "transport.connect"
	// its own way (DTLS role selection, SRTP key exchange, ...); set by the
	// subclass constructor after embedding this Transport.
	connectHandler func(TransportConnectOptions) error
}

func newTransport(params transportParams) ITransport {
	params.logger.Debug("constructor()")

	if params.appData == nil {
		params.appData = H{}
	}

	transport := &Transport{
		IEventEmitter:            NewEventEmitter(),
		logger:                   params.logger,
		internal:                 params.internal,
		data:                     params.data.(transportData),
		registrator:              params.registrator,
		notifier:                 params.notifier,
		appData:                  params.appData,
		getRouterRtpCapabilities: params.getRouterRtpCapabilities,
		getProducerById:          params.getProducerById,
		getDataProducerById:      params.getDataProducerById,
		observer:                 NewEventEmitter(),
	}

	return transport
}

// register binds this transport's handler-id into the MessageRegistrator
// so "transport."-addressed control requests (close, dump, produce,
// consume, connect, ...) reach handleControlRequest.
func (transport *Transport) register() error {
	return transport.registrator.Register(transport.Id(), transport.handleControlRequest, nil, nil)
}

func (transport *Transport) handleControlRequest(method string, data json.RawMessage) (interface{}, error) {
	switch method {
	case "transport.close":
		transport.Close()
		return nil, nil
	case "transport.dump":
		return transport.Dump()
	case "transport.getStats":
		return transport.GetStats()
	case "transport.connect":
		var opts TransportConnectOptions
		if err := json.Unmarshal(data, &opts); err != nil {
			return nil, NewTypeError("invalid transport.connect data: %s", err)
		}
		return nil, transport.Connect(opts)
	case "transport.setMaxIncomingBitrate":
		var req struct {
			Bitrate int `json:"bitrate"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid transport.setMaxIncomingBitrate data: %s", err)
		}
		return nil, transport.SetMaxIncomingBitrate(req.Bitrate)
	case "transport.enableTraceEvent":
		var req struct {
			Types []TransportTraceEventType `json:"types"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid transport.enableTraceEvent data: %s", err)
		}
		return nil, transport.EnableTraceEvent(req.Types...)
	default:
		return nil, ErrHandlerNotFound
	}
}

// Transport id
func (transport *Transport) Id() string {
	return transport.internal.TransportId
}

// Whether the Transport is closed.
func (transport *Transport) Closed() bool {
	return atomic.LoadUint32(&transport.closed) > 0
}

//App custom data.
func (transport *Transport) AppData() interface{} {
	return transport.appData
}

/**
 * Observer.
 *
 * @emits close
 * @emits newproducer - (producer: Producer)
 * @emits newconsumer - (consumer: Consumer)
 * @emits newdataproducer - (dataProducer: DataProducer)
 * @emits newdataconsumer - (dataConsumer: DataConsumer)
 */
func (transport *Transport) Observer() IEventEmitter {
	return transport.observer
}

// Close the Transport.
func (transport *Transport) Close() {
	if atomic.CompareAndSwapUint32(&transport.closed, 0, 1) {
		transport.logger.Debug("close()")

		transport.registrator.Unregister(transport.Id())

		transport.producers.Range(func(key, value interface{}) bool {
			producer := value.(*Producer)

			producer.transportClosed()
			transport.Emit("@producerclose", producer)

			return true
		})
		transport.producers = sync.Map{}

		transport.consumers.Range(func(key, value interface{}) bool {
			value.(*Consumer).transportClosed()

			return true
		})
		transport.consumers = sync.Map{}

		transport.dataProducers.Range(func(key, value interface{}) bool {
			producer := value.(*DataProducer)

			producer.transportClosed()
			transport.Emit("@dataproducerclose", producer)

			return true
		})
		transport.dataProducers = sync.Map{}

		transport.dataConsumers.Range(func(key, value interface{}) bool {
			value.(*DataConsumer).transportClosed()

			return true
		})
		transport.dataConsumers = sync.Map{}

		transport.Emit("@close")
		transport.RemoveAllListeners()

		// Emit observer event.
		transport.observer.SafeEmit("close")
		transport.observer.RemoveAllListeners()
	}
	return
}

/**
 * Router was closed.
 *
 * @virtual
 */
func (transport *Transport) routerClosed() {
	if atomic.CompareAndSwapUint32(&transport.closed, 0, 1) {
		transport.logger.Debug("routerClosed()")

		transport.registrator.Unregister(transport.Id())

		transport.producers.Range(func(key, value interface{}) bool {
			producer := value.(*Producer)

			producer.transportClosed()
			transport.Emit("@producerclose", producer)

			return true
		})
		transport.producers = sync.Map{}

		transport.consumers.Range(func(key, value interface{}) bool {
			value.(*Consumer).transportClosed()

			return true
		})
		transport.consumers = sync.Map{}

		transport.dataProducers.Range(func(key, value interface{}) bool {
			producer := value.(*DataProducer)

			producer.transportClosed()
			transport.Emit("@dataproducerclose", producer)

			return true
		})
		transport.dataProducers = sync.Map{}

		transport.dataConsumers.Range(func(key, value interface{}) bool {
			value.(*DataConsumer).transportClosed()

			return true
		})
		transport.dataConsumers = sync.Map{}

		transport.SafeEmit("routerclose")
		transport.RemoveAllListeners()

		// Emit observer event.
		transport.observer.SafeEmit("close")
		transport.observer.RemoveAllListeners()
	}
}

// Dump Transport.
func (transport *Transport) Dump() (data *TransportDump, err error) {
	transport.logger.Debug("dump()")

	if transport.Closed() {
		return nil, ErrTransportClosed
	}

	dump := &TransportDump{
		Id:            transport.Id(),
		SctpState:     transport.data.sctpState,
		ProducerIds:   []string{},
		ConsumerIds:   []string{},
	}
	transport.producers.Range(func(key, _ interface{}) bool {
		dump.ProducerIds = append(dump.ProducerIds, key.(string))
		return true
	})
	transport.consumers.Range(func(key, _ interface{}) bool {
		dump.ConsumerIds = append(dump.ConsumerIds, key.(string))
		return true
	})

	return dump, nil
}

// Get Transport stats.
func (transport *Transport) GetStats() (stat []*TransportStat, err error) {
	transport.logger.Debug("getStats()")

	if transport.Closed() {
		return nil, ErrTransportClosed
	}

	return []*TransportStat{{
		Type:        string(transport.data.transportType),
		TransportId: transport.Id(),
		SctpState:   transport.data.sctpState,
	}}, nil
}

/**
 * Provide the Transport remote parameters.
 */
func (transport *Transport) Connect(options TransportConnectOptions) error {
	if transport.Closed() {
		return ErrTransportClosed
	}
	if transport.connectHandler == nil {
		return errors.New("method not implemented in the subclass")
	}
	return transport.connectHandler(options)
}

/**
 * Set maximum incoming bitrate for receiving media. It only checks that
 * the Transport is open: the value is not stored and no bitrate cap is
 * applied.
 */
func (transport *Transport) SetMaxIncomingBitrate(bitrate int) error {
	transport.logger.Debug("SetMaxIncomingBitrate() [bitrate:%d]", bitrate)

	if transport.Closed() {
		return ErrTransportClosed
	}

	return nil
}

/**
 * Create a Producer.
 */
func (transport *Transport) Produce(options ProducerOptions) (producer *Producer, err error) {
	transport.logger.Debug("produce()")

	id := options.Id
	kind := options.Kind
	rtpParameters := options.RtpParameters
	paused := options.Paused
	keyFrameRequestDelay := options.KeyFrameRequestDelay
	appData := options.AppData

	if len(id) > 0 {
		if _, ok := transport.producers.Load(id); ok {
			err = NewTypeError(`a Producer with same id "%s" already exists`, id)
			return
		}
	} else {
		id = newUuid()
	}

	// This may throw.
	if err = validateRtpParameters(&rtpParameters); err != nil {
		return
	}

	// If missing or empty encodings, add one.
	if len(rtpParameters.Encodings) == 0 {
		rtpParameters.Encodings = []RtpEncodingParameters{{}}
	}

	// Don"t do this in PipeTransports since there we must keep CNAME value in each Producer.
	if transport.data.transportType != TransportType_Pipe {
		// If CNAME is given and we don"t have yet a CNAME for Producers in this
		// Transport, take it.
		if len(transport.cnameForProducers) == 0 && len(rtpParameters.Rtcp.Cname) > 0 {
			transport.cnameForProducers = rtpParameters.Rtcp.Cname
		} else if len(transport.cnameForProducers) == 0 {
			// Otherwise if we don"t have yet a CNAME for Producers and the RTP parameters
			// do not include CNAME, create a random one.
			transport.cnameForProducers = newUuid()[:8]
		}

		// Override Producer"s CNAME.
		rtpParameters.Rtcp.Cname = transport.cnameForProducers
	}

	routerRtpCapabilities := transport.getRouterRtpCapabilities()

	rtpMapping, err := getProducerRtpParametersMapping(
		rtpParameters, routerRtpCapabilities)
	if err != nil {
		return
	}

	consumableRtpParameters, err := getConsumableRtpParameters(
		kind, rtpParameters, routerRtpCapabilities, rtpMapping)
	if err != nil {
		return
	}

	internal := transport.internal
	internal.ProducerId = id

	producerType := deduceProducerType(rtpParameters)
	if transport.data.transportType == TransportType_Pipe {
		producerType = ProducerType_Simple
	}

	producerData := producerData{
		Kind:                    kind,
		RtpParameters:           rtpParameters,
		Type:                    producerType,
		RtpMapping:              rtpMapping,
		ConsumableRtpParameters: consumableRtpParameters,
	}

	producer = newProducer(producerParams{
		internal:             internal,
		data:                 producerData,
		registrator:          transport.registrator,
		notifier:             transport.notifier,
		appData:              appData,
		paused:               paused,
		keyFrameRequestDelay: keyFrameRequestDelay,
	})

	if err = producer.register(); err != nil {
		return nil, err
	}

	transport.producers.Store(producer.Id(), producer)

	producer.On("@close", func() {
		transport.producers.Delete(producer.Id())
		transport.Emit("@producerclose", producer)
	})

	transport.Emit("@newproducer", producer)

	// Emit observer event.
	transport.observer.SafeEmit("newproducer", producer)

	return
}

/**
 * Create a Consumer.
 */
func (transport *Transport) Consume(options ConsumerOptions) (consumer *Consumer, err error) {
	transport.logger.Debug("consume()")

	producerId := options.ProducerId
	rtpCapabilities := options.RtpCapabilities
	paused := options.Paused
	preferredLayers := options.PreferredLayers
	appData := options.AppData

	producer := transport.getProducerById(producerId)

	if producer == nil {
		err = fmt.Errorf(`Producer with id "%s" not found`, producerId)
		return
	}

	rtpParameters, err := getConsumerRtpParameters(producer.ConsumableRtpParameters(), rtpCapabilities, options.Pipe)
	if err != nil {
		return
	}

	if !options.Pipe {
		transport.locker.Lock()

		// Set MID.
		rtpParameters.Mid = fmt.Sprintf("%d", transport.nextMidForConsumers)

		transport.nextMidForConsumers++

		// We use up to 8 bytes for MID (string).
		if maxMid := uint32(100000000); transport.nextMidForConsumers == maxMid {
			transport.logger.Error(`consume() | reaching max MID value "%d"`, maxMid)

			transport.nextMidForConsumers = 0
		}

		transport.locker.Unlock()
	}

	internal := transport.internal
	internal.ConsumerId = newUuid()
	internal.ProducerId = producerId

	typ := ConsumerType(producer.Type())

	if options.Pipe {
		typ = ConsumerType_Pipe
	}

	consumerData := consumerData{
		Kind:                   producer.Kind(),
		RtpParameters:          rtpParameters,
		Type:                   typ,
		ConsumableRtpEncodings: producer.ConsumableRtpParameters().Encodings,
	}
	consumer = newConsumer(consumerParams{
		internal:        internal,
		data:            consumerData,
		registrator:     transport.registrator,
		notifier:        transport.notifier,
		appData:         appData,
		paused:          paused,
		producerPaused:  producer.Paused(),
		score:           ConsumerScore{},
		preferredLayers: preferredLayers,
		producer:        producer,
	})

	if err = consumer.register(); err != nil {
		return nil, err
	}

	transport.consumers.Store(consumer.Id(), consumer)
	consumer.On("@close", func() {
		transport.consumers.Delete(consumer.Id())
	})
	consumer.On("@producerclose", func() {
		transport.consumers.Delete(consumer.Id())
	})

	producer.addConsumer(consumer)

	// Emit observer event.
	transport.observer.SafeEmit("newconsumer", consumer)

	return
}

/**
 * Create a DataProducer.
 */
func (transport *Transport) ProduceData(options DataProducerOptions) (dataProducer *DataProducer, err error) {
	transport.logger.Debug("produceData()")

	id := options.Id
	sctpStreamParameters := options.SctpStreamParameters
	label := options.Label
	protocol := options.Protocol
	appData := options.AppData

	if len(id) > 0 {
		if _, ok := transport.dataProducers.Load(id); ok {
			err = NewTypeError(`a DataProducer with same id "%s" already exists`, id)
			return
		}
	} else {
		id = newUuid()
	}

	var typ DataProducerType

	if transport.data.transportType == TransportType_Direct {
		typ = DataProducerDirect

		if sctpStreamParameters != nil {
			transport.logger.Warn(
				"produceData() | sctpStreamParameters are ignored when producing data on a DirectTransport")
		}
	} else {
		typ = DataProducerSctp

		if err = validateSctpStreamParameters(sctpStreamParameters); err != nil {
			return
		}
	}

	internal := transport.internal
	internal.DataProducerId = id

	data := dataProducerData{
		Type:                 typ,
		SctpStreamParameters: sctpStreamParameters,
		Label:                label,
		Protocol:             protocol,
	}

	dataProducer = newDataProducer(dataProducerParams{
		internal:    internal,
		data:        data,
		registrator: transport.registrator,
		notifier:    transport.notifier,
		appData:     appData,
		paused:      options.Paused,
	})

	if err = dataProducer.register(); err != nil {
		return nil, err
	}

	transport.dataProducers.Store(dataProducer.Id(), dataProducer)
	dataProducer.On("@close", func() {
		transport.dataProducers.Delete(dataProducer.Id())
		transport.Emit("@dataproducerclose", dataProducer)
	})

	transport.Emit("@newdataproducer", dataProducer)

	// Emit observer event.
	transport.observer.SafeEmit("newdataproducer", dataProducer)

	return
}

/**
 * Create a DataConsumer.
 */
func (transport *Transport) ConsumeData(options DataConsumerOptions) (dataConsumer *DataConsumer, err error) {
	transport.logger.Debug("consumeData()")

	dataProducerId := options.DataProducerId
	ordered := options.Ordered
	maxPacketLifeTime := int(options.MaxPacketLifeTime)
	maxRetransmits := int(options.MaxRetransmits)
	appData := options.AppData
	paused := options.Paused
	subchannels := options.Subchannels

	dataProducer := transport.getDataProducerById(dataProducerId)

	if dataProducer == nil {
		err = fmt.Errorf(`DataProducer with id "%s" not found`, dataProducerId)
		return
	}

	var typ DataConsumerType
	var sctpStreamParameters *SctpStreamParameters
	var sctpStreamId int = -1

	if transport.data.transportType == TransportType_Direct {
		typ = DataConsumerDirect

		if ordered != nil || maxPacketLifeTime > 0 || maxRetransmits > 0 {
			transport.logger.Warn(
				"consumeData() | ordered, maxPacketLifeTime and maxRetransmits are ignored when consuming data on a DirectTransport")
		}
	} else {
		typ = DataConsumerSctp

		params := *dataProducer.SctpStreamParameters()
		sctpStreamParameters = &params
		// Override if given.
		if ordered != nil {
			sctpStreamParameters.Ordered = ordered
		}
		if maxPacketLifeTime > 0 {
			sctpStreamParameters.MaxPacketLifeTime = maxPacketLifeTime
		}
		if maxRetransmits > 0 {
			sctpStreamParameters.MaxRetransmits = maxRetransmits
		}

		transport.locker.Lock()

		if sctpStreamId, err = transport.getNextSctpStreamId(); err != nil {
			transport.locker.Unlock()
			return
		}
		transport.sctpStreamIds[sctpStreamId] = 1
		sctpStreamParameters.StreamId = uint16(sctpStreamId)

		transport.locker.Unlock()
	}

	internal := transport.internal
	internal.DataConsumerId = newUuid()
	internal.DataProducerId = dataProducerId

	data := dataConsumerData{
		Type:                 typ,
		SctpStreamParameters: sctpStreamParameters,
		Label:                dataProducer.Label(),
		Protocol:             dataProducer.Protocol(),
	}

	dataConsumer = newDataConsumer(dataConsumerParams{
		internal:     internal,
		data:         data,
		registrator:  transport.registrator,
		notifier:     transport.notifier,
		appData:      appData,
		dataProducer: dataProducer,
		paused:       paused,
		subchannels:  subchannels,
	})

	if err = dataConsumer.register(); err != nil {
		return nil, err
	}

	transport.dataConsumers.Store(dataConsumer.Id(), dataConsumer)
	dataConsumer.On("@close", func() {
		transport.dataConsumers.Delete(dataConsumer.Id())

		transport.locker.Lock()
		if sctpStreamId >= 0 {
			transport.sctpStreamIds[sctpStreamId] = 0
		}
		transport.locker.Unlock()
	})
	dataConsumer.On("@dataproducerclose", func() {
		transport.dataConsumers.Delete(dataConsumer.Id())

		transport.locker.Lock()
		if sctpStreamId >= 0 {
			transport.sctpStreamIds[sctpStreamId] = 0
		}
		transport.locker.Unlock()
	})

	dataProducer.addConsumer(dataConsumer)

	// Emit observer event.
	transport.observer.SafeEmit("newdataconsumer", dataConsumer)

	return
}

/**
 * Enable 'trace' event. The base Transport accepts the request without
 * recording the given types, and it emits no "trace" events.
 */
func (transport *Transport) EnableTraceEvent(types ...TransportTraceEventType) error {
	transport.logger.Debug("enableTraceEvent()")
	return nil
}

func (transport *Transport) getNextSctpStreamId() (sctpStreamId int, err error) {
	if transport.data.sctpParameters.MIS == 0 {
		err = NewTypeError("missing data.sctpParameters.MIS")
		return
	}

	numStreams := transport.data.sctpParameters.MIS

	if len(transport.sctpStreamIds) == 0 {
		transport.sctpStreamIds = make([]byte, numStreams)
	}

	for idx := 0; idx < len(transport.sctpStreamIds); idx++ {
		sctpStreamId = (transport.nextSctpStreamId + idx) % len(transport.sctpStreamIds)

		if transport.sctpStreamIds[sctpStreamId] == 0 {
			transport.nextSctpStreamId = sctpStreamId + 1
			return
		}
	}

	err = errors.New("no sctpStreamId available")

	return
}

// TransportDump is the local Dump() body for every transport type; each
// subclass may embed richer fields (see webrtc/plain/pipe transport
// dumps) but every transport reports at least this much.
type TransportDump struct {
	Id          string    `json:"id,omitempty"`
	SctpState   SctpState `json:"sctpState,omitempty"`
	ProducerIds []string  `json:"producerIds,omitempty"`
	ConsumerIds []string  `json:"consumerIds,omitempty"`
}

// deduceProducerType classifies a Producer's RTP parameters the way the
// donor's ProducerType logic does: more than one encoding without an
// SVC scalability mode is simulcast, an SVC scalability mode makes it
// svc, otherwise it is a plain simple stream.
func deduceProducerType(rtpParameters RtpParameters) ProducerType {
	if len(rtpParameters.Encodings) == 0 {
		return ProducerType_Simple
	}
	if mode := rtpParameters.Encodings[0].ScalabilityMode; len(mode) > 0 {
		if parsed := ParseScalabilityMode(mode); parsed.SpatialLayers > 1 {
			return ProducerType_Svc
		}
	}
	if len(rtpParameters.Encodings) > 1 {
		return ProducerType_Simulcast
	}
	return ProducerType_Simple
}
