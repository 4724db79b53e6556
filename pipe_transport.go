package sfuworker

import (
	"fmt"
)

type PipeTransportOptions struct {
	/**
	 * Listening IP address.
	 */
	ListenIp TransportListenIp `json:"listenIp,omitempty"`

	/**
	 * Create a SCTP association. Default false.
	 */
	EnableSctp bool `json:"enableSctp,omitempty"`

	/**
	 * SCTP streams number.
	 */
	NumSctpStreams NumSctpStreams `json:"numSctpStreams,omitempty"`

	/**
	 * Maximum allowed size for SCTP messages sent by DataProducers.
	 * Default 268435456.
	 */
	MaxSctpMessageSize int `json:"maxSctpMessageSize,omitempty"`

	/**
	 * Maximum SCTP send buffer used by DataConsumers.
	 * Default 268435456.
	 */
	SctpSendBufferSize int `json:"sctpSendBufferSize,omitempty"`

	/**
	 * Enable RTX and NACK for RTP retransmission. Useful if both Routers are
	 * located in different hosts and there is packet lost in the link. For this
	 * to work, both PipeTransports must enable this setting. Default false.
	 */
	EnableRtx bool `json:"enableRtx,omitempty"`

	/**
	 * Enable SRTP. Useful to protect the RTP and RTCP traffic if both Routers
	 * are located in different hosts. For this to work, connect() must be called
	 * with remote SRTP parameters. Default false.
	 */
	EnableSrtp bool `json:"enableSrtp,omitempty"`

	/**
	 * Custom application data.
	 */
	AppData interface{} `json:"appData,omitempty"`
}

type pipeTransortData struct {
	Tuple          TransportTuple  `json:"tuple,omitempty"`
	SctpParameters SctpParameters  `json:"sctpParameters,omitempty"`
	SctpState      SctpState       `json:"sctpState,omitempty"`
	Rtx            bool            `json:"rtx,omitempty"`
	SrtpParameters *SrtpParameters `json:"srtpParameters,omitempty"`
}

/**
 * PipeTransport
 * @emits sctpstatechange - (sctpState: SctpState)
 * @emits trace - (trace: TransportTraceEventData)
 */
type PipeTransport struct {
	ITransport
	logger          Logger
	internal        internalData
	data            pipeTransortData
	registrator     *MessageRegistrator
	notifier        *Notifier
	getProducerById func(string) *Producer
}

func newPipeTransport(params transportParams) ITransport {
	data := params.data.(pipeTransortData)
	params.data = transportData{
		sctpParameters: data.SctpParameters,
		sctpState:      data.SctpState,
		transportType:  TransportType_Pipe,
	}
	params.logger = NewLogger("PipeTransport")

	transport := &PipeTransport{
		ITransport:      newTransport(params),
		logger:          params.logger,
		internal:        params.internal,
		data:            data,
		registrator:     params.registrator,
		notifier:        params.notifier,
		getProducerById: params.getProducerById,
	}

	transport.ITransport.(*Transport).connectHandler = transport.handleConnect

	return transport
}

/**
 * Transport tuple.
 */
func (t PipeTransport) Tuple() TransportTuple {
	return t.data.Tuple
}

/**
 * SCTP parameters.
 */
func (t PipeTransport) SctpParameters() SctpParameters {
	return t.data.SctpParameters
}

/**
 * SCTP state.
 */
func (t PipeTransport) SctpState() SctpState {
	return t.data.SctpState
}

/**
 * SRTP parameters.
 */
func (t PipeTransport) SrtpParameters() *SrtpParameters {
	return t.data.SrtpParameters
}

/**
 * Observer.
 *
 * @override
 * @emits close
 * @emits newproducer - (producer: Producer)
 * @emits newconsumer - (consumer: Consumer)
 * @emits newdataproducer - (dataProducer: DataProducer)
 * @emits newdataconsumer - (dataConsumer: DataConsumer)
 * @emits sctpstatechange - (sctpState: SctpState)
 * @emits trace - (trace: TransportTraceEventData)
 */
func (transport *PipeTransport) Observer() IEventEmitter {
	return transport.ITransport.Observer()
}

/**
 * Close the PipeTransport.
 *
 * @override
 */
func (transport *PipeTransport) Close() {
	if transport.Closed() {
		return
	}

	if len(transport.data.SctpState) > 0 {
		transport.data.SctpState = SctpState_Closed
	}

	transport.ITransport.Close()
}

/**
 * Router was closed.
 *
 * @override
 */
func (transport *PipeTransport) routerClosed() {
	if transport.Closed() {
		return
	}

	if len(transport.data.SctpState) > 0 {
		transport.data.SctpState = SctpState_Closed
	}

	transport.ITransport.routerClosed()
}

// handleConnect answers "transport.connect": it records the peer
// PipeTransport's tuple as our remote endpoint. There is no real UDP
// socket behind this transport, so no handshake actually occurs.
func (transport *PipeTransport) handleConnect(options TransportConnectOptions) error {
	transport.logger.Debug("connect()")

	transport.data.Tuple.RemoteIp = options.Ip
	transport.data.Tuple.RemotePort = options.Port

	if options.SrtpParameters != nil {
		transport.data.SrtpParameters = options.SrtpParameters
	}

	return nil
}

/**
 * Create a pipe Consumer.
 *
 * @override
 */
func (transport *PipeTransport) Consume(options ConsumerOptions) (consumer *Consumer, err error) {
	transport.logger.Debug("consume()")

	producerId := options.ProducerId
	appData := options.AppData

	producer := transport.getProducerById(producerId)

	if producer == nil {
		err = fmt.Errorf(`Producer with id "%s" not found`, producerId)
		return
	}

	rtpParameters := getPipeConsumerRtpParameters(producer.ConsumableRtpParameters(), transport.data.Rtx)
	internal := transport.internal
	internal.ConsumerId = newUuid()
	internal.ProducerId = producerId

	consumerData := consumerData{
		Kind:                   producer.Kind(),
		RtpParameters:          rtpParameters,
		Type:                   "pipe",
		ConsumableRtpEncodings: producer.ConsumableRtpParameters().Encodings,
	}
	consumer = newConsumer(consumerParams{
		internal:       internal,
		data:           consumerData,
		registrator:    transport.registrator,
		notifier:       transport.notifier,
		producer:       producer,
		appData:        appData,
		paused:         false,
		producerPaused: producer.Paused(),
	})

	if err = consumer.register(); err != nil {
		return nil, err
	}

	baseTransport := transport.ITransport.(*Transport)

	baseTransport.consumers.Store(consumer.Id(), consumer)
	consumer.On("@close", func() {
		baseTransport.consumers.Delete(consumer.Id())
	})
	consumer.On("@producerclose", func() {
		baseTransport.consumers.Delete(consumer.Id())
	})

	producer.addConsumer(consumer)

	// Emit observer event.
	transport.Observer().SafeEmit("newconsumer", consumer)

	return
}
