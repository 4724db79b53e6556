package sfuworker

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"syscall"

	"sfuworker/netcodec"
)

var validWorkerLogLevels = map[WorkerLogLevel]bool{
	WorkerLogLevelDebug: true,
	WorkerLogLevelWarn:  true,
	WorkerLogLevelError: true,
	WorkerLogLevelNone:  true,
}

// Worker is the media engine itself: it owns the control and payload
// wire channels the control plane dials in on, dispatches every
// "worker."-prefixed request directly, and hands everything else off to
// whatever Router/Transport/Producer/... is currently registered in its
// MessageRegistrator.
//
// - @emits died - (err error)
type Worker struct {
	IEventEmitter
	logger         Logger
	settings       *WorkerSettings
	controlWire    *WireCodec
	payloadWire    *WireCodec
	registrator    *MessageRegistrator
	notifier       *Notifier
	channel        *Channel
	payloadChannel *PayloadChannel
	appData        interface{}
	routers        sync.Map
	webRtcServers  sync.Map
	closed         uint32
	observer       IEventEmitter
}

// NewWorker wires a Worker onto two already-connected codecs: controlCodec
// carries control-channel requests/responses/notifications, payloadCodec
// carries payload-channel requests/notifications paired with a raw binary
// tail. Unlike spawning a subprocess, the engine itself runs in this
// process from the moment NewWorker returns.
func NewWorker(controlCodec, payloadCodec netcodec.Codec, options ...Option) (worker *Worker, err error) {
	settings := &WorkerSettings{
		LogLevel: WorkerLogLevelError,
	}
	for _, option := range options {
		option(settings)
	}

	if len(settings.LogLevel) > 0 && !validWorkerLogLevels[settings.LogLevel] {
		return nil, NewTypeError("invalid logLevel: %s", settings.LogLevel)
	}

	if settings.RtcMaxPort > 0 && settings.RtcMinPort > settings.RtcMaxPort {
		return nil, NewTypeError("rtcMinPort must be less than or equal to rtcMaxPort")
	}

	logger := settings.Logger
	if logger.Logger.GetSink() == nil {
		logger = NewLogger("Worker")
	}

	controlWire := NewWireCodec(controlCodec)
	payloadWire := NewPayloadWireCodec(payloadCodec)
	registrator := NewMessageRegistrator()
	notifier := NewNotifier(controlWire, payloadWire)

	worker = &Worker{
		IEventEmitter: NewEventEmitter(),
		logger:        logger,
		settings:      settings,
		controlWire:   controlWire,
		payloadWire:   payloadWire,
		registrator:   registrator,
		notifier:      notifier,
		appData:       settings.AppData,
		observer:      NewEventEmitter(),
	}

	worker.channel = newChannel(controlWire, registrator, worker.handleControlRequest)
	worker.payloadChannel = newPayloadChannel(payloadWire, registrator)

	worker.channel.Start()
	worker.payloadChannel.Start()

	go worker.watchChannelFailure()

	return worker, nil
}

// watchChannelFailure observes the control dispatch loop exiting on its
// own (the control plane dropped the connection, or a wire error
// occurred) and treats it the same as an explicit Close/Shutdown: local
// state is torn down and "died" is emitted so callers watching the
// Worker learn about it without polling.
func (w *Worker) watchChannelFailure() {
	<-w.channel.CloseNotify()

	if atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		w.cleanupLocal()
		w.payloadChannel.Close()
		w.SafeEmit("died", ErrWorkerClosed)
		w.observer.SafeEmit("close")
	}
}

// Closed returns whether the Worker was closed.
func (w *Worker) Closed() bool {
	return atomic.LoadUint32(&w.closed) > 0
}

// AppData returns custom app data.
func (w *Worker) AppData() interface{} {
	return w.appData
}

// Observer.
//
// - @emits close
func (w *Worker) Observer() IEventEmitter {
	return w.observer
}

// Close tears down every Router and WebRtcServer the worker owns and
// empties the MessageRegistrator (closing the worker leaves the
// registrator empty), but leaves the wire itself open so the in-flight
// "worker.close" request this is normally called from can still receive
// its ResponseFrame. Use Shutdown to additionally close the wire.
func (w *Worker) Close() {
	if atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		w.logger.Debug("close()")
		w.cleanupLocal()
		w.observer.SafeEmit("close")
	}
}

// Shutdown closes the Worker and then tears down its control and payload
// wires, unblocking both dispatch loops. Call this when the underlying
// connection itself is going away, not merely the session it carries.
func (w *Worker) Shutdown() {
	w.Close()
	w.channel.Close()
	w.payloadChannel.Close()
}

func (w *Worker) cleanupLocal() {
	w.routers.Range(func(key, value interface{}) bool {
		value.(*Router).workerClosed()
		w.routers.Delete(key)
		return true
	})

	w.webRtcServers.Range(func(key, value interface{}) bool {
		value.(*WebRtcServer).workerClosed()
		w.webRtcServers.Delete(key)
		return true
	})
}

// handleControlRequest answers every "worker."-prefixed control request;
// it is passed into the Channel as its workerHandler ("worker.*
// methods... handled by the worker itself").
func (w *Worker) handleControlRequest(method string, data json.RawMessage) (interface{}, error) {
	switch method {
	case "worker.dump":
		return w.dump()
	case "worker.getResourceUsage":
		return w.getResourceUsage()
	case "worker.updateSettings":
		var settings WorkerUpdatableSettings
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, NewTypeError("invalid worker.updateSettings data: %s", err)
		}
		return nil, w.applySettings(settings)
	case "worker.createWebRtcServer":
		var req struct {
			internalData
			WebRtcServerOptions
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid worker.createWebRtcServer data: %s", err)
		}
		_, err := w.createWebRtcServer(req.internalData.WebRtcServerId, req.WebRtcServerOptions)
		return nil, err
	case "worker.closeWebRtcServer":
		var internal internalData
		if err := json.Unmarshal(data, &internal); err != nil {
			return nil, NewTypeError("invalid worker.closeWebRtcServer data: %s", err)
		}
		return nil, w.closeWebRtcServerById(internal.WebRtcServerId)
	case "worker.createRouter":
		var req struct {
			internalData
			RouterOptions
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid worker.createRouter data: %s", err)
		}
		_, err := w.createRouter(req.internalData.RouterId, req.RouterOptions)
		return nil, err
	case "worker.closeRouter":
		var internal internalData
		if err := json.Unmarshal(data, &internal); err != nil {
			return nil, NewTypeError("invalid worker.closeRouter data: %s", err)
		}
		return nil, w.closeRouterById(internal.RouterId)
	case "worker.close":
		w.Close()
		return nil, nil
	default:
		return nil, ErrHandlerNotFound
	}
}

func (w *Worker) dump() (WorkerDump, error) {
	dump := WorkerDump{
		ChannelMessageHandlers: &WorkerDumpChannelMessageHandlers{},
	}

	w.routers.Range(func(key, _ interface{}) bool {
		dump.RouterIds = append(dump.RouterIds, key.(string))
		return true
	})
	w.webRtcServers.Range(func(key, _ interface{}) bool {
		dump.WebRtcServerIds = append(dump.WebRtcServerIds, key.(string))
		return true
	})

	return dump, nil
}

// getResourceUsage reports this process's own resource usage: the
// engine runs in-process now, so there is no separate worker pid to
// query, unlike the donor's libuv uv_getrusage() call against its
// mediasoup-worker subprocess.
func (w *Worker) getResourceUsage() (WorkerResourceUsage, error) {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return WorkerResourceUsage{}, err
	}

	return WorkerResourceUsage{
		RuUtime:    uint64(ru.Utime.Sec)*1000 + uint64(ru.Utime.Usec)/1000,
		RuStime:    uint64(ru.Stime.Sec)*1000 + uint64(ru.Stime.Usec)/1000,
		RuMaxrss:   uint64(ru.Maxrss),
		RuIxrss:    uint64(ru.Ixrss),
		RuIdrss:    uint64(ru.Idrss),
		RuIsrss:    uint64(ru.Isrss),
		RuMinflt:   uint64(ru.Minflt),
		RuMajflt:   uint64(ru.Majflt),
		RuNswap:    uint64(ru.Nswap),
		RuInblock:  uint64(ru.Inblock),
		RuOublock:  uint64(ru.Oublock),
		RuMsgsnd:   uint64(ru.Msgsnd),
		RuMsgrcv:   uint64(ru.Msgrcv),
		RuNsignals: uint64(ru.Nsignals),
		RuNvcsw:    uint64(ru.Nvcsw),
		RuNivcsw:   uint64(ru.Nivcsw),
	}, nil
}

func (w *Worker) applySettings(settings WorkerUpdatableSettings) error {
	if len(settings.LogLevel) > 0 && !validWorkerLogLevels[settings.LogLevel] {
		return NewTypeError("invalid logLevel: %s", settings.LogLevel)
	}
	if len(settings.LogLevel) > 0 {
		w.settings.LogLevel = settings.LogLevel
	}
	if settings.LogTags != nil {
		w.settings.LogTags = settings.LogTags
	}
	return nil
}

// Dump returns the resources allocated by the worker, for use by Go-API
// callers that hold the Worker directly rather than driving it over the
// wire.
func (w *Worker) Dump() (WorkerDump, error) {
	w.logger.Debug("dump()")

	if w.Closed() {
		return WorkerDump{}, NewInvalidStateError("Worker closed")
	}
	return w.dump()
}

// GetResourceUsage returns the worker's resource usage.
func (w *Worker) GetResourceUsage() (WorkerResourceUsage, error) {
	w.logger.Debug("getResourceUsage()")
	return w.getResourceUsage()
}

// UpdateSettings updates the worker settings at runtime.
func (w *Worker) UpdateSettings(settings WorkerUpdatableSettings) error {
	w.logger.Debug("updateSettings()")

	if w.Closed() {
		return NewInvalidStateError("Worker closed")
	}
	return w.applySettings(settings)
}

// CreateWebRtcServer creates a WebRtcServer bound to the worker.
func (w *Worker) CreateWebRtcServer(options WebRtcServerOptions) (*WebRtcServer, error) {
	w.logger.Debug("createWebRtcServer()")

	if w.Closed() {
		return nil, NewInvalidStateError("Worker closed")
	}
	return w.createWebRtcServer(newUuid(), options)
}

func (w *Worker) createWebRtcServer(id string, options WebRtcServerOptions) (*WebRtcServer, error) {
	internal := internalData{WebRtcServerId: id}

	server := NewWebRtcServer(webrtcServerParams{
		internal:    internal,
		listenInfos: options.ListenInfos,
		registrator: w.registrator,
		notifier:    w.notifier,
		appData:     options.AppData,
	})

	if err := server.register(); err != nil {
		return nil, err
	}

	w.webRtcServers.Store(server.Id(), server)
	server.On("@close", func() {
		w.webRtcServers.Delete(server.Id())
	})

	return server, nil
}

func (w *Worker) closeWebRtcServerById(id string) error {
	value, ok := w.webRtcServers.Load(id)
	if !ok {
		return ErrHandlerNotFound
	}
	value.(*WebRtcServer).Close()
	return nil
}

// CreateRouter creates a Router bound to the worker.
func (w *Worker) CreateRouter(options RouterOptions) (*Router, error) {
	w.logger.Debug("createRouter()")

	if w.Closed() {
		return nil, NewInvalidStateError("Worker closed")
	}
	return w.createRouter(newUuid(), options)
}

func (w *Worker) createRouter(id string, options RouterOptions) (*Router, error) {
	rtpCapabilities, err := generateRouterRtpCapabilities(options.MediaCodecs)
	if err != nil {
		return nil, err
	}

	internal := internalData{RouterId: id}

	router := newRouter(routerParams{
		internal:    internal,
		data:        routerData{RtpCapabilities: rtpCapabilities},
		registrator: w.registrator,
		notifier:    w.notifier,
		appData:     options.AppData,
	})

	if err := router.register(); err != nil {
		return nil, err
	}

	w.routers.Store(router.Id(), router)
	router.On("@close", func() {
		w.routers.Delete(router.Id())
	})

	return router, nil
}

func (w *Worker) closeRouterById(id string) error {
	value, ok := w.routers.Load(id)
	if !ok {
		return ErrHandlerNotFound
	}
	value.(*Router).Close()
	return nil
}
