package sfuworker

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// rtpObserverParams groups the fields shared by every RtpObserver
// implementation (AudioLevelObserver, ActiveSpeakerObserver).
type rtpObserverParams struct {
	internal        internalData
	registrator     *MessageRegistrator
	notifier        *Notifier
	appData         interface{}
	getProducerById func(producerId string) *Producer
}

// IRtpObserver is implemented by every observer that can watch the
// producers of a router (AudioLevelObserver, ActiveSpeakerObserver).
//
// - @emits close
// - @emits pause
// - @emits resume
// - @emits addproducer - (producer *Producer)
// - @emits removeproducer - (producer *Producer)
// - @emits @close
type IRtpObserver interface {
	IEventEmitter

	// Id returns the RtpObserver id.
	Id() string

	// Closed returns whether the RtpObserver is closed.
	Closed() bool

	// Paused returns whether the RtpObserver is paused.
	Paused() bool

	// AppData returns custom app data.
	AppData() interface{}

	// Observer returns the observer emitter.
	Observer() IEventEmitter

	// register binds the observer's handler-id into the MessageRegistrator.
	register() error

	// Close the RtpObserver.
	Close() error

	// routerClosed is called when the router owning this RtpObserver closes.
	routerClosed()

	// Pause the RtpObserver.
	Pause() error

	// Resume the RtpObserver.
	Resume() error

	// AddProducer adds a Producer to the RtpObserver.
	AddProducer(producerId string) error

	// RemoveProducer removes a Producer from the RtpObserver.
	RemoveProducer(producerId string) error
}

type rtpObserver struct {
	IEventEmitter
	locker          sync.Mutex
	logger          Logger
	internal        internalData
	registrator     *MessageRegistrator
	notifier        *Notifier
	appData         interface{}
	getProducerById func(producerId string) *Producer
	producers       map[string]*Producer
	paused          bool
	closed          uint32
	observer        IEventEmitter
}

func newRtpObserver(params rtpObserverParams) *rtpObserver {
	logger := NewLogger("RtpObserver")

	logger.Debug("constructor()")

	if params.appData == nil {
		params.appData = H{}
	}

	return &rtpObserver{
		IEventEmitter:   NewEventEmitter(),
		logger:          logger,
		internal:        params.internal,
		registrator:     params.registrator,
		notifier:        params.notifier,
		appData:         params.appData,
		getProducerById: params.getProducerById,
		producers:       map[string]*Producer{},
		observer:        NewEventEmitter(),
	}
}

// register binds the observer's handler-id into the MessageRegistrator
// so "rtpObserver."-addressed control requests reach handleControlRequest.
func (o *rtpObserver) register() error {
	return o.registrator.Register(o.Id(), o.handleControlRequest, nil, nil)
}

func (o *rtpObserver) handleControlRequest(method string, data json.RawMessage) (interface{}, error) {
	switch method {
	case "rtpObserver.close":
		return nil, o.Close()
	case "rtpObserver.pause":
		return nil, o.Pause()
	case "rtpObserver.resume":
		return nil, o.Resume()
	case "rtpObserver.addProducer":
		var req struct {
			ProducerId string `json:"producerId"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid rtpObserver.addProducer data: %s", err)
		}
		return nil, o.AddProducer(req.ProducerId)
	case "rtpObserver.removeProducer":
		var req struct {
			ProducerId string `json:"producerId"`
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, NewTypeError("invalid rtpObserver.removeProducer data: %s", err)
		}
		return nil, o.RemoveProducer(req.ProducerId)
	default:
		return nil, ErrHandlerNotFound
	}
}

// Id returns the RtpObserver id.
func (o *rtpObserver) Id() string {
	return o.internal.RtpObserverId
}

// Closed returns whether the RtpObserver is closed.
func (o *rtpObserver) Closed() bool {
	return atomic.LoadUint32(&o.closed) > 0
}

// Paused returns whether the RtpObserver is paused.
func (o *rtpObserver) Paused() bool {
	o.locker.Lock()
	defer o.locker.Unlock()

	return o.paused
}

// AppData returns custom app data.
func (o *rtpObserver) AppData() interface{} {
	return o.appData
}

// Observer.
//
// - @emits close
// - @emits pause
// - @emits resume
// - @emits addproducer - (producer *Producer)
// - @emits removeproducer - (producer *Producer)
func (o *rtpObserver) Observer() IEventEmitter {
	return o.observer
}

// Close the RtpObserver.
func (o *rtpObserver) Close() (err error) {
	if atomic.CompareAndSwapUint32(&o.closed, 0, 1) {
		o.logger.Debug("close()")

		o.registrator.Unregister(o.Id())

		o.Emit("@close")
		o.RemoveAllListeners()

		// Emit observer event.
		o.observer.SafeEmit("close")
		o.observer.RemoveAllListeners()
	}

	return
}

// routerClosed is called when the router owning this RtpObserver closes.
func (o *rtpObserver) routerClosed() {
	if atomic.CompareAndSwapUint32(&o.closed, 0, 1) {
		o.logger.Debug("routerClosed()")

		o.registrator.Unregister(o.Id())

		o.SafeEmit("routerclose")
		o.RemoveAllListeners()

		// Emit observer event.
		o.observer.SafeEmit("close")
		o.observer.RemoveAllListeners()
	}
}

// Pause the RtpObserver.
func (o *rtpObserver) Pause() (err error) {
	o.locker.Lock()
	defer o.locker.Unlock()

	o.logger.Debug("pause()")

	wasPaused := o.paused
	o.paused = true

	if !wasPaused {
		o.observer.SafeEmit("pause")
	}

	return nil
}

// Resume the RtpObserver.
func (o *rtpObserver) Resume() (err error) {
	o.locker.Lock()
	defer o.locker.Unlock()

	o.logger.Debug("resume()")

	wasPaused := o.paused
	o.paused = false

	if wasPaused {
		o.observer.SafeEmit("resume")
	}

	return nil
}

// AddProducer adds a Producer to the RtpObserver's watch set.
func (o *rtpObserver) AddProducer(producerId string) (err error) {
	o.logger.Debug("addProducer()")

	producer := o.getProducerById(producerId)
	if producer == nil {
		return NewTypeError(`Producer with id "%s" not found`, producerId)
	}

	o.locker.Lock()
	o.producers[producerId] = producer
	o.locker.Unlock()

	o.observer.SafeEmit("addproducer", producer)

	return nil
}

// RemoveProducer removes a Producer from the RtpObserver's watch set.
func (o *rtpObserver) RemoveProducer(producerId string) (err error) {
	o.logger.Debug("removeProducer()")

	o.locker.Lock()
	producer, ok := o.producers[producerId]
	delete(o.producers, producerId)
	o.locker.Unlock()

	if ok {
		o.observer.SafeEmit("removeproducer", producer)
	}

	return nil
}

// watchedProducers returns a snapshot of the currently watched producers.
func (o *rtpObserver) watchedProducers() []*Producer {
	o.locker.Lock()
	defer o.locker.Unlock()

	producers := make([]*Producer, 0, len(o.producers))
	for _, producer := range o.producers {
		producers = append(producers, producer)
	}
	return producers
}
