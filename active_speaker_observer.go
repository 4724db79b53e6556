package sfuworker

import "time"

type ActiveSpeakerObserverOptions struct {
	Interval int `json:"interval"`
	AppData  H   `json:"appData,omitempty"`
}

type ActiveSpeakerObserverActivity struct {
	Producer *Producer
}

// ActiveSpeakerObserver picks, on every interval, the watched audio producer
// with the largest RTP throughput delta and reports it as the dominant
// speaker. Like AudioLevelObserver, this substitutes RTP byte-count deltas
// for a real audio-level decode.
//
// - @emits dominantspeaker - (dominantSpeaker ActiveSpeakerObserverActivity)
type ActiveSpeakerObserver struct {
	*rtpObserver
	logger    Logger
	options   ActiveSpeakerObserverOptions
	lastBytes map[string]uint64
	stopTick  chan struct{}
}

func newActiveSpeakerObserver(params rtpObserverParams, options ActiveSpeakerObserverOptions) *ActiveSpeakerObserver {
	o := &ActiveSpeakerObserver{
		rtpObserver: newRtpObserver(params),
		logger:      NewLogger("ActiveSpeakerObserver"),
		options:     options,
		lastBytes:   map[string]uint64{},
		stopTick:    make(chan struct{}),
	}

	go o.tick()

	o.On("@close", func() { close(o.stopTick) })

	return o
}

// Observer.
//
// - @emits close
// - @emits pause
// - @emits resume
// - @emits addproducer - (producer *Producer)
// - @emits removeproducer - (producer *Producer)
// - @emits dominantspeaker - (dominantSpeaker ActiveSpeakerObserverActivity)
func (o *ActiveSpeakerObserver) Observer() IEventEmitter {
	return o.rtpObserver.Observer()
}

func (o *ActiveSpeakerObserver) tick() {
	interval := o.options.Interval
	if interval <= 0 {
		interval = 300
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-o.stopTick:
			return
		case <-ticker.C:
			o.check()
		}
	}
}

func (o *ActiveSpeakerObserver) check() {
	if o.Paused() {
		return
	}

	var dominant *Producer
	var maxDelta uint64

	for _, producer := range o.watchedProducers() {
		if producer.Kind() != MediaKind_Audio || producer.Closed() {
			continue
		}

		total := producer.totalBytesReceived()
		delta := total - o.lastBytes[producer.Id()]
		o.lastBytes[producer.Id()] = total

		if delta > maxDelta {
			maxDelta = delta
			dominant = producer
		}
	}

	if dominant == nil {
		return
	}

	activity := ActiveSpeakerObserverActivity{Producer: dominant}
	o.SafeEmit("dominantspeaker", activity)
	o.Observer().SafeEmit("dominantspeaker", activity)
}
