package sfuworker

import (
	"time"
)

// AudioLevelObserverOptions define options to create an AudioLevelObserver.
type AudioLevelObserverOptions struct {
	// MaxEntries is maximum int of entries in the 'volumes”' event. Default 1.
	MaxEntries int `json:"maxEntries"`

	// Threshold is minimum average volume (in dBvo from -127 to 0) for entries in the
	// "volumes" event.	Default -80.
	Threshold int `json:"threshold"`

	// Interval in ms for checking audio volumes. Default 1000.
	Interval int `json:"interval"`

	// AppData is custom application data.
	AppData interface{} `json:"appData,omitempty"`
}

// NewAudioLevelObserverOptions returns the default AudioLevelObserverOptions.
func NewAudioLevelObserverOptions() AudioLevelObserverOptions {
	return AudioLevelObserverOptions{
		MaxEntries: 1,
		Threshold:  -80,
		Interval:   1000,
	}
}

type AudioLevelObserverVolume struct {
	// Producer is the audio producer instance.
	Producer *Producer

	// Volume is the value reported for the audio producer. No audio level is decoded: every
	// entry carries the observer's configured Threshold (in dBvo from -127 to 0).
	Volume int
}

// AudioLevelObserver monitors the volume of the selected audio producers. AddProducer() does not
// check the producer's kind, so a video producer is accepted as well.
//
// There is no RTP audio-level header extension decoder behind this observer. A watched audio
// producer is listed in "volumes" when it received RTP bytes during the interval, with Volume set
// to the configured Threshold. Entries keep the order of the watched producers (they are not
// ranked by throughput) and are cut to MaxEntries.
//
// - @emits volumes - (volumes []AudioLevelObserverVolume)
// - @emits silence
type AudioLevelObserver struct {
	*rtpObserver
	logger    Logger
	options   AudioLevelObserverOptions
	lastBytes map[string]uint64
	stopTick  chan struct{}
}

func newAudioLevelObserver(params rtpObserverParams, options AudioLevelObserverOptions) *AudioLevelObserver {
	o := &AudioLevelObserver{
		rtpObserver: newRtpObserver(params),
		logger:      NewLogger("AudioLevelObserver"),
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
// - @emits volumes - (volumes []AudioLevelObserverVolume)
// - @emits silence
func (o *AudioLevelObserver) Observer() IEventEmitter {
	return o.rtpObserver.Observer()
}

func (o *AudioLevelObserver) tick() {
	interval := o.options.Interval
	if interval <= 0 {
		interval = 1000
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

func (o *AudioLevelObserver) check() {
	if o.Paused() {
		return
	}

	var volumes []AudioLevelObserverVolume

	for _, producer := range o.watchedProducers() {
		if producer.Kind() != MediaKind_Audio || producer.Closed() {
			continue
		}

		total := producer.totalBytesReceived()
		delta := total - o.lastBytes[producer.Id()]
		o.lastBytes[producer.Id()] = total

		if delta == 0 {
			continue
		}

		volumes = append(volumes, AudioLevelObserverVolume{
			Producer: producer,
			Volume:   o.options.Threshold,
		})
	}

	if len(volumes) > o.options.MaxEntries && o.options.MaxEntries > 0 {
		volumes = volumes[:o.options.MaxEntries]
	}

	if len(volumes) > 0 {
		o.SafeEmit("volumes", volumes)
		o.Observer().SafeEmit("volumes", volumes)
	} else {
		o.SafeEmit("silence")
		o.Observer().SafeEmit("silence")
	}
}
