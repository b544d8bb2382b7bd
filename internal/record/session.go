// Package record captures microphone input through PortAudio and persists
// recordings as PCM WAV files for use as reference or target voices.
package record

import (
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog/log"
)

const (
	// SampleRate is the fixed capture rate for reference recordings.
	SampleRate = 44100
	// Channels is mono capture.
	Channels = 1

	framesPerBuffer = 1024
	frameQueueSize  = 256
)

// inputStream is the slice of the PortAudio stream API the session needs.
type inputStream interface {
	Start() error
	Read() error
	Stop() error
	Close() error
}

// Session buffers microphone frames between Start and Stop. One session is
// shared process-wide; starting while active replaces the open stream so at
// most one input stream exists at a time.
type Session struct {
	mu     sync.Mutex
	active bool
	stream inputStream
	frames chan []int16
	done   chan struct{}

	openStream func(buffer []int16) (inputStream, error)
}

// NewSession creates an idle recording session.
func NewSession() *Session {
	return &Session{openStream: openDefaultStream}
}

// openDefaultStream opens the default PortAudio input device.
func openDefaultStream(buffer []int16) (inputStream, error) {
	return portaudio.OpenDefaultStream(Channels, 0, float64(SampleRate), len(buffer), buffer)
}

// Start begins buffering input frames. A missing or unopenable input device
// fails silently: the session stays inactive and no frames accumulate.
// Starting while a recording is active stops the prior stream first.
func (s *Session) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		s.Stop()
		s.mu.Lock()
	}

	buffer := make([]int16, framesPerBuffer)
	stream, err := s.openStream(buffer)
	if err != nil {
		s.mu.Unlock()
		log.Warn().Err(err).Msg("no input device available, recording disabled")
		return
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		s.mu.Unlock()
		log.Warn().Err(err).Msg("cannot start input stream, recording disabled")
		return
	}

	s.active = true
	s.stream = stream
	s.frames = make(chan []int16, frameQueueSize)
	s.done = make(chan struct{})
	frames := s.frames
	done := s.done
	s.mu.Unlock()

	log.Debug().Int("sampleRate", SampleRate).Msg("recording started")
	go captureLoop(stream, buffer, frames, done)
}

// captureLoop reads frames into the queue until the session is stopped.
func captureLoop(stream inputStream, buffer []int16, frames chan<- []int16, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			return
		}

		frame := make([]int16, len(buffer))
		copy(frame, buffer)

		select {
		case frames <- frame:
		case <-done:
			return
		}
	}
}

// Stop halts capture, drains buffered frames, and returns the combined
// samples in arrival order. Returns nil when nothing was captured.
func (s *Session) Stop() []int16 {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return nil
	}
	s.active = false
	stream := s.stream
	frames := s.frames
	done := s.done
	s.stream = nil
	s.frames = nil
	s.done = nil
	s.mu.Unlock()

	close(done)
	_ = stream.Stop()
	_ = stream.Close()

	var samples []int16
	for {
		select {
		case frame := <-frames:
			samples = append(samples, frame...)
		default:
			log.Debug().Int("samples", len(samples)).Msg("recording stopped")
			return samples
		}
	}
}

// Save stops the recording and writes the captured audio to path as an
// uncompressed PCM WAV file. Reports whether any audio was saved.
func (s *Session) Save(path string) (bool, error) {
	samples := s.Stop()
	if len(samples) == 0 {
		return false, nil
	}

	if err := WriteWAV(path, samples, SampleRate, Channels); err != nil {
		return false, err
	}
	return true, nil
}

// ProbeDefaultInput checks whether the default capture device can be
// opened. Used by diagnostics; the stream is closed immediately.
func ProbeDefaultInput() error {
	buffer := make([]int16, framesPerBuffer)
	stream, err := openDefaultStream(buffer)
	if err != nil {
		return err
	}
	return stream.Close()
}

// Active reports whether a recording is in progress.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
