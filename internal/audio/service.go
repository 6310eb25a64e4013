package audio

import (
	"log/slog"

	"github.com/wayle-project/wayle/internal/livecollection"
	"github.com/wayle-project/wayle/internal/reactive"
)

// Backend abstracts the PulseAudio client so Service can be tested
// without a real PulseAudio connection, matching spec.md §4.5's
// backend-adapter contract (adapters only produce typed events, never
// own the reactive model).
type Backend interface {
	// Subscribe starts delivering DeviceEvent/StreamEvent notifications
	// to the given channels until stopped.
	Subscribe(devices chan<- DeviceEvent, streams chan<- StreamEvent) (stop func(), err error)
}

// DeviceEvent reports a sink/source add, change, or removal.
type DeviceEvent struct {
	Kind   livecollection.ChangeKind
	Name   string
	Device Device
}

// StreamEvent reports a sink-input/source-output add, change, or
// removal.
type StreamEvent struct {
	Kind   livecollection.ChangeKind
	ID     uint32
	Stream Stream
}

// Service is the orchestrator for the audio backend: reconciled
// device/stream live collections plus derived default_input and
// default_output Properties, resolved from the device name reported
// by the backend's "default changed" notification looked up against
// the current Devices collection. Grounded on spec.md §4.9's
// cross-reference reconciliation requirement (look up an existing
// entry in a map rather than re-fetch it).
type Service struct {
	logger  *slog.Logger
	backend Backend

	Devices *livecollection.LiveCollection[string, Device]
	Streams *livecollection.LiveCollection[uint32, Stream]

	DefaultOutput *reactive.Property[string]
	DefaultInput  *reactive.Property[string]

	stop func()
}

// New creates a Service bound to backend.
func New(backend Backend, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:        logger,
		backend:       backend,
		Devices:       livecollection.New[string, Device](),
		Streams:       livecollection.New[uint32, Stream](),
		DefaultOutput: reactive.New(""),
		DefaultInput:  reactive.New(""),
	}
}

// Start begins consuming backend events and reconciling them into the
// live collections.
func (s *Service) Start() error {
	devCh := make(chan DeviceEvent, 32)
	strCh := make(chan StreamEvent, 32)
	stop, err := s.backend.Subscribe(devCh, strCh)
	if err != nil {
		return err
	}
	s.stop = stop

	go func() {
		for {
			select {
			case ev, ok := <-devCh:
				if !ok {
					return
				}
				s.Devices.Apply(livecollection.Change[string, Device]{
					Kind: ev.Kind, Key: ev.Name, Value: ev.Device,
				}, nil)
			case ev, ok := <-strCh:
				if !ok {
					return
				}
				s.Streams.Apply(livecollection.Change[uint32, Stream]{
					Kind: ev.Kind, Key: ev.ID, Value: ev.Stream,
				}, nil)
			}
		}
	}()
	return nil
}

// SetDefaultOutput records a "default sink changed" notification,
// resolving it against the current Devices snapshot rather than
// issuing a new backend fetch.
func (s *Service) SetDefaultOutput(name string) {
	if _, ok := s.Devices.Get(name); ok {
		s.DefaultOutput.Set(name)
	} else {
		s.logger.Debug("default output changed to unknown device", "name", name)
	}
}

// SetDefaultInput mirrors SetDefaultOutput for the source side.
func (s *Service) SetDefaultInput(name string) {
	if _, ok := s.Devices.Get(name); ok {
		s.DefaultInput.Set(name)
	} else {
		s.logger.Debug("default input changed to unknown device", "name", name)
	}
}

// Stop releases the backend subscription.
func (s *Service) Stop() {
	if s.stop != nil {
		s.stop()
	}
}
