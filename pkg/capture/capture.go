// Package capture acquires microphone audio through the system's native
// audio backend and hands it to a callback as raw PCM chunks.
package capture

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/genstudio-go/genstudio/pkg/core"
	"github.com/genstudio-go/genstudio/pkg/core/audio"
)

// Microphone captures PCM audio from the default input device. One Start,
// one Stop; Stop is idempotent and releases the device and backend context
// in reverse acquisition order.
type Microphone struct {
	cfg    audio.Config
	logger *slog.Logger

	mu      sync.Mutex
	backend *malgo.AllocatedContext
	device  *malgo.Device
	started bool
}

// New creates a microphone capturing in the given format. A zero config
// means the standard capture format, 16 kHz mono s16le.
func New(cfg audio.Config, logger *slog.Logger) *Microphone {
	if cfg.SampleRate == 0 {
		cfg = audio.CaptureConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Microphone{cfg: cfg, logger: logger}
}

// Start acquires the device and begins delivering chunks to fn from the
// backend's capture goroutine. fn must not block. On any failure everything
// already acquired is released before returning, so a failed Start holds no
// resources.
func (m *Microphone) Start(ctx context.Context, fn func(audio.Chunk)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return core.NewDeviceError(core.CodeGeneric, "capture already started")
	}

	backend, err := malgo.InitContext(nil, malgo.ContextConfig{
		ThreadPriority: malgo.ThreadPriorityRealtime,
	}, nil)
	if err != nil {
		return core.NewEnvironmentError("audio capture unavailable: " + err.Error())
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(m.cfg.Channels)
	deviceConfig.SampleRate = uint32(m.cfg.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	cfg := m.cfg
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, _ uint32) {
			fn(audio.NewChunk(pInputSamples, cfg))
		},
	}

	device, err := malgo.InitDevice(backend.Context, deviceConfig, callbacks)
	if err != nil {
		backend.Uninit()
		return classifyDeviceError(err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		backend.Uninit()
		return classifyDeviceError(err)
	}

	m.backend = backend
	m.device = device
	m.started = true
	m.logger.Debug("microphone started", "sample_rate", cfg.SampleRate, "channels", cfg.Channels)

	// Mirror context cancellation into Stop so an abandoned session cannot
	// leak the device.
	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	return nil
}

// Stop releases the device. Safe to call any number of times.
func (m *Microphone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}
	m.started = false

	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			m.logger.Warn("microphone stop failed", "error", err)
		}
		m.device.Uninit()
		m.device = nil
	}
	if m.backend != nil {
		m.backend.Uninit()
		m.backend = nil
	}
	m.logger.Debug("microphone stopped")
	return nil
}

// classifyDeviceError maps backend failures onto the device error taxonomy.
// The backend reports conditions as message text, so classification is by
// content: denied access and absent devices get their own codes, everything
// else stays generic.
func classifyDeviceError(err error) *core.Error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission") || strings.Contains(msg, "access denied"):
		return core.NewDeviceError(core.CodePermissionDenied, "microphone access denied: "+err.Error())
	case strings.Contains(msg, "no device") || strings.Contains(msg, "not found") || strings.Contains(msg, "does not exist"):
		return core.NewDeviceError(core.CodeNotFound, "no usable microphone: "+err.Error())
	default:
		return core.NewDeviceError(core.CodeGeneric, "microphone unavailable: "+err.Error())
	}
}
