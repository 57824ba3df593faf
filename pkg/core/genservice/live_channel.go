package genservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/genstudio-go/genstudio/pkg/core"
	"github.com/genstudio-go/genstudio/pkg/core/audio"
	"github.com/genstudio-go/genstudio/pkg/metrics"
)

const (
	defaultLiveBaseURL = "wss://generativelanguage.googleapis.com/ws"
	bidiServicePath    = "google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// Outbound frames beyond this backlog are dropped rather than stalling
	// the capture path.
	outboundBacklog = 64

	keepaliveInterval = 20 * time.Second
	writeTimeout      = 10 * time.Second
)

// Outgoing wire messages.

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model             string             `json:"model"`
	GenerationConfig  generationConfig   `json:"generationConfig"`
	SystemInstruction *systemInstruction `json:"systemInstruction,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type systemInstruction struct {
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []mediaChunk `json:"mediaChunks"`
}

type mediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64-encoded
}

// Incoming wire messages.

type serverMessage struct {
	SetupComplete *json.RawMessage `json:"setupComplete,omitempty"`
	ServerContent *serverContent   `json:"serverContent,omitempty"`
	Error         *remoteError     `json:"error,omitempty"`
}

type remoteError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type modelTurn struct {
	Parts []wirePart `json:"parts"`
}

type transcription struct {
	Text string `json:"text"`
}

// liveChannel is one open BidiGenerateContent websocket. A single readLoop
// goroutine decodes inbound frames and delivers them, in arrival order, on the
// events channel; a writeLoop goroutine serializes outbound audio so the
// capture callback never touches the socket.
type liveChannel struct {
	conn   *websocket.Conn
	logger *slog.Logger
	mtr    *metrics.Metrics

	events   chan ServerEvent
	outbound chan audio.EncodedFrame

	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once

	writeMu sync.Mutex

	errMu sync.Mutex
	err   error
}

var _ Channel = (*liveChannel)(nil)

// dialLiveChannel opens the websocket, sends the setup message, and starts
// the read, write, and keepalive loops.
func dialLiveChannel(ctx context.Context, baseURL, apiKey string, cfg LiveConfig, logger *slog.Logger, mtr *metrics.Metrics) (*liveChannel, error) {
	wsURL := fmt.Sprintf("%s/%s?key=%s", baseURL, bidiServicePath, apiKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, http.Header{
		"Content-Type": []string{"application/json"},
	})
	if err != nil {
		return nil, core.NewTransportError("dial live channel", err)
	}

	ch := &liveChannel{
		conn:     conn,
		logger:   logger,
		mtr:      mtr,
		events:   make(chan ServerEvent, 16),
		outbound: make(chan audio.EncodedFrame, outboundBacklog),
		done:     make(chan struct{}),
	}

	if err := ch.sendSetup(cfg); err != nil {
		conn.Close()
		return nil, core.NewTransportError("send live setup", err)
	}

	go ch.readLoop()
	go ch.writeLoop()
	go ch.keepaliveLoop()

	return ch, nil
}

func (ch *liveChannel) sendSetup(cfg LiveConfig) error {
	model := cfg.Model
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}
	msg := setupMessage{
		Setup: setupConfig{
			Model: model,
			GenerationConfig: generationConfig{
				ResponseModalities: []string{"audio"},
			},
		},
	}
	if cfg.Voice != "" {
		msg.Setup.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{
				PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: cfg.Voice},
			},
		}
	}
	if cfg.SystemInstruction != "" {
		msg.Setup.SystemInstruction = &systemInstruction{
			Parts: []wirePart{{Text: cfg.SystemInstruction}},
		}
	}
	return ch.writeJSON(msg)
}

func (ch *liveChannel) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal live message: %w", err)
	}
	ch.writeMu.Lock()
	defer ch.writeMu.Unlock()
	ch.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return ch.conn.WriteMessage(websocket.TextMessage, data)
}

// Events implements Channel.
func (ch *liveChannel) Events() <-chan ServerEvent { return ch.events }

// SendRealtimeAudio implements Channel. It never blocks: when the write loop
// falls behind, the frame is dropped and capture keeps running.
func (ch *liveChannel) SendRealtimeAudio(frame audio.EncodedFrame) error {
	if ch.closed.Load() {
		return core.NewTransportError("live channel closed", nil)
	}
	select {
	case ch.outbound <- frame:
	case <-ch.done:
		return core.NewTransportError("live channel closed", nil)
	default:
		ch.mtr.RecordFrameDropped()
		ch.logger.Debug("outbound audio frame dropped", "backlog", outboundBacklog)
	}
	return nil
}

// Err implements Channel.
func (ch *liveChannel) Err() error {
	ch.errMu.Lock()
	defer ch.errMu.Unlock()
	return ch.err
}

// Close implements Channel. Safe to call from any goroutine, any number of
// times.
func (ch *liveChannel) Close() error {
	ch.closeOnce.Do(func() {
		ch.closed.Store(true)
		close(ch.done)

		ch.writeMu.Lock()
		ch.conn.SetWriteDeadline(time.Now().Add(time.Second))
		ch.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		ch.writeMu.Unlock()

		ch.conn.Close()
	})
	return nil
}

// setErr records the first terminal error; later ones are dropped.
func (ch *liveChannel) setErr(err error) {
	ch.errMu.Lock()
	defer ch.errMu.Unlock()
	if ch.err == nil {
		ch.err = err
	}
}

// readLoop owns the events channel: it is the only sender and closes it on
// exit. Decoded events are delivered with a blocking send so arrival order is
// preserved end to end.
func (ch *liveChannel) readLoop() {
	defer close(ch.events)
	defer ch.Close()

	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			if !ch.closed.Load() {
				ch.setErr(core.NewTransportError("live channel read", err))
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			ch.logger.Warn("skipping malformed live frame", "error", err)
			continue
		}
		if !ch.dispatch(&msg) {
			return
		}
	}
}

// dispatch converts one server message into zero or more events. Returns
// false when the channel shut down mid-delivery.
func (ch *liveChannel) dispatch(msg *serverMessage) bool {
	if msg.SetupComplete != nil {
		ch.logger.Debug("live channel setup complete")
	}
	if msg.Error != nil {
		detail := msg.Error.Message
		if detail == "" {
			detail = msg.Error.Status
		}
		ch.setErr(core.NewTransportError(fmt.Sprintf("remote error: %s", detail), nil))
		return false
	}
	sc := msg.ServerContent
	if sc == nil {
		return true
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		if !ch.deliver(InputTranscriptEvent{Text: sc.InputTranscription.Text}) {
			return false
		}
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		if !ch.deliver(OutputTranscriptEvent{Text: sc.OutputTranscription.Text}) {
			return false
		}
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.Text != "" {
				if !ch.deliver(OutputTranscriptEvent{Text: p.Text}) {
					return false
				}
			}
			if p.InlineData != nil && p.InlineData.Data != "" {
				frame := audio.EncodedFrame{Data: p.InlineData.Data, MIMEType: p.InlineData.MIMEType}
				if !ch.deliver(AudioEvent{Frame: frame}) {
					return false
				}
			}
		}
	}
	if sc.Interrupted {
		if !ch.deliver(InterruptedEvent{}) {
			return false
		}
	}
	if sc.TurnComplete {
		if !ch.deliver(TurnCompleteEvent{}) {
			return false
		}
	}
	return true
}

func (ch *liveChannel) deliver(ev ServerEvent) bool {
	select {
	case ch.events <- ev:
		return true
	case <-ch.done:
		return false
	}
}

// writeLoop drains the outbound queue onto the socket.
func (ch *liveChannel) writeLoop() {
	for {
		select {
		case frame := <-ch.outbound:
			msg := realtimeInputMessage{
				RealtimeInput: realtimeInput{
					MediaChunks: []mediaChunk{{MIMEType: frame.MIMEType, Data: frame.Data}},
				},
			}
			if err := ch.writeJSON(msg); err != nil {
				if !ch.closed.Load() {
					ch.setErr(core.NewTransportError("live channel write", err))
					ch.Close()
				}
				return
			}
		case <-ch.done:
			return
		}
	}
}

// keepaliveLoop sends websocket pings so idle sessions survive intermediary
// timeouts.
func (ch *liveChannel) keepaliveLoop() {
	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ch.writeMu.Lock()
			ch.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err := ch.conn.WriteMessage(websocket.PingMessage, nil)
			ch.writeMu.Unlock()
			if err != nil && !ch.closed.Load() {
				ch.setErr(core.NewTransportError("live channel keepalive", err))
				ch.Close()
				return
			}
		case <-ch.done:
			return
		}
	}
}
