package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/koscakluka/ema-playground/core/status"
	"github.com/pion/webrtc/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1/realtime"
	DefaultModel   = "gpt-4o-realtime-preview-2024-12-17"

	dataChannelLabel = "oai-events"
)

var ErrNotConnected = errors.New("realtime session not connected")

// AudioQueue receives the base64 audio deltas of a session in arrival order.
type AudioQueue interface {
	Enqueue(payload string) (uuid.UUID, error)
	Close()
}

type Session struct {
	apiKey       string
	model        string
	baseURL      string
	httpClient   *http.Client
	webrtcConfig webrtc.Configuration
	audioQueue   AudioQueue

	mu         sync.Mutex
	pc         *webrtc.PeerConnection
	dc         *webrtc.DataChannel
	connecting bool
	status     status.Status

	onStatus          func(status.Update)
	onTranscript      func(string)
	onTranscriptDelta func(string)
	onServerError     func(string)
}

func NewSession(apiKey string, opts ...SessionOption) *Session {
	s := &Session{
		apiKey:  apiKey,
		model:   DefaultModel,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
		status: status.Initializing,

		onStatus:          func(status.Update) {},
		onTranscript:      func(string) {},
		onTranscriptDelta: func(string) {},
		onServerError:     func(string) {},
	}

	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect builds the peer connection, negotiates it through the signaling
// endpoint and returns once the remote answer is applied. The session
// reports Connected when the event data channel opens. Connecting a session
// that is already connected or connecting does nothing, a failed or closed
// peer connection is replaced.
func (s *Session) Connect(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "connect realtime session")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", s.model))

	s.mu.Lock()
	if s.connecting {
		s.mu.Unlock()
		return nil
	}
	stale := s.pc
	if stale != nil && !isDead(stale.ConnectionState()) {
		s.mu.Unlock()
		return nil
	}
	s.pc, s.dc = nil, nil
	s.connecting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.connecting = false
		s.mu.Unlock()
	}()

	if stale != nil {
		_ = stale.Close()
	}
	s.setStatus(status.Initializing, "")

	var pc *webrtc.PeerConnection
	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if pc != nil {
			s.mu.Lock()
			if s.pc == pc {
				s.pc, s.dc = nil, nil
			}
			s.mu.Unlock()
			_ = pc.Close()
		}
		s.setStatus(status.Error, err.Error())
		return err
	}

	pc, err := webrtc.NewPeerConnection(s.webrtcConfig)
	if err != nil {
		return fail(fmt.Errorf("failed to create peer connection: %w", err))
	}

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return fail(fmt.Errorf("failed to add audio transceiver: %w", err))
	}
	pc.OnTrack(drainTrack)
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		s.handleConnectionState(pc, state)
	})

	ordered := true
	dc, err := pc.CreateDataChannel(dataChannelLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return fail(fmt.Errorf("failed to create data channel: %w", err))
	}
	dc.OnOpen(func() {
		logger.Info("realtime data channel open", "label", dc.Label())
		s.setStatus(status.Connected, "")
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		s.handleMessage(msg.Data)
	})

	s.mu.Lock()
	s.pc, s.dc = pc, dc
	s.mu.Unlock()
	s.setStatus(status.Ready, "")

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fail(fmt.Errorf("failed to create offer: %w", err))
	}

	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return fail(fmt.Errorf("failed to set local description: %w", err))
	}

	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return fail(fmt.Errorf("ice gathering interrupted: %w", ctx.Err()))
	}
	span.AddEvent("ice gathering complete")

	answer, err := s.exchangeSDP(ctx, pc.LocalDescription().SDP)
	if err != nil {
		return fail(fmt.Errorf("signaling failed: %w", err))
	}

	if err := pc.SetRemoteDescription(webrtc.SessionDescription{
		Type: webrtc.SDPTypeAnswer,
		SDP:  answer,
	}); err != nil {
		return fail(fmt.Errorf("failed to set remote description: %w", err))
	}

	return nil
}

// SendText adds a user message to the conversation and asks for a response.
func (s *Session) SendText(text string) error {
	item := clientEvent{
		EventID: uuid.NewString(),
		Type:    eventTypeConversationItemCreate,
		Item: &conversationItem{
			Type:    "message",
			Role:    "user",
			Content: []contentPart{{Type: "input_text", Text: text}},
		},
	}
	if err := s.send(item); err != nil {
		return err
	}

	return s.send(clientEvent{
		EventID:  uuid.NewString(),
		Type:     eventTypeResponseCreate,
		Response: &responseConfig{Modalities: []string{"audio", "text"}},
	})
}

func (s *Session) UpdateSession(opts SessionOptions) error {
	config := sessionConfig{}
	if err := copier.Copy(&config, opts); err != nil {
		return fmt.Errorf("failed to copy session options: %w", err)
	}

	return s.send(clientEvent{
		EventID: uuid.NewString(),
		Type:    eventTypeSessionUpdate,
		Session: &config,
	})
}

func (s *Session) Status() status.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Close tears down the data channel, the peer connection and the audio
// queue. Closing an unconnected session only closes the queue.
func (s *Session) Close() error {
	s.mu.Lock()
	pc, dc := s.pc, s.dc
	s.pc, s.dc = nil, nil
	s.mu.Unlock()

	var err error
	if dc != nil {
		if closeErr := dc.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close data channel: %w", closeErr))
		}
	}
	if pc != nil {
		if closeErr := pc.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close peer connection: %w", closeErr))
		}
	}
	if s.audioQueue != nil {
		s.audioQueue.Close()
	}

	s.setStatus(status.Closed, "")
	return err
}

func (s *Session) send(event clientEvent) error {
	s.mu.Lock()
	dc := s.dc
	s.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrNotConnected
	}

	payload, err := sonic.MarshalString(event)
	if err != nil {
		return fmt.Errorf("error marshalling %s event: %w", event.Type, err)
	}
	if err := dc.SendText(payload); err != nil {
		return fmt.Errorf("failed to send %s event: %w", event.Type, err)
	}
	return nil
}

func (s *Session) handleConnectionState(pc *webrtc.PeerConnection, state webrtc.PeerConnectionState) {
	logger.Debug("peer connection state changed", "state", state.String())

	if !isDead(state) {
		return
	}

	s.mu.Lock()
	current := s.pc == pc
	if current {
		s.pc, s.dc = nil, nil
	}
	s.mu.Unlock()
	if !current {
		return
	}

	if err := pc.Close(); err != nil {
		logger.Warn("failed to close peer connection", "error", err)
	}
	if state == webrtc.PeerConnectionStateFailed {
		s.setStatus(status.Error, "peer connection failed")
	} else {
		s.setStatus(status.Closed, "")
	}
}

func isDead(state webrtc.PeerConnectionState) bool {
	return state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed
}

func (s *Session) setStatus(st status.Status, message string) {
	s.mu.Lock()
	if s.status == st && st != status.Error {
		s.mu.Unlock()
		return
	}
	s.status = st
	s.mu.Unlock()

	s.onStatus(status.Update{Status: st, Message: message})
}

// drainTrack reads the remote audio track so its buffers never fill up. The
// spoken audio is played from the audio deltas of the event channel.
func drainTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	logger.Info("remote track started", "kind", track.Kind().String(), "codec", track.Codec().MimeType)

	packets := 0
	for {
		if _, _, err := track.ReadRTP(); err != nil {
			logger.Debug("remote track ended", "packets", packets, "error", err)
			return
		}
		packets++
	}
}
