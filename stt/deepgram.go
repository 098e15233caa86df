package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/lattice-voice/callcore/streamconn"
)

const (
	deepgramStreamEndpoint = "wss://api.deepgram.com/v1/listen"
	deepgramDefaultModel   = "nova-2"
)

// DeepgramVendor is a streaming speech-to-text vendor backed by Deepgram's
// WebSocket API, grounded on original_source/src/clients/deepgram_stt.py's
// stream/batch split and the teacher's gorilla/websocket dial shape
// (tts.CartesiaService.SynthesizeStream).
type DeepgramVendor struct {
	apiKey     string
	model      string
	language   string
	sampleRate int
	streamCfg  streamconn.Config
}

// NewDeepgramVendor constructs a Deepgram streaming vendor. If apiKey is
// empty, DEEPGRAM_API_KEY is consulted.
func NewDeepgramVendor(apiKey, model, language string, sampleRate int) *DeepgramVendor {
	if apiKey == "" {
		apiKey = os.Getenv("DEEPGRAM_API_KEY")
	}
	if model == "" {
		model = deepgramDefaultModel
	}
	if language == "" {
		language = "en"
	}
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	return &DeepgramVendor{
		apiKey:     apiKey,
		model:      model,
		language:   language,
		sampleRate: sampleRate,
		streamCfg:  streamconn.DefaultConfig(),
	}
}

// Name returns the vendor identifier.
func (d *DeepgramVendor) Name() string { return "deepgram" }

func (d *DeepgramVendor) buildURL() string {
	u, _ := url.Parse(deepgramStreamEndpoint)
	q := u.Query()
	q.Set("model", d.model)
	q.Set("language", d.language)
	q.Set("sample_rate", strconv.Itoa(d.sampleRate))
	q.Set("encoding", "linear16")
	q.Set("interim_results", "true")
	u.RawQuery = q.Encode()
	return u.String()
}

// deepgramResult mirrors the subset of Deepgram's streaming response JSON
// this vendor consumes.
type deepgramResult struct {
	IsFinal bool `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// OpenStream opens a reconnecting Deepgram streaming session and returns a
// channel of incremental/final transcription results.
func (d *DeepgramVendor) OpenStream(ctx context.Context, connectionID string) (<-chan StreamResult, error) {
	headers := http.Header{}
	headers.Set("Authorization", "Token "+d.apiKey)

	dialer := streamconn.DialWithHeaders(d.buildURL(), headers)

	conn, err := streamconn.Open(ctx, dialer, d.streamCfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial failed for connection %s: %w", connectionID, err)
	}

	out := make(chan StreamResult, 32)

	go func() {
		defer close(out)
		_ = conn.ReadLoop(ctx, func(ws *websocket.Conn) error {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return err
			}

			var resp deepgramResult
			if err := json.Unmarshal(data, &resp); err != nil {
				return nil // ignore malformed frames, keep reading
			}
			if len(resp.Channel.Alternatives) == 0 {
				return nil
			}

			alt := resp.Channel.Alternatives[0]
			out <- StreamResult{Text: alt.Transcript, Confidence: alt.Confidence, IsFinal: resp.IsFinal}
			return nil
		})
	}()

	return out, nil
}
