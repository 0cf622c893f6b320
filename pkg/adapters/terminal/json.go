package terminal

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/ports"
)

// Message types written by the JSON collaborators.
const (
	MessageCanvas  = "canvas"
	MessageSound   = "sound"
	MessageRequest = "request"
)

// Message is one JSON line of output.
type Message struct {
	Type      string         `json:"type"`
	Canvas    *domain.Canvas `json:"canvas,omitempty"`
	Sample    *domain.Sample `json:"sample,omitempty"`
	Item      string         `json:"item,omitempty"`
	Allowed   []string       `json:"allowed,omitempty"`
	TimeoutMS int64          `json:"timeout_ms,omitempty"`
}

// JSONWriter serializes messages from several collaborators onto one
// stream.
type JSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONWriter writes one JSON object per line to w.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

func (w *JSONWriter) write(m Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(m)
}

// JSONDisplay emits every canvas as a JSON line.
type JSONDisplay struct{ w *JSONWriter }

var _ ports.Display = JSONDisplay{}

// NewJSONDisplay creates a display writing to w.
func NewJSONDisplay(w *JSONWriter) JSONDisplay { return JSONDisplay{w: w} }

func (d JSONDisplay) Init(ctx context.Context, settings ports.DisplaySettings) error { return nil }

func (d JSONDisplay) Show(ctx context.Context, c domain.Canvas) error {
	return d.w.write(Message{Type: MessageCanvas, Canvas: &c})
}

func (d JSONDisplay) Close() error { return nil }

// JSONSound emits every played sample as a JSON line.
type JSONSound struct{ w *JSONWriter }

var _ ports.Sound = JSONSound{}

// NewJSONSound creates a sound device writing to w.
func NewJSONSound(w *JSONWriter) JSONSound { return JSONSound{w: w} }

func (s JSONSound) Init(ctx context.Context, settings ports.SoundSettings) error { return nil }

func (s JSONSound) Play(ctx context.Context, sample domain.Sample) error {
	return s.w.write(Message{Type: MessageSound, Sample: &sample})
}

func (s JSONSound) Close() error { return nil }

// JSONResponse is what the host answers a request with. A bare JSON
// string or plain text line is accepted as the value.
type JSONResponse struct {
	Value string  `json:"value"`
	RTMS  float64 `json:"rt_ms"`
}

// JSONResponder announces every response request as a JSON line and reads
// the answer from the next input line. The host measures response times;
// when it sends none, the time spent waiting is used.
type JSONResponder struct {
	w     *JSONWriter
	lines *LineResponder
}

var _ ports.Responder = (*JSONResponder)(nil)

// NewJSONResponder reads answers from r and writes requests to w.
func NewJSONResponder(r io.Reader, w *JSONWriter) *JSONResponder {
	return &JSONResponder{w: w, lines: NewLineResponder(r)}
}

func (j *JSONResponder) Collect(ctx context.Context, req domain.ResponseRequest) (domain.Response, error) {
	if err := j.w.write(Message{
		Type:      MessageRequest,
		Item:      req.Item,
		Allowed:   req.Allowed,
		TimeoutMS: req.Timeout.Milliseconds(),
	}); err != nil {
		return domain.Response{}, err
	}

	var rt time.Duration
	res, err := j.lines.collect(ctx, req, func(line string) (string, bool) {
		v := decodeAnswer(line)
		if v.RTMS > 0 {
			rt = time.Duration(v.RTMS * float64(time.Millisecond))
		}
		return v.Value, allowed(req.Allowed, v.Value)
	})
	if err == nil && res.Value != "" && rt > 0 {
		res.RT = rt
	}
	return res, err
}

func decodeAnswer(line string) JSONResponse {
	var v JSONResponse
	if err := json.Unmarshal([]byte(line), &v); err == nil {
		return v
	}
	var s string
	if err := json.Unmarshal([]byte(line), &s); err == nil {
		return JSONResponse{Value: s}
	}
	return JSONResponse{Value: strings.TrimSpace(line)}
}
