package terminal

import (
	"bufio"
	"context"
	"io"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/ports"
)

// LineResponder collects one response per input line. Lines that are not
// among the allowed responses are ignored.
type LineResponder struct {
	r     io.Reader
	now   func() time.Time
	once  sync.Once
	lines chan string
}

var _ ports.Responder = (*LineResponder)(nil)

// NewLineResponder reads responses from r.
func NewLineResponder(r io.Reader) *LineResponder {
	return &LineResponder{r: r, now: time.Now, lines: make(chan string)}
}

func (l *LineResponder) start() {
	go func() {
		defer close(l.lines)
		sc := bufio.NewScanner(l.r)
		for sc.Scan() {
			line, err := SanitizeInput(strings.TrimSpace(sc.Text()))
			if err != nil {
				continue
			}
			l.lines <- line
		}
	}()
}

// Collect waits for an allowed line, the timeout or ctx. End of input
// behaves like a timeout. Malformed lines are skipped.
func (l *LineResponder) Collect(ctx context.Context, req domain.ResponseRequest) (domain.Response, error) {
	return l.collect(ctx, req, func(line string) (string, bool) {
		return line, allowed(req.Allowed, line)
	})
}

func (l *LineResponder) collect(ctx context.Context, req domain.ResponseRequest, accept func(string) (string, bool)) (domain.Response, error) {
	l.once.Do(l.start)
	begin := l.now()

	var timeout <-chan time.Time
	if req.Timeout > 0 {
		t := time.NewTimer(req.Timeout)
		defer t.Stop()
		timeout = t.C
	}
	for {
		select {
		case <-ctx.Done():
			return domain.Response{}, ctx.Err()
		case <-timeout:
			return domain.Response{RT: req.Timeout}, nil
		case line, ok := <-l.lines:
			if !ok {
				return domain.Response{RT: l.now().Sub(begin)}, nil
			}
			if value, ok := accept(line); ok {
				return domain.Response{Value: value, RT: l.now().Sub(begin)}, nil
			}
		}
	}
}

func allowed(list []string, v string) bool {
	return len(list) == 0 || slices.ContainsFunc(list, func(a string) bool { return strings.EqualFold(a, v) })
}

// AutoResponder answers immediately with a random allowed response and a
// plausible response time, for unattended test runs.
type AutoResponder struct {
	mu       sync.Mutex
	rng      *rand.Rand
	minRT    time.Duration
	maxRT    time.Duration
	fallback string
}

var _ ports.Responder = (*AutoResponder)(nil)

// NewAutoResponder creates an AutoResponder drawing from rng.
func NewAutoResponder(rng *rand.Rand) *AutoResponder {
	return &AutoResponder{rng: rng, minRT: 200 * time.Millisecond, maxRT: 1000 * time.Millisecond, fallback: "space"}
}

func (a *AutoResponder) Collect(ctx context.Context, req domain.ResponseRequest) (domain.Response, error) {
	if err := ctx.Err(); err != nil {
		return domain.Response{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	value := a.fallback
	if len(req.Allowed) > 0 {
		value = req.Allowed[a.rng.IntN(len(req.Allowed))]
	}
	rt := a.minRT + time.Duration(a.rng.Int64N(int64(a.maxRT-a.minRT)))
	if req.Timeout > 0 && rt > req.Timeout {
		return domain.Response{RT: req.Timeout}, nil
	}
	return domain.Response{Value: value, RT: rt}, nil
}
