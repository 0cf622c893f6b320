package items

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
)

// TimeoutInfinite disables the response timeout.
const TimeoutInfinite = "infinite"

// NoResponse is the response value after a timeout.
const NoResponse = "None"

// KeyboardResponse waits for a response and scores it against
// correct_response.
type KeyboardResponse struct {
	Base
	req domain.ResponseRequest
}

type keyboardSettings struct {
	AllowedResponses string `mapstructure:"allowed_responses"`
	Timeout          string `mapstructure:"timeout"`
}

// NewKeyboardResponse builds a keyboard_response from its definition.
func NewKeyboardResponse(def script.ItemDef) (domain.Item, error) {
	k := &KeyboardResponse{Base: newBase(def)}
	if !k.store.Has("timeout") {
		k.store.Set("timeout", vars.String(TimeoutInfinite))
	}
	return k, nil
}

func (k *KeyboardResponse) Prepare(ctx context.Context, rc domain.RunContext) error {
	var cfg keyboardSettings
	if err := k.settings(rc, &cfg); err != nil {
		return err
	}
	req := domain.ResponseRequest{Item: k.name}
	for _, r := range strings.FieldsFunc(cfg.AllowedResponses, func(r rune) bool { return r == ';' || r == ' ' }) {
		req.Allowed = append(req.Allowed, r)
	}
	switch cfg.Timeout {
	case "", TimeoutInfinite:
	default:
		ms, err := strconv.ParseFloat(cfg.Timeout, 64)
		if err != nil || ms < 0 {
			return fmt.Errorf("keyboard_response %q: invalid timeout %q", k.name, cfg.Timeout)
		}
		req.Timeout = time.Duration(ms * float64(time.Millisecond))
	}
	k.req = req
	return nil
}

func (k *KeyboardResponse) Run(ctx context.Context, rc domain.RunContext) error {
	resp, err := rc.Collect(ctx, k.req)
	if err != nil {
		return err
	}
	value := resp.Value
	if value == "" {
		value = NoResponse
	}
	rtMs := float64(resp.RT) / float64(time.Millisecond)

	correct := vars.String(domain.Undefined)
	isCorrect := false
	expected, err := k.text(rc, "correct_response", "")
	if err != nil {
		return err
	}
	if expected != "" {
		isCorrect = strings.EqualFold(expected, value)
		correct = vars.Int(boolInt(isCorrect))
	}

	for _, suffix := range []string{"", "_" + k.name} {
		setRuntime(rc, domain.VarResponse+suffix, vars.Parse(value))
		setRuntime(rc, domain.VarResponseTime+suffix, vars.Float(rtMs))
		setRuntime(rc, domain.VarCorrect+suffix, correct)
	}
	rc.RecordResponse(isCorrect, resp.RT)
	return nil
}

func (k *KeyboardResponse) VarInfo() []domain.VarInfo {
	out := k.Base.VarInfo()
	for _, name := range []string{domain.VarResponse, domain.VarResponseTime, domain.VarCorrect} {
		out = append(out,
			domain.VarInfo{Name: name, Description: "last response"},
			domain.VarInfo{Name: name + "_" + k.name, Description: "response of " + k.name},
		)
	}
	return out
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
