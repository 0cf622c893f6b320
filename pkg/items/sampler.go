package items

import (
	"context"
	"fmt"

	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/script"
	"github.com/aretw0/sesame/pkg/vars"
)

// Sampler plays a sound file from the pool.
type Sampler struct {
	Base
	sample domain.Sample
}

type samplerSettings struct {
	Sample   string  `mapstructure:"sample"`
	Volume   float64 `mapstructure:"volume"`
	Pan      float64 `mapstructure:"pan"`
	Duration string  `mapstructure:"duration"`
}

// NewSampler builds a sampler from its definition.
func NewSampler(def script.ItemDef) (domain.Item, error) {
	s := &Sampler{Base: newBase(def)}
	if !s.store.Has("duration") {
		s.store.Set("duration", vars.String(DurationSound))
	}
	return s, nil
}

func (s *Sampler) Prepare(ctx context.Context, rc domain.RunContext) error {
	cfg := samplerSettings{Volume: 1}
	if err := s.settings(rc, &cfg); err != nil {
		return err
	}
	if cfg.Sample == "" {
		return fmt.Errorf("sampler %q has no sample", s.name)
	}
	path, err := rc.ResolveFile(cfg.Sample)
	if err != nil {
		return err
	}
	s.sample = domain.Sample{Item: s.name, Path: path, Volume: cfg.Volume, Pan: cfg.Pan}
	return nil
}

func (s *Sampler) Run(ctx context.Context, rc domain.RunContext) error {
	if s.sample.Path == "" {
		return fmt.Errorf("sampler %q was not prepared", s.name)
	}
	if err := rc.Play(ctx, s.sample); err != nil {
		return err
	}
	setRuntime(rc, "time_"+s.name, timestamp(rc))
	var cfg samplerSettings
	if err := s.settings(rc, &cfg); err != nil {
		return err
	}
	return wait(ctx, rc, s.name, cfg.Duration)
}

func (s *Sampler) VarInfo() []domain.VarInfo {
	return append(s.Base.VarInfo(), domain.VarInfo{Name: "time_" + s.name, Description: "onset time"})
}
