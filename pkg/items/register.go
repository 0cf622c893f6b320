package items

import (
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/registry"
)

// Built-in leaf types.
const (
	TypeSketchpad        = "sketchpad"
	TypeFeedback         = "feedback"
	TypeSampler          = "sampler"
	TypeKeyboardResponse = "keyboard_response"
	TypeLogger           = "logger"
)

// Register installs the built-in item types.
func Register(reg *registry.Registry) {
	reg.Register(domain.TypeSequence, NewSequence)
	reg.Register(domain.TypeLoop, NewLoop)
	reg.Register(TypeInlineScript, NewInlineScript)
	reg.Register(TypeSketchpad, NewSketchpad)
	reg.Register(TypeFeedback, NewFeedback)
	reg.Register(TypeSampler, NewSampler)
	reg.Register(TypeKeyboardResponse, NewKeyboardResponse)
	reg.Register(TypeLogger, NewLogger)
}

// NewRegistry returns a registry with the built-in types installed.
func NewRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	Register(reg)
	return reg
}
