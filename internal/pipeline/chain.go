// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

package pipeline

import (
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
)

// Chain is an ordered, named sequence of stages for one audience. Chains
// are assembled once at startup from shared stage instances, never rebuilt
// per request.
type Chain struct {
	audience string
	logger   *slog.Logger
	stages   []Stage
}

// NewChain creates an empty chain for an audience.
func NewChain(
	logger *slog.Logger,
	audience string,
) *Chain {
	return &Chain{
		audience: audience,
		logger:   logger,
	}
}

// Audience returns the audience this chain serves.
func (ch *Chain) Audience() string {
	return ch.audience
}

// Append adds a stage unconditionally.
func (ch *Chain) Append(
	s Stage,
) *Chain {
	ch.stages = append(ch.stages, s)
	return ch
}

// AppendIf adds a stage that runs only when the predicate holds for the
// request.
func (ch *Chain) AppendIf(
	pred Predicate,
	s Stage,
) *Chain {
	return ch.Append(When(pred, s))
}

// StageNames returns the assembled stage names in execution order.
func (ch *Chain) StageNames() []string {
	names := make([]string, len(ch.stages))
	for i, s := range ch.stages {
		names[i] = s.Name
	}

	return names
}

// Middleware compiles the chain into a single echo middleware. Stages
// execute strictly sequentially in assembled order; no stage begins before
// the prior one calls its continuation.
func (ch *Chain) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		h := next
		for i := len(ch.stages) - 1; i >= 0; i-- {
			s := ch.stages[i]
			inner := h
			h = func(c echo.Context) error {
				return s.Handle(c, inner)
			}
		}

		return h
	}
}

// Descriptor names one stage in a data-driven pipeline definition. Policy
// carries per-stage configuration, e.g. the rate limit policy name or the
// cache namespace.
type Descriptor struct {
	// Stage is the stage identifier resolved through the registry.
	Stage string
	// Policy is optional per-stage configuration.
	Policy string
}

// StageFactory builds a stage instance from its descriptor.
type StageFactory func(d Descriptor) (Stage, error)

// Registry maps stage identifiers to factories.
type Registry map[string]StageFactory

// Resolve builds a chain from an ordered descriptor list. Resolution
// happens once at startup; an unknown stage identifier is a configuration
// error, not a runtime one.
func Resolve(
	logger *slog.Logger,
	audience string,
	descriptors []Descriptor,
	registry Registry,
) (*Chain, error) {
	ch := NewChain(logger, audience)

	for _, d := range descriptors {
		factory, ok := registry[d.Stage]
		if !ok {
			return nil, fmt.Errorf("unknown pipeline stage %q", d.Stage)
		}

		s, err := factory(d)
		if err != nil {
			return nil, fmt.Errorf("building stage %q: %w", d.Stage, err)
		}

		ch.Append(s)
	}

	return ch, nil
}
