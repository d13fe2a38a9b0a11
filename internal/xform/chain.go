package xform

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Chain is an ordered list of transforms applied first to last. Unlike
// Compose it may hold several Animated stages with different intervals;
// each stage is sampled on its own when the chain is evaluated.
//
// A Chain is immutable: Nest returns a new chain and never shares a
// backing array that a later Nest could overwrite.
type Chain struct {
	stages   []Transform
	animated bool
}

// NewChain returns a chain of the given stages in application order.
func NewChain(stages ...Transform) Chain {
	var c Chain
	for i := len(stages) - 1; i >= 0; i-- {
		c = c.Nest(stages[i])
	}
	return c
}

// Nest returns the chain for a child whose local transform is t: t is
// applied first, then every stage of c.
func (c Chain) Nest(t Transform) Chain {
	if IsIdentity(t) {
		return c
	}
	stages := make([]Transform, 0, len(c.stages)+1)
	stages = append(stages, t)
	stages = append(stages, c.stages...)
	return Chain{stages: stages, animated: c.animated || IsAnimated(t)}
}

// Animated reports whether any stage depends on time.
func (c Chain) Animated() bool {
	return c.animated
}

// Len returns the number of non-identity stages.
func (c Chain) Len() int {
	return len(c.stages)
}

// At evaluates the chain at time.
func (c Chain) At(time float64) mgl64.Mat4 {
	m := mgl64.Ident4()
	for _, s := range c.stages {
		m = Evaluate(s, time).Mul4(m)
	}
	return m
}

// Static returns the baked matrix of a chain with no animated stage.
func (c Chain) Static() (mgl64.Mat4, bool) {
	if c.animated {
		return mgl64.Mat4{}, false
	}
	return c.At(0), true
}

// Transform folds the chain into a single Transform with Compose. It fails
// when two animated stages have different intervals.
func (c Chain) Transform() (Transform, error) {
	var acc Transform = Identity{}
	for _, s := range c.stages {
		next, err := Compose(acc, s)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

// Stages returns the stages in application order.
func (c Chain) Stages() []Transform {
	return append([]Transform(nil), c.stages...)
}

// Interval returns the smallest time range covering every animated stage.
// ok is false for a static chain.
func (c Chain) Interval() (start, end float64, ok bool) {
	for _, s := range c.stages {
		a, isAnim := s.(Animated)
		if !isAnim {
			continue
		}
		if !ok {
			start, end, ok = a.StartTime, a.EndTime, true
			continue
		}
		start = min(start, a.StartTime)
		end = max(end, a.EndTime)
	}
	return start, end, ok
}
