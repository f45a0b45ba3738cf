package flow

import (
	prga "github.com/PrincetonUniversity/prga-sub001"
)

// A Pass transforms an architecture context. Key must be unique in a flow.
//
type Pass interface {
	Key() string
	Run(ctx *prga.Context) error
}

// Dependent is implemented by passes that need other passes to have run.
// Flow.Run fails if one of them is neither executed nor pending.
//
type Dependent interface {
	Dependences() []string
}

// Conflicter is implemented by passes that cannot share a flow with others.
type Conflicter interface {
	Conflicts() []string
}

// BeforeSelf is implemented by passes that must run after the listed passes
// when those are part of the flow.
//
type BeforeSelf interface {
	PassesBeforeSelf() []string
}

// AfterSelf is implemented by passes that must run before the listed passes
// when those are part of the flow.
//
type AfterSelf interface {
	PassesAfterSelf() []string
}

// Func is a Pass built from a function and explicit relations.
//
type Func struct {
	Name     string
	Deps     []string
	Excludes []string
	Before   []string // passes to run before this one
	After    []string // passes to run after this one
	Fn       func(ctx *prga.Context) error
}

// Key implements Pass.
func (f *Func) Key() string { return f.Name }

// Run implements Pass.
func (f *Func) Run(ctx *prga.Context) error {
	if f.Fn == nil {
		return nil
	}
	return f.Fn(ctx)
}

// Dependences implements Dependent.
func (f *Func) Dependences() []string { return f.Deps }

// Conflicts implements Conflicter.
func (f *Func) Conflicts() []string { return f.Excludes }

// PassesBeforeSelf implements BeforeSelf.
func (f *Func) PassesBeforeSelf() []string { return f.Before }

// PassesAfterSelf implements AfterSelf.
func (f *Func) PassesAfterSelf() []string { return f.After }

func dependences(p Pass) []string {
	if d, ok := p.(Dependent); ok {
		return d.Dependences()
	}
	return nil
}

func conflicts(p Pass) []string {
	if c, ok := p.(Conflicter); ok {
		return c.Conflicts()
	}
	return nil
}

func before(p Pass) []string {
	if b, ok := p.(BeforeSelf); ok {
		return b.PassesBeforeSelf()
	}
	return nil
}

func after(p Pass) []string {
	if a, ok := p.(AfterSelf); ok {
		return a.PassesAfterSelf()
	}
	return nil
}
