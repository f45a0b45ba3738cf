// Package flow sequences passes over an architecture context.
//
// Passes declare dependences (passes that must have run), conflicts (passes
// that cannot be in the same flow) and ordering constraints. A Flow orders
// its pending passes so that every constraint holds, breaking ties by pass
// key, and runs them one after the other. A Flow can be extended and run
// again: passes that already ran are not run twice.
//
package flow

import (
	"sort"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/pkg/errors"
)

// A Flow is an ordered set of passes.
//
type Flow struct {
	passes   map[string]Pass
	pending  []string
	executed map[string]bool
}

// New returns a flow with the given passes added.
//
func New(passes ...Pass) (*Flow, error) {
	f := &Flow{
		passes:   make(map[string]Pass),
		executed: make(map[string]bool),
	}
	for _, p := range passes {
		if err := f.Add(p); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Add adds p to the pending passes. It fails with ErrDuplicateKey if a pass
// with the same key was added before, and with ErrPassConflict if p conflicts
// with a pass of the flow or the reverse.
//
func (f *Flow) Add(p Pass) error {
	key := p.Key()
	if _, ok := f.passes[key]; ok {
		return errors.Wrapf(prga.ErrDuplicateKey, "pass %s", key)
	}
	for _, c := range conflicts(p) {
		if _, ok := f.passes[c]; ok {
			return errors.Wrapf(prga.ErrPassConflict, "pass %s conflicts with %s", key, c)
		}
	}
	for k, q := range f.passes {
		for _, c := range conflicts(q) {
			if c == key {
				return errors.Wrapf(prga.ErrPassConflict, "pass %s conflicts with %s", k, key)
			}
		}
	}
	f.passes[key] = p
	f.pending = append(f.pending, key)
	return nil
}

// Executed reports whether the pass with the given key already ran.
func (f *Flow) Executed(key string) bool { return f.executed[key] }

// Order returns the keys of the pending passes in execution order: the
// reverse of the depth-first postorder of the constraint graph, visiting
// passes and their successors by increasing key.
//
// A dependence that is neither executed nor pending fails with
// ErrMissingDependency; circular constraints fail with ErrPassCycle.
//
func (f *Flow) Order() ([]string, error) {
	pending := make(map[string]bool, len(f.pending))
	for _, k := range f.pending {
		pending[k] = true
	}
	succ := make(map[string][]string)
	for _, k := range f.pending {
		p := f.passes[k]
		for _, d := range dependences(p) {
			switch {
			case pending[d]:
				succ[d] = append(succ[d], k)
			case !f.executed[d]:
				return nil, errors.Wrapf(prga.ErrMissingDependency, "pass %s depends on %s", k, d)
			}
		}
		for _, b := range before(p) {
			if pending[b] {
				succ[b] = append(succ[b], k)
			}
		}
		for _, a := range after(p) {
			if pending[a] {
				succ[k] = append(succ[k], a)
			}
		}
	}

	nodes := append([]string(nil), f.pending...)
	sort.Strings(nodes)
	for _, s := range succ {
		sort.Strings(s)
	}

	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(nodes))
	post := make([]string, 0, len(nodes))
	var visit func(k string) error
	visit = func(k string) error {
		color[k] = grey
		for _, s := range succ[k] {
			switch color[s] {
			case grey:
				return errors.Wrapf(prga.ErrPassCycle, "%s -> %s", k, s)
			case white:
				if err := visit(s); err != nil {
					return err
				}
			}
		}
		color[k] = black
		post = append(post, k)
		return nil
	}
	for _, k := range nodes {
		if color[k] == white {
			if err := visit(k); err != nil {
				return nil, err
			}
		}
	}
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post, nil
}

// Run runs the pending passes on ctx. The first failing pass aborts the
// flow; passes that completed before it are not run again.
//
func (f *Flow) Run(ctx *prga.Context) error {
	order, err := f.Order()
	if err != nil {
		return err
	}
	log := ctx.Logger()
	for i, k := range order {
		log.Info("running pass", "pass", k, "step", i+1, "of", len(order))
		if err := f.passes[k].Run(ctx); err != nil {
			return errors.Wrapf(err, "pass %s", k)
		}
		f.executed[k] = true
		f.removePending(k)
	}
	return nil
}

func (f *Flow) removePending(key string) {
	for i, k := range f.pending {
		if k == key {
			f.pending = append(f.pending[:i:i], f.pending[i+1:]...)
			return
		}
	}
}
