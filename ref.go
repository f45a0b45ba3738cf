package prga

import (
	"github.com/PrincetonUniversity/prga-sub001/internal/netref"
	"github.com/pkg/errors"
)

// Ref resolves a textual net reference inside m. Port names refer to ports of
// m, "inst.pin" to pins of its instances; see package internal/netref for the
// syntax.
//
func (m *Module) Ref(s string) (NetRef, error) {
	r, err := netref.Parse(s)
	if err != nil {
		return nil, errors.Wrapf(ErrAPI, "module %s: %v", m.name, err)
	}
	return m.resolve(r)
}

// MustRef is like Ref but panics on error.
//
func (m *Module) MustRef(s string) NetRef {
	r, err := m.Ref(s)
	if err != nil {
		panic(err)
	}
	return r
}

func (m *Module) resolve(r *netref.Ref) (NetRef, error) {
	switch {
	case r.Concat != nil:
		refs := make(Refs, 0, len(r.Concat))
		for _, sub := range r.Concat {
			n, err := m.resolve(sub)
			if err != nil {
				return nil, err
			}
			refs = append(refs, n)
		}
		return refs, nil
	case r.Const != nil:
		vals, err := netref.ConstBits(*r.Const)
		if err != nil {
			return nil, errors.Wrapf(ErrAPI, "module %s: %v", m.name, err)
		}
		bits := make(Bits, len(vals))
		for i, v := range vals {
			switch v {
			case netref.Zero:
				bits[i] = Zero
			case netref.One:
				bits[i] = One
			default:
				bits[i] = Open
			}
		}
		return bits, nil
	}
	var bus Bus
	b := r.Bus
	if b.Pin != "" {
		inst := m.Instance(b.Name)
		if inst == nil {
			return nil, errors.Wrapf(ErrAPI, "module %s: no instance %s", m.name, b.Name)
		}
		pin := inst.Pin(b.Pin)
		if pin == nil {
			return nil, errors.Wrapf(ErrAPI, "module %s: instance %s has no pin %s", m.name, b.Name, b.Pin)
		}
		bus = pin
	} else {
		port := m.Port(b.Name)
		if port == nil {
			return nil, errors.Wrapf(ErrAPI, "module %s: no port %s", m.name, b.Name)
		}
		bus = port
	}
	if b.Slice == nil {
		return bus, nil
	}
	lo, hi := b.Slice.Range()
	if lo > hi || lo < 0 || hi >= bus.Width() {
		return nil, errors.Wrapf(ErrAPI, "module %s: %s[%d:%d] out of range", m.name, bus.Name(), hi, lo)
	}
	return bus.Range(lo, hi), nil
}
