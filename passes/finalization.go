package passes

import (
	"sort"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/pkg/errors"
)

// Finalization turns logical connectivity into a physical netlist.
//
// It drops routing blocks without outputs, completes the ports of the top
// array, puts logic and IO block ports in canonical order and, in every
// physical non-leaf module, drives each logical sink from its only source or
// from a new cmux_N selecting among its sources. Running it twice has the
// same effect as running it once.
//
type Finalization struct{}

// Key implements flow.Pass.
func (Finalization) Key() string { return KeyFinalization }

// PassesBeforeSelf implements flow.BeforeSelf.
func (Finalization) PassesBeforeSelf() []string { return []string{KeyRoutingCompletion} }

// Run implements flow.Pass.
func (Finalization) Run(ctx *prga.Context) error {
	log := ctx.Logger()
	dropped := 0
	for _, m := range ctx.Modules() {
		b, ok := m.(*prga.Block)
		if !ok || !b.IsRouting() || hasOutputs(b) {
			continue
		}
		if err := ctx.DropRoutingBlock(b); err != nil {
			return err
		}
		dropped++
	}
	if top := ctx.Top(); top != nil {
		if err := top.AutoCompletePorts(); err != nil {
			return err
		}
	}
	muxes := 0
	for _, m := range ctx.Modules() {
		if b, ok := m.(*prga.Block); ok && !b.IsRouting() {
			if err := ReorderBlockPorts(b); err != nil {
				return err
			}
		}
		if m.IsLeaf() || !m.IsPhysical() {
			continue
		}
		n, err := Materialize(prga.AsModule(m))
		if err != nil {
			return err
		}
		muxes += n
	}
	log.V(1).Info("finalized", "droppedBlocks", dropped, "muxes", muxes)
	return nil
}

func hasOutputs(m prga.Model) bool {
	for _, p := range m.Ports(prga.AllView) {
		if p.Direction() == prga.Output {
			return true
		}
	}
	return false
}

// ReorderBlockPorts orders the ports of a logic or IO block as logical inputs,
// logical outputs and clocks, each sorted by name, followed by the remaining
// ports in their current order.
//
func ReorderBlockPorts(b *prga.Block) error {
	var ins, outs, clks, rest []*prga.Port
	for _, p := range b.Ports(prga.AllView) {
		switch {
		case !p.IsLogical():
			rest = append(rest, p)
		case p.IsClock():
			clks = append(clks, p)
		case p.Direction() == prga.Input:
			ins = append(ins, p)
		default:
			outs = append(outs, p)
		}
	}
	byName := func(ps []*prga.Port) {
		sort.SliceStable(ps, func(i, j int) bool { return ps[i].Name() < ps[j].Name() })
	}
	byName(ins)
	byName(outs)
	byName(clks)
	order := make([]*prga.Port, 0, len(ins)+len(outs)+len(clks)+len(rest))
	order = append(order, ins...)
	order = append(order, outs...)
	order = append(order, clks...)
	order = append(order, rest...)
	return b.ReorderPorts(order)
}

// physical returns the bit implementing b in the physical netlist, or nil.
func physical(b *prga.Bit) *prga.Bit {
	if b.IsPhysical() {
		return b
	}
	if cp := b.PhysicalCounterpart(); cp != nil && cp.IsPhysical() {
		return cp
	}
	return nil
}

// muxName names the mux driving sink in m. Names of different sinks may
// flatten to the same string (port x_in and pin x.in), so a numeric suffix is
// added until the name is free.
func muxName(m *prga.Module, sink *prga.Bit) string {
	bus := sink.Bus()
	name := bus.Model().Name()
	if inst := bus.Instance(); inst != nil {
		name = inst.Name() + "_" + name
	}
	name = "_cmux_" + name + "_" + itoa(sink.Index())
	if m.Instance(name) == nil {
		return name
	}
	for n := 1; ; n++ {
		if s := name + "_" + itoa(n); m.Instance(s) == nil {
			return s
		}
	}
}

// Materialize gives every logical sink of m that has logical sources and no
// physical source a physical driver, and returns the number of muxes it
// inserted. Sources without a physical implementation are ignored.
//
func Materialize(m *prga.Module) (int, error) {
	var sinks []*prga.Bit
	for _, p := range m.Ports(prga.AllView) {
		if p.Direction() == prga.Output {
			sinks = append(sinks, p.Bits()...)
		}
	}
	for _, inst := range m.Instances(prga.AllView) {
		for _, pin := range inst.Pins(prga.AllView) {
			if pin.Direction() == prga.Input {
				sinks = append(sinks, pin.Bits()...)
			}
		}
	}
	muxes := 0
	for _, sink := range sinks {
		srcs := sink.LogicalSources()
		if len(srcs) == 0 {
			continue
		}
		psink := physical(sink)
		if psink == nil || psink.PhysicalSource() != nil {
			continue
		}
		var psrcs []*prga.Bit
		for _, s := range srcs {
			if ps := physical(s); ps != nil {
				psrcs = append(psrcs, ps)
			}
		}
		switch len(psrcs) {
		case 0:
			continue
		case 1:
			if err := prga.SetPhysicalSource(psink, psrcs[0]); err != nil {
				return muxes, errors.Wrapf(err, "module %s", m.Name())
			}
			continue
		}
		model, err := m.Context().CMux(len(psrcs))
		if err != nil {
			return muxes, err
		}
		mux, err := m.Instantiate(model, muxName(m, psink))
		if err != nil {
			return muxes, errors.Wrapf(err, "module %s", m.Name())
		}
		in := mux.Pin("i")
		for k, s := range psrcs {
			if err = prga.SetPhysicalSource(in.Bit(k), s); err != nil {
				return muxes, errors.Wrapf(err, "module %s", m.Name())
			}
		}
		if err = prga.SetPhysicalSource(psink, mux.Pin("o").Bit(0)); err != nil {
			return muxes, errors.Wrapf(err, "module %s", m.Name())
		}
		muxes++
	}
	return muxes, nil
}
