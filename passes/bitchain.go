package passes

import (
	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/pkg/errors"
)

// BitchainVersion identifies the order in which Bitchain visits the tiles of
// an array. Bitstream writers must check it: any change to the traversal
// bumps it.
//
const BitchainVersion = 1

// ExtBitchainVersion is the context extension key Bitchain records
// BitchainVersion under.
const ExtBitchainVersion = "bitchain_version"

// Bitchain stitches every configuration bit of the design into a single scan
// chain rooted at the top array.
//
// Every physical module with configuration gets the ports cfg_clk and cfg_e
// (global) and cfg_i and cfg_o (the chain), and records in its "cfg_bits"
// extension the number of bits it holds. Each configured instance records the
// index of its first bit in "cfg_offset".
//
// Inside arrays, tiles are visited column by column from x = -1, going up
// through the logic and horizontal channel slots, then down through the
// switch and vertical channel slots.
//
type Bitchain struct{}

// Key implements flow.Pass.
func (Bitchain) Key() string { return KeyBitchain }

// Dependences implements flow.Dependent.
func (Bitchain) Dependences() []string { return []string{KeyFinalization} }

// Run implements flow.Pass.
func (Bitchain) Run(ctx *prga.Context) error {
	for _, k := range []string{prga.ExtCfgBits, prga.ExtCfgOffset, prga.ExtCfgExtioOEOffset, ExtBitchainVersion} {
		if err := ctx.RegisterExtension(k, KeyBitchain); err != nil {
			return err
		}
	}
	inj := &injector{ctx: ctx}
	ctx.Ext()[ExtBitchainVersion] = BitchainVersion
	if top := ctx.Top(); top != nil {
		n, err := inj.array(top)
		if err != nil {
			return err
		}
		ctx.Logger().V(1).Info("bitchain injected", "array", top.Name(), "bits", n)
		return nil
	}
	for _, m := range ctx.Modules() {
		if m.IsLeaf() || !m.IsPhysical() {
			continue
		}
		if _, err := inj.model(m); err != nil {
			return err
		}
	}
	return nil
}

type injector struct {
	ctx *prga.Context
}

// link is one element of a chain: a configured sub-module instance spanning
// bits, or configuration taps driven by new cfg_bit cells.
//
type link struct {
	inst *prga.Instance
	bits int
	taps []*prga.Bit
}

func (l *link) width() int {
	if l.taps != nil {
		return len(l.taps)
	}
	return l.bits
}

// model returns the number of configuration bits of m, injecting the chain
// into m on first use.
//
func (j *injector) model(m prga.Model) (int, error) {
	if n, ok := m.Ext().Int(prga.ExtCfgBits); ok {
		return n, nil
	}
	if a, ok := m.(*prga.Array); ok {
		return j.array(a)
	}
	if m.IsLeaf() {
		n := 0
		if p := cfgD(m); p != nil {
			n = p.Width()
		}
		m.Ext()[prga.ExtCfgBits] = n
		return n, nil
	}
	var links []*link
	for _, inst := range m.Instances(prga.PhysicalView) {
		model := inst.Model()
		if model.IsLeaf() {
			if p := cfgD(model); p != nil {
				if _, err := j.model(model); err != nil {
					return 0, err
				}
				links = append(links, &link{inst: inst, taps: inst.Pin(p.Name()).Bits()})
			}
			continue
		}
		n, err := j.model(model)
		if err != nil {
			return 0, err
		}
		if n > 0 {
			links = append(links, &link{inst: inst, bits: n})
		}
	}
	if b, ok := m.(*prga.Block); ok && b.BlockType() == prga.IOBlock {
		if p := b.Port("extio_oe"); p != nil && p.Direction() == prga.Output {
			links = append(links, &link{taps: p.Bits()})
		}
	}
	return j.chain(prga.AsModule(m), links, false)
}

func cfgD(m prga.Model) *prga.Port {
	p := m.Port("cfg_d")
	if p == nil || !p.IsPhysical() || p.Direction() != prga.Input {
		return nil
	}
	return p
}

// array chains the configured blocks of a in serpentine order.
//
func (j *injector) array(a *prga.Array) (int, error) {
	if n, ok := a.Ext().Int(prga.ExtCfgBits); ok {
		return n, nil
	}
	var links []*link
	visit := func(pos prga.Position, t prga.TileType) error {
		if !a.CoversTile(pos, t) {
			return nil
		}
		s := a.GetBlock(pos, t)
		if s == nil || s.IsPlaceholder() {
			return nil
		}
		for _, inst := range s.Instances {
			if !inst.IsPhysical() {
				continue
			}
			n, err := j.model(inst.Model())
			if err != nil {
				return err
			}
			if n > 0 {
				links = append(links, &link{inst: inst, bits: n})
			}
		}
		return nil
	}
	for x := -1; x < a.Width(); x++ {
		for y := -1; y < a.Height(); y++ {
			pos := prga.Position{X: x, Y: y}
			if err := visit(pos, prga.TileLogic); err != nil {
				return 0, err
			}
			if err := visit(pos, prga.TileXChan); err != nil {
				return 0, err
			}
		}
		for y := a.Height() - 1; y >= -1; y-- {
			pos := prga.Position{X: x, Y: y}
			if err := visit(pos, prga.TileSwitch); err != nil {
				return 0, err
			}
			if err := visit(pos, prga.TileYChan); err != nil {
				return 0, err
			}
		}
	}
	return j.chain(&a.Module, links, a.IsTop())
}

// chain records the size of the chain of m, then creates its configuration
// ports and threads them through links.
//
func (j *injector) chain(m *prga.Module, links []*link, external bool) (int, error) {
	total := 0
	for _, l := range links {
		total += l.width()
	}
	m.Ext()[prga.ExtCfgBits] = total
	if total == 0 {
		return 0, nil
	}
	clk, err := m.GetOrCreatePhysicalInput("cfg_clk", 1, external, true)
	if err != nil {
		return 0, err
	}
	en, err := m.GetOrCreatePhysicalInput("cfg_e", 1, external, true)
	if err != nil {
		return 0, err
	}
	ci, err := m.GetOrCreatePhysicalInput("cfg_i", 1, external, false)
	if err != nil {
		return 0, err
	}
	co, err := m.GetOrCreatePhysicalOutput("cfg_o", 1, external, false)
	if err != nil {
		return 0, err
	}
	cell, err := j.ctx.CfgBit()
	if err != nil {
		return 0, err
	}

	prev := ci.Bit(0)
	offset, cells := 0, 0
	join := func(inst *prga.Instance) error {
		for _, c := range [...]struct {
			pin string
			src *prga.Bit
		}{{"cfg_clk", clk.Bit(0)}, {"cfg_e", en.Bit(0)}, {"cfg_i", prev}} {
			if err := prga.SetPhysicalSource(inst.Pin(c.pin).Bit(0), c.src); err != nil {
				return err
			}
		}
		prev = inst.Pin("cfg_o").Bit(0)
		return nil
	}
	for _, l := range links {
		if l.inst != nil {
			l.inst.Ext()[prga.ExtCfgOffset] = offset
		} else {
			m.Ext()[prga.ExtCfgExtioOEOffset] = offset
		}
		if l.taps == nil {
			if err := join(l.inst); err != nil {
				return 0, errors.Wrapf(err, "module %s", m.Name())
			}
			offset += l.bits
			continue
		}
		for _, tap := range l.taps {
			inst, err := m.Instantiate(cell, "cfg_bit_"+itoa(cells))
			if err != nil {
				return 0, errors.Wrapf(err, "module %s", m.Name())
			}
			cells++
			if err = join(inst); err != nil {
				return 0, errors.Wrapf(err, "module %s", m.Name())
			}
			if err = prga.SetPhysicalSource(tap, prev); err != nil {
				return 0, errors.Wrapf(err, "module %s", m.Name())
			}
			offset++
		}
	}
	if err := prga.SetPhysicalSource(co.Bit(0), prev); err != nil {
		return 0, errors.Wrapf(err, "module %s", m.Name())
	}
	return total, nil
}
