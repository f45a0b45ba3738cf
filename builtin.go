package prga

import (
	"math/bits"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// common port names
const (
	pinIn   = "in"
	pinOut  = "out"
	pinI    = "i"
	pinO    = "o"
	pinCfgD = "cfg_d"
)

// builtin returns the built-in model name, creating it with build on first use.
func (ctx *Context) builtin(name string, build func(m *Module)) (*Module, error) {
	if m := ctx.Module(name); m != nil {
		if mm, ok := m.(*Module); ok && mm.builtin {
			return mm, nil
		}
		return nil, errors.Wrapf(ErrDuplicateKey, "built-in %s is shadowed by a user module", name)
	}
	m := &Module{builtin: true}
	m.init(ctx, m, name, PrimitiveKind, Dual, true)
	build(m)
	if err := ctx.register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// LUT returns the n-input lookup table "lut<n>". Its truth table is the
// physical-only input cfg_d[2^n].
//
func (ctx *Context) LUT(n int) (*Module, error) {
	if n < 1 || n > 8 {
		return nil, errors.Wrapf(ErrAPI, "invalid LUT size %d", n)
	}
	return ctx.builtin("lut"+itoa(n), func(m *Module) {
		m.prim = LUT
		m.MustAddPort(PortSpec{Name: pinIn, Direction: Input, Width: n})
		m.MustAddPort(PortSpec{Name: pinOut, Direction: Output, Width: 1})
		m.MustAddPort(PortSpec{Name: pinCfgD, Direction: Input, Width: 1 << n, Visibility: PhysicalOnly})
		m.Ext()[ExtVerilogTemplate] = "lut.tmpl.v"
	})
}

// FlipFlop returns the D flip-flop "flipflop".
//
func (ctx *Context) FlipFlop() (*Module, error) {
	return ctx.builtin("flipflop", func(m *Module) {
		m.prim = FlipFlop
		m.MustAddPort(PortSpec{Name: "clk", Direction: Input, Width: 1, IsClock: true})
		m.MustAddPort(PortSpec{Name: "D", Direction: Input, Width: 1, Clock: "clk"})
		m.MustAddPort(PortSpec{Name: "Q", Direction: Output, Width: 1, Clock: "clk"})
		m.Ext()[ExtVerilogTemplate] = "flipflop.tmpl.v"
	})
}

// Pad returns the logical-only pad primitive of type t: "inpad", "outpad" or
// "iopad".
//
func (ctx *Context) Pad(t PrimitiveType) (*Module, error) {
	var name string
	switch t {
	case Inpad:
		name = "inpad"
	case Outpad:
		name = "outpad"
	case Iopad:
		name = "iopad"
	default:
		return nil, errors.Wrapf(ErrAPI, "primitive type %d is not a pad", t)
	}
	return ctx.builtin(name, func(m *Module) {
		m.prim = t
		m.vis = LogicalOnly
		if t != Outpad {
			m.MustAddPort(PortSpec{Name: "inpad", Direction: Output, Width: 1})
		}
		if t != Inpad {
			m.MustAddPort(PortSpec{Name: "outpad", Direction: Input, Width: 1})
		}
	})
}

// CMux returns the configurable n-to-1 multiplexer "cmux_<n>". It selects
// among i[n] with cfg_d[ceil(log2 n)].
//
func (ctx *Context) CMux(n int) (*Module, error) {
	if n < 2 {
		return nil, errors.Wrapf(ErrAPI, "invalid mux size %d", n)
	}
	return ctx.builtin("cmux_"+itoa(n), func(m *Module) {
		m.kind = SwitchKind
		m.vis = PhysicalOnly
		m.MustAddPort(PortSpec{Name: pinI, Direction: Input, Width: n})
		m.MustAddPort(PortSpec{Name: pinO, Direction: Output, Width: 1})
		m.MustAddPort(PortSpec{Name: pinCfgD, Direction: Input, Width: bits.Len(uint(n - 1))})
		m.Ext()[ExtVerilogTemplate] = "cmux.tmpl.v"
	})
}

// CfgBit returns the scan-chain storage cell "cfg_bit". cfg_o is both the next
// link of the chain and the stored value.
//
func (ctx *Context) CfgBit() (*Module, error) {
	return ctx.builtin("cfg_bit", func(m *Module) {
		m.kind = ConfigKind
		m.vis = PhysicalOnly
		m.MustAddPort(PortSpec{Name: "cfg_clk", Direction: Input, Width: 1, IsClock: true})
		m.MustAddPort(PortSpec{Name: "cfg_e", Direction: Input, Width: 1, Clock: "cfg_clk"})
		m.MustAddPort(PortSpec{Name: "cfg_i", Direction: Input, Width: 1, Clock: "cfg_clk"})
		m.MustAddPort(PortSpec{Name: "cfg_o", Direction: Output, Width: 1, Clock: "cfg_clk"})
		m.Ext()[ExtVerilogTemplate] = "cfg_bit.tmpl.v"
	})
}

// ZBuf returns the transparent buffer "adn_zbuf".
//
func (ctx *Context) ZBuf() (*Module, error) {
	return ctx.builtin("adn_zbuf", func(m *Module) {
		m.kind = ShadowKind
		m.vis = PhysicalOnly
		m.MustAddPort(PortSpec{Name: pinI, Direction: Input, Width: 1})
		m.MustAddPort(PortSpec{Name: pinO, Direction: Output, Width: 1})
		m.Ext()[ExtVerilogTemplate] = "adn_zbuf.tmpl.v"
	})
}

// Builtin returns the built-in model with the given name.
//
func (ctx *Context) Builtin(name string) (*Module, error) {
	switch name {
	case "flipflop":
		return ctx.FlipFlop()
	case "inpad":
		return ctx.Pad(Inpad)
	case "outpad":
		return ctx.Pad(Outpad)
	case "iopad":
		return ctx.Pad(Iopad)
	case "cfg_bit":
		return ctx.CfgBit()
	case "adn_zbuf":
		return ctx.ZBuf()
	}
	if s, ok := strings.CutPrefix(name, "cmux_"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			return ctx.CMux(n)
		}
	}
	if s, ok := strings.CutPrefix(name, "lut"); ok {
		if n, err := strconv.Atoi(s); err == nil {
			return ctx.LUT(n)
		}
	}
	return nil, errors.Wrapf(ErrAPI, "unknown built-in %s", name)
}
