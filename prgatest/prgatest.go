// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package prgatest provides sample architectures and invariant checkers for
// testing elaboration passes.
//
package prgatest

import (
	"testing"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/go-logr/logr/testr"
)

// NewContext returns an empty context logging to tb at verbosity 1.
//
func NewContext(tb testing.TB) *prga.Context {
	ctx := prga.NewContext()
	ctx.SetLogger(testr.NewWithInterface(tb, testr.Options{Verbosity: 1}))
	return ctx
}

// must panics if err is not nil. Sample architectures are built from valid
// descriptions, so a failure here is a bug in the package under test.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// CLB returns the logic block "clb": a LUT4 feeding a flip-flop, with a 4 bits
// input "in" on the bottom side, an output "out" on the right side selecting
// between the LUT and the flip-flop, and a clock hard-wired to global "clk".
//
func CLB(tb testing.TB, ctx *prga.Context) *prga.Block {
	tb.Helper()
	if m, ok := ctx.Module("clb").(*prga.Block); ok {
		return m
	}
	b := must(ctx.CreateLogicBlock("clb", 1, 1))
	must(b.AddPort(prga.PortSpec{Name: "in", Direction: prga.Input, Width: 4, Side: prga.Bottom}))
	must(b.AddPort(prga.PortSpec{Name: "out", Direction: prga.Output, Width: 1, Side: prga.Right}))
	must(b.AddPort(prga.PortSpec{Name: "clk", Direction: prga.Input, Width: 1, IsClock: true, Global: "clk"}))
	must(b.Instantiate(must(ctx.LUT(4)), "lut"))
	must(b.Instantiate(must(ctx.FlipFlop()), "ff"))
	for _, c := range []struct {
		src, sink string
		mode      prga.ConnMode
	}{
		{"in", "lut.in", prga.Bitwise},
		{"lut.out", "ff.D", prga.PackPattern},
		{"clk", "ff.clk", prga.Bitwise},
		{"{ff.Q, lut.out}", "out", prga.FullyConnected},
	} {
		if err := b.Connect(b.MustRef(c.src), b.MustRef(c.sink), c.mode); err != nil {
			tb.Fatal(err)
		}
	}
	return b
}

// IOB returns the IO block "iob_<side>" holding capacity iopads. Its ports
// "outpad" (to the pad) and "inpad" (from the pad) face side.
//
func IOB(tb testing.TB, ctx *prga.Context, side prga.Side, capacity int) *prga.Block {
	tb.Helper()
	name := "iob_" + side.String()
	if m, ok := ctx.Module(name).(*prga.Block); ok {
		return m
	}
	b := must(ctx.CreateIOBlock(name, capacity, prga.Iopad))
	must(b.AddPort(prga.PortSpec{Name: "outpad", Direction: prga.Input, Width: 1, Side: side}))
	must(b.AddPort(prga.PortSpec{Name: "inpad", Direction: prga.Output, Width: 1, Side: side}))
	if err := b.Connect(b.MustRef("outpad"), b.MustRef("io.outpad"), prga.Bitwise); err != nil {
		tb.Fatal(err)
	}
	if err := b.Connect(b.MustRef("io.inpad"), b.MustRef("inpad"), prga.Bitwise); err != nil {
		tb.Fatal(err)
	}
	return b
}

// Fabric builds a w x h top array "top" with an IO ring and CLBs inside.
// Routing uses segments "L1" (2 tracks, length 1) and "L2" (1 track, length
// 2). The outer channels are not covered. w and h must be at least 3.
//
func Fabric(tb testing.TB, w, h int) (*prga.Context, *prga.Array) {
	tb.Helper()
	ctx := NewContext(tb)
	must(ctx.CreateSegment("L1", 2, 1))
	must(ctx.CreateSegment("L2", 1, 2))
	must(ctx.CreateGlobal("clk", 1, true))
	top := must(ctx.CreateArray("top", w, h, prga.ChannelCoverage{}))
	clb := CLB(tb, ctx)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			var b *prga.Block
			switch {
			case (x == 0 || x == w-1) && (y == 0 || y == h-1):
				continue
			case x == 0:
				b = IOB(tb, ctx, prga.Right, 2)
			case x == w-1:
				b = IOB(tb, ctx, prga.Left, 2)
			case y == 0:
				b = IOB(tb, ctx, prga.Top, 2)
			case y == h-1:
				b = IOB(tb, ctx, prga.Bottom, 2)
			default:
				b = clb
			}
			must(top.AddBlock(b, prga.Position{X: x, Y: y}))
		}
	}
	if err := ctx.SetTop(top); err != nil {
		tb.Fatal(err)
	}
	return ctx, top
}

// PortNames returns the names of the ports of m visible in v, in order.
//
func PortNames(m prga.Model, v prga.View) []string {
	var r []string
	for _, p := range m.Ports(v) {
		r = append(r, p.Name())
	}
	return r
}

// sinks returns the bits that may be driven inside m.
func sinks(m prga.Model) []*prga.Bit {
	var r []*prga.Bit
	for _, p := range m.Ports(prga.AllView) {
		if p.Direction() == prga.Output {
			r = append(r, p.Bits()...)
		}
	}
	for _, inst := range m.Instances(prga.AllView) {
		for _, pin := range inst.Pins(prga.AllView) {
			if pin.Direction() == prga.Input {
				r = append(r, pin.Bits()...)
			}
		}
	}
	return r
}

// CheckLogicalSources reports sinks of m listing the same logical source
// twice.
//
func CheckLogicalSources(tb testing.TB, m prga.Model) {
	tb.Helper()
	for _, b := range sinks(m) {
		seen := make(map[*prga.Bit]bool)
		for _, s := range b.LogicalSources() {
			if seen[s] {
				tb.Errorf("module %s: %v lists %v twice", m.Name(), b, s)
			}
			seen[s] = true
		}
	}
}

// CheckFinalized reports sinks of m that have logical sources with a
// physical implementation but no physical driver.
//
func CheckFinalized(tb testing.TB, m prga.Model) {
	tb.Helper()
	phys := func(b *prga.Bit) *prga.Bit {
		if b.IsPhysical() {
			return b
		}
		return b.PhysicalCounterpart()
	}
	for _, b := range sinks(m) {
		pb := phys(b)
		if pb == nil {
			continue
		}
		for _, s := range b.LogicalSources() {
			if phys(s) != nil && pb.PhysicalSource() == nil {
				tb.Errorf("module %s: %v has logical sources but no physical driver", m.Name(), b)
				break
			}
		}
	}
}

// CheckBitchain walks the configuration chain of m from cfg_o back to cfg_i
// and checks that it spans exactly the number of bits m records, that
// offsets are consistent and that every configuration tap is driven by its
// own cfg_bit cell. It returns the chain length.
//
func CheckBitchain(tb testing.TB, m prga.Model) int {
	tb.Helper()
	total, ok := m.Ext().Int(prga.ExtCfgBits)
	if !ok {
		tb.Fatalf("module %s: no %s extension", m.Name(), prga.ExtCfgBits)
	}
	if total == 0 {
		return 0
	}
	ci, co := m.Port("cfg_i"), m.Port("cfg_o")
	if ci == nil || co == nil {
		tb.Fatalf("module %s: missing chain ports", m.Name())
	}
	n := 0
	b := co.Bit(0).PhysicalSource()
	for b != ci.Bit(0) {
		if b == nil {
			tb.Fatalf("module %s: chain broken after %d bits from the end", m.Name(), n)
		}
		pin, ok := b.Bus().(*prga.Pin)
		if !ok || b.Bus().Model().Name() != "cfg_o" {
			tb.Fatalf("module %s: chain goes through %v", m.Name(), b)
		}
		inst := pin.Instance()
		w, _ := inst.Model().Ext().Int(prga.ExtCfgBits)
		if inst.Model().Name() == "cfg_bit" {
			w = 1
		} else if off, ok := inst.Ext().Int(prga.ExtCfgOffset); !ok || off != total-n-w {
			tb.Errorf("module %s: instance %s offset is %d, want %d", m.Name(), inst.Name(), off, total-n-w)
		}
		n += w
		b = inst.Pin("cfg_i").Bit(0).PhysicalSource()
	}
	if n != total {
		tb.Errorf("module %s: chain spans %d bits, want %d", m.Name(), n, total)
	}

	cells := make(map[*prga.Instance]bool)
	taps := 0
	check := func(tap *prga.Bit) {
		taps++
		src := tap.PhysicalSource()
		if src == nil {
			tb.Errorf("module %s: configuration tap %v is not driven", m.Name(), tap)
			return
		}
		pin, ok := src.Bus().(*prga.Pin)
		if !ok || pin.Instance().Model().Name() != "cfg_bit" || cells[pin.Instance()] {
			tb.Errorf("module %s: configuration tap %v is driven by %v", m.Name(), tap, src)
			return
		}
		cells[pin.Instance()] = true
	}
	for _, inst := range m.Instances(prga.PhysicalView) {
		if p := inst.Model().Port("cfg_d"); p != nil && inst.Model().IsLeaf() && p.IsPhysical() {
			for _, tap := range inst.Pin("cfg_d").Bits() {
				check(tap)
			}
		}
	}
	if p := m.Port("extio_oe"); p != nil {
		check(p.Bit(0))
	}
	ncells := 0
	for _, inst := range m.Instances(prga.PhysicalView) {
		if inst.Model().Name() == "cfg_bit" {
			ncells++
		}
	}
	if ncells != taps {
		tb.Errorf("module %s: %d cfg_bit cells for %d configuration taps", m.Name(), ncells, taps)
	}
	return n
}
