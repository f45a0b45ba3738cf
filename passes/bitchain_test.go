package passes_test

import (
	"testing"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/PrincetonUniversity/prga-sub001/passes"
	"github.com/PrincetonUniversity/prga-sub001/prgatest"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

// configBlock returns a 1x1 logic block holding one primitive with n
// configuration bits.
func configBlock(t *testing.T, ctx *prga.Context, name string, n int) *prga.Block {
	t.Helper()
	p := must(ctx.CreatePrimitive(name+"_cell", prga.Dual))
	must(p.AddPort(prga.PortSpec{Name: "cfg_d", Direction: prga.Input, Width: n, Visibility: prga.PhysicalOnly}))
	b := must(ctx.CreateLogicBlock(name, 1, 1))
	must(b.Instantiate(p, "cell"))
	return b
}

func TestBitchain_array(t *testing.T) {
	ctx := prgatest.NewContext(t)
	a3 := configBlock(t, ctx, "a3", 3)
	b5 := configBlock(t, ctx, "b5", 5)
	top := must(ctx.CreateArray("top", 2, 2, prga.ChannelCoverage{}))
	i3 := must(top.AddBlock(a3, prga.Position{X: 0, Y: 0}))[0]
	i5 := must(top.AddBlock(b5, prga.Position{X: 1, Y: 0}))[0]
	if err := ctx.SetTop(top); err != nil {
		t.Fatal(err)
	}

	if err := (passes.Bitchain{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	for _, d := range []struct {
		inst *prga.Instance
		off  int
	}{{i3, 0}, {i5, 3}} {
		if off, ok := d.inst.Ext().Int(prga.ExtCfgOffset); !ok || off != d.off {
			t.Errorf("%s: offset %d, want %d", d.inst.Name(), off, d.off)
		}
	}
	if n := prgatest.CheckBitchain(t, top); n != 8 {
		t.Fatalf("top chain spans %d bits, want 8", n)
	}
	prgatest.CheckBitchain(t, a3)
	prgatest.CheckBitchain(t, b5)
	for _, name := range []string{"cfg_clk", "cfg_e", "cfg_i", "cfg_o"} {
		if p := top.Port(name); p == nil || !p.IsExternal() || p.IsLogical() {
			t.Errorf("top array port %s is missing or not external", name)
		}
	}
	if p := top.Port("cfg_clk"); p.Global() != "cfg_clk" {
		t.Errorf("cfg_clk is not global")
	}
	if v, _ := ctx.Ext().Int(passes.ExtBitchainVersion); v != passes.BitchainVersion {
		t.Errorf("recorded bitchain version %d", v)
	}

	fields, err := passes.ConfigMap(top)
	if err != nil {
		t.Fatal(err)
	}
	want := []passes.ConfigField{
		{Path: "blk_x0y0_0.cell", Model: "a3_cell", Offset: 0, Width: 3},
		{Path: "blk_x1y0_0.cell", Model: "b5_cell", Offset: 3, Width: 5},
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("config map (-want +got):\n%s", diff)
	}
}

func TestBitchain_serpentine(t *testing.T) {
	ctx := prgatest.NewContext(t)
	blk := configBlock(t, ctx, "c", 1)
	top := must(ctx.CreateArray("top", 2, 2, prga.ChannelCoverage{}))
	var insts []*prga.Instance
	for _, pos := range []prga.Position{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}, {X: 1, Y: 1}} {
		insts = append(insts, must(top.AddBlock(blk, pos))[0])
	}
	if err := ctx.SetTop(top); err != nil {
		t.Fatal(err)
	}
	if err := (passes.Bitchain{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	// logic tiles go up every column
	want := map[string]int{"blk_x0y0_0": 0, "blk_x0y1_0": 1, "blk_x1y0_0": 2, "blk_x1y1_0": 3}
	for _, inst := range insts {
		if off, _ := inst.Ext().Int(prga.ExtCfgOffset); off != want[inst.Name()] {
			t.Errorf("%s: offset %d, want %d", inst.Name(), off, want[inst.Name()])
		}
	}
	prgatest.CheckBitchain(t, top)
}

func TestBitchain_unconfigured(t *testing.T) {
	ctx := prgatest.NewContext(t)
	s := must(ctx.CreateSlice("s"))
	must(s.Instantiate(must(ctx.FlipFlop()), "ff"))
	if _, err := passes.ConfigMap(s); !errors.Is(err, prga.ErrFlow) {
		t.Fatalf("config map before injection: got %v", err)
	}
	if err := (passes.Bitchain{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if n, ok := s.Ext().Int(prga.ExtCfgBits); !ok || n != 0 {
		t.Fatalf("cfg_bits %d, %v", n, ok)
	}
	if s.Port("cfg_i") != nil || s.Port("cfg_clk") != nil {
		t.Fatal("unconfigured module got chain ports")
	}
	if fields, err := passes.ConfigMap(s); err != nil || len(fields) != 0 {
		t.Fatalf("config map: %v, %v", fields, err)
	}
}

func TestBitchain_extensionOwner(t *testing.T) {
	ctx := prgatest.NewContext(t)
	if err := ctx.RegisterExtension(prga.ExtCfgBits, "someone else"); err != nil {
		t.Fatal(err)
	}
	if err := (passes.Bitchain{}).Run(ctx); !errors.Is(err, prga.ErrDuplicateKey) {
		t.Fatalf("got %v, want a duplicate key", err)
	}
}
