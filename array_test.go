package prga_test

import (
	"testing"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/pkg/errors"
)

func TestArray_CoversTile(t *testing.T) {
	ctx := prga.NewContext()
	a, err := ctx.CreateArray("a", 4, 3, prga.ChannelCoverage{Left: true})
	if err != nil {
		t.Fatal(err)
	}
	td := []struct {
		x, y int
		t    prga.TileType
		want bool
	}{
		{0, 0, prga.TileLogic, true},
		{3, 2, prga.TileLogic, true},
		{4, 0, prga.TileLogic, false},
		{-1, 0, prga.TileLogic, false},
		{-1, 0, prga.TileYChan, true},
		{-1, 1, prga.TileSwitch, true},
		{-1, 0, prga.TileXChan, false},
		{2, 0, prga.TileYChan, true},
		{3, 0, prga.TileYChan, false},
		{0, 1, prga.TileXChan, true},
		{0, 2, prga.TileXChan, false},
		{0, -1, prga.TileXChan, false},
		{2, 1, prga.TileSwitch, true},
		{2, 2, prga.TileSwitch, false},
	}
	for _, d := range td {
		pos := prga.Position{X: d.x, Y: d.y}
		if got := a.CoversTile(pos, d.t); got != d.want {
			t.Errorf("%v %v: got %v, want %v", d.t, pos, got, d.want)
		}
	}
}

func TestArray_AddBlock(t *testing.T) {
	ctx := prga.NewContext()
	io, err := ctx.CreateIOBlock("io_top", 2, prga.Iopad)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := ctx.CreateArray("top", 8, 8, prga.ChannelCoverage{})
	pos := prga.Position{X: 3, Y: 7}
	insts, err := a.AddBlock(io, pos)
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 2 {
		t.Fatalf("got %d instances, want 2", len(insts))
	}
	for i, inst := range insts {
		k := prga.BlockKey{Pos: pos, Type: prga.TileLogic, Sub: i}
		if inst.Key() != any(k) || a.Instance(k) != inst {
			t.Errorf("instance %d: key %v", i, inst.Key())
		}
		if a.GetRootBlock(pos, i, prga.TileLogic) != inst {
			t.Errorf("GetRootBlock(%v, %d) is not %s", pos, i, inst.Name())
		}
	}
	if insts[1].Name() != "blk_x3y7_1" {
		t.Errorf("instance name %s", insts[1].Name())
	}
	if a.GetRootBlock(pos, 2, prga.TileLogic) != nil || a.GetRootBlock(prga.Position{X: 3, Y: 6}, 0, prga.TileLogic) != nil {
		t.Error("GetRootBlock found a block where there is none")
	}

	clb, _ := ctx.CreateLogicBlock("clb", 2, 2)
	if _, err = a.AddBlock(clb, prga.Position{X: 7, Y: 0}); !errors.Is(err, prga.ErrOutOfBounds) {
		t.Fatalf("block sticking out: got %v", err)
	}
	if _, err = a.AddBlock(clb, prga.Position{X: 5, Y: 7}); !errors.Is(err, prga.ErrOutOfBounds) {
		t.Fatalf("block over the top edge: got %v", err)
	}
	origin := prga.Position{X: 1, Y: 1}
	if _, err = a.AddBlock(clb, origin); err != nil {
		t.Fatal(err)
	}
	for _, s := range []struct {
		x, y int
		t    prga.TileType
	}{{2, 2, prga.TileLogic}, {1, 1, prga.TileXChan}, {2, 1, prga.TileXChan}, {1, 1, prga.TileYChan}, {1, 2, prga.TileYChan}, {1, 1, prga.TileSwitch}} {
		p := prga.Position{X: s.x, Y: s.y}
		slot := a.GetBlock(p, s.t)
		if slot == nil || !slot.IsPlaceholder() || slot.RootSlot().Position != origin {
			t.Errorf("%v %v: not a placeholder of the block at %v", s.t, p, origin)
		}
		if a.GetRootBlock(p, 0, s.t) == nil {
			t.Errorf("%v %v: no root block", s.t, p)
		}
	}
	if slot := a.GetBlock(prga.Position{X: 2, Y: 2}, prga.TileSwitch); slot != nil {
		t.Error("switch at the block's top right corner belongs to the block")
	}
	n := len(a.Instances(prga.AllView))
	if _, err = a.AddBlock(clb, prga.Position{X: 2, Y: 2}); !errors.Is(err, prga.ErrConflict) {
		t.Fatalf("overlap: got %v", err)
	}
	cb, _ := ctx.CreateRoutingBlock("cbx", prga.TileXChan)
	if _, err = a.AddBlock(cb, prga.Position{X: 1, Y: 1}); !errors.Is(err, prga.ErrConflict) {
		t.Fatalf("channel inside a block: got %v", err)
	}
	if got := len(a.Instances(prga.AllView)); got != n {
		t.Fatalf("failed placements left %d instances", got-n)
	}
	if _, err = a.AddBlock(cb, prga.Position{X: 0, Y: 7}); !errors.Is(err, prga.ErrOutOfBounds) {
		t.Fatalf("uncovered top channel: got %v", err)
	}
	insts, err = a.AddBlock(cb, prga.Position{X: 0, Y: 6})
	if err != nil {
		t.Fatal(err)
	}
	if insts[0].Name() != "cb_x0y6_x" {
		t.Errorf("connection block instance name %s", insts[0].Name())
	}
	if _, err = a.AddBlock(a, prga.Position{}); !errors.Is(err, prga.ErrAPI) {
		t.Fatalf("self placement: got %v", err)
	}
}

func TestArray_nested(t *testing.T) {
	ctx := prga.NewContext()
	sub, _ := ctx.CreateArray("sub", 2, 2, prga.ChannelCoverage{})
	top, _ := ctx.CreateArray("top", 4, 4, prga.ChannelCoverage{})
	insts, err := top.AddBlock(sub, prga.Position{})
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 1 || insts[0].Name() != "arr_x0y0" {
		t.Fatalf("bad instances %v", insts)
	}
	for _, s := range []struct {
		x, y int
		t    prga.TileType
		own  bool
	}{
		{1, 1, prga.TileLogic, true},
		{1, 0, prga.TileXChan, true},
		{1, 1, prga.TileXChan, false},
		{0, 1, prga.TileYChan, true},
		{1, 1, prga.TileYChan, false},
		{0, 0, prga.TileSwitch, true},
		{1, 0, prga.TileSwitch, false},
	} {
		p := prga.Position{X: s.x, Y: s.y}
		got := top.GetRootBlock(p, 0, s.t) == insts[0]
		if got != s.own {
			t.Errorf("%v %v: owned by the child array: %v, want %v", s.t, p, got, s.own)
		}
	}
	clb, _ := ctx.CreateLogicBlock("clb", 1, 1)
	if _, err = top.AddBlock(clb, prga.Position{X: 1, Y: 1}); !errors.Is(err, prga.ErrConflict) {
		t.Fatalf("got %v", err)
	}
	if _, err = top.AddBlock(clb, prga.Position{X: 2, Y: 2}); err != nil {
		t.Fatal(err)
	}
}

func TestContext_DropRoutingBlock(t *testing.T) {
	ctx := prga.NewContext()
	a, _ := ctx.CreateArray("a", 2, 2, prga.ChannelCoverage{})
	sb, _ := ctx.CreateRoutingBlock("sb", prga.TileSwitch)
	if _, err := a.AddBlock(sb, prga.Position{}); err != nil {
		t.Fatal(err)
	}
	if err := ctx.DropRoutingBlock(sb); err != nil {
		t.Fatal(err)
	}
	if ctx.Module("sb") != nil || a.GetBlock(prga.Position{}, prga.TileSwitch) != nil || len(a.Instances(prga.AllView)) != 0 {
		t.Fatal("routing block not fully dropped")
	}
	clb, _ := ctx.CreateLogicBlock("clb", 1, 1)
	if err := ctx.DropRoutingBlock(clb); !errors.Is(err, prga.ErrAPI) {
		t.Fatalf("dropping a logic block: got %v", err)
	}
}

func TestArray_AutoCompletePorts_external(t *testing.T) {
	td := []struct {
		name string
		pre  *prga.PortSpec
		kind error
	}{
		{"created", nil, nil},
		{"reused", &prga.PortSpec{Name: "blk_x0y0_0_pad", Direction: prga.Output, Width: 2, External: true}, nil},
		{"width", &prga.PortSpec{Name: "blk_x0y0_0_pad", Direction: prga.Output, Width: 1, External: true}, prga.ErrPortMismatch},
		{"direction", &prga.PortSpec{Name: "blk_x0y0_0_pad", Direction: prga.Input, Width: 2, External: true}, prga.ErrPortMismatch},
		{"internal", &prga.PortSpec{Name: "blk_x0y0_0_pad", Direction: prga.Output, Width: 2}, prga.ErrPortMismatch},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			ctx := prga.NewContext()
			b, err := ctx.CreateLogicBlock("b", 1, 1)
			if err != nil {
				t.Fatal(err)
			}
			b.MustAddPort(prga.PortSpec{Name: "pad", Direction: prga.Output, Width: 2, External: true})
			a, err := ctx.CreateArray("a", 1, 1, prga.ChannelCoverage{})
			if err != nil {
				t.Fatal(err)
			}
			if _, err = a.AddBlock(b, prga.Position{}); err != nil {
				t.Fatal(err)
			}
			if d.pre != nil {
				a.MustAddPort(*d.pre)
			}
			err = a.AutoCompletePorts()
			if d.kind != nil {
				if !errors.Is(err, d.kind) {
					t.Fatalf("got %v, want %v", err, d.kind)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			inst := a.GetRootBlock(prga.Position{}, 0, prga.TileLogic)
			for i, bit := range a.Port("blk_x0y0_0_pad").Bits() {
				if got := bit.LogicalSources(); len(got) != 1 || got[0] != inst.Pin("pad").Bit(i) {
					t.Errorf("pad[%d] is driven by %v", i, got)
				}
			}
		})
	}
}
