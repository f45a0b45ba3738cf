package passes_test

import (
	"strings"
	"testing"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/PrincetonUniversity/prga-sub001/flow"
	"github.com/PrincetonUniversity/prga-sub001/passes"
	"github.com/PrincetonUniversity/prga-sub001/prgatest"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func elaborate(t *testing.T, w, h int) (*prga.Context, *prga.Array) {
	t.Helper()
	ctx, top := prgatest.Fabric(t, w, h)
	f, err := flow.New(passes.Bitchain{}, &passes.RoutingCompletion{FcIn: 0.5, FcOut: 0.5}, passes.Finalization{})
	if err != nil {
		t.Fatal(err)
	}
	if err = f.Run(ctx); err != nil {
		t.Fatal(err)
	}
	return ctx, top
}

func TestRoutingCompletion(t *testing.T) {
	ctx, top := prgatest.Fabric(t, 5, 4)
	rc := &passes.RoutingCompletion{FcIn: 0.5, FcOut: 0.5}
	if err := rc.Run(ctx); err != nil {
		t.Fatal(err)
	}
	for x := -1; x <= top.Width(); x++ {
		for y := -1; y <= top.Height(); y++ {
			pos := prga.Position{X: x, Y: y}
			for _, tt := range []prga.TileType{prga.TileXChan, prga.TileYChan, prga.TileSwitch} {
				if top.CoversTile(pos, tt) && top.GetBlock(pos, tt) == nil {
					t.Errorf("%v %v left empty", tt, pos)
				}
			}
		}
	}
	for _, m := range ctx.Modules() {
		b, ok := m.(*prga.Block)
		if !ok || !b.IsRouting() {
			continue
		}
		prefix := "sbox_"
		if b.TileType() == prga.TileXChan {
			prefix = "cbox_x"
		} else if b.TileType() == prga.TileYChan {
			prefix = "cbox_y"
		}
		if !strings.HasPrefix(b.Name(), prefix) {
			t.Errorf("%v block named %s", b.TileType(), b.Name())
		}
		for _, p := range b.Ports(prga.AllView) {
			n, ok := p.Node().(prga.BlockPinNode)
			if !ok {
				continue
			}
			if n.Port.Global() != "" || n.Port.IsClock() {
				t.Errorf("block %s routes global or clock pin %s", b.Name(), p.Name())
			}
			if n.Port.Side() == prga.NoSide {
				t.Errorf("block %s routes unsided pin %s", b.Name(), p.Name())
			}
		}
		prgatest.CheckLogicalSources(t, b)
	}
	prgatest.CheckLogicalSources(t, top)

	// every routed CLB input is driven from its connection block
	clb := top.GetRootBlock(prga.Position{X: 2, Y: 2}, 0, prga.TileLogic)
	for _, b := range clb.Pin("in").Bits() {
		if len(b.LogicalSources()) != 1 {
			t.Errorf("%v has %d logical sources", b, len(b.LogicalSources()))
		}
	}
	if src := clb.Pin("clk").Bit(0).LogicalSources(); len(src) != 1 || src[0] != top.Port("clk").Bit(0) {
		t.Errorf("clk is driven by %v", src)
	}
	if !top.Port("clk").IsExternal() {
		t.Error("top clock is not external")
	}
}

func TestRoutingCompletion_errors(t *testing.T) {
	ctx := prgatest.NewContext(t)
	if err := (&passes.RoutingCompletion{FcIn: 0.5, FcOut: 0.5}).Run(ctx); !errors.Is(err, prga.ErrAPI) {
		t.Fatalf("no top: got %v", err)
	}
	ctx, _ = prgatest.Fabric(t, 3, 3)
	if err := (&passes.RoutingCompletion{FcIn: 1.5, FcOut: 0.5}).Run(ctx); !errors.Is(err, prga.ErrAPI) {
		t.Fatalf("bad Fc: got %v", err)
	}
}

func TestFlow_elaborate(t *testing.T) {
	ctx, top := elaborate(t, 5, 4)
	for _, m := range ctx.Modules() {
		if b, ok := m.(*prga.Block); ok && b.IsRouting() {
			hasOut := false
			for _, p := range b.Ports(prga.AllView) {
				hasOut = hasOut || p.Direction() == prga.Output
			}
			if !hasOut {
				t.Errorf("routing block %s without outputs survived", b.Name())
			}
		}
		if m.IsLeaf() || !m.IsPhysical() {
			continue
		}
		prgatest.CheckFinalized(t, m)
		prgatest.CheckLogicalSources(t, m)
		if _, ok := m.Ext().Int(prga.ExtCfgBits); ok {
			prgatest.CheckBitchain(t, m)
		}
	}
	n := prgatest.CheckBitchain(t, top)
	fields, err := passes.ConfigMap(top)
	if err != nil {
		t.Fatal(err)
	}
	sum := 0
	for i, f := range fields {
		if f.Offset != sum {
			t.Fatalf("field %d (%s) at %d, want %d", i, f.Path, f.Offset, sum)
		}
		sum += f.Width
	}
	if sum != n {
		t.Fatalf("config map covers %d bits of %d", sum, n)
	}
	clb := top.GetRootBlock(prga.Position{X: 1, Y: 1}, 0, prga.TileLogic)
	want := []string{"in", "out", "clk"}
	if diff := cmp.Diff(want, prgatest.PortNames(clb.Model(), prga.LogicalView)); diff != "" {
		t.Errorf("clb ports (-want +got):\n%s", diff)
	}
}

// digest describes everything elaboration produced in a stable textual form.
func digest(t *testing.T, ctx *prga.Context, top *prga.Array) []string {
	var r []string
	for _, m := range ctx.Modules() {
		r = append(r, "module "+m.Name())
		for _, p := range m.Ports(prga.AllView) {
			r = append(r, "  port "+p.Name())
		}
		for _, inst := range m.Instances(prga.AllView) {
			line := "  inst " + inst.Name() + " " + inst.Model().Name()
			for _, pin := range inst.Pins(prga.PhysicalView) {
				for _, b := range pin.Bits() {
					if s := b.PhysicalSource(); s != nil {
						line += " " + b.String() + "<" + s.String()
					}
				}
			}
			r = append(r, line)
		}
	}
	fields, err := passes.ConfigMap(top)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range fields {
		r = append(r, f.Path+" "+f.Model)
	}
	return r
}

func TestFlow_deterministic(t *testing.T) {
	ctx, top := elaborate(t, 5, 5)
	a := digest(t, ctx, top)
	ctx, top = elaborate(t, 5, 5)
	b := digest(t, ctx, top)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two elaborations differ (-first +second):\n%s", diff)
	}
}

func TestFinalization_idempotent(t *testing.T) {
	ctx, top := prgatest.Fabric(t, 4, 4)
	if err := (&passes.RoutingCompletion{FcIn: 0.25, FcOut: 0.5}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := (passes.Finalization{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	var once []string
	for _, m := range ctx.Modules() {
		once = append(once, m.Name()+" "+strings.Join(instNames(m), ","))
	}
	ports := prgatest.PortNames(top, prga.AllView)
	if err := (passes.Finalization{}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	var twice []string
	for _, m := range ctx.Modules() {
		twice = append(twice, m.Name()+" "+strings.Join(instNames(m), ","))
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("modules (-once +twice):\n%s", diff)
	}
	if diff := cmp.Diff(ports, prgatest.PortNames(top, prga.AllView)); diff != "" {
		t.Errorf("top ports (-once +twice):\n%s", diff)
	}
}
