package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/PrincetonUniversity/prga-sub001/flow"
	"github.com/PrincetonUniversity/prga-sub001/internal/config"
	"github.com/PrincetonUniversity/prga-sub001/passes"
	"github.com/PrincetonUniversity/prga-sub001/prgatest"
	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	ctx := prgatest.NewContext(t)
	if err := cfg.Build(ctx); err != nil {
		t.Fatal(err)
	}
	top := ctx.Top()
	if top == nil || top.Name() != "top" {
		t.Fatal("no top array")
	}
	pos, sub, ok := ctx.Global("clk").Binding()
	if !ok || pos != (prga.Position{X: 0, Y: 1}) || sub != 0 {
		t.Fatalf("clk bound to %v/%d (%v)", pos, sub, ok)
	}
	for _, d := range []struct {
		x, y, sub int
		model     string
	}{
		{1, 1, 0, "clb"}, {2, 2, 0, "clb"}, {0, 2, 1, "iob_right"}, {3, 1, 0, "iob_left"},
		{2, 0, 1, "iob_top"}, {1, 3, 0, "iob_bottom"},
	} {
		inst := top.GetRootBlock(prga.Position{X: d.x, Y: d.y}, d.sub, prga.TileLogic)
		if inst == nil || inst.Model().Name() != d.model {
			t.Errorf("(%d, %d)/%d: got %v, want %s", d.x, d.y, d.sub, inst, d.model)
		}
	}
	if inst := top.GetRootBlock(prga.Position{}, 0, prga.TileLogic); inst != nil {
		t.Errorf("corner holds %s", inst.Name())
	}
	ble := ctx.Module("ble")
	if n := len(prga.AsModule(ble).PackPatterns()); n != 1 {
		t.Errorf("ble has %d pack patterns", n)
	}

	f, err := flow.New(
		&passes.RoutingCompletion{FcIn: cfg.Routing.FcIn, FcOut: cfg.Routing.FcOut},
		passes.Finalization{},
		passes.Bitchain{},
	)
	if err != nil {
		t.Fatal(err)
	}
	if err = f.Run(ctx); err != nil {
		t.Fatal(err)
	}
	prgatest.CheckFinalized(t, top)
	if n := prgatest.CheckBitchain(t, top); n == 0 {
		t.Fatal("empty bit chain")
	}
}

func TestParse(t *testing.T) {
	const src = `
segments: [{name: L1, width: 2, length: 1}]
primitives:
  - name: adder
    ports:
      - {name: a, dir: in, width: 2}
      - {name: s, dir: out, width: 2}
      - {name: mode, dir: in, visibility: physical}
blocks:
  - name: big
    width: 2
    height: 2
    ports:
      - {name: a, dir: input, width: 2, side: top, offset: {x: 1, y: 1}}
      - {name: s, dir: output, width: 2, side: left}
    instances:
      - {name: add, model: adder}
    connections:
      - {from: a, to: add.a}
      - {from: add.s, to: s}
      - {from: "1'b1", to: add.mode}
arrays:
  - name: top
    width: 6
    height: 2
    coverage: {left: true}
    placements:
      - {model: big, x: 0, y: 0, nx: 2, dx: 3}
top: top
`
	cfg, err := config.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	ctx := prga.NewContext()
	if err = cfg.Build(ctx); err != nil {
		t.Fatal(err)
	}
	top := ctx.Top()
	if !top.Coverage().Left || top.Coverage().Right {
		t.Errorf("coverage %+v", top.Coverage())
	}
	var placed []string
	for _, inst := range top.Instances(prga.AllView) {
		placed = append(placed, inst.Name())
	}
	if diff := cmp.Diff([]string{"blk_x0y0_0", "blk_x3y0_0"}, placed); diff != "" {
		t.Errorf("placements (-want +got):\n%s", diff)
	}
	big := ctx.Module("big").(*prga.Block)
	if p := big.Port("a"); p.Side() != prga.Top || p.Offset() != (prga.Position{X: 1, Y: 1}) {
		t.Errorf("port a on %v at %v", p.Side(), p.Offset())
	}
	add := big.Instance("add")
	if add.Pin("mode").Bit(0).PhysicalSource() != prga.One {
		t.Error("constant not connected")
	}
	if ctx.Module("adder").Port("mode").IsLogical() {
		t.Error("physical-only port is logical")
	}

	// empty descriptions are valid
	if cfg, err = config.Parse(strings.NewReader("")); err != nil || len(cfg.Blocks) != 0 {
		t.Fatalf("empty description: %v", err)
	}
}

func TestParse_errors(t *testing.T) {
	td := []struct {
		name string
		src  string
		msg  string
	}{
		{"unknown field", "segmentz: []", "segmentz"},
		{"duplicate segment", "segments: [{name: L1, width: 1, length: 1}, {name: L1, width: 1, length: 1}]", "duplicate"},
		{"bad segment", "segments: [{name: L1, width: 0, length: 1}]", "invalid width"},
		{"duplicate model", "slices: [{name: a}]\nblocks: [{name: a}]", "duplicate model"},
		{"bad direction", "slices: [{name: a, ports: [{name: p, dir: inout}]}]", "invalid direction"},
		{"bad side", "blocks: [{name: a, ports: [{name: p, dir: in, side: up}]}]", "invalid side"},
		{"undefined global", "blocks: [{name: a, ports: [{name: p, dir: in, global: clk}]}]", "undefined global"},
		{"bad block type", "blocks: [{name: a, type: dsp}]", "invalid block type"},
		{"bad pad", "blocks: [{name: a, type: io, pad: pad}]", "invalid pad type"},
		{"duplicate instance", "slices: [{name: a, instances: [{name: i, model: lut2}, {name: i, model: lut2}]}]", "duplicate name"},
		{"open connection", "slices: [{name: a, connections: [{from: x}]}]", "missing end"},
		{"bad top", "slices: [{name: a}]\ntop: a", "not an array"},
		{"unbound top", "globals: [{name: g, bind: {x: 0, y: 0}}]", "without a top"},
		{"bad fc", "routing: {fc_in: 2}", "fc_in"},
		{"empty array", "arrays: [{name: a, width: 0, height: 1}]", "invalid size"},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			_, err := config.Parse(strings.NewReader(d.src))
			if err == nil || !strings.Contains(err.Error(), d.msg) {
				t.Fatalf("got %v, want an error about %q", err, d.msg)
			}
		})
	}
}

func TestBuild_errors(t *testing.T) {
	td := []struct {
		name string
		src  string
		kind error
	}{
		{"unknown model", "slices: [{name: a, instances: [{name: i, model: nope}]}]", prga.ErrAPI},
		{"bad reference", "slices: [{name: a, ports: [{name: o, dir: out}], connections: [{from: x, to: o}]}]", prga.ErrAPI},
		{"width mismatch", `
slices:
  - name: a
    ports: [{name: i, dir: in, width: 2}, {name: o, dir: out}]
    connections: [{from: i, to: o}]`, prga.ErrWidthMismatch},
		{"overlap", `
blocks: [{name: b}]
arrays: [{name: a, width: 2, height: 2, placements: [{model: b, x: 0, y: 0, nx: 2, dx: 0}, {model: b, x: 1, y: 0}]}]`, prga.ErrConflict},
		{"out of bounds", `
blocks: [{name: b}]
arrays: [{name: a, width: 2, height: 2, placements: [{model: b, x: 0, y: 0, ny: 3}]}]`, prga.ErrOutOfBounds},
		{"unknown placement", "arrays: [{name: a, width: 2, height: 2, placements: [{model: b}]}]", prga.ErrAPI},
		{"bind to logic", `
globals: [{name: g, bind: {x: 0, y: 0}}]
blocks: [{name: b}]
arrays: [{name: a, width: 1, height: 1, placements: [{model: b}]}]
top: a`, prga.ErrAPI},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			cfg, err := config.Parse(strings.NewReader(d.src))
			if err != nil {
				t.Fatal(err)
			}
			if err = cfg.Build(prga.NewContext()); !errors.Is(err, d.kind) {
				t.Fatalf("got %v, want %v", err, d.kind)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	name := filepath.Join(t.TempDir(), "arch.yaml")
	if err := os.WriteFile(name, []byte("segments: [{name: L4, width: 8, length: 4}]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(name)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]config.Segment{{Name: "L4", Width: 8, Length: 4}}, cfg.Segments); diff != "" {
		t.Errorf("segments (-want +got):\n%s", diff)
	}
	if _, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("loading a missing file succeeded")
	}
}
