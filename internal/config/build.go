package config

import (
	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/pkg/errors"
)

func direction(s string) (prga.Direction, error) {
	switch s {
	case "input", "in":
		return prga.Input, nil
	case "output", "out":
		return prga.Output, nil
	}
	return 0, errors.Errorf("invalid direction %q", s)
}

func visibility(s string) (prga.Visibility, error) {
	switch s {
	case "":
		return 0, nil
	case "dual":
		return prga.Dual, nil
	case "logical":
		return prga.LogicalOnly, nil
	case "physical":
		return prga.PhysicalOnly, nil
	}
	return 0, errors.Errorf("invalid visibility %q", s)
}

func side(s string) (prga.Side, error) {
	switch s {
	case "", "none":
		return prga.NoSide, nil
	case "top":
		return prga.Top, nil
	case "right":
		return prga.Right, nil
	case "bottom":
		return prga.Bottom, nil
	case "left":
		return prga.Left, nil
	}
	return 0, errors.Errorf("invalid side %q", s)
}

func blockType(s string) (prga.BlockType, error) {
	switch s {
	case "", "logic":
		return prga.LogicBlock, nil
	case "io":
		return prga.IOBlock, nil
	}
	return 0, errors.Errorf("invalid block type %q", s)
}

func padType(s string) (prga.PrimitiveType, error) {
	switch s {
	case "", "iopad":
		return prga.Iopad, nil
	case "inpad":
		return prga.Inpad, nil
	case "outpad":
		return prga.Outpad, nil
	}
	return 0, errors.Errorf("invalid pad type %q", s)
}

func orOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// Build creates the described architecture in ctx.
//
func (c *Config) Build(ctx *prga.Context) error {
	for _, s := range c.Segments {
		if _, err := ctx.CreateSegment(s.Name, s.Width, s.Length); err != nil {
			return err
		}
	}
	for _, g := range c.Globals {
		if _, err := ctx.CreateGlobal(g.Name, orOne(g.Width), g.Clock); err != nil {
			return err
		}
	}
	for _, p := range c.Primitives {
		vis, _ := visibility(p.Visibility)
		m, err := ctx.CreatePrimitive(p.Name, vis)
		if err != nil {
			return err
		}
		if err = addPorts(m, p.Ports); err != nil {
			return err
		}
	}
	for _, s := range c.Slices {
		m, err := ctx.CreateSlice(s.Name)
		if err != nil {
			return err
		}
		if err = buildBody(ctx, m, s.Ports, s.Instances, s.Connections); err != nil {
			return err
		}
	}
	for _, b := range c.Blocks {
		var blk *prga.Block
		var err error
		bt, _ := blockType(b.Type)
		if bt == prga.IOBlock {
			pad, _ := padType(b.Pad)
			blk, err = ctx.CreateIOBlock(b.Name, orOne(b.Capacity), pad)
		} else {
			blk, err = ctx.CreateLogicBlock(b.Name, orOne(b.Width), orOne(b.Height))
		}
		if err != nil {
			return err
		}
		if err = buildBody(ctx, prga.AsModule(blk), b.Ports, b.Instances, b.Connections); err != nil {
			return err
		}
	}
	for _, a := range c.Arrays {
		if err := buildArray(ctx, &a); err != nil {
			return err
		}
	}
	if c.Top == "" {
		return nil
	}
	top, _ := ctx.Module(c.Top).(*prga.Array)
	if err := ctx.SetTop(top); err != nil {
		return err
	}
	for _, g := range c.Globals {
		if g.Bind == nil {
			continue
		}
		pos := prga.Position{X: g.Bind.X, Y: g.Bind.Y}
		inst := top.GetRootBlock(pos, g.Bind.Sub, prga.TileLogic)
		if b, ok := modelOf(inst).(*prga.Block); !ok || b.BlockType() != prga.IOBlock {
			return errors.Wrapf(prga.ErrAPI, "global %s: no IO block at %v, sub-block %d", g.Name, pos, g.Bind.Sub)
		}
		ctx.Global(g.Name).Bind(pos, g.Bind.Sub)
	}
	return nil
}

func modelOf(inst *prga.Instance) prga.Model {
	if inst == nil {
		return nil
	}
	return inst.Model()
}

// lookup returns the named model, falling back to built-in models.
func lookup(ctx *prga.Context, name string) (prga.Model, error) {
	if m := ctx.Module(name); m != nil {
		return m, nil
	}
	m, err := ctx.Builtin(name)
	if err != nil {
		return nil, errors.Wrapf(err, "model %s", name)
	}
	return m, nil
}

func addPorts(m *prga.Module, ports []Port) error {
	for _, p := range ports {
		dir, _ := direction(p.Dir)
		vis, _ := visibility(p.Visibility)
		sd, _ := side(p.Side)
		s := prga.PortSpec{
			Name:       p.Name,
			Direction:  dir,
			Width:      orOne(p.Width),
			Visibility: vis,
			IsClock:    p.Clock,
			Clock:      p.ClockedBy,
			Global:     p.Global,
			Class:      p.Class,
			Side:       sd,
		}
		if p.Offset != nil {
			s.Offset = prga.Position{X: p.Offset.X, Y: p.Offset.Y}
		}
		if _, err := m.AddPort(s); err != nil {
			return err
		}
	}
	return nil
}

func buildBody(ctx *prga.Context, m *prga.Module, ports []Port, insts []Instance, conns []Connection) error {
	if err := addPorts(m, ports); err != nil {
		return err
	}
	for _, i := range insts {
		model, err := lookup(ctx, i.Model)
		if err != nil {
			return errors.Wrapf(err, "module %s: instance %s", m.Name(), i.Name)
		}
		if _, err = m.Instantiate(model, i.Name); err != nil {
			return err
		}
	}
	for _, c := range conns {
		from, err := m.Ref(c.From)
		if err != nil {
			return err
		}
		to, err := m.Ref(c.To)
		if err != nil {
			return err
		}
		mode := prga.Bitwise
		if c.FullyConnected {
			mode |= prga.FullyConnected
		}
		if c.PackPattern {
			mode |= prga.PackPattern
		}
		if err = m.Connect(from, to, mode); err != nil {
			return errors.Wrapf(err, "%s -> %s", c.From, c.To)
		}
	}
	return nil
}

func buildArray(ctx *prga.Context, a *Array) error {
	cov := prga.ChannelCoverage{Top: a.Coverage.Top, Right: a.Coverage.Right, Bottom: a.Coverage.Bottom, Left: a.Coverage.Left}
	arr, err := ctx.CreateArray(a.Name, a.Width, a.Height, cov)
	if err != nil {
		return err
	}
	for _, p := range a.Placements {
		model := ctx.Module(p.Model)
		if model == nil {
			return errors.Wrapf(prga.ErrAPI, "array %s: unknown model %s", a.Name, p.Model)
		}
		dx, dy := p.DX, p.DY
		switch m := model.(type) {
		case *prga.Block:
			if dx == 0 {
				dx = m.Width()
			}
			if dy == 0 {
				dy = m.Height()
			}
		case *prga.Array:
			if dx == 0 {
				dx = m.Width()
			}
			if dy == 0 {
				dy = m.Height()
			}
		}
		for i := 0; i < orOne(p.NX); i++ {
			for j := 0; j < orOne(p.NY); j++ {
				pos := prga.Position{X: p.X + i*dx, Y: p.Y + j*dy}
				if _, err = arr.AddBlock(model, pos); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
