package prga

import (
	"github.com/pkg/errors"
)

// instOrigin returns the position of the root tile of an instance placed in
// an array.
//
func instOrigin(inst *Instance) (Position, bool) {
	k, ok := inst.key.(BlockKey)
	return k.Pos, ok
}

// driverSlot returns the tile slot holding the driver of node.
func driverSlot(node RoutingNode, bridge bool) (Position, TileType, bool) {
	switch n := node.(type) {
	case SegmentNode:
		if bridge {
			c := n.Canonical()
			return c.Position, c.Dimension.Channel(), true
		}
		return n.DriverSwitch(), TileSwitch, true
	case BlockPinNode:
		if n.Port.dir != Output {
			return Position{}, 0, false
		}
		return n.Position, TileLogic, true
	}
	return Position{}, 0, false
}

// nodeDriver returns the pin driving node inside a, or nil.
//
func (a *Array) nodeDriver(node RoutingNode, bridge bool) (Bus, error) {
	pos, t, ok := driverSlot(node, bridge)
	if !ok {
		return nil, nil
	}
	s := a.GetBlock(pos, t)
	if s == nil {
		return nil, nil
	}
	s = s.RootSlot()
	if len(s.Instances) == 0 {
		return nil, nil
	}
	inst := s.Instances[0]
	if bp, ok := node.(BlockPinNode); ok {
		if _, isArr := inst.model.(*Array); !isArr {
			if s.Position != bp.Position || bp.Subblock >= len(s.Instances) {
				return nil, nil
			}
			inst = s.Instances[bp.Subblock]
			if inst.model.base() != bp.Port.module {
				return nil, nil
			}
			return inst.Pin(bp.Port.name), nil
		}
	}
	local := node.Shift(s.Position.Scale(-1))
	switch m := inst.model.(type) {
	case *Array:
		p, err := m.exportNode(local, bridge)
		if err != nil || p == nil {
			return nil, err
		}
		return inst.Pin(p.name), nil
	case *Block:
		p := m.NodePort(local, Output)
		if p == nil || p.bridge != bridge {
			return nil, nil
		}
		return inst.Pin(p.name), nil
	}
	return nil, nil
}

// exportNode returns an output port of a carrying node, creating it from the
// internal driver if needed. It returns nil if nothing inside a drives node.
//
func (a *Array) exportNode(node RoutingNode, bridge bool) (*Port, error) {
	if p := a.NodePort(node, Output); p != nil {
		if p.bridge != bridge {
			return nil, errors.Wrapf(ErrBridgeMismatch, "array %s: node %v", a.name, node)
		}
		return p, nil
	}
	drv, err := a.nodeDriver(node, bridge)
	if err != nil || drv == nil {
		return nil, err
	}
	p, err := a.getOrCreateNode(node, Output, bridge, drv.IsLogical())
	if err != nil {
		return nil, err
	}
	if err = a.Connect(drv, p, Bitwise); err != nil {
		return nil, err
	}
	return p, nil
}

// NodeSource returns the pin or port sourcing node inside a.
//
// When nothing inside a drives node, an array that is not the top array gets a
// boundary input port for it; the top array returns nil.
//
func (a *Array) NodeSource(node RoutingNode, bridge bool) (Bus, error) {
	drv, err := a.nodeDriver(node, bridge)
	if err != nil || drv != nil {
		return drv, blame(err)
	}
	if a.IsTop() {
		return nil, nil
	}
	if _, ok := node.(BlockPinNode); ok {
		return nil, nil
	}
	p, err := a.getOrCreateNode(node, Input, bridge, true)
	return p, blame(err)
}

// AutoCompletePorts connects every unconnected input pin of the instances of a
// and of its child arrays: routing node pins from their drivers, block
// inputs from the adjacent connection blocks, global pins from array ports
// named after the global and external pins to new external array ports.
//
func (a *Array) AutoCompletePorts() error {
	return a.autoComplete(make(map[*Array]bool))
}

func (a *Array) autoComplete(done map[*Array]bool) error {
	if done[a] {
		return nil
	}
	done[a] = true
	insts := a.Instances(AllView)
	for _, inst := range insts {
		if child, ok := inst.model.(*Array); ok {
			if err := child.autoComplete(done); err != nil {
				return err
			}
		}
	}
	for _, inst := range insts {
		origin, ok := instOrigin(inst)
		if !ok {
			continue
		}
		for _, port := range inst.model.Ports(AllView) {
			var err error
			switch {
			case port.global != "":
				if port.dir == Input {
					err = a.completeGlobal(inst, port)
				}
			case port.external:
				err = a.completeExternal(inst, port)
			case port.dir != Input:
			case port.node != nil:
				err = a.completeNode(inst, origin, port)
			case port.side != NoSide:
				err = a.completeBlockInput(inst, origin, port)
			}
			if err != nil {
				return errors.Wrapf(err, "array %s: instance %s: port %s", a.name, inst.name, port.name)
			}
		}
	}
	return nil
}

func pinConnected(p *Pin) bool {
	for _, b := range p.bits {
		if b.IsConnected() {
			return true
		}
	}
	return false
}

func (a *Array) completeGlobal(inst *Instance, port *Port) error {
	pin := inst.Pin(port.name)
	if pinConnected(pin) || !pin.IsLogical() {
		return nil
	}
	g := a.ctx.Global(port.global)
	if g == nil {
		return errors.Wrapf(ErrAPI, "undefined global %s", port.global)
	}
	if g.width != port.Width() {
		return errors.Wrapf(ErrWidthMismatch, "global %s is %d bits wide", g.name, g.width)
	}
	src := a.Port(g.name)
	if src == nil {
		var err error
		src, err = a.AddPort(PortSpec{
			Name:      g.name,
			Direction: Input,
			Width:     g.width,
			IsClock:   g.isClock,
			Global:    g.name,
			External:  a.IsTop(),
		})
		if err != nil {
			return err
		}
	} else if src.global != g.name || src.dir != Input {
		return errors.Wrapf(ErrPortMismatch, "port %s is not global %s", src.name, g.name)
	}
	return a.Connect(src, pin, Bitwise)
}

func (a *Array) completeExternal(inst *Instance, port *Port) error {
	pin := inst.Pin(port.name)
	name := inst.name + "_" + port.name
	ext := a.Port(name)
	if ext == nil {
		var err error
		ext, err = a.AddPort(PortSpec{
			Name:       name,
			Direction:  port.dir,
			Width:      port.Width(),
			Visibility: pin.visibility(),
			External:   true,
			Class:      port.class,
		})
		if err != nil {
			return err
		}
	} else if ext.dir != port.dir || ext.Width() != port.Width() || !ext.IsExternal() {
		return errors.Wrapf(ErrPortMismatch, "array %s: port %s does not match external port %s of %s",
			a.name, name, port.name, inst.name)
	}
	if port.dir == Input {
		if pinConnected(pin) {
			return nil
		}
		return a.Connect(ext, pin, Bitwise)
	}
	if ext.bits[0].IsConnected() {
		return nil
	}
	return a.Connect(pin, ext, Bitwise)
}

func (a *Array) completeNode(inst *Instance, origin Position, port *Port) error {
	pin := inst.Pin(port.name)
	if pinConnected(pin) {
		return nil
	}
	src, err := a.NodeSource(port.node.Shift(origin), port.bridge)
	if err != nil || src == nil {
		return err
	}
	return a.Connect(src, pin, Bitwise)
}

// adjacentChannel returns the channel slot a block pin on the given side of
// tile faces.
//
func adjacentChannel(tile Position, side Side) (Position, TileType) {
	switch side {
	case Top:
		return tile, TileXChan
	case Bottom:
		return tile.Sub(Position{0, 1}), TileXChan
	case Right:
		return tile, TileYChan
	}
	return tile.Sub(Position{1, 0}), TileYChan
}

func (a *Array) completeBlockInput(inst *Instance, origin Position, port *Port) error {
	pin := inst.Pin(port.name)
	if pinConnected(pin) || !pin.IsLogical() || port.isClock {
		return nil
	}
	if _, ok := inst.model.(*Block); !ok {
		return nil
	}
	k := inst.key.(BlockKey)
	node := BlockPinNode{Position: origin, Subblock: k.Sub, Port: port}
	pos, t := adjacentChannel(node.Tile(), port.side)
	s := a.GetBlock(pos, t)
	if s == nil || s.IsPlaceholder() || len(s.Instances) == 0 {
		return nil
	}
	cb, ok := s.Instances[0].model.(*Block)
	if !ok {
		return nil
	}
	p := cb.NodePort(node.Shift(pos.Scale(-1)), Output)
	if p == nil {
		return nil
	}
	return a.Connect(s.Instances[0].Pin(p.name), pin, Bitwise)
}
