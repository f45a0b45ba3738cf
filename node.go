package prga

import (
	"strings"
)

// Position is a tile position.
//
type Position struct {
	X, Y int
}

// Add returns p+q.
func (p Position) Add(q Position) Position { return Position{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Position) Sub(q Position) Position { return Position{p.X - q.X, p.Y - q.Y} }

// Scale returns p*k.
func (p Position) Scale(k int) Position { return Position{p.X * k, p.Y * k} }

func (p Position) String() string { return "x" + coord(p.X) + "y" + coord(p.Y) }

// coord formats a coordinate for use in identifiers.
func coord(v int) string {
	if v < 0 {
		return "n" + itoa(-v)
	}
	return itoa(v)
}

// Dimension of a wire segment.
//
type Dimension int

// Dimensions.
const (
	Horizontal Dimension = iota
	Vertical
)

func (d Dimension) unit() Position {
	if d == Horizontal {
		return Position{1, 0}
	}
	return Position{0, 1}
}

// Channel returns the channel tile type carrying wires of dimension d.
func (d Dimension) Channel() TileType {
	if d == Horizontal {
		return TileXChan
	}
	return TileYChan
}

func (d Dimension) String() string {
	if d == Horizontal {
		return "h"
	}
	return "v"
}

// SegDirection is the direction a wire segment is driven in.
//
type SegDirection int

// Segment directions.
const (
	Inc SegDirection = iota
	Dec
)

func (d SegDirection) sign() int {
	if d == Inc {
		return 1
	}
	return -1
}

func (d SegDirection) String() string {
	if d == Inc {
		return "i"
	}
	return "d"
}

// A Segment is a wire segment prototype: a bundle of Width tracks, each
// spanning Length tiles.
//
type Segment struct {
	name   string
	width  int
	length int
}

// Name returns the prototype name.
func (s *Segment) Name() string { return s.name }

// Width returns the number of tracks.
func (s *Segment) Width() int { return s.width }

// Length returns the number of tiles a wire spans.
func (s *Segment) Length() int { return s.length }

// A RoutingNode names a routable signal independently of the module that
// carries it. Implementations are SegmentNode and BlockPinNode.
//
type RoutingNode interface {
	// Shift returns the node as seen from a container whose origin is at
	// -d relative to the current one.
	Shift(d Position) RoutingNode
	Width() int
	String() string
	routingNode()
}

// A SegmentNode is one section of a wire: the wire's section-th tile is at
// Position.
//
type SegmentNode struct {
	Position  Position
	Section   int
	Prototype *Segment
	Dimension Dimension
	Direction SegDirection
}

func (SegmentNode) routingNode() {}

// Width returns the number of tracks.
func (n SegmentNode) Width() int { return n.Prototype.width }

// Shift implements RoutingNode.
func (n SegmentNode) Shift(d Position) RoutingNode {
	n.Position = n.Position.Add(d)
	return n
}

// Canonical returns the equivalent node with section 0.
//
func (n SegmentNode) Canonical() SegmentNode {
	n.Position = n.Position.Sub(n.Dimension.unit().Scale(n.Section * n.Direction.sign()))
	n.Section = 0
	return n
}

// Equivalents returns every node naming the same wire, section 0 first.
//
func (n SegmentNode) Equivalents() []SegmentNode {
	c := n.Canonical()
	step := c.Dimension.unit().Scale(c.Direction.sign())
	r := make([]SegmentNode, c.Prototype.length)
	for s := range r {
		e := c
		e.Position = c.Position.Add(step.Scale(s))
		e.Section = s
		r[s] = e
	}
	return r
}

// DriverSwitch returns the switch tile driving the wire.
//
func (n SegmentNode) DriverSwitch() Position {
	c := n.Canonical()
	if c.Direction == Inc {
		return c.Position.Sub(c.Dimension.unit())
	}
	return c.Position
}

// Terminus returns the switch tile the wire ends at.
//
func (n SegmentNode) Terminus() Position {
	c := n.Canonical()
	u := c.Dimension.unit()
	last := c.Position.Add(u.Scale((c.Prototype.length - 1) * c.Direction.sign()))
	if c.Direction == Inc {
		return last
	}
	return last.Sub(u)
}

func (n SegmentNode) String() string {
	c := n.Canonical()
	return c.Prototype.name + "_" + c.Dimension.String() + c.Direction.String() + "_" + c.Position.String()
}

// A BlockPinNode is a port of a logic or IO block. Position is the root tile
// of the block relative to the container.
//
type BlockPinNode struct {
	Position Position
	Subblock int
	Port     *Port
}

func (BlockPinNode) routingNode() {}

// Width returns the port width.
func (n BlockPinNode) Width() int { return n.Port.Width() }

// Shift implements RoutingNode.
func (n BlockPinNode) Shift(d Position) RoutingNode {
	n.Position = n.Position.Add(d)
	return n
}

// Tile returns the tile of the pin.
func (n BlockPinNode) Tile() Position { return n.Position.Add(n.Port.offset) }

func (n BlockPinNode) String() string {
	return n.Port.module.name + "_" + n.Port.name + "_" + n.Position.String() + "_" + itoa(n.Subblock)
}

func canonical(n RoutingNode) RoutingNode {
	if s, ok := n.(SegmentNode); ok {
		return s.Canonical()
	}
	return n
}

// NodeKey keys node ports so that a sink and a source of the same node can
// live in one module.
//
type NodeKey struct {
	Node RoutingNode
	Dir  Direction
}

// NodePortName returns the name of the port carrying node in the given
// direction.
//
func NodePortName(node RoutingNode, dir Direction, bridge bool) string {
	var b strings.Builder
	if dir == Input {
		b.WriteByte('i')
	} else {
		b.WriteByte('o')
	}
	if bridge {
		b.WriteByte('b')
	}
	b.WriteByte('_')
	b.WriteString(canonical(node).String())
	return b.String()
}
