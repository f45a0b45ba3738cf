package prga

import (
	"strconv"
)

// Direction of a port.
//
type Direction int

// Port directions.
const (
	Input Direction = iota
	Output
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction { return 1 - d }

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Side of a logic or IO block a port faces.
//
type Side int

// Block sides. NoSide is used by ports that are not routed.
const (
	NoSide Side = iota
	Top
	Right
	Bottom
	Left
)

var sideNames = [...]string{"none", "top", "right", "bottom", "left"}

func (s Side) String() string { return sideNames[s] }

// Visibility tells in which views of the architecture an entity exists.
//
type Visibility int

// Visibility flags. The zero Visibility is treated as Dual where a default is
// needed.
//
const (
	LogicalOnly Visibility = 1 << iota
	PhysicalOnly
	Dual = LogicalOnly | PhysicalOnly
)

// IsLogical reports whether v includes the logical view.
func (v Visibility) IsLogical() bool { return v&LogicalOnly != 0 }

// IsPhysical reports whether v includes the physical view.
func (v Visibility) IsPhysical() bool { return v&PhysicalOnly != 0 }

func (v Visibility) String() string {
	switch v & Dual {
	case LogicalOnly:
		return "logical-only"
	case PhysicalOnly:
		return "physical-only"
	case Dual:
		return "dual"
	}
	return "invisible"
}

func (v Visibility) orDual() Visibility {
	if v&Dual == 0 {
		return Dual
	}
	return v & Dual
}

// View filters ports and instances by visibility.
//
type View int

// Views.
const (
	AllView View = iota
	LogicalView
	PhysicalView
)

func (v View) admits(vis Visibility) bool {
	switch v {
	case LogicalView:
		return vis.IsLogical()
	case PhysicalView:
		return vis.IsPhysical()
	}
	return true
}

// PortSpec describes a port to add to a module.
//
type PortSpec struct {
	Name       string
	Direction  Direction
	Width      int
	Visibility Visibility // zero means the module visibility
	IsClock    bool
	Clock      string   // name of the clock port of a sequential primitive
	Global     string   // name of the global wire this port is hard-wired to
	External   bool     // exposed at the array boundary
	Class      string   // hint for downstream tools
	Side       Side     // logic and IO block ports
	Offset     Position // tile of the port in the block's bounding box
	Force      bool     // replace an existing port with the same name
}

// A Port is a fixed-width bus on a module.
//
type Port struct {
	module   *Module
	name     string
	dir      Direction
	vis      Visibility
	isClock  bool
	clock    string
	global   string
	external bool
	class    string
	side     Side
	offset   Position
	node     RoutingNode
	bridge   bool
	bits     []*Bit
	ext      Ext
}

func newPort(m *Module, s *PortSpec) *Port {
	p := &Port{
		module:   m,
		name:     s.Name,
		dir:      s.Direction,
		vis:      s.Visibility.orDual(),
		isClock:  s.IsClock,
		clock:    s.Clock,
		global:   s.Global,
		external: s.External,
		class:    s.Class,
		side:     s.Side,
		offset:   s.Offset,
	}
	p.bits = make([]*Bit, s.Width)
	for i := range p.bits {
		p.bits[i] = &Bit{bus: p, index: i}
	}
	return p
}

// Name returns the port name.
func (p *Port) Name() string { return p.name }

// Width returns the number of bits.
func (p *Port) Width() int { return len(p.bits) }

// Bit returns bit i.
func (p *Port) Bit(i int) *Bit { return p.bits[i] }

// Bits implements NetRef.
func (p *Port) Bits() []*Bit { return append([]*Bit(nil), p.bits...) }

// Range returns bits lo through hi inclusive.
func (p *Port) Range(lo, hi int) Bits { return Bits(p.bits[lo : hi+1]) }

// Direction returns the port direction.
func (p *Port) Direction() Direction { return p.dir }

// Visibility returns the port visibility.
func (p *Port) Visibility() Visibility { return p.vis }

// IsLogical reports whether the port exists in the logical view.
func (p *Port) IsLogical() bool { return p.vis.IsLogical() }

// IsPhysical reports whether the port exists in the physical netlist.
func (p *Port) IsPhysical() bool { return p.vis.IsPhysical() }

// IsClock reports whether p is a clock input.
func (p *Port) IsClock() bool { return p.isClock }

// Clock returns the name of the clock port p is sequential to.
func (p *Port) Clock() string { return p.clock }

// Global returns the name of the global wire p is hard-wired to, if any.
func (p *Port) Global() string { return p.global }

// IsExternal reports whether p is exposed at the array boundary.
func (p *Port) IsExternal() bool { return p.external }

// Class returns the port class hint.
func (p *Port) Class() string { return p.class }

// Side returns the block side p faces.
func (p *Port) Side() Side { return p.side }

// Offset returns the tile of p inside the block's bounding box.
func (p *Port) Offset() Position { return p.offset }

// Node returns the routing node p stands for in a routing block or array.
func (p *Port) Node() RoutingNode { return p.node }

// IsBridge reports whether p is a bridge between routing blocks.
func (p *Port) IsBridge() bool { return p.bridge }

// Parent returns the model that owns p.
func (p *Port) Parent() Model { return p.module.self }

// Model returns p. It lets ports and pins share the Bus interface.
func (p *Port) Model() *Port { return p }

// Instance returns nil for ports.
func (p *Port) Instance() *Instance { return nil }

// Ext returns the extension slots of p.
func (p *Port) Ext() Ext {
	if p.ext == nil {
		p.ext = make(Ext)
	}
	return p.ext
}

func (p *Port) String() string { return p.module.name + "." + p.name }

// A Pin is the reflection of a port on an instance.
//
type Pin struct {
	inst *Instance
	port *Port
	bits []*Bit
}

func newPin(inst *Instance, port *Port) *Pin {
	p := &Pin{inst: inst, port: port, bits: make([]*Bit, len(port.bits))}
	for i := range p.bits {
		p.bits[i] = &Bit{bus: p, index: i}
	}
	return p
}

// Name returns "instance.port".
func (p *Pin) Name() string { return p.inst.name + "." + p.port.name }

// Width returns the number of bits.
func (p *Pin) Width() int { return len(p.bits) }

// Bit returns bit i.
func (p *Pin) Bit(i int) *Bit { return p.bits[i] }

// Bits implements NetRef.
func (p *Pin) Bits() []*Bit { return append([]*Bit(nil), p.bits...) }

// Range returns bits lo through hi inclusive.
func (p *Pin) Range(lo, hi int) Bits { return Bits(p.bits[lo : hi+1]) }

// Direction returns the direction of the model port.
func (p *Pin) Direction() Direction { return p.port.dir }

// IsLogical reports whether both the port and the instance are logical.
func (p *Pin) IsLogical() bool { return p.port.vis.IsLogical() && p.inst.vis.IsLogical() }

// IsPhysical reports whether both the port and the instance are physical.
func (p *Pin) IsPhysical() bool { return p.port.vis.IsPhysical() && p.inst.vis.IsPhysical() }

// Model returns the port p reflects.
func (p *Pin) Model() *Port { return p.port }

// Instance returns the instance p belongs to.
func (p *Pin) Instance() *Instance { return p.inst }

func (p *Pin) String() string { return p.Name() }

// Bus is the common interface of ports and pins.
//
type Bus interface {
	NetRef
	Name() string
	Width() int
	Bit(i int) *Bit
	Range(lo, hi int) Bits
	Direction() Direction
	IsLogical() bool
	IsPhysical() bool
	Model() *Port
	Instance() *Instance
}

func itoa(i int) string { return strconv.Itoa(i) }
