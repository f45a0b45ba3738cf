// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package prga

import (
	"github.com/pkg/errors"
)

// Kind is the kind of a module.
//
type Kind int

// Module kinds.
const (
	PrimitiveKind Kind = iota
	SwitchKind
	ShadowKind
	ConfigKind
	SliceKind
	BlockKind
	ArrayKind
)

var kindNames = [...]string{"primitive", "switch", "shadow", "config", "slice", "block", "array"}

func (k Kind) String() string { return kindNames[k] }

// PrimitiveType refines PrimitiveKind.
//
type PrimitiveType int

// Primitive types.
const (
	Custom PrimitiveType = iota
	LUT
	FlipFlop
	Inpad
	Outpad
	Iopad
)

// A Model is anything that can be instantiated: *Module, *Block or *Array.
//
type Model interface {
	Name() string
	Kind() Kind
	IsLeaf() bool
	IsLogical() bool
	IsPhysical() bool
	Visibility() Visibility
	Ports(v View) []*Port
	Port(name string) *Port
	Instances(v View) []*Instance
	Instance(key any) *Instance
	Ext() Ext
	base() *Module
}

// A Module is a named circuit description with ports. Non-leaf modules also
// hold instances and the connections between them.
//
type Module struct {
	ctx       *Context
	self      Model
	name      string
	kind      Kind
	prim      PrimitiveType
	vis       Visibility
	leaf      bool
	builtin   bool
	ports     orderedMap[string, *Port]
	instances orderedMap[any, *Instance]
	nodes     orderedMap[NodeKey, *Port]
	packs     []BitPair
	ext       Ext
}

func (m *Module) init(ctx *Context, self Model, name string, kind Kind, vis Visibility, leaf bool) {
	m.ctx = ctx
	m.self = self
	m.name = name
	m.kind = kind
	m.vis = vis.orDual()
	m.leaf = leaf
}

func (m *Module) base() *Module { return m }

// AsModule returns the module underlying a model.
func AsModule(m Model) *Module { return m.base() }

// Context returns the architecture context owning m.
func (m *Module) Context() *Context { return m.ctx }

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Kind returns the module kind.
func (m *Module) Kind() Kind { return m.kind }

// PrimitiveType returns the primitive type of a PrimitiveKind module.
func (m *Module) PrimitiveType() PrimitiveType { return m.prim }

// IsBuiltin reports whether m is a built-in model of the context.
func (m *Module) IsBuiltin() bool { return m.builtin }

// IsLeaf reports whether m can hold instances.
func (m *Module) IsLeaf() bool { return m.leaf }

// Visibility returns the module visibility.
func (m *Module) Visibility() Visibility { return m.vis }

// IsLogical reports whether m exists in the logical view.
func (m *Module) IsLogical() bool { return m.vis.IsLogical() }

// IsPhysical reports whether m exists in the physical netlist.
func (m *Module) IsPhysical() bool { return m.vis.IsPhysical() }

// Ext returns the extension slots of m.
func (m *Module) Ext() Ext {
	if m.ext == nil {
		m.ext = make(Ext)
	}
	return m.ext
}

func (m *Module) String() string { return m.name }

// Ports returns the ports of m visible in view v, in insertion order.
//
func (m *Module) Ports(v View) []*Port {
	var r []*Port
	for _, p := range m.ports.values() {
		if v.admits(p.vis) {
			r = append(r, p)
		}
	}
	return r
}

// Port returns the named port or nil.
func (m *Module) Port(name string) *Port {
	p, _ := m.ports.get(name)
	return p
}

// Instances returns the instances of m visible in view v, in insertion order.
//
func (m *Module) Instances(v View) []*Instance {
	var r []*Instance
	for _, i := range m.instances.values() {
		if v.admits(i.vis) {
			r = append(r, i)
		}
	}
	return r
}

// Instance returns the instance with the given key (a name or a BlockKey) or nil.
//
func (m *Module) Instance(key any) *Instance {
	i, _ := m.instances.get(key)
	return i
}

// PackPatterns returns the connections flagged with PackPattern.
func (m *Module) PackPatterns() []BitPair { return append([]BitPair(nil), m.packs...) }

// BitPair is a source-sink pair.
type BitPair struct {
	Source, Sink *Bit
}

// AddPort adds a port described by s.
//
// It fails with ErrDuplicateKey if a port with the same name exists and s.Force
// is not set. Logic and IO block ports with a side must face the outside of
// the block at their offset.
//
func (m *Module) AddPort(s PortSpec) (*Port, error) {
	if s.Name == "" {
		return nil, errors.Wrapf(ErrAPI, "module %s: empty port name", m.name)
	}
	if s.Width < 1 {
		return nil, errors.Wrapf(ErrAPI, "module %s: port %s: invalid width %d", m.name, s.Name, s.Width)
	}
	if old, ok := m.ports.get(s.Name); ok && !s.Force {
		return nil, errors.Wrapf(ErrDuplicateKey, "module %s: port %s", m.name, old.name)
	}
	if s.Visibility&Dual == 0 {
		s.Visibility = m.vis
	}
	if s.Visibility&^m.vis&Dual != 0 {
		return nil, errors.Wrapf(ErrAPI, "module %s: port %s is not visible in the views of its module", m.name, s.Name)
	}
	if b, ok := m.self.(*Block); ok {
		if err := b.checkPort(&s); err != nil {
			return nil, err
		}
	}
	p := newPort(m, &s)
	m.ports.set(p.name, p)
	return p, nil
}

// MustAddPort is like AddPort but panics on error.
//
func (m *Module) MustAddPort(s PortSpec) *Port {
	p, err := m.AddPort(s)
	if err != nil {
		panic(err)
	}
	return p
}

// AddInput adds a dual input port.
func (m *Module) AddInput(name string, width int) (*Port, error) {
	return m.AddPort(PortSpec{Name: name, Direction: Input, Width: width})
}

// AddOutput adds a dual output port.
func (m *Module) AddOutput(name string, width int) (*Port, error) {
	return m.AddPort(PortSpec{Name: name, Direction: Output, Width: width})
}

// GetOrCreatePhysicalInput returns the physical input port name, creating it if
// needed. An existing port must match width, externality and globality or
// ErrPortMismatch is returned.
//
func (m *Module) GetOrCreatePhysicalInput(name string, width int, external, global bool) (*Port, error) {
	return m.getOrCreatePhysical(name, Input, width, external, global)
}

// GetOrCreatePhysicalOutput is the output counterpart of GetOrCreatePhysicalInput.
//
func (m *Module) GetOrCreatePhysicalOutput(name string, width int, external, global bool) (*Port, error) {
	return m.getOrCreatePhysical(name, Output, width, external, global)
}

func (m *Module) getOrCreatePhysical(name string, dir Direction, width int, external, global bool) (*Port, error) {
	if p := m.Port(name); p != nil {
		switch {
		case p.dir != dir:
			return nil, errors.Wrapf(ErrPortMismatch, "module %s: port %s is an %v", m.name, name, p.dir)
		case p.Width() != width:
			return nil, errors.Wrapf(ErrPortMismatch, "module %s: port %s is %d bits wide, want %d", m.name, name, p.Width(), width)
		case p.external != external:
			return nil, errors.Wrapf(ErrPortMismatch, "module %s: port %s externality is %v", m.name, name, p.external)
		case (p.global != "") != global:
			return nil, errors.Wrapf(ErrPortMismatch, "module %s: port %s globality is %v", m.name, name, p.global != "")
		case !p.IsPhysical():
			return nil, errors.Wrapf(ErrPortMismatch, "module %s: port %s is not physical", m.name, name)
		}
		return p, nil
	}
	s := PortSpec{
		Name:       name,
		Direction:  dir,
		Width:      width,
		Visibility: PhysicalOnly,
		External:   external,
	}
	if global {
		s.Global = name
	}
	if m.vis&PhysicalOnly == 0 {
		return nil, errors.Wrapf(ErrAPI, "module %s: not physical", m.name)
	}
	return m.AddPort(s)
}

// ReorderPorts sets the port order. order must list every port exactly once.
//
func (m *Module) ReorderPorts(order []*Port) error {
	names := make([]string, len(order))
	for i, p := range order {
		if p.module != m {
			return errors.Wrapf(ErrAPI, "module %s: port %v belongs to another module", m.name, p)
		}
		names[i] = p.name
	}
	if !m.ports.reorder(names) {
		return errors.Wrapf(ErrAPI, "module %s: port order is not a permutation", m.name)
	}
	return nil
}

// Instantiate adds an instance of model named name to m. The instance is as
// visible as both model and m allow.
//
func (m *Module) Instantiate(model Model, name string) (*Instance, error) {
	inst := NewInstance(model, name, 0)
	if err := m.AddInstance(inst, false); err != nil {
		return nil, err
	}
	return inst, nil
}

// AddInstance adds inst to m under inst.Key().
//
// An instance may only carry visibility flags its model has. Flags m does not
// have are dropped; an instance left with none is rejected, which forbids
// physical-only instances in non-physical modules and the reverse.
//
func (m *Module) AddInstance(inst *Instance, force bool) error {
	if m.leaf {
		return errors.Wrapf(ErrAPI, "module %s: leaf modules have no instances", m.name)
	}
	if inst.parent != nil {
		return errors.Wrapf(ErrAPI, "module %s: instance %s already belongs to %s", m.name, inst.name, inst.parent.name)
	}
	if inst.model.base() == m {
		return errors.Wrapf(ErrAPI, "module %s: cannot instantiate itself", m.name)
	}
	if inst.vis&^inst.model.Visibility() != 0 {
		return errors.Wrapf(ErrAPI, "module %s: instance %s is more visible than its model %s", m.name, inst.name, inst.model.Name())
	}
	vis := inst.vis & m.vis
	if vis == 0 {
		return errors.Wrapf(ErrAPI, "module %s: %v instance %s cannot live in a %v module",
			m.name, inst.vis, inst.name, m.vis)
	}
	if _, ok := m.instances.get(inst.key); ok && !force {
		return errors.Wrapf(ErrDuplicateKey, "module %s: instance %s", m.name, inst.name)
	}
	inst.vis = vis
	inst.parent = m
	m.instances.set(inst.key, inst)
	return nil
}

func (m *Module) removeInstance(key any) {
	if inst, ok := m.instances.get(key); ok {
		inst.parent = nil
		m.instances.remove(key)
	}
}

// ConnMode controls how Connect pairs sources and sinks.
//
type ConnMode int

// Connection modes. Modes can be or'ed.
const (
	Bitwise        ConnMode = 0
	FullyConnected ConnMode = 1 << iota
	PackPattern
)

// Connect connects sources to sinks inside m.
//
// Bitwise pairs the i-th source with the i-th sink and fails with
// ErrWidthMismatch if the counts differ. FullyConnected makes every source a
// source of every sink. Logical pairs add logical sources; pairs of
// physical-only bits and constant sources set the physical source directly.
// With PackPattern, the created pairs are recorded on m.
//
func (m *Module) Connect(sources, sinks NetRef, mode ConnMode) error {
	if m.leaf {
		return errors.Wrapf(ErrAPI, "module %s: cannot connect inside a leaf module", m.name)
	}
	src, dst := Flatten(sources), Flatten(sinks)
	if mode&FullyConnected == 0 && len(src) != len(dst) {
		return errors.Wrapf(ErrWidthMismatch, "module %s: connecting %d bits to %d bits", m.name, len(src), len(dst))
	}
	for _, b := range dst {
		if b == nil || b.IsConst() || b.owner() != m {
			return errors.Wrapf(ErrInvalidSink, "module %s: %v", m.name, b)
		}
	}
	for _, b := range src {
		if b == nil || (!b.IsConst() && b.owner() != m) {
			return errors.Wrapf(ErrInvalidSource, "module %s: %v", m.name, b)
		}
	}
	var pairs []BitPair
	if mode&FullyConnected != 0 {
		for _, d := range dst {
			for _, s := range src {
				pairs = append(pairs, BitPair{s, d})
			}
		}
	} else {
		for i := range dst {
			pairs = append(pairs, BitPair{src[i], dst[i]})
		}
	}
	// nothing is connected unless every pair is valid
	driven := make(map[*Bit]*Bit)
	for _, p := range pairs {
		if isLogicalPair(p) {
			if err := logicalLinkError(p.Sink, p.Source); err != nil {
				return errors.Wrapf(err, "module %s", m.name)
			}
			continue
		}
		if err := physicalLinkError(p.Sink, p.Source); err != nil {
			return errors.Wrapf(err, "module %s", m.name)
		}
		ps, ok := driven[p.Sink]
		if !ok {
			ps = p.Sink.physSrc
		}
		if ps != nil && ps != p.Source {
			return errors.Wrapf(ErrConflict, "module %s: %v is already driven by %v", m.name, p.Sink, ps)
		}
		driven[p.Sink] = p.Source
	}
	for _, p := range pairs {
		if isLogicalPair(p) {
			p.Sink.addLogicalSource(p.Source)
		} else {
			p.Sink.physSrc = p.Source
		}
	}
	if mode&PackPattern != 0 {
		m.packs = append(m.packs, pairs...)
	}
	return nil
}

func isLogicalPair(p BitPair) bool {
	return !p.Source.IsConst() && p.Source.IsLogical() && p.Sink.IsLogical()
}

// BlockKey is the key of a block or array instance inside an array.
//
type BlockKey struct {
	Pos  Position
	Type TileType
	Sub  int
}

// An Instance is a use of a model inside a non-leaf module.
//
type Instance struct {
	parent *Module
	model  Model
	key    any
	name   string
	vis    Visibility
	pins   map[string]*Pin
	ext    Ext
}

// NewInstance returns a detached instance of model. A zero vis means the
// visibility of model.
//
func NewInstance(model Model, name string, vis Visibility) *Instance {
	if vis&Dual == 0 {
		vis = model.Visibility()
	}
	return &Instance{model: model, key: name, name: name, vis: vis & Dual}
}

func newKeyedInstance(model Model, key BlockKey, name string) *Instance {
	return &Instance{model: model, key: key, name: name, vis: model.Visibility()}
}

// Name returns the instance name.
func (i *Instance) Name() string { return i.name }

// Key returns the key of i in its parent: its name or a BlockKey.
func (i *Instance) Key() any { return i.key }

// Model returns the instantiated model.
func (i *Instance) Model() Model { return i.model }

// Parent returns the module holding i.
func (i *Instance) Parent() Model {
	if i.parent == nil {
		return nil
	}
	return i.parent.self
}

// Visibility returns the instance visibility.
func (i *Instance) Visibility() Visibility { return i.vis }

// IsLogical reports whether i exists in the logical view.
func (i *Instance) IsLogical() bool { return i.vis.IsLogical() }

// IsPhysical reports whether i exists in the physical netlist.
func (i *Instance) IsPhysical() bool { return i.vis.IsPhysical() }

// Ext returns the extension slots of i.
func (i *Instance) Ext() Ext {
	if i.ext == nil {
		i.ext = make(Ext)
	}
	return i.ext
}

func (i *Instance) String() string { return i.name }

// Pin returns the pin reflecting the named model port, or nil.
//
func (i *Instance) Pin(name string) *Pin {
	port := i.model.Port(name)
	if port == nil {
		return nil
	}
	if p, ok := i.pins[name]; ok && p.port == port {
		return p
	}
	if i.pins == nil {
		i.pins = make(map[string]*Pin)
	}
	p := newPin(i, port)
	i.pins[name] = p
	return p
}

// Pins returns the pins of i visible in view v, in model port order.
//
func (i *Instance) Pins(v View) []*Pin {
	var r []*Pin
	for _, port := range i.model.Ports(AllView) {
		p := i.Pin(port.name)
		if v.admits(p.visibility()) {
			r = append(r, p)
		}
	}
	return r
}

func (p *Pin) visibility() Visibility { return p.port.vis & p.inst.vis }
