// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package prga

import (
	"sync"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
)

// A Global is an array-level wire distributed through dedicated resources
// rather than through the routing fabric.
//
type Global struct {
	name    string
	width   int
	isClock bool
	bound   bool
	bindPos Position
	bindSub int
}

// Name returns the global name.
func (g *Global) Name() string { return g.name }

// Width returns the global width.
func (g *Global) Width() int { return g.width }

// IsClock reports whether g is a clock.
func (g *Global) IsClock() bool { return g.isClock }

// Bind records the IO block sub-slot driving g in the top array.
func (g *Global) Bind(pos Position, sub int) {
	g.bound, g.bindPos, g.bindSub = true, pos, sub
}

// Binding returns the IO slot bound to g, if any.
func (g *Global) Binding() (pos Position, sub int, ok bool) {
	return g.bindPos, g.bindSub, g.bound
}

// A Context is an architecture under construction: its modules, segment
// prototypes, globals and top array.
//
// A Context is not safe for concurrent use, except for RegisterExtension.
//
type Context struct {
	modules  orderedMap[string, Model]
	segments []*Segment
	globals  orderedMap[string, *Global]
	top      *Array
	ext      Ext
	log      logr.Logger

	extMu     sync.Mutex
	extOwners map[string]string
}

// NewContext returns an empty architecture context.
//
func NewContext() *Context {
	return &Context{
		log:       logr.Discard(),
		extOwners: make(map[string]string),
	}
}

// SetLogger sets the logger passes report to.
func (ctx *Context) SetLogger(l logr.Logger) { ctx.log = l }

// Logger returns the context logger.
func (ctx *Context) Logger() logr.Logger { return ctx.log }

// Ext returns the context-wide extension slots.
func (ctx *Context) Ext() Ext {
	if ctx.ext == nil {
		ctx.ext = make(Ext)
	}
	return ctx.ext
}

// AddTemplateSearchPath appends dir to the verilog template search paths.
func (ctx *Context) AddTemplateSearchPath(dir string) {
	paths, _ := ctx.Ext()[ExtVerilogTemplateSearchPaths].([]string)
	for _, p := range paths {
		if p == dir {
			return
		}
	}
	ctx.Ext()[ExtVerilogTemplateSearchPaths] = append(paths, dir)
}

// RegisterExtension claims extension key for owner. Claiming a key already
// held by another owner fails with ErrDuplicateKey.
//
func (ctx *Context) RegisterExtension(key, owner string) error {
	ctx.extMu.Lock()
	defer ctx.extMu.Unlock()
	if o, ok := ctx.extOwners[key]; ok && o != owner {
		return errors.Wrapf(ErrDuplicateKey, "extension %s is owned by %s", key, o)
	}
	ctx.extOwners[key] = owner
	return nil
}

// Modules returns all modules in creation order.
func (ctx *Context) Modules() []Model { return ctx.modules.values() }

// Module returns the named module or nil.
func (ctx *Context) Module(name string) Model {
	m, _ := ctx.modules.get(name)
	return m
}

// Segments returns the segment prototypes in creation order.
func (ctx *Context) Segments() []*Segment { return append([]*Segment(nil), ctx.segments...) }

// Segment returns the named segment prototype or nil.
func (ctx *Context) Segment(name string) *Segment {
	for _, s := range ctx.segments {
		if s.name == name {
			return s
		}
	}
	return nil
}

// Globals returns the globals in creation order.
func (ctx *Context) Globals() []*Global { return ctx.globals.values() }

// Global returns the named global or nil.
func (ctx *Context) Global(name string) *Global {
	g, _ := ctx.globals.get(name)
	return g
}

// Top returns the top array.
func (ctx *Context) Top() *Array { return ctx.top }

// SetTop makes a the top array.
func (ctx *Context) SetTop(a *Array) error {
	if a == nil {
		return errors.Wrap(ErrAPI, "nil top array")
	}
	if a.ctx != ctx || ctx.Module(a.name) != Model(a) {
		return errors.Wrapf(ErrAPI, "array %s does not belong to this context", a.name)
	}
	ctx.top = a
	return nil
}

func (ctx *Context) register(m Model) error {
	if m.Name() == "" {
		return errors.Wrap(ErrAPI, "empty module name")
	}
	if _, ok := ctx.modules.get(m.Name()); ok {
		return errors.Wrapf(ErrDuplicateKey, "module %s", m.Name())
	}
	ctx.modules.set(m.Name(), m)
	return nil
}

// CreateSegment adds a segment prototype.
//
func (ctx *Context) CreateSegment(name string, width, length int) (*Segment, error) {
	if ctx.Segment(name) != nil {
		return nil, errors.Wrapf(ErrDuplicateKey, "segment %s", name)
	}
	if name == "" || width < 1 || length < 1 {
		return nil, errors.Wrapf(ErrAPI, "segment %q: invalid width %d or length %d", name, width, length)
	}
	s := &Segment{name: name, width: width, length: length}
	ctx.segments = append(ctx.segments, s)
	return s, nil
}

// CreateGlobal adds a global wire.
//
func (ctx *Context) CreateGlobal(name string, width int, isClock bool) (*Global, error) {
	if _, ok := ctx.globals.get(name); ok {
		return nil, errors.Wrapf(ErrDuplicateKey, "global %s", name)
	}
	if name == "" || width < 1 {
		return nil, errors.Wrapf(ErrAPI, "global %q: invalid width %d", name, width)
	}
	g := &Global{name: name, width: width, isClock: isClock}
	ctx.globals.set(name, g)
	return g, nil
}

// CreatePrimitive adds a user-defined leaf primitive. Ports are added with
// AddPort.
//
func (ctx *Context) CreatePrimitive(name string, vis Visibility) (*Module, error) {
	m := new(Module)
	m.init(ctx, m, name, PrimitiveKind, vis, true)
	m.prim = Custom
	if err := ctx.register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateSlice adds a slice, a non-leaf grouping of primitives inside blocks.
//
func (ctx *Context) CreateSlice(name string) (*Module, error) {
	m := new(Module)
	m.init(ctx, m, name, SliceKind, Dual, false)
	if err := ctx.register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateLogicBlock adds a logic block spanning width x height tiles.
//
func (ctx *Context) CreateLogicBlock(name string, width, height int) (*Block, error) {
	if width < 1 || height < 1 {
		return nil, errors.Wrapf(ErrAPI, "block %s: invalid size %dx%d", name, width, height)
	}
	b := &Block{btype: LogicBlock, tile: TileLogic, width: width, height: height, capacity: 1}
	b.init(ctx, b, name, BlockKind, Dual, false)
	if err := ctx.register(b); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateIOBlock adds a 1x1 IO block packing capacity pads of the given type.
// The block holds a logical-only pad instance named "io" and physical-only
// external ports implementing it.
//
func (ctx *Context) CreateIOBlock(name string, capacity int, pad PrimitiveType) (*Block, error) {
	if capacity < 1 {
		return nil, errors.Wrapf(ErrAPI, "block %s: invalid capacity %d", name, capacity)
	}
	if pad != Inpad && pad != Outpad && pad != Iopad {
		return nil, errors.Wrapf(ErrAPI, "block %s: invalid pad type", name)
	}
	b := &Block{btype: IOBlock, tile: TileLogic, width: 1, height: 1, capacity: capacity}
	b.init(ctx, b, name, BlockKind, Dual, false)
	if err := ctx.register(b); err != nil {
		return nil, err
	}
	if err := ctx.newIOBlock(b, pad); err != nil {
		ctx.modules.remove(name)
		return nil, err
	}
	return b, nil
}

// CreateRoutingBlock adds an empty connection block (xchan or ychan tile) or
// switch block (switch tile).
//
func (ctx *Context) CreateRoutingBlock(name string, tile TileType) (*Block, error) {
	b := &Block{tile: tile, width: 1, height: 1, capacity: 1}
	switch tile {
	case TileXChan, TileYChan:
		b.btype = ConnectionBlock
	case TileSwitch:
		b.btype = SwitchBlock
	default:
		return nil, errors.Wrapf(ErrAPI, "block %s: routing blocks live in channel or switch tiles", name)
	}
	b.init(ctx, b, name, BlockKind, Dual, false)
	if err := ctx.register(b); err != nil {
		return nil, err
	}
	return b, nil
}

// CreateArray adds an empty width x height array.
//
func (ctx *Context) CreateArray(name string, width, height int, cov ChannelCoverage) (*Array, error) {
	if width < 1 || height < 1 {
		return nil, errors.Wrapf(ErrAPI, "array %s: invalid size %dx%d", name, width, height)
	}
	a := &Array{width: width, height: height, coverage: cov}
	a.init(ctx, a, name, ArrayKind, Dual, false)
	a.initGrid()
	if err := ctx.register(a); err != nil {
		return nil, err
	}
	return a, nil
}

// DropRoutingBlock removes b from the context together with all its instances
// and placeholders. It is the only way to delete a module.
//
func (ctx *Context) DropRoutingBlock(b *Block) error {
	if !b.IsRouting() {
		return errors.Wrapf(ErrAPI, "block %s is not a routing block", b.name)
	}
	if ctx.Module(b.name) != Model(b) {
		return errors.Wrapf(ErrAPI, "block %s does not belong to this context", b.name)
	}
	for _, m := range ctx.modules.values() {
		switch m := m.(type) {
		case *Array:
			m.removeModel(b)
		default:
			for _, inst := range m.Instances(AllView) {
				if inst.model == Model(b) {
					m.base().removeInstance(inst.key)
				}
			}
		}
	}
	ctx.modules.remove(b.name)
	return nil
}
