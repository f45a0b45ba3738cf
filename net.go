// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package prga

import (
	"strconv"

	"github.com/pkg/errors"
)

type constNet int

const (
	notConst constNet = iota
	cstOpen
	cstZero
	cstOne
)

// Constant nets. They are valid physical sources for any physical sink.
//
var (
	Open = &Bit{cst: cstOpen}
	Zero = &Bit{cst: cstZero}
	One  = &Bit{cst: cstOne}
)

// A NetRef is anything that flattens to a sequence of bits: a single *Bit,
// a bus (*Port or *Pin), or a sequence of NetRefs (Bits or Refs).
//
type NetRef interface {
	Bits() []*Bit
}

// Bits is a NetRef over an explicit list of bits.
//
type Bits []*Bit

// Bits implements NetRef.
func (b Bits) Bits() []*Bit { return b }

// Refs concatenates NetRefs, first element first.
//
type Refs []NetRef

// Bits implements NetRef.
func (r Refs) Bits() []*Bit {
	var bits []*Bit
	for _, n := range r {
		if n != nil {
			bits = append(bits, n.Bits()...)
		}
	}
	return bits
}

// Flatten returns the bits of all refs in order.
//
func Flatten(refs ...NetRef) []*Bit {
	return Refs(refs).Bits()
}

// A Bit is a single bit of a port or pin, or one of the constant nets.
//
// A sink bit holds at most one physical source and an ordered set of logical
// sources. Logical sources are resolved into physical drivers, inserting
// switches where needed, when the module is finalized.
//
type Bit struct {
	bus   Bus
	index int
	cst   constNet

	physSrc *Bit
	logSrcs []*Bit

	// counterparts when the logical and physical identities of a signal are
	// carried by distinct bits, as in IO pads.
	physCP *Bit
	logCP  *Bit
}

// Bits implements NetRef.
func (b *Bit) Bits() []*Bit { return []*Bit{b} }

// Bus returns the port or pin b belongs to. It returns nil for constant nets.
func (b *Bit) Bus() Bus { return b.bus }

// Index returns the index of b in its bus.
func (b *Bit) Index() int { return b.index }

// IsConst reports whether b is one of Open, Zero or One.
func (b *Bit) IsConst() bool { return b.cst != notConst }

// PhysicalSource returns the bit physically driving b, or nil.
func (b *Bit) PhysicalSource() *Bit { return b.physSrc }

// LogicalSources returns a copy of the logical fan-in of b in insertion order.
func (b *Bit) LogicalSources() []*Bit {
	if len(b.logSrcs) == 0 {
		return nil
	}
	return append([]*Bit(nil), b.logSrcs...)
}

// PhysicalCounterpart returns the bit implementing b in the physical netlist,
// if it differs from b.
//
func (b *Bit) PhysicalCounterpart() *Bit { return b.physCP }

// LogicalCounterpart returns the bit standing for b in the logical view, if
// it differs from b.
//
func (b *Bit) LogicalCounterpart() *Bit { return b.logCP }

// IsLogical reports whether b is visible in the logical view.
func (b *Bit) IsLogical() bool { return b.bus != nil && b.bus.IsLogical() }

// IsPhysical reports whether b is part of the physical netlist. Constant nets
// are physical.
//
func (b *Bit) IsPhysical() bool { return b.bus == nil || b.bus.IsPhysical() }

// IsConnected reports whether b has any source.
func (b *Bit) IsConnected() bool { return b.physSrc != nil || len(b.logSrcs) > 0 }

func (b *Bit) String() string {
	switch b.cst {
	case cstOpen:
		return "open"
	case cstZero:
		return "1'b0"
	case cstOne:
		return "1'b1"
	}
	return b.bus.Name() + "[" + strconv.Itoa(b.index) + "]"
}

// owner returns the module in which b is used as a net.
func (b *Bit) owner() *Module {
	switch bus := b.bus.(type) {
	case *Port:
		return bus.module
	case *Pin:
		return bus.inst.parent
	}
	return nil
}

// isSink reports whether b may be driven inside its owner: outputs of the
// owner module and inputs of its instances.
//
func (b *Bit) isSink() bool {
	switch bus := b.bus.(type) {
	case *Port:
		return bus.dir == Output
	case *Pin:
		return bus.port.dir == Input
	}
	return false
}

func (b *Bit) isSource() bool {
	switch bus := b.bus.(type) {
	case *Port:
		return bus.dir == Input
	case *Pin:
		return bus.port.dir == Output
	}
	return false
}

// LinkCounterparts records that physical implements logical.
//
func LinkCounterparts(logical, physical *Bit) {
	logical.physCP = physical
	physical.logCP = logical
}

// physicalLinkError reports why src cannot drive sink physically.
func physicalLinkError(sink, src *Bit) error {
	if sink == nil || sink.IsConst() || !sink.isSink() || !sink.IsPhysical() {
		return errors.Wrapf(ErrInvalidSink, "%v is not a physical sink", sink)
	}
	switch {
	case src == nil:
		return errors.Wrapf(ErrInvalidSource, "nil source for %v", sink)
	case src.IsConst():
	case !src.isSource() || !src.IsPhysical():
		return errors.Wrapf(ErrInvalidSource, "%v is not a physical source", src)
	case src.owner() != sink.owner():
		return errors.Wrapf(ErrInvalidSource, "%v and %v are not in the same module", src, sink)
	}
	return nil
}

// logicalLinkError reports why src cannot be a logical source of sink.
func logicalLinkError(sink, src *Bit) error {
	if sink == nil || sink.IsConst() || !sink.isSink() || !sink.IsLogical() {
		return errors.Wrapf(ErrInvalidSink, "%v is not a logical sink", sink)
	}
	switch {
	case src == nil || src.IsConst() || !src.isSource() || !src.IsLogical():
		return errors.Wrapf(ErrInvalidSource, "%v is not a logical source", src)
	case src.owner() != sink.owner():
		return errors.Wrapf(ErrInvalidSource, "%v and %v are not in the same module", src, sink)
	}
	return nil
}

// SetPhysicalSource drives sink with source. source must flatten to exactly one
// bit: a constant net, a source bit of the same module, or a 1-bit bus.
//
func SetPhysicalSource(sink *Bit, source NetRef) error {
	if source == nil {
		return physicalLinkError(sink, nil)
	}
	bits := source.Bits()
	if len(bits) != 1 {
		if err := physicalLinkError(sink, Open); err != nil {
			return err
		}
		return errors.Wrapf(ErrInvalidSource, "%d-bit source for %v", len(bits), sink)
	}
	if err := physicalLinkError(sink, bits[0]); err != nil {
		return err
	}
	sink.physSrc = bits[0]
	return nil
}

// AddLogicalSources adds sources to the logical fan-in of sink. Adding a source
// twice is a no-op. A bus passed directly as sources must be 1 bit wide.
//
func AddLogicalSources(sink *Bit, sources NetRef) error {
	if sink == nil || sink.IsConst() || !sink.isSink() || !sink.IsLogical() {
		return errors.Wrapf(ErrInvalidSink, "%v is not a logical sink", sink)
	}
	if bus, ok := sources.(Bus); ok && bus.Width() != 1 {
		return errors.Wrapf(ErrWidthMismatch, "%d-bit bus %s used as source of %v", bus.Width(), bus.Name(), sink)
	}
	if sources == nil {
		return nil
	}
	bits := sources.Bits()
	for _, s := range bits {
		if err := logicalLinkError(sink, s); err != nil {
			return err
		}
	}
	for _, s := range bits {
		sink.addLogicalSource(s)
	}
	return nil
}

func (b *Bit) addLogicalSource(s *Bit) {
	for _, e := range b.logSrcs {
		if e == s {
			return
		}
	}
	b.logSrcs = append(b.logSrcs, s)
}

// RemoveLogicalSource removes source from the logical fan-in of sink. It fails
// with ErrInvalidSource if source is not a logical source of sink.
//
func RemoveLogicalSource(sink, source *Bit) error {
	if sink == nil || sink.IsConst() || !sink.isSink() || !sink.IsLogical() {
		return errors.Wrapf(ErrInvalidSink, "%v is not a logical sink", sink)
	}
	for i, s := range sink.logSrcs {
		if s == source {
			sink.logSrcs = append(sink.logSrcs[:i:i], sink.logSrcs[i+1:]...)
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidSource, "%v is not a logical source of %v", source, sink)
}
