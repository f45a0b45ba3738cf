package prga

import (
	"github.com/pkg/errors"
)

// TileType identifies a slot of a tile.
//
type TileType int

// Tile types.
const (
	TileLogic TileType = iota
	TileXChan
	TileYChan
	TileSwitch
)

var tileNames = [...]string{"logic", "xchan", "ychan", "switch"}

func (t TileType) String() string { return tileNames[t] }

// BlockType is the role of a block.
//
type BlockType int

// Block types.
const (
	LogicBlock BlockType = iota
	IOBlock
	ConnectionBlock
	SwitchBlock
)

// A Block is a non-leaf module placed in the tiles of an array.
//
type Block struct {
	Module
	btype    BlockType
	tile     TileType
	width    int
	height   int
	capacity int
}

// BlockType returns the block type.
func (b *Block) BlockType() BlockType { return b.btype }

// TileType returns the tile slot the block root occupies.
func (b *Block) TileType() TileType { return b.tile }

// Width returns the width in tiles.
func (b *Block) Width() int { return b.width }

// Height returns the height in tiles.
func (b *Block) Height() int { return b.height }

// Capacity returns the number of sub-blocks packed in one tile.
func (b *Block) Capacity() int { return b.capacity }

// IsRouting reports whether b is a connection or switch block.
func (b *Block) IsRouting() bool { return b.btype == ConnectionBlock || b.btype == SwitchBlock }

func (b *Block) checkPort(s *PortSpec) error {
	if b.IsRouting() || s.Side == NoSide {
		return nil
	}
	o := s.Offset
	if o.X < 0 || o.Y < 0 || o.X >= b.width || o.Y >= b.height {
		return errors.Wrapf(ErrAPI, "block %s: port %s: offset %v outside the block", b.name, s.Name, o)
	}
	var ok bool
	switch s.Side {
	case Top:
		ok = o.Y == b.height-1
	case Bottom:
		ok = o.Y == 0
	case Left:
		ok = o.X == 0
	case Right:
		ok = o.X == b.width-1
	}
	if !ok {
		return errors.Wrapf(ErrAPI, "block %s: port %s: side %v at offset %v faces inside the block", b.name, s.Name, s.Side, o)
	}
	return nil
}

// tileSlot is a slot relative to the root of a footprint.
type tileSlot struct {
	d Position
	t TileType
}

// footprint lists the slots covered by an instance of model, root slot first.
//
func footprint(model Model) []tileSlot {
	switch m := model.(type) {
	case *Block:
		if m.IsRouting() {
			return []tileSlot{{Position{}, m.tile}}
		}
		var r []tileSlot
		for t := TileLogic; t <= TileSwitch; t++ {
			w, h := m.width, m.height
			if t == TileYChan || t == TileSwitch {
				w--
			}
			if t == TileXChan || t == TileSwitch {
				h--
			}
			for dx := 0; dx < w; dx++ {
				for dy := 0; dy < h; dy++ {
					r = append(r, tileSlot{Position{dx, dy}, t})
				}
			}
		}
		return r
	case *Array:
		r := []tileSlot{{Position{}, TileLogic}}
		for t := TileLogic; t <= TileSwitch; t++ {
			for x := -1; x < m.width; x++ {
				for y := -1; y < m.height; y++ {
					if (x != 0 || y != 0 || t != TileLogic) && m.CoversTile(Position{x, y}, t) {
						r = append(r, tileSlot{Position{x, y}, t})
					}
				}
			}
		}
		return r
	}
	return nil
}

// Pad returns the pad instance of an IO block, or nil.
func (b *Block) Pad() *Instance {
	if b.btype != IOBlock {
		return nil
	}
	return b.Instance("io")
}

func (ctx *Context) newIOBlock(b *Block, pad PrimitiveType) error {
	model, err := ctx.Pad(pad)
	if err != nil {
		return err
	}
	io, err := b.Instantiate(model, "io")
	if err != nil {
		return err
	}
	if p := io.Pin("inpad"); p != nil {
		ext := b.MustAddPort(PortSpec{Name: "extio_i", Direction: Input, Width: 1, Visibility: PhysicalOnly, External: true})
		LinkCounterparts(p.Bit(0), ext.Bit(0))
	}
	if p := io.Pin("outpad"); p != nil {
		ext := b.MustAddPort(PortSpec{Name: "extio_o", Direction: Output, Width: 1, Visibility: PhysicalOnly, External: true})
		LinkCounterparts(p.Bit(0), ext.Bit(0))
	}
	if pad == Iopad {
		b.MustAddPort(PortSpec{Name: "extio_oe", Direction: Output, Width: 1, Visibility: PhysicalOnly, External: true})
	}
	return nil
}
