// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package prga

import (
	"github.com/pkg/errors"
)

// ChannelCoverage tells which outer routing channels belong to an array.
//
type ChannelCoverage struct {
	Top, Right, Bottom, Left bool
}

// A Slot is a tile slot of an array. Root slots hold the instances installed
// there; the other slots covered by a multi-tile block or a child array are
// placeholders pointing back at the root.
//
type Slot struct {
	Position  Position
	Type      TileType
	Instances []*Instance // root slots only
	Root      *Slot       // nil for root slots
}

// IsPlaceholder reports whether s stands for a block rooted elsewhere.
func (s *Slot) IsPlaceholder() bool { return s.Root != nil }

// RootSlot returns the root slot of s.
func (s *Slot) RootSlot() *Slot {
	if s.Root != nil {
		return s.Root
	}
	return s
}

// An Array is a grid of tiles.
//
type Array struct {
	Module
	width, height int
	coverage      ChannelCoverage
	xoff, yoff    int
	tiles         [][][4]*Slot
}

func (a *Array) initGrid() {
	if a.coverage.Left {
		a.xoff = 1
	}
	if a.coverage.Bottom {
		a.yoff = 1
	}
	a.tiles = make([][][4]*Slot, a.width+a.xoff)
	for x := range a.tiles {
		a.tiles[x] = make([][4]*Slot, a.height+a.yoff)
	}
}

// Width returns the number of logic tile columns.
func (a *Array) Width() int { return a.width }

// Height returns the number of logic tile rows.
func (a *Array) Height() int { return a.height }

// Coverage returns the channel coverage.
func (a *Array) Coverage() ChannelCoverage { return a.coverage }

// IsTop reports whether a is the top array of its context.
func (a *Array) IsTop() bool { return a.ctx != nil && a.ctx.top == a }

// CoversTile reports whether a owns the slot of type t at pos.
//
// Logic tiles span [0,W)x[0,H). The channel above logic tile (x, y) is xchan
// (x, y), the channel to its right is ychan (x, y) and the switch at its top
// right corner is switch (x, y). Channels on the outer edges exist only when
// the corresponding side is covered.
//
func (a *Array) CoversTile(pos Position, t TileType) bool {
	xlo, xhi := 0, a.width-1
	ylo, yhi := 0, a.height-1
	if t == TileYChan || t == TileSwitch {
		if a.coverage.Left {
			xlo = -1
		}
		if !a.coverage.Right {
			xhi--
		}
	}
	if t == TileXChan || t == TileSwitch {
		if a.coverage.Bottom {
			ylo = -1
		}
		if !a.coverage.Top {
			yhi--
		}
	}
	return pos.X >= xlo && pos.X <= xhi && pos.Y >= ylo && pos.Y <= yhi
}

func (a *Array) slot(pos Position, t TileType) **Slot {
	return &a.tiles[pos.X+a.xoff][pos.Y+a.yoff][t]
}

// GetBlock returns the slot at pos, a root or a placeholder, or nil if the
// slot is empty or not covered.
//
func (a *Array) GetBlock(pos Position, t TileType) *Slot {
	if !a.CoversTile(pos, t) {
		return nil
	}
	return *a.slot(pos, t)
}

// GetRootBlock returns sub-block sub of the block covering the slot at pos.
// It returns nil if the slot is empty or the instance is not physical.
//
func (a *Array) GetRootBlock(pos Position, sub int, t TileType) *Instance {
	s := a.GetBlock(pos, t)
	if s == nil {
		return nil
	}
	s = s.RootSlot()
	if sub < 0 || sub >= len(s.Instances) {
		return nil
	}
	if inst := s.Instances[sub]; inst.IsPhysical() {
		return inst
	}
	return nil
}

func blockInstanceName(model Model, k BlockKey) string {
	pos := k.Pos.String()
	switch m := model.(type) {
	case *Array:
		return "arr_" + pos
	case *Block:
		switch m.tile {
		case TileXChan:
			return "cb_" + pos + "_x"
		case TileYChan:
			return "cb_" + pos + "_y"
		case TileSwitch:
			return "sb_" + pos
		}
	}
	return "blk_" + pos + "_" + itoa(k.Sub)
}

// AddBlock places model, a *Block or an *Array, with its root at pos.
//
// It fails with ErrOutOfBounds if any slot of the footprint is not covered
// by a, and with ErrConflict if any of them is already used. Nothing is
// written in either case. Logic and IO blocks get one instance per unit of
// capacity, keyed BlockKey{pos, TileLogic, i}.
//
func (a *Array) AddBlock(model Model, pos Position) ([]*Instance, error) {
	count := 1
	var rootType TileType
	switch m := model.(type) {
	case *Block:
		rootType = m.tile
		if !m.IsRouting() {
			count = m.capacity
		}
	case *Array:
		if m == a {
			return nil, errors.Wrapf(ErrAPI, "array %s: cannot contain itself", a.name)
		}
		rootType = TileLogic
	default:
		return nil, errors.Wrapf(ErrAPI, "array %s: %s is not a block or an array", a.name, model.Name())
	}
	fp := footprint(model)
	for _, s := range fp {
		p := pos.Add(s.d)
		if !a.CoversTile(p, s.t) {
			return nil, errors.Wrapf(ErrOutOfBounds, "array %s: %s at %v: %v tile %v", a.name, model.Name(), pos, s.t, p)
		}
		if old := *a.slot(p, s.t); old != nil {
			return nil, errors.Wrapf(ErrConflict, "array %s: %s at %v: %v tile %v is used by the block at %v",
				a.name, model.Name(), pos, s.t, p, old.RootSlot().Position)
		}
	}
	root := &Slot{Position: pos, Type: rootType}
	for i := 0; i < count; i++ {
		k := BlockKey{Pos: pos, Type: rootType, Sub: i}
		inst := newKeyedInstance(model, k, blockInstanceName(model, k))
		if err := a.AddInstance(inst, false); err != nil {
			for _, done := range root.Instances {
				a.removeInstance(done.key)
			}
			return nil, err
		}
		root.Instances = append(root.Instances, inst)
	}
	*a.slot(pos, rootType) = root
	for _, s := range fp[1:] {
		p := pos.Add(s.d)
		*a.slot(p, s.t) = &Slot{Position: p, Type: s.t, Root: root}
	}
	return root.Instances, nil
}

// removeModel clears every slot rooted by an instance of model and removes
// those instances.
//
func (a *Array) removeModel(model Model) {
	for x := range a.tiles {
		for y := range a.tiles[x] {
			for t := range a.tiles[x][y] {
				s := a.tiles[x][y][t]
				if s == nil {
					continue
				}
				r := s.RootSlot()
				if len(r.Instances) > 0 && r.Instances[0].model == model {
					a.tiles[x][y][t] = nil
				}
			}
		}
	}
	for _, inst := range a.Instances(AllView) {
		if inst.model == model {
			a.removeInstance(inst.key)
		}
	}
}
