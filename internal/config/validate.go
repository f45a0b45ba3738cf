package config

import (
	"github.com/pkg/errors"
)

// Validate checks the description for errors that do not need a context:
// missing or duplicate names, invalid enumerations, sizes and Fc values.
//
func (c *Config) Validate() error {
	segs := make(map[string]bool)
	for i, s := range c.Segments {
		if s.Name == "" || segs[s.Name] {
			return errors.Errorf("segment %d: missing or duplicate name %q", i, s.Name)
		}
		segs[s.Name] = true
		if s.Width < 1 || s.Length < 1 {
			return errors.Errorf("segment %s: invalid width %d or length %d", s.Name, s.Width, s.Length)
		}
	}
	globals := make(map[string]bool)
	for i, g := range c.Globals {
		if g.Name == "" || globals[g.Name] {
			return errors.Errorf("global %d: missing or duplicate name %q", i, g.Name)
		}
		globals[g.Name] = true
		if g.Width < 0 {
			return errors.Errorf("global %s: invalid width %d", g.Name, g.Width)
		}
	}

	models := make(map[string]bool)
	model := func(what, name string) error {
		if name == "" {
			return errors.Errorf("%s with no name", what)
		}
		if models[name] {
			return errors.Errorf("%s %s: duplicate model name", what, name)
		}
		models[name] = true
		return nil
	}
	for _, p := range c.Primitives {
		if err := model("primitive", p.Name); err != nil {
			return err
		}
		if _, err := visibility(p.Visibility); err != nil {
			return errors.Wrapf(err, "primitive %s", p.Name)
		}
		if err := validatePorts(p.Ports, globals); err != nil {
			return errors.Wrapf(err, "primitive %s", p.Name)
		}
	}
	for _, s := range c.Slices {
		if err := model("slice", s.Name); err != nil {
			return err
		}
		if err := validatePorts(s.Ports, globals); err != nil {
			return errors.Wrapf(err, "slice %s", s.Name)
		}
		if err := validateBody(s.Instances, s.Connections); err != nil {
			return errors.Wrapf(err, "slice %s", s.Name)
		}
	}
	for _, b := range c.Blocks {
		if err := model("block", b.Name); err != nil {
			return err
		}
		if _, err := blockType(b.Type); err != nil {
			return errors.Wrapf(err, "block %s", b.Name)
		}
		if _, err := padType(b.Pad); err != nil {
			return errors.Wrapf(err, "block %s", b.Name)
		}
		if b.Width < 0 || b.Height < 0 || b.Capacity < 0 {
			return errors.Errorf("block %s: negative size or capacity", b.Name)
		}
		if err := validatePorts(b.Ports, globals); err != nil {
			return errors.Wrapf(err, "block %s", b.Name)
		}
		if err := validateBody(b.Instances, b.Connections); err != nil {
			return errors.Wrapf(err, "block %s", b.Name)
		}
	}
	arrays := make(map[string]bool)
	for _, a := range c.Arrays {
		if err := model("array", a.Name); err != nil {
			return err
		}
		arrays[a.Name] = true
		if a.Width < 1 || a.Height < 1 {
			return errors.Errorf("array %s: invalid size %dx%d", a.Name, a.Width, a.Height)
		}
		for i, p := range a.Placements {
			if p.Model == "" {
				return errors.Errorf("array %s: placement %d: no model", a.Name, i)
			}
			if p.NX < 0 || p.NY < 0 || p.DX < 0 || p.DY < 0 {
				return errors.Errorf("array %s: placement %d: negative repeat", a.Name, i)
			}
		}
	}
	if c.Top != "" && !arrays[c.Top] {
		return errors.Errorf("top %s is not an array", c.Top)
	}
	for _, g := range c.Globals {
		if g.Bind != nil && c.Top == "" {
			return errors.Errorf("global %s: bound without a top array", g.Name)
		}
	}
	if f := c.Routing.FcIn; f < 0 || f > 1 {
		return errors.Errorf("routing: fc_in %g out of [0, 1]", f)
	}
	if f := c.Routing.FcOut; f < 0 || f > 1 {
		return errors.Errorf("routing: fc_out %g out of [0, 1]", f)
	}
	return nil
}

func validatePorts(ports []Port, globals map[string]bool) error {
	seen := make(map[string]bool)
	for i, p := range ports {
		if p.Name == "" || seen[p.Name] {
			return errors.Errorf("port %d: missing or duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if _, err := direction(p.Dir); err != nil {
			return errors.Wrapf(err, "port %s", p.Name)
		}
		if _, err := visibility(p.Visibility); err != nil {
			return errors.Wrapf(err, "port %s", p.Name)
		}
		if _, err := side(p.Side); err != nil {
			return errors.Wrapf(err, "port %s", p.Name)
		}
		if p.Width < 0 {
			return errors.Errorf("port %s: invalid width %d", p.Name, p.Width)
		}
		if p.Global != "" && !globals[p.Global] {
			return errors.Errorf("port %s: undefined global %s", p.Name, p.Global)
		}
	}
	return nil
}

func validateBody(insts []Instance, conns []Connection) error {
	seen := make(map[string]bool)
	for i, inst := range insts {
		if inst.Name == "" || seen[inst.Name] {
			return errors.Errorf("instance %d: missing or duplicate name %q", i, inst.Name)
		}
		seen[inst.Name] = true
		if inst.Model == "" {
			return errors.Errorf("instance %s: no model", inst.Name)
		}
	}
	for i, c := range conns {
		if c.From == "" || c.To == "" {
			return errors.Errorf("connection %d: missing end", i)
		}
	}
	return nil
}
