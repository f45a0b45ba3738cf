// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package prga

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// MakePrimitive creates a custom primitive whose ports are described by the
// tagged fields of the struct v points to. The primitive is named after the
// struct type, in lower case.
//
// The field tag must be `prga:"in"`, `prga:"out"`, `prga:"clock"` or
// `prga:"cfg"`. By default, the port name is the field name in lowercase. A
// specific name can be forced by adding it in the tag: `prga:"in,port_name"`.
// A clock field makes the inputs and outputs that follow it sequential to
// that clock. cfg fields are physical-only configuration inputs.
//
// Single bit ports are bool fields, buses are arrays of bool.
//
func (ctx *Context) MakePrimitive(v any) (*Module, error) {
	typ := reflect.TypeOf(v)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, errors.Wrapf(ErrAPI, "unsupported type %v", typ)
	}

	var specs []PortSpec
	var clock string
	n := typ.NumField()
	for i := 0; i < n; i++ {
		f := typ.Field(i)
		tag, ok := f.Tag.Lookup("prga")
		if !ok {
			continue
		}
		tv := strings.Split(tag, ",")
		s := PortSpec{Name: strings.ToLower(f.Name)}
		if len(tv) > 1 && tv[1] != "" {
			s.Name = tv[1]
		}

		ft := f.Type
		switch {
		case ft.Kind() == reflect.Bool:
			s.Width = 1
		case ft.Kind() == reflect.Array && ft.Elem().Kind() == reflect.Bool:
			s.Width = ft.Len()
		default:
			return nil, errors.Wrapf(ErrAPI, "unsupported type %q for field %q in %q", ft.Kind(), f.Name, typ.Name())
		}

		switch tv[0] {
		case "in":
			s.Direction, s.Clock = Input, clock
		case "out":
			s.Direction, s.Clock = Output, clock
		case "clock":
			if s.Width != 1 {
				return nil, errors.Wrapf(ErrAPI, "clock field %q in %q must be a single bit", f.Name, typ.Name())
			}
			s.Direction, s.IsClock = Input, true
			clock = s.Name
		case "cfg":
			s.Direction, s.Visibility = Input, PhysicalOnly
		default:
			return nil, errors.Wrapf(ErrAPI, "unsupported tag %q for field %q in %q", tag, f.Name, typ.Name())
		}
		specs = append(specs, s)
	}

	m, err := ctx.CreatePrimitive(strings.ToLower(typ.Name()), Dual)
	if err != nil {
		return nil, err
	}
	for _, s := range specs {
		if _, err = m.AddPort(s); err != nil {
			ctx.modules.remove(m.name)
			return nil, err
		}
	}
	return m, nil
}
