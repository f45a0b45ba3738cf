package prga

// A FaninPath is a physical source reaching a sink, together with the switch
// input bits selected along the way, sink side first.
//
type FaninPath struct {
	Source *Bit
	Path   []*Bit
}

// PhysicalFanin walks the physical netlist backwards from sink through
// switches and shadow pass-throughs and returns every source it reaches.
// Unconnected inputs are not reported.
//
func PhysicalFanin(sink *Bit) []FaninPath {
	type frame struct {
		bit  *Bit
		path []*Bit
	}
	var r []FaninPath
	stack := []frame{{sink, nil}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		src := f.bit.physSrc
		if src == nil {
			continue
		}
		pin, ok := src.bus.(*Pin)
		if !ok {
			r = append(r, FaninPath{src, f.path})
			continue
		}
		switch pin.inst.model.Kind() {
		case SwitchKind:
			in := pin.inst.Pin(pinI)
			if in == nil {
				r = append(r, FaninPath{src, f.path})
				continue
			}
			// reverse push so that inputs are visited in order
			for k := in.Width() - 1; k >= 0; k-- {
				b := in.bits[k]
				path := make([]*Bit, len(f.path), len(f.path)+1)
				copy(path, f.path)
				stack = append(stack, frame{b, append(path, b)})
			}
		case ShadowKind:
			in := pin.inst.Pin(pinI)
			if in == nil || src.index >= in.Width() {
				r = append(r, FaninPath{src, f.path})
				continue
			}
			stack = append(stack, frame{in.bits[src.index], f.path})
		default:
			r = append(r, FaninPath{src, f.path})
		}
	}
	return r
}
