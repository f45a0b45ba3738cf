package prga

import (
	"github.com/pkg/errors"
)

// NodePort returns the port carrying node in direction dir, or nil. Any
// equivalent of a segment node finds the same port.
//
func (m *Module) NodePort(node RoutingNode, dir Direction) *Port {
	if s, ok := node.(SegmentNode); ok {
		for _, e := range s.Equivalents() {
			if p, ok := m.nodes.get(NodeKey{canonical(e), dir}); ok {
				return p
			}
		}
		return nil
	}
	p, _ := m.nodes.get(NodeKey{node, dir})
	return p
}

// Nodes returns the non-bridge node ports in creation order.
//
func (m *Module) Nodes() []*Port {
	var r []*Port
	for _, p := range m.nodes.values() {
		if !p.bridge {
			r = append(r, p)
		}
	}
	return r
}

// Bridges returns the bridge ports in creation order.
func (m *Module) Bridges() []*Port {
	var r []*Port
	for _, p := range m.nodes.values() {
		if p.bridge {
			r = append(r, p)
		}
	}
	return r
}

// GetOrCreateNode returns the port carrying node in direction dir, creating
// it if needed. Routing blocks and arrays call it; it fails on other modules.
//
func (m *Module) GetOrCreateNode(node RoutingNode, dir Direction, bridge, logical bool) (*Port, error) {
	switch b := m.self.(type) {
	case *Array:
	case *Block:
		if !b.IsRouting() {
			return nil, errors.Wrapf(ErrAPI, "block %s: node ports need a routing block", m.name)
		}
	default:
		return nil, errors.Wrapf(ErrAPI, "module %s: node ports need a routing block or an array", m.name)
	}
	p, err := m.getOrCreateNode(node, dir, bridge, logical)
	return p, blame(err)
}

func (m *Module) getOrCreateNode(node RoutingNode, dir Direction, bridge, logical bool) (*Port, error) {
	node = canonical(node)
	if p := m.NodePort(node, dir); p != nil {
		if p.bridge != bridge {
			return nil, errors.Wrapf(ErrBridgeMismatch, "module %s: node %v: port %s", m.name, node, p.name)
		}
		if p.IsLogical() != logical {
			return nil, errors.Wrapf(ErrLogicalityMismatch, "module %s: node %v: port %s", m.name, node, p.name)
		}
		return p, nil
	}
	vis := Dual
	if !logical {
		vis = PhysicalOnly
	}
	p, err := m.AddPort(PortSpec{
		Name:       NodePortName(node, dir, bridge),
		Direction:  dir,
		Width:      node.Width(),
		Visibility: vis,
	})
	if err != nil {
		return nil, err
	}
	p.node = node
	p.bridge = bridge
	m.nodes.set(NodeKey{node, dir}, p)
	return p, nil
}
