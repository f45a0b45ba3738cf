package passes

import (
	"math"
	"strings"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/pkg/errors"
)

// Pass keys.
const (
	KeyRoutingCompletion = "completion.routing"
	KeyFinalization      = "finalization"
	KeyBitchain          = "config.circuitry.bitchain"
)

// RoutingCompletion fills every covered, empty channel and switch slot of
// the top array and its child arrays with generated connection and switch
// blocks.
//
// FcIn is the fraction of the tracks crossing a channel tile that each
// adjacent block input can be driven from; FcOut is the fraction of the
// tracks starting in the tile that each adjacent block output can drive.
// Global, clock and external block ports are never routed.
//
type RoutingCompletion struct {
	FcIn, FcOut float64
}

// Key implements flow.Pass.
func (*RoutingCompletion) Key() string { return KeyRoutingCompletion }

// Run implements flow.Pass.
func (r *RoutingCompletion) Run(ctx *prga.Context) error {
	if r.FcIn < 0 || r.FcIn > 1 || r.FcOut < 0 || r.FcOut > 1 {
		return errors.Wrapf(prga.ErrAPI, "invalid Fc values %g, %g", r.FcIn, r.FcOut)
	}
	top := ctx.Top()
	if top == nil {
		return errors.Wrap(prga.ErrAPI, "no top array")
	}
	c := &completer{
		ctx:   ctx,
		fcIn:  r.FcIn,
		fcOut: r.FcOut,
		sigs:  make(map[string]*prga.Block),
		next:  make(map[prga.TileType]int),
		done:  make(map[*prga.Array]bool),
	}
	if err := c.array(top); err != nil {
		return err
	}
	return top.AutoCompletePorts()
}

type completer struct {
	ctx         *prga.Context
	fcIn, fcOut float64
	sigs        map[string]*prga.Block
	next        map[prga.TileType]int
	done        map[*prga.Array]bool
}

func (c *completer) array(a *prga.Array) error {
	if c.done[a] {
		return nil
	}
	c.done[a] = true
	for _, inst := range a.Instances(prga.AllView) {
		if child, ok := inst.Model().(*prga.Array); ok {
			if err := c.array(child); err != nil {
				return err
			}
		}
	}
	var cbs, sbs int
	for x := -1; x < a.Width(); x++ {
		for y := -1; y < a.Height(); y++ {
			pos := prga.Position{X: x, Y: y}
			for _, t := range []prga.TileType{prga.TileXChan, prga.TileYChan} {
				if !a.CoversTile(pos, t) || a.GetBlock(pos, t) != nil {
					continue
				}
				if err := c.place(a, pos, t, c.connectionPlan(a, pos, t)); err != nil {
					return err
				}
				cbs++
			}
		}
	}
	for x := -1; x < a.Width(); x++ {
		for y := -1; y < a.Height(); y++ {
			pos := prga.Position{X: x, Y: y}
			if !a.CoversTile(pos, prga.TileSwitch) || a.GetBlock(pos, prga.TileSwitch) != nil {
				continue
			}
			if err := c.place(a, pos, prga.TileSwitch, c.switchPlan(a, pos)); err != nil {
				return err
			}
			sbs++
		}
	}
	c.ctx.Logger().V(1).Info("routing completed", "array", a.Name(), "connectionBlocks", cbs, "switchBlocks", sbs)
	return nil
}

func (c *completer) place(a *prga.Array, pos prga.Position, t prga.TileType, p *plan) error {
	b, err := c.materialize(t, p)
	if err != nil {
		return err
	}
	_, err = a.AddBlock(b, pos)
	return err
}

// materialize returns the routing block implementing p, sharing blocks
// between identical plans.
//
func (c *completer) materialize(t prga.TileType, p *plan) (*prga.Block, error) {
	sig := t.String() + "\n" + p.signature()
	if b, ok := c.sigs[sig]; ok {
		return b, nil
	}
	var prefix string
	switch t {
	case prga.TileXChan:
		prefix = "cbox_x"
	case prga.TileYChan:
		prefix = "cbox_y"
	default:
		prefix = "sbox_"
	}
	var name string
	for {
		name = prefix + itoa(c.next[t])
		c.next[t]++
		if c.ctx.Module(name) == nil {
			break
		}
	}
	b, err := c.ctx.CreateRoutingBlock(name, t)
	if err != nil {
		return nil, err
	}
	ports := make([]*prga.Port, len(p.ports))
	for i, pp := range p.ports {
		if ports[i], err = b.GetOrCreateNode(pp.node, pp.dir, pp.bridge, true); err != nil {
			return nil, errors.Wrapf(err, "block %s", name)
		}
	}
	for _, k := range p.conns {
		if err = prga.AddLogicalSources(ports[k.sink].Bit(k.sinkBit), ports[k.src].Bit(k.srcBit)); err != nil {
			return nil, errors.Wrapf(err, "block %s", name)
		}
	}
	c.sigs[sig] = b
	return b, nil
}

// wireExists reports whether a wire is implemented. In the top array both its
// first channel tile and its driver must be in the array; a child array
// assumes every wire exists and leaves the rest to its parent.
//
func wireExists(a *prga.Array, n prga.SegmentNode) bool {
	if !a.IsTop() {
		return true
	}
	f := n.Canonical()
	return a.CoversTile(f.Position, f.Dimension.Channel()) && a.CoversTile(n.DriverSwitch(), prga.TileSwitch)
}

// fcCount returns the number of connections out of n a pin gets for fc.
func fcCount(fc float64, n int) int {
	k := int(math.Ceil(fc*float64(n) - 1e-9))
	if k > n {
		k = n
	}
	if k < 0 {
		k = 0
	}
	return k
}

type track struct {
	node prga.SegmentNode // relative to the routing block
	bit  int
}

type adjacency struct {
	tile prga.Position
	side prga.Side
}

// connectionPlan plans the connection block of channel tile pos.
//
// Block inputs facing the channel pick ceil(FcIn*N) of the N tracks crossing
// the tile, evenly spread and rotated by one track per pin bit; outputs
// likewise pick among the tracks starting in the tile and reach them through
// bridges to the switch block driving them.
//
func (c *completer) connectionPlan(a *prga.Array, pos prga.Position, t prga.TileType) *plan {
	dim := prga.Horizontal
	adj := []adjacency{{pos, prga.Top}, {pos.Add(prga.Position{X: 0, Y: 1}), prga.Bottom}}
	if t == prga.TileYChan {
		dim = prga.Vertical
		adj = []adjacency{{pos, prga.Right}, {pos.Add(prga.Position{X: 1, Y: 0}), prga.Left}}
	}
	origin := pos.Scale(-1)

	var tracks, starts []track
	for _, proto := range c.ctx.Segments() {
		for _, dir := range []prga.SegDirection{prga.Inc, prga.Dec} {
			for s := 0; s < proto.Length(); s++ {
				g := prga.SegmentNode{Position: pos, Section: s, Prototype: proto, Dimension: dim, Direction: dir}
				if !wireExists(a, g) {
					continue
				}
				rel := g.Shift(origin).(prga.SegmentNode)
				for k := 0; k < proto.Width(); k++ {
					tracks = append(tracks, track{rel, k})
					if s == 0 {
						starts = append(starts, track{rel, k})
					}
				}
			}
		}
	}

	p := newPlan()
	var inOffset, outOffset int
	for _, ad := range adj {
		slot := a.GetBlock(ad.tile, prga.TileLogic)
		if slot == nil {
			continue
		}
		root := slot.RootSlot()
		// Blocks nested in a child array are not reached: the child does not
		// export their pins as boundary nodes, so they stay unrouted here.
		for sub, inst := range root.Instances {
			blk, ok := inst.Model().(*prga.Block)
			if !ok || !inst.IsLogical() {
				continue
			}
			for _, port := range blk.Ports(prga.LogicalView) {
				if port.Side() != ad.side || root.Position.Add(port.Offset()) != ad.tile {
					continue
				}
				if port.Global() != "" || port.IsClock() || port.IsExternal() || !port.IsPhysical() {
					continue
				}
				node := prga.BlockPinNode{Position: root.Position.Add(origin), Subblock: sub, Port: port}
				if port.Direction() == prga.Input {
					n := fcCount(c.fcIn, len(tracks))
					if n == 0 {
						continue
					}
					out := p.port(node, prga.Output, false)
					for b := 0; b < port.Width(); b++ {
						for i := 0; i < n; i++ {
							tr := tracks[(inOffset+i*len(tracks)/n)%len(tracks)]
							p.connect(out, b, p.port(tr.node, prga.Input, false), tr.bit)
						}
						inOffset++
					}
					continue
				}
				n := fcCount(c.fcOut, len(starts))
				if n == 0 {
					continue
				}
				in := p.port(node, prga.Input, false)
				for b := 0; b < port.Width(); b++ {
					for i := 0; i < n; i++ {
						tr := starts[(outOffset+i*len(starts)/n)%len(starts)]
						p.connect(p.port(tr.node, prga.Output, true), tr.bit, in, b)
					}
					outOffset++
				}
			}
		}
	}
	return p
}

// heading is the travel direction of a wire.
type heading int

const (
	east heading = iota
	west
	north
	south
)

var headings = [...]struct {
	dim prga.Dimension
	dir prga.SegDirection
}{
	east:  {prga.Horizontal, prga.Inc},
	west:  {prga.Horizontal, prga.Dec},
	north: {prga.Vertical, prga.Inc},
	south: {prga.Vertical, prga.Dec},
}

func (h heading) opposite() heading { return h ^ 1 }

type turn int

const (
	straight turn = iota
	left
	right
)

func turnOf(in, out heading) turn {
	switch {
	case in == out:
		return straight
	case in == east && out == north, in == north && out == west,
		in == west && out == south, in == south && out == east:
		return left
	}
	return right
}

// pick returns the incoming track feeding outgoing track t.
func (k turn) pick(t, width int) int {
	switch k {
	case left:
		return (t + 1) % width
	case right:
		return (width - t%width) % width
	}
	return t % width
}

// startAt returns the first section of the wire with heading h driven by the
// switch at s.
//
func startAt(s prga.Position, h heading, proto *prga.Segment) prga.SegmentNode {
	pos := s
	switch h {
	case east:
		pos.X++
	case north:
		pos.Y++
	}
	return prga.SegmentNode{Position: pos, Prototype: proto, Dimension: headings[h].dim, Direction: headings[h].dir}
}

// endAt returns the first section of the wire with heading h ending at the
// switch at s.
//
func endAt(s prga.Position, h heading, proto *prga.Segment) prga.SegmentNode {
	l := proto.Length()
	pos := s
	switch h {
	case east:
		pos.X -= l - 1
	case west:
		pos.X += l
	case north:
		pos.Y -= l - 1
	case south:
		pos.Y += l
	}
	return prga.SegmentNode{Position: pos, Prototype: proto, Dimension: headings[h].dim, Direction: headings[h].dir}
}

// switchPlan plans the switch block at pos: every track of every wire it
// drives takes one track of each wire ending there from the three other
// sides, Wilton style, plus the bridge from the connection block of the
// wire's first tile.
//
func (c *completer) switchPlan(a *prga.Array, pos prga.Position) *plan {
	p := newPlan()
	origin := pos.Scale(-1)
	for _, proto := range c.ctx.Segments() {
		for out := east; out <= south; out++ {
			g := startAt(pos, out, proto)
			if !wireExists(a, g) {
				continue
			}
			bridge := hasBridge(a, g)
			outPort := -1
			for t := 0; t < proto.Width(); t++ {
				type src struct {
					node   prga.SegmentNode
					bit    int
					bridge bool
				}
				var srcs []src
				for in := east; in <= south; in++ {
					if in == out.opposite() {
						continue
					}
					for _, pIn := range c.ctx.Segments() {
						e := endAt(pos, in, pIn)
						if !wireExists(a, e) {
							continue
						}
						srcs = append(srcs, src{e.Shift(origin).(prga.SegmentNode), turnOf(in, out).pick(t, pIn.Width()), false})
					}
				}
				if bridge {
					srcs = append(srcs, src{g.Shift(origin).(prga.SegmentNode), t, true})
				}
				if len(srcs) == 0 {
					continue
				}
				if outPort < 0 {
					outPort = p.port(g.Shift(origin), prga.Output, false)
				}
				for _, s := range srcs {
					p.connect(outPort, t, p.port(s.node, prga.Input, s.bridge), s.bit)
				}
			}
		}
	}
	return p
}

// hasBridge reports whether the connection block of the first tile of g
// exposes a bridge for it.
//
func hasBridge(a *prga.Array, g prga.SegmentNode) bool {
	f := g.Canonical()
	s := a.GetBlock(f.Position, f.Dimension.Channel())
	if s == nil || s.IsPlaceholder() || len(s.Instances) == 0 {
		return false
	}
	b, ok := s.Instances[0].Model().(*prga.Block)
	if !ok {
		return false
	}
	port := b.NodePort(f.Shift(f.Position.Scale(-1)), prga.Output)
	return port != nil && port.IsBridge()
}

// A plan lists the node ports and connections of a routing block before it
// is built, so that identical blocks can be shared.
//
type plan struct {
	ports []planPort
	index map[string]int
	conns []planConn
}

type planPort struct {
	name   string
	node   prga.RoutingNode
	dir    prga.Direction
	bridge bool
}

type planConn struct {
	sink, sinkBit int
	src, srcBit   int
}

func newPlan() *plan { return &plan{index: make(map[string]int)} }

func (p *plan) port(node prga.RoutingNode, dir prga.Direction, bridge bool) int {
	name := prga.NodePortName(node, dir, bridge)
	if i, ok := p.index[name]; ok {
		return i
	}
	p.index[name] = len(p.ports)
	p.ports = append(p.ports, planPort{name, node, dir, bridge})
	return len(p.ports) - 1
}

func (p *plan) connect(sink, sinkBit, src, srcBit int) {
	p.conns = append(p.conns, planConn{sink, sinkBit, src, srcBit})
}

func (p *plan) signature() string {
	var b strings.Builder
	for _, pp := range p.ports {
		b.WriteString(pp.name)
		b.WriteByte('\n')
	}
	for _, k := range p.conns {
		b.WriteString(itoa(k.sink))
		b.WriteByte('.')
		b.WriteString(itoa(k.sinkBit))
		b.WriteByte('<')
		b.WriteString(itoa(k.src))
		b.WriteByte('.')
		b.WriteString(itoa(k.srcBit))
		b.WriteByte(';')
	}
	return b.String()
}
