// Package config reads architecture descriptions written in YAML and builds
// them into a prga.Context.
//
// A description lists segment prototypes, globals, custom primitives, slices,
// logic and IO blocks, arrays and the routing Fc values:
//
//	segments:
//	  - {name: L1, width: 4, length: 1}
//	globals:
//	  - {name: clk, clock: true}
//	blocks:
//	  - name: clb
//	    ports:
//	      - {name: in, dir: input, width: 4, side: bottom}
//	      - {name: out, dir: output, side: right}
//	      - {name: clk, dir: input, clock: true, global: clk}
//	    instances:
//	      - {name: lut, model: lut4}
//	    connections:
//	      - {from: in, to: lut.in}
//	      - {from: lut.out, to: out}
//	arrays:
//	  - name: top
//	    width: 4
//	    height: 4
//	    placements:
//	      - {model: clb, x: 1, y: 1, nx: 2, ny: 2}
//	top: top
//	routing: {fc_in: 0.25, fc_out: 0.5}
//
// Models referenced by instances and placements are either described earlier
// in the file or built-in models such as lut4, flipflop or iopad.
//
package config

import (
	"bytes"
	_ "embed"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is an architecture description.
type Config struct {
	Segments   []Segment   `yaml:"segments"`
	Globals    []Global    `yaml:"globals"`
	Primitives []Primitive `yaml:"primitives"`
	Slices     []Slice     `yaml:"slices"`
	Blocks     []Block     `yaml:"blocks"`
	Arrays     []Array     `yaml:"arrays"`
	Top        string      `yaml:"top"`
	Routing    Routing     `yaml:"routing"`
}

// Segment describes a wire segment prototype.
type Segment struct {
	Name   string `yaml:"name"`
	Width  int    `yaml:"width"`
	Length int    `yaml:"length"`
}

// Global describes a global wire, optionally bound to an IO slot of the top
// array.
type Global struct {
	Name  string    `yaml:"name"`
	Width int       `yaml:"width"`
	Clock bool      `yaml:"clock"`
	Bind  *Location `yaml:"bind"`
}

// Location is a tile position, with a sub-block index for IO tiles.
type Location struct {
	X   int `yaml:"x"`
	Y   int `yaml:"y"`
	Sub int `yaml:"sub"`
}

// Port describes a module port.
type Port struct {
	Name       string    `yaml:"name"`
	Dir        string    `yaml:"dir"` // input or output
	Width      int       `yaml:"width"`
	Visibility string    `yaml:"visibility"` // dual (default), logical or physical
	Clock      bool      `yaml:"clock"`
	ClockedBy  string    `yaml:"clocked_by"`
	Global     string    `yaml:"global"`
	Class      string    `yaml:"class"`
	Side       string    `yaml:"side"`
	Offset     *Location `yaml:"offset"`
}

// Instance describes an instance of a model.
type Instance struct {
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
}

// Connection connects the nets From to the nets To. Both are net references
// such as "lut.in[3:0]" or "{ff.Q, lut.out}".
//
type Connection struct {
	From           string `yaml:"from"`
	To             string `yaml:"to"`
	FullyConnected bool   `yaml:"fully_connected"`
	PackPattern    bool   `yaml:"pack_pattern"`
}

// Primitive describes a custom leaf primitive.
type Primitive struct {
	Name       string `yaml:"name"`
	Visibility string `yaml:"visibility"`
	Ports      []Port `yaml:"ports"`
}

// Slice describes a slice.
type Slice struct {
	Name        string       `yaml:"name"`
	Ports       []Port       `yaml:"ports"`
	Instances   []Instance   `yaml:"instances"`
	Connections []Connection `yaml:"connections"`
}

// Block describes a logic or IO block.
type Block struct {
	Name        string       `yaml:"name"`
	Type        string       `yaml:"type"` // logic (default) or io
	Width       int          `yaml:"width"`
	Height      int          `yaml:"height"`
	Capacity    int          `yaml:"capacity"`
	Pad         string       `yaml:"pad"` // inpad, outpad or iopad (default)
	Ports       []Port       `yaml:"ports"`
	Instances   []Instance   `yaml:"instances"`
	Connections []Connection `yaml:"connections"`
}

// Coverage lists the covered outer channels of an array.
type Coverage struct {
	Top    bool `yaml:"top"`
	Right  bool `yaml:"right"`
	Bottom bool `yaml:"bottom"`
	Left   bool `yaml:"left"`
}

// Placement places a block or an array at X, Y. With NX or NY greater than
// one, the model is repeated over a rectangle with steps DX and DY, which
// default to the model size.
//
type Placement struct {
	Model string `yaml:"model"`
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
	NX    int    `yaml:"nx"`
	NY    int    `yaml:"ny"`
	DX    int    `yaml:"dx"`
	DY    int    `yaml:"dy"`
}

// Array describes an array.
type Array struct {
	Name       string      `yaml:"name"`
	Width      int         `yaml:"width"`
	Height     int         `yaml:"height"`
	Coverage   Coverage    `yaml:"coverage"`
	Placements []Placement `yaml:"placements"`
}

// Routing holds the routing completion parameters.
type Routing struct {
	FcIn  float64 `yaml:"fc_in"`
	FcOut float64 `yaml:"fc_out"`
}

//go:embed default.yaml
var defaultArch []byte

// Default returns the built-in demo architecture.
//
func Default() *Config {
	c, err := Parse(bytes.NewReader(defaultArch))
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads the description in file name.
//
func Load(name string) (*Config, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "load architecture")
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	return c, nil
}

// Parse reads and validates a description.
//
func Parse(r io.Reader) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
