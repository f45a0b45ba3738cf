package passes

import (
	"sort"
	"strings"

	prga "github.com/PrincetonUniversity/prga-sub001"
	"github.com/pkg/errors"
)

// A ConfigField is a range of the bitstream of an array: Width bits starting
// at Offset configure the leaf instance at Path.
//
type ConfigField struct {
	Path   string `yaml:"path"`
	Model  string `yaml:"model"`
	Offset int    `yaml:"offset"`
	Width  int    `yaml:"width"`
}

// ConfigMap lists the configuration fields of a module after Bitchain ran,
// sorted by offset. Paths are instance names joined by dots; an IO block
// output enable is reported as "<block path>.extio_oe".
//
func ConfigMap(m prga.Model) ([]ConfigField, error) {
	if _, ok := m.Ext().Int(prga.ExtCfgBits); !ok {
		return nil, errors.Wrapf(prga.ErrFlow, "module %s: no configuration chain", m.Name())
	}
	var r []ConfigField
	var walk func(m prga.Model, path []string, base int)
	walk = func(m prga.Model, path []string, base int) {
		for _, inst := range m.Instances(prga.PhysicalView) {
			off, ok := inst.Ext().Int(prga.ExtCfgOffset)
			if !ok {
				continue
			}
			p := append(path[:len(path):len(path)], inst.Name())
			model := inst.Model()
			if model.IsLeaf() {
				n, _ := model.Ext().Int(prga.ExtCfgBits)
				r = append(r, ConfigField{strings.Join(p, "."), model.Name(), base + off, n})
				continue
			}
			walk(model, p, base+off)
		}
		if off, ok := m.Ext().Int(prga.ExtCfgExtioOEOffset); ok {
			p := append(path[:len(path):len(path)], "extio_oe")
			r = append(r, ConfigField{strings.Join(p, "."), m.Name(), base + off, 1})
		}
	}
	walk(m, nil, 0)
	sort.Slice(r, func(i, j int) bool { return r[i].Offset < r[j].Offset })
	return r, nil
}
