package prga

// orderedMap is a map that remembers insertion order.
type orderedMap[K comparable, V any] struct {
	keys []K
	m    map[K]V
}

func (o *orderedMap[K, V]) get(k K) (V, bool) {
	v, ok := o.m[k]
	return v, ok
}

// set inserts or replaces the value for k. Replaced entries keep their rank.
func (o *orderedMap[K, V]) set(k K, v V) {
	if o.m == nil {
		o.m = make(map[K]V)
	}
	if _, ok := o.m[k]; !ok {
		o.keys = append(o.keys, k)
	}
	o.m[k] = v
}

func (o *orderedMap[K, V]) remove(k K) {
	if _, ok := o.m[k]; !ok {
		return
	}
	delete(o.m, k)
	for i, kk := range o.keys {
		if kk == k {
			o.keys = append(o.keys[:i:i], o.keys[i+1:]...)
			break
		}
	}
}

func (o *orderedMap[K, V]) len() int { return len(o.keys) }

func (o *orderedMap[K, V]) values() []V {
	r := make([]V, 0, len(o.keys))
	for _, k := range o.keys {
		r = append(r, o.m[k])
	}
	return r
}

// reorder replaces the key order. keys must be a permutation of the current keys.
func (o *orderedMap[K, V]) reorder(keys []K) bool {
	if len(keys) != len(o.keys) {
		return false
	}
	seen := make(map[K]bool, len(keys))
	for _, k := range keys {
		if _, ok := o.m[k]; !ok || seen[k] {
			return false
		}
		seen[k] = true
	}
	o.keys = append(o.keys[:0:0], keys...)
	return true
}

// Ext holds auxiliary data attached to an entity by passes and emitters.
//
type Ext map[string]any

// Int returns the integer stored under key.
func (e Ext) Int(key string) (int, bool) {
	v, ok := e[key].(int)
	return v, ok
}

// Well-known extension keys.
const (
	ExtCfgBits                    = "cfg_bits"
	ExtCfgOffset                  = "cfg_offset"
	ExtCfgExtioOEOffset           = "cfg_extio_oe_offset"
	ExtVerilogTemplate            = "verilog_template"
	ExtVerilogTemplateSearchPaths = "verilog_template_search_paths"
)
