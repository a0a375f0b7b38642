package stdlib

import (
	"sort"
	"strings"

	"github.com/minio/highwayhash"

	"github.com/bpowers/sdsim/internal/model"
)

// instanceKey is a fixed 32-byte key feeding highwayhash's 64-bit mode,
// used here to key the module-instantiation cache.
var instanceKey = []byte("sdsim-module-instantiation-key!!")

// Instance identifies one distinct (model_name, input_set) compilation unit,
// per spec.md §3.4.
type Instance struct {
	ModelName string
	InputSet  []string // sorted, canonical dst port names bound at this call site
}

// CacheKey returns a 64-bit digest of the instance identity, used as the
// compiled-module cache key. Structural equality (ModelName + InputSet) is
// still authoritative; this is only a fast pre-check against accidental
// duplicate compilation.
func (i Instance) CacheKey() (uint64, error) {
	h, err := highwayhash.New64(instanceKey)
	if err != nil {
		return 0, err
	}
	h.Write([]byte(i.ModelName))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(i.InputSet, ",")))
	return h.Sum64(), nil
}

// Enumerate walks every Module variable reachable from root (transitively,
// through sub-models it in turn instantiates) and returns the set of
// distinct (model_name, input_set) pairs that must be compiled, per spec.md
// §4.6's last paragraph. lookupModel resolves a model name (user model or
// stdlib name) to its variable list so Module variables nested inside
// sub-models are followed too.
func Enumerate(root model.Model, lookupModel func(name string) (model.Model, bool)) []Instance {
	seen := make(map[string]bool)
	var out []Instance

	var walk func(m model.Model)
	walk = func(m model.Model) {
		for _, v := range m.Variables {
			if v.Kind != model.KindModule {
				continue
			}
			ports := make([]string, 0, len(v.Bindings))
			for _, b := range v.Bindings {
				ports = append(ports, b.Dst)
			}
			sort.Strings(ports)
			inst := Instance{ModelName: v.ModelName, InputSet: ports}
			key := inst.ModelName + "|" + strings.Join(inst.InputSet, ",")
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, inst)

			if sub, ok := lookupModel(v.ModelName); ok {
				walk(sub)
			}
		}
	}
	walk(root)

	sort.Slice(out, func(i, j int) bool {
		if out[i].ModelName != out[j].ModelName {
			return out[i].ModelName < out[j].ModelName
		}
		return strings.Join(out[i].InputSet, ",") < strings.Join(out[j].InputSet, ",")
	})
	return out
}
