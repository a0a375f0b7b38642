package stdlib

import (
	"testing"

	"github.com/bpowers/sdsim/internal/model"
)

func TestEnumerateDedupesIdenticalInputSets(t *testing.T) {
	root := model.Model{
		Name: "main",
		Variables: []model.Variable{
			{Name: "m1", Kind: model.KindModule, ModelName: "stdlib⁚smth1", Bindings: []model.InputBinding{
				{Dst: "input", Src: "a"}, {Dst: "delay_time", Src: "b"},
			}},
			{Name: "m2", Kind: model.KindModule, ModelName: "stdlib⁚smth1", Bindings: []model.InputBinding{
				{Dst: "delay_time", Src: "c"}, {Dst: "input", Src: "d"},
			}},
		},
	}
	instances := Enumerate(root, func(string) (model.Model, bool) { return model.Model{}, false })
	if len(instances) != 1 {
		t.Fatalf("expected 1 deduplicated instance, got %d: %#v", len(instances), instances)
	}
}

func TestEnumerateDistinguishesInputSets(t *testing.T) {
	root := model.Model{
		Name: "main",
		Variables: []model.Variable{
			{Name: "m1", Kind: model.KindModule, ModelName: "stdlib⁚smth1", Bindings: []model.InputBinding{
				{Dst: "input", Src: "a"},
			}},
			{Name: "m2", Kind: model.KindModule, ModelName: "stdlib⁚smth1", Bindings: []model.InputBinding{
				{Dst: "input", Src: "a"}, {Dst: "initial", Src: "z"},
			}},
		},
	}
	instances := Enumerate(root, func(string) (model.Model, bool) { return model.Model{}, false })
	if len(instances) != 2 {
		t.Fatalf("expected 2 distinct instances, got %d: %#v", len(instances), instances)
	}
}

func TestCacheKeyDistinguishesInstances(t *testing.T) {
	a := Instance{ModelName: "stdlib⁚smth1", InputSet: []string{"input"}}
	b := Instance{ModelName: "stdlib⁚smth1", InputSet: []string{"input", "initial"}}
	ka, err := a.CacheKey()
	if err != nil {
		t.Fatal(err)
	}
	kb, err := b.CacheKey()
	if err != nil {
		t.Fatal(err)
	}
	if ka == kb {
		t.Errorf("expected distinct cache keys, both %d", ka)
	}
}
