package problems

import (
	"fmt"
	"sort"
)

// Registry maps problem names to constructors.
type Registry struct {
	problems map[string]func() Problem
}

func NewRegistry() *Registry {
	r := &Registry{problems: make(map[string]func() Problem)}

	r.problems["decay"] = func() Problem { return NewDecay(-1) }
	r.problems["stiff-decay"] = func() Problem { return NewDecay(-1e4) }
	r.problems["oscillator"] = func() Problem { return NewOscillator() }
	r.problems["vanderpol"] = func() Problem { return NewVanDerPol(1) }
	r.problems["stiff-vanderpol"] = func() Problem { return NewVanDerPol(500) }
	r.problems["robertson"] = func() Problem { return NewRobertson() }
	r.problems["brusselator"] = func() Problem { return NewBrusselator() }
	r.problems["chain"] = func() Problem { return NewChain(16) }

	return r
}

func (r *Registry) Get(name string) (Problem, error) {
	fn, ok := r.problems[name]
	if !ok {
		return nil, fmt.Errorf("unknown problem: %s", name)
	}
	return fn(), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.problems))
	for name := range r.problems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
