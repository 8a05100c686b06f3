package engine

// GlobalParameters is the list of named scalars a force shares across all
// particles. The list is ordered; lookups scan it by name.
type GlobalParameters struct {
	names    []string
	defaults []float64
}

// AddGlobalParameter appends a parameter and returns its index.
func (g *GlobalParameters) AddGlobalParameter(name string, value float64) int {
	g.names = append(g.names, name)
	g.defaults = append(g.defaults, value)
	return len(g.names) - 1
}

func (g *GlobalParameters) NumGlobalParameters() int { return len(g.names) }

func (g *GlobalParameters) GlobalParameterName(i int) string { return g.names[i] }

func (g *GlobalParameters) GlobalParameterDefault(i int) float64 { return g.defaults[i] }

func (g *GlobalParameters) SetGlobalParameterDefault(i int, value float64) {
	g.defaults[i] = value
}

// GlobalParameter returns the default value of the named parameter.
func (g *GlobalParameters) GlobalParameter(name string) (float64, bool) {
	for i, n := range g.names {
		if n == name {
			return g.defaults[i], true
		}
	}
	return 0, false
}

// GlobalParameterMap returns a name to value copy of the list.
func (g *GlobalParameters) GlobalParameterMap() map[string]float64 {
	out := make(map[string]float64, len(g.names))
	for i, n := range g.names {
		out[n] = g.defaults[i]
	}
	return out
}

// GlobalParameterized is implemented by every force that carries global
// parameters.
type GlobalParameterized interface {
	Force
	NumGlobalParameters() int
	GlobalParameterName(i int) string
	GlobalParameterDefault(i int) float64
	SetGlobalParameterDefault(i int, value float64)
}
