package reference

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/san-kum/ionsim/internal/engine"
)

// tablePoints is the number of radial grid points per parameter pair.
const tablePoints = 20000

// table is a pair energy and its radial derivative on a uniform grid.
type table struct {
	r0, dr float64
	e, de  []float64
}

// eval interpolates linearly; separations below the grid clamp to the
// first point.
func (t *table) eval(r float64) (float64, float64) {
	x := (r - t.r0) / t.dr
	if x <= 0 {
		return t.e[0], t.de[0]
	}
	k := int(x)
	if k >= len(t.e)-1 {
		n := len(t.e) - 1
		return t.e[n], t.de[n]
	}
	w := x - float64(k)
	return t.e[k]*(1-w) + t.e[k+1]*w, t.de[k]*(1-w) + t.de[k+1]*w
}

// customTables maps every particle to a parameter class and holds one table
// per unordered class pair.
type customTables struct {
	cutoff2    float64
	exclusions pairSet
	classOf    []int
	tables     [][]*table
}

func (ct *customTables) lookup(i, j int) *table {
	return ct.tables[ct.classOf[i]][ct.classOf[j]]
}

// expressionFuncs are the functions available inside energy expressions.
var expressionFuncs = map[string]any{
	"exp":  math.Exp,
	"sqrt": math.Sqrt,
	"log":  math.Log,
	"erfc": math.Erfc,
	"erf":  math.Erf,
	"step": func(x float64) float64 {
		if x >= 0 {
			return 1
		}
		return 0
	},
}

// CompileEnergy compiles an energy expression for a force declaring the
// given per-particle and global parameter names.
func CompileEnergy(energy string, perParticle []string, globals map[string]float64) (*vm.Program, map[string]any, error) {
	env := make(map[string]any, len(expressionFuncs)+2*len(perParticle)+len(globals)+1)
	for name, fn := range expressionFuncs {
		env[name] = fn
	}
	for name, v := range globals {
		env[name] = v
	}
	for _, p := range perParticle {
		env[p+"1"] = 0.0
		env[p+"2"] = 0.0
	}
	env["r"] = 1.0
	prog, err := expr.Compile(energy, expr.Env(env), expr.AsFloat64())
	if err != nil {
		return nil, nil, err
	}
	return prog, env, nil
}

func buildCustomTables(f *engine.CustomNonbondedForce) (*customTables, error) {
	names := make([]string, f.NumPerParticleParameters())
	for k := range names {
		names[k] = f.PerParticleParameterName(k)
	}
	prog, env, err := CompileEnergy(f.Energy, names, f.GlobalParameterMap())
	if err != nil {
		return nil, &engine.ConfigurationError{Force: f.Name(), Reason: fmt.Sprintf("energy expression %q: %v", f.Energy, err)}
	}

	ct := &customTables{
		cutoff2:    f.Cutoff * f.Cutoff,
		exclusions: snapshotExclusions(f),
		classOf:    make([]int, f.NumParticles()),
	}
	var classes [][]float64
	index := make(map[string]int)
	for i := 0; i < f.NumParticles(); i++ {
		p := f.ParticleParameters(i)
		key := paramKey(p)
		c, ok := index[key]
		if !ok {
			c = len(classes)
			index[key] = c
			classes = append(classes, p)
		}
		ct.classOf[i] = c
	}

	ct.tables = make([][]*table, len(classes))
	for a := range classes {
		ct.tables[a] = make([]*table, len(classes))
	}
	for a := range classes {
		for b := a; b < len(classes); b++ {
			for k, name := range names {
				env[name+"1"] = classes[a][k]
				env[name+"2"] = classes[b][k]
			}
			t, err := tabulate(prog, env, f.Cutoff)
			if err != nil {
				return nil, &engine.ConfigurationError{Force: f.Name(), Reason: fmt.Sprintf("evaluate %q: %v", f.Energy, err)}
			}
			ct.tables[a][b] = t
			ct.tables[b][a] = t
		}
	}
	return ct, nil
}

func tabulate(prog *vm.Program, env map[string]any, cutoff float64) (*table, error) {
	dr := cutoff / tablePoints
	t := &table{
		r0: dr,
		dr: dr,
		e:  make([]float64, tablePoints),
		de: make([]float64, tablePoints),
	}
	h := dr * 1e-3
	at := func(r float64) (float64, error) {
		env["r"] = r
		out, err := expr.Run(prog, env)
		if err != nil {
			return 0, err
		}
		return out.(float64), nil
	}
	for k := 0; k < tablePoints; k++ {
		r := t.r0 + float64(k)*dr
		e, err := at(r)
		if err != nil {
			return nil, err
		}
		ep, err := at(r + h)
		if err != nil {
			return nil, err
		}
		em, err := at(r - h)
		if err != nil {
			return nil, err
		}
		t.e[k] = e
		t.de[k] = (ep - em) / (2 * h)
	}
	return t, nil
}

func paramKey(p []float64) string {
	var sb strings.Builder
	for k, v := range p {
		if k > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return sb.String()
}
