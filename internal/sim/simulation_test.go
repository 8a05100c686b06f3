package sim_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/sim"
)

// countingContext advances a step counter and records chunk sizes.
type countingContext struct {
	step   int
	chunks []int
}

func (c *countingContext) SetPositions([][3]float64) error                 { return nil }
func (c *countingContext) SetVelocitiesToTemperature(float64, int64) error { return nil }
func (c *countingContext) Minimize(context.Context, float64, int) error    { return nil }
func (c *countingContext) State() engine.State                             { return engine.State{Step: c.step} }
func (c *countingContext) Step(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.chunks = append(c.chunks, n)
	c.step += n
	return nil
}

type stepRecorder struct {
	interval int
	steps    []int
	closed   int
	failAt   int
}

func (r *stepRecorder) Interval() int { return r.interval }
func (r *stepRecorder) Report(s engine.State) error {
	if r.failAt > 0 && s.Step == r.failAt {
		return engine.ErrUnstable
	}
	r.steps = append(r.steps, s.Step)
	return nil
}
func (r *stepRecorder) Close() error {
	r.closed++
	return nil
}

var _ = Describe("Simulation.Step", func() {
	It("reports each reporter on multiples of its interval", func() {
		c := &countingContext{}
		every3 := &stepRecorder{interval: 3}
		every5 := &stepRecorder{interval: 5}
		s := sim.NewSimulation(c, every3, every5)

		Expect(s.Step(context.Background(), 16)).To(Succeed())
		Expect(c.step).To(Equal(16))
		Expect(every3.steps).To(Equal([]int{3, 6, 9, 12, 15}))
		Expect(every5.steps).To(Equal([]int{5, 10, 15}))
		Expect(c.chunks).To(Equal([]int{3, 2, 1, 3, 1, 2, 3, 1}))
	})

	It("counts intervals from the absolute step", func() {
		c := &countingContext{step: 7}
		r := &stepRecorder{interval: 5}
		s := sim.NewSimulation(c, r)

		Expect(s.Step(context.Background(), 10)).To(Succeed())
		Expect(r.steps).To(Equal([]int{10, 15}))
		Expect(c.step).To(Equal(17))
	})

	It("steps in one chunk without reporters", func() {
		c := &countingContext{}
		Expect(sim.NewSimulation(c).Step(context.Background(), 100)).To(Succeed())
		Expect(c.chunks).To(Equal([]int{100}))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := &countingContext{}
		err := sim.NewSimulation(c, &stepRecorder{interval: 2}).Step(ctx, 10)
		Expect(err).To(MatchError(context.Canceled))
		Expect(c.step).To(Equal(0))
	})

	It("stops at the first reporter error", func() {
		c := &countingContext{}
		r := &stepRecorder{interval: 2, failAt: 4}
		err := sim.NewSimulation(c, r).Step(context.Background(), 10)
		Expect(err).To(MatchError(engine.ErrUnstable))
		Expect(c.step).To(Equal(4))
		Expect(r.steps).To(Equal([]int{2}))
	})

	It("rejects negative counts", func() {
		Expect(sim.NewSimulation(&countingContext{}).Step(context.Background(), -1)).NotTo(Succeed())
	})
})
