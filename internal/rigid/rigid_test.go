package rigid_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/ionsim/internal/engine"
	"github.com/san-kum/ionsim/internal/rigid"
	"github.com/san-kum/ionsim/internal/topology"
)

func square(side float64) [][3]float64 {
	return [][3]float64{
		{0, 0, 0},
		{side, 0, 0},
		{side, side, 0},
		{0, side, 0},
	}
}

func bondPairs(f *engine.HarmonicBondForce) []engine.Pair {
	out := make([]engine.Pair, f.NumBonds())
	for n := range out {
		b := f.Bond(n)
		out[n] = engine.Pair{I: b.I, J: b.J}
	}
	return out
}

func exclusionPairs(ex engine.Excluder) []engine.Pair {
	out := make([]engine.Pair, ex.NumExclusions())
	for n := range out {
		out[n] = ex.Exclusion(n)
	}
	return out
}

var _ = Describe("Pairs", func() {
	It("enumerates n(n-1)/2 unique pairs in lexicographic order", func() {
		Expect(rigid.Pairs(0, 4)).To(Equal([]engine.Pair{
			{I: 0, J: 1}, {I: 0, J: 2}, {I: 0, J: 3},
			{I: 1, J: 2}, {I: 1, J: 3}, {I: 2, J: 3},
		}))
	})

	It("offsets by the residue start", func() {
		Expect(rigid.Pairs(5, 8)).To(Equal([]engine.Pair{{I: 5, J: 6}, {I: 5, J: 7}, {I: 6, J: 7}}))
	})

	It("never repeats a pair", func() {
		pairs := rigid.Pairs(10, 30)
		Expect(pairs).To(HaveLen(20 * 19 / 2))
		seen := map[engine.Pair]bool{}
		for _, p := range pairs {
			Expect(p.I).To(BeNumerically("<", p.J))
			Expect(seen).NotTo(HaveKey(p))
			seen[p] = true
		}
	})

	DescribeTable("degenerate ranges yield nothing",
		func(start, end int) {
			Expect(rigid.Pairs(start, end)).To(BeEmpty())
		},
		Entry("empty", 3, 3),
		Entry("single atom", 3, 4),
		Entry("reversed", 4, 3),
	)
})

var _ = Describe("Build", func() {
	var (
		bonds *engine.HarmonicBondForce
		nb    *engine.NonbondedForce
		res   topology.Residue
	)

	BeforeEach(func() {
		bonds = engine.NewHarmonicBondForce()
		nb = engine.NewNonbondedForce(1.0)
		res = topology.Residue{Name: "SQR", ID: 1, Start: 0, End: 4}
	})

	Context("a square of side 0.4 nm with threshold 0.6 nm", func() {
		It("bonds and excludes all six pairs in order", func() {
			rep := rigid.Build(res, square(0.4), 0.6, 1000, bonds, nb)

			want := []engine.Pair{
				{I: 0, J: 1}, {I: 0, J: 2}, {I: 0, J: 3},
				{I: 1, J: 2}, {I: 1, J: 3}, {I: 2, J: 3},
			}
			Expect(bondPairs(bonds)).To(Equal(want))
			Expect(exclusionPairs(nb)).To(Equal(want))
			Expect(rep.Total).To(Equal(6))
			Expect(rep.Constrained).To(Equal(want))
			Expect(rep.Rigid()).To(BeTrue())
		})

		It("uses the measured distance as the bond length", func() {
			rigid.Build(res, square(0.4), 0.6, 1000, bonds, nb)
			Expect(bonds.Bond(0).Length).To(BeNumerically("~", 0.4, 1e-12))
			Expect(bonds.Bond(1).Length).To(BeNumerically("~", 0.565685, 1e-6))
			Expect(bonds.Bond(0).K).To(Equal(1000.0))
		})
	})

	Context("a square whose diagonal exceeds the threshold", func() {
		It("leaves the diagonals flexible", func() {
			rep := rigid.Build(res, square(0.5), 0.6, 1000, bonds, nb)
			Expect(bondPairs(bonds)).To(Equal([]engine.Pair{
				{I: 0, J: 1}, {I: 0, J: 3}, {I: 1, J: 2}, {I: 2, J: 3},
			}))
			Expect(rep.Skipped).To(Equal([]engine.Pair{{I: 0, J: 2}, {I: 1, J: 3}}))
			Expect(rep.Rigid()).To(BeFalse())
			Expect(nb.IsExcluded(0, 2)).To(BeFalse())
		})
	})

	It("leaves a pair exactly at the threshold unbonded", func() {
		pos := [][3]float64{{0, 0, 0}, {0.5, 0, 0}}
		r := topology.Residue{Start: 0, End: 2}
		rep := rigid.Build(r, pos, 0.5, 1000, bonds, nb)
		Expect(bonds.NumBonds()).To(Equal(0))
		Expect(nb.NumExclusions()).To(Equal(0))
		Expect(rep.Skipped).To(HaveLen(1))
	})

	It("does nothing for a single-atom residue", func() {
		r := topology.Residue{Start: 2, End: 3}
		rep := rigid.Build(r, square(0.4), 0.6, 1000, bonds, nb)
		Expect(rep.Total).To(Equal(0))
		Expect(rep.Rigid()).To(BeTrue())
		Expect(bonds.NumBonds()).To(Equal(0))
	})

	It("adds bonds only when no excluder is supplied", func() {
		rigid.Build(res, square(0.4), 0.6, 1000, bonds)
		Expect(bonds.NumBonds()).To(Equal(6))
		Expect(nb.NumExclusions()).To(Equal(0))
	})

	It("excludes on every supplied force", func() {
		custom := engine.NewCustomNonbondedForce("0", 1.0)
		rigid.Build(res, square(0.4), 0.6, 1000, bonds, nb, custom)
		Expect(exclusionPairs(custom)).To(Equal(exclusionPairs(nb)))
	})
})

var _ = Describe("BuildAll", func() {
	var top *topology.Topology

	BeforeEach(func() {
		top = topology.New()
		top.AddResidue("SQR", 1, "A")
		for _, p := range square(0.4) {
			top.AddAtom("S", "C", p)
		}
		top.AddResidue("NA", 2, "B")
		top.AddAtom("NA", "Na", [3]float64{2, 2, 2})
		top.AddResidue("SQR", 3, "A")
		for _, p := range square(0.5) {
			top.AddAtom("S", "C", [3]float64{p[0] + 1, p[1], p[2]})
		}
	})

	It("skips single-atom residues by default", func() {
		bonds := engine.NewHarmonicBondForce()
		reports := rigid.BuildAll(top, nil, 0.6, 1000, bonds)
		Expect(reports).To(HaveLen(2))
		Expect(bonds.NumBonds()).To(Equal(6 + 4))
		Expect(bonds.Bond(6).I).To(Equal(5))
	})

	It("reports partly rigid residues", func() {
		bonds := engine.NewHarmonicBondForce()
		reports := rigid.BuildAll(top, rigid.ByName("SQR"), 0.6, 1000, bonds)
		bad := rigid.Validate(reports)
		Expect(bad).To(HaveLen(1))
		Expect(bad[0].Residue.ID).To(Equal(3))
		Expect(bad[0].String()).To(Equal("SQR3: 4/6 pairs constrained"))
	})
})

var _ = Describe("CheckConsistency", func() {
	It("accepts exclusions backed by bonds", func() {
		bonds := engine.NewHarmonicBondForce()
		nb := engine.NewNonbondedForce(1.0)
		rigid.Build(topology.Residue{Start: 0, End: 4}, square(0.4), 0.6, 1000, bonds, nb)
		Expect(rigid.CheckConsistency(bonds, nb)).To(Succeed())
	})

	It("rejects an exclusion without a bond", func() {
		bonds := engine.NewHarmonicBondForce()
		nb := engine.NewNonbondedForce(1.0)
		nb.AddExclusion(3, 1)
		err := rigid.CheckConsistency(bonds, nb)
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, engine.ErrConfiguration)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("(1,3)"))
	})
})
