package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/config"
	"github.com/sarchlab/rvsim/timing/core"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

var _ = Describe("Core", func() {
	var (
		program []uint32
		cfg     *config.Config
	)

	BeforeEach(func() {
		program = []uint32{
			insts.ADDI(1, 0, 5),
			insts.ADDI(2, 1, 3),
		}
		cfg = config.DefaultConfig()
		cfg.Cycles = 8
	})

	It("should create a core with pipeline", func() {
		c, err := core.NewCore(program, nil, cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(c.Pipeline).NotTo(BeNil())
		Expect(c.Halted()).To(BeFalse())
		Expect(c.Log().Cycles()).To(Equal(8))
	})

	It("should run the configured number of cycles", func() {
		c, err := core.NewCore(program, nil, cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Run()).To(Succeed())

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(8)))
		Expect(stats.Instructions).To(Equal(uint64(2)))
		Expect(stats.SimulatedSeconds).To(BeNumerically("~", 8e-9, 1e-18))
		Expect(c.Pipeline.Reg(2)).To(Equal(uint32(8)))
	})

	It("should stall less with forwarding", func() {
		plain, err := core.NewCore(program, nil, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(plain.Run()).To(Succeed())

		cfg.Forwarding = true
		fwd, err := core.NewCore(program, nil, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(fwd.Run()).To(Succeed())

		Expect(plain.Stats().Stalls).To(Equal(uint64(2)))
		Expect(fwd.Stats().Stalls).To(BeZero())
		Expect(fwd.Stats().Forwards).To(BeNumerically(">", 0))
	})

	It("should tick one cycle at a time", func() {
		c, err := core.NewCore(program, nil, cfg)
		Expect(err).NotTo(HaveOccurred())

		c.Tick()
		c.Tick()
		Expect(c.Pipeline.Cycle()).To(Equal(2))
		Expect(c.RunCycles(3)).To(BeTrue())
		Expect(c.Pipeline.Cycle()).To(Equal(5))
	})

	It("should keep its own copy of the config", func() {
		c, err := core.NewCore(program, nil, cfg)
		Expect(err).NotTo(HaveOccurred())

		cfg.Cycles = 100
		Expect(c.Config().Cycles).To(Equal(8))
	})

	It("should reject an invalid config", func() {
		cfg.Cycles = 0
		_, err := core.NewCore(program, nil, cfg)

		Expect(err).To(MatchError(ContainSubstring("invalid config")))
	})

	It("should halt on an out-of-range access under the fault policy", func() {
		cfg.MemoryPolicy = "fault"
		c, err := core.NewCore([]uint32{insts.LW(1, 0, 2000)}, nil, cfg)
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Run()).To(MatchError(emu.ErrOutOfRange))
		Expect(c.Halted()).To(BeTrue())
		Expect(c.Err()).To(MatchError(emu.ErrOutOfRange))
	})

	It("should apply extra pipeline options", func() {
		c, err := core.NewCore(program, []string{"first", "second"}, cfg,
			pipeline.WithInitialRegs([emu.NumRegs]uint32{3: 7}))
		Expect(err).NotTo(HaveOccurred())

		Expect(c.Pipeline.Reg(3)).To(Equal(uint32(7)))
		Expect(c.Log().Label(1)).To(Equal("second"))
	})
})
