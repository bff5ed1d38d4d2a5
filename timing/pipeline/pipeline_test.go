package pipeline_test

import (
	"bytes"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/pipeline"
)

func regs(pairs ...uint32) [emu.NumRegs]uint32 {
	var r [emu.NumRegs]uint32
	for i := 0; i+1 < len(pairs); i += 2 {
		r[pairs[i]] = pairs[i+1]
	}
	return r
}

func runPipeline(program []uint32, cycles int, opts ...pipeline.PipelineOption) *pipeline.Pipeline {
	pipe := pipeline.NewPipeline(program, cycles, opts...)
	Expect(pipe.Run()).To(Succeed())
	return pipe
}

type eventCounter struct {
	events []pipeline.StageEvent
}

func (c *eventCounter) Func(ctx sim.HookCtx) {
	if ev, ok := ctx.Item.(pipeline.StageEvent); ok {
		c.events = append(c.events, ev)
	}
}

var _ = Describe("Pipeline", func() {
	Describe("NewPipeline", func() {
		It("should start empty at PC 0", func() {
			pipe := pipeline.NewPipeline([]uint32{0x00500093}, 5)

			Expect(pipe.PC()).To(Equal(uint32(0)))
			Expect(pipe.Cycle()).To(Equal(0))
			Expect(pipe.TotalCycles()).To(Equal(5))
			Expect(pipe.GetIFID().Valid).To(BeFalse())
			Expect(pipe.Log().NumInstructions()).To(Equal(1))
			Expect(pipe.Log().Cycles()).To(Equal(5))
		})

		It("should assign program indices as ids and none to NOP words", func() {
			pipe := pipeline.NewPipeline([]uint32{0x00500093, 0, 0x002082B3}, 1)
			program := pipe.Program()

			Expect(program[0].ID).To(Equal(0))
			Expect(program[1].ID).To(Equal(insts.NoID))
			Expect(program[2].ID).To(Equal(2))
		})

		It("should label rows with supplied labels or generated ones", func() {
			pipe := pipeline.NewPipeline([]uint32{0x00500093, 0x002082B3}, 1,
				pipeline.WithLabels([]string{"addi x1, x0, 5"}))

			Expect(pipe.Log().Label(0)).To(Equal("addi x1, x0, 5"))
			Expect(pipe.Log().Label(1)).To(Equal("I2 add x5, x1, x2"))
		})
	})

	Describe("single instructions", func() {
		It("should retire addi x1, x0, 5", func() {
			pipe := runPipeline([]uint32{0x00500093}, 5)

			Expect(pipe.Reg(1)).To(Equal(uint32(5)))
			Expect(pipe.Stats().Instructions).To(Equal(uint64(1)))
			Expect(pipe.Log().Row(0)).To(Equal([][]string{
				{"IF"}, {"ID"}, {"EX"}, {"MEM"}, {"WB"},
			}))
		})

		It("should not retire before the fifth cycle", func() {
			pipe := runPipeline([]uint32{0x00500093}, 4)
			Expect(pipe.Reg(1)).To(Equal(uint32(0)))
		})

		It("should keep x0 zero", func() {
			pipe := runPipeline([]uint32{insts.ADDI(0, 0, 5)}, 5)
			Expect(pipe.Reg(0)).To(Equal(uint32(0)))
		})

		It("should add preloaded registers", func() {
			pipe := runPipeline([]uint32{0x002082B3}, 5,
				pipeline.WithInitialRegs(regs(1, 3, 2, 4)))
			Expect(pipe.Reg(5)).To(Equal(uint32(7)))
		})

		It("should divide by zero without halting", func() {
			pipe := runPipeline([]uint32{
				insts.ADDI(1, 0, 10),
				insts.DIV(3, 1, 2),
			}, 10, pipeline.WithForwarding(true))

			Expect(pipe.Reg(3)).To(Equal(uint32(0)))
			Expect(pipe.Halted()).To(BeFalse())
			Expect(pipe.Err()).NotTo(HaveOccurred())
		})

		It("should compute LUI and AUIPC", func() {
			pipe := runPipeline([]uint32{
				insts.LUI(1, 0x12345),
				insts.AUIPC(2, 0x1),
			}, 6)
			Expect(pipe.Reg(1)).To(Equal(uint32(0x12345000)))
			Expect(pipe.Reg(2)).To(Equal(uint32(0x1004)))
		})

		It("should treat unknown words as no-ops that still flow through", func() {
			pipe := runPipeline([]uint32{0xFFFFFFFF}, 5)
			Expect(pipe.Registers()).To(Equal([emu.NumRegs]uint32{}))
			Expect(pipe.Log().Occurrences(0, pipeline.StageWB)).To(Equal([]int{4}))
		})
	})

	Describe("data hazards", func() {
		program := []uint32{
			insts.ADDI(1, 0, 1),
			insts.ADD(2, 1, 1),
		}

		It("should stall without forwarding", func() {
			pipe := runPipeline(program, 8)

			Expect(pipe.Reg(2)).To(Equal(uint32(2)))
			Expect(pipe.Stats().Stalls).To(Equal(uint64(2)))
			Expect(pipe.Log().Row(1)).To(Equal([][]string{
				nil, {"IF"}, {"-"}, {"-"}, {"ID"}, {"EX"}, {"MEM"}, {"WB"},
			}))
		})

		It("should not stall with forwarding", func() {
			pipe := runPipeline(program, 6, pipeline.WithForwarding(true))

			Expect(pipe.Reg(2)).To(Equal(uint32(2)))
			Expect(pipe.Stats().Stalls).To(Equal(uint64(0)))
			Expect(pipe.Stats().Forwards).To(Equal(uint64(2)))
			Expect(pipe.Log().Row(1)).To(Equal([][]string{
				nil, {"IF"}, {"ID"}, {"EX"}, {"MEM"}, {"WB"},
			}))
		})

		It("should forward from MEM/WB over a gap", func() {
			pipe := runPipeline([]uint32{
				insts.ADDI(1, 0, 7),
				insts.ADDI(3, 0, 1),
				insts.ADD(2, 1, 1),
			}, 7, pipeline.WithForwarding(true))

			Expect(pipe.Reg(2)).To(Equal(uint32(14)))
			Expect(pipe.Stats().Stalls).To(Equal(uint64(0)))
		})

		It("should prefer the most recent producer", func() {
			pipe := runPipeline([]uint32{
				insts.ADDI(1, 0, 1),
				insts.ADDI(1, 0, 2),
				insts.ADD(2, 1, 1),
			}, 7, pipeline.WithForwarding(true))

			Expect(pipe.Reg(2)).To(Equal(uint32(4)))
		})

		It("should stall once for a load-use hazard with forwarding", func() {
			memory := emu.NewMemory()
			Expect(memory.Write(0, []byte{21, 0, 0, 0})).To(Succeed())

			pipe := runPipeline([]uint32{
				insts.LW(1, 0, 0),
				insts.ADD(2, 1, 1),
			}, 7, pipeline.WithForwarding(true), pipeline.WithMemory(memory))

			Expect(pipe.Reg(2)).To(Equal(uint32(42)))
			Expect(pipe.Stats().Stalls).To(Equal(uint64(1)))
			Expect(pipe.Log().Row(1)).To(Equal([][]string{
				nil, {"IF"}, {"-"}, {"ID"}, {"EX"}, {"MEM"}, {"WB"},
			}))
		})

		It("should bypass load data into a following store without stalling", func() {
			memory := emu.NewMemory()
			Expect(memory.Write(0, []byte{21, 0, 0, 0})).To(Succeed())

			pipe := runPipeline([]uint32{
				insts.LW(1, 0, 0),
				insts.SW(1, 0, 4),
			}, 6, pipeline.WithForwarding(true), pipeline.WithMemory(memory))

			Expect(pipe.Memory()[4:8]).To(Equal([]byte{21, 0, 0, 0}))
			Expect(pipe.Stats().Stalls).To(Equal(uint64(0)))
		})

		It("should round-trip stores and loads", func() {
			pipe := runPipeline([]uint32{
				insts.ADDI(1, 0, -2),
				insts.SW(1, 0, 16),
				insts.LW(2, 0, 16),
				insts.LB(3, 0, 16),
				insts.LBU(4, 0, 16),
				insts.LHU(5, 0, 18),
			}, 20)

			Expect(pipe.Reg(2)).To(Equal(uint32(0xFFFFFFFE)))
			Expect(pipe.Reg(3)).To(Equal(uint32(0xFFFFFFFE)))
			Expect(pipe.Reg(4)).To(Equal(uint32(0xFE)))
			Expect(pipe.Reg(5)).To(Equal(uint32(0xFFFF)))
		})
	})

	Describe("control flow", func() {
		It("should squash the fall-through of a taken branch", func() {
			pipe := runPipeline([]uint32{
				insts.BEQ(1, 2, 8),
				insts.ADDI(3, 0, 1),
				insts.ADDI(4, 0, 1),
			}, 7, pipeline.WithInitialRegs(regs(1, 9, 2, 9)))

			Expect(pipe.Reg(3)).To(Equal(uint32(0)))
			Expect(pipe.Reg(4)).To(Equal(uint32(1)))
			Expect(pipe.Log().Row(1)).To(Equal(make([][]string, 7)))
			Expect(pipe.Log().Row(2)).To(Equal([][]string{
				nil, nil, {"IF"}, {"ID"}, {"EX"}, {"MEM"}, {"WB"},
			}))
			Expect(pipe.Stats().Flushes).To(Equal(uint64(1)))
			Expect(pipe.Stats().TakenBranches).To(Equal(uint64(1)))
		})

		It("should continue sequentially after a not-taken branch", func() {
			pipe := runPipeline([]uint32{
				insts.BNE(1, 2, 8),
				insts.ADDI(3, 0, 1),
				insts.ADDI(4, 0, 1),
			}, 8, pipeline.WithInitialRegs(regs(1, 9, 2, 9)))

			Expect(pipe.Reg(3)).To(Equal(uint32(1)))
			Expect(pipe.Reg(4)).To(Equal(uint32(1)))
			Expect(pipe.Stats().TakenBranches).To(Equal(uint64(0)))
		})

		It("should stall a branch on a producer in execute even with forwarding", func() {
			pipe := runPipeline([]uint32{
				insts.ADDI(1, 0, 1),
				insts.BEQ(1, 0, 8),
				insts.ADDI(3, 0, 1),
			}, 9, pipeline.WithForwarding(true))

			Expect(pipe.Stats().Stalls).To(Equal(uint64(1)))
			Expect(pipe.Reg(3)).To(Equal(uint32(1)))
		})

		It("should resolve a branch on forwarded load data", func() {
			memory := emu.NewMemory()
			Expect(memory.Write(0, []byte{5, 0, 0, 0})).To(Succeed())

			pipe := runPipeline([]uint32{
				insts.LW(1, 0, 0),
				insts.BNE(1, 0, 8),
				insts.ADDI(2, 0, 1),
				insts.ADDI(3, 0, 1),
			}, 12, pipeline.WithForwarding(true), pipeline.WithMemory(memory))

			Expect(pipe.Stats().Stalls).To(Equal(uint64(2)))
			Expect(pipe.Reg(2)).To(Equal(uint32(0)))
			Expect(pipe.Reg(3)).To(Equal(uint32(1)))
		})

		It("should link and jump with JAL", func() {
			pipe := runPipeline([]uint32{
				insts.JAL(1, 8),
				insts.ADDI(2, 0, 1),
				insts.ADDI(3, 0, 1),
			}, 8)

			Expect(pipe.Reg(1)).To(Equal(uint32(4)))
			Expect(pipe.Reg(2)).To(Equal(uint32(0)))
			Expect(pipe.Reg(3)).To(Equal(uint32(1)))
		})

		DescribeTable("JALR on a just-computed base",
			func(forwarding bool, stalls uint64) {
				pipe := runPipeline([]uint32{
					insts.ADDI(5, 0, 13),
					insts.JALR(1, 5, 0),
					insts.ADDI(2, 0, 1),
					insts.ADDI(3, 0, 1),
				}, 12, pipeline.WithForwarding(forwarding))

				Expect(pipe.Stats().Stalls).To(Equal(stalls))
				Expect(pipe.Reg(1)).To(Equal(uint32(8)))
				Expect(pipe.Reg(2)).To(Equal(uint32(0)))
				Expect(pipe.Reg(3)).To(Equal(uint32(1)))
			},
			Entry("without forwarding", false, uint64(2)),
			Entry("with forwarding", true, uint64(1)),
		)

		It("should forward a link address", func() {
			pipe := runPipeline([]uint32{
				insts.JAL(1, 4),
				insts.ADDI(2, 1, 1),
			}, 8, pipeline.WithForwarding(true))

			Expect(pipe.Reg(2)).To(Equal(uint32(5)))
		})
	})

	Describe("memory policy", func() {
		It("should ignore out-of-range accesses by default", func() {
			buf := &bytes.Buffer{}
			pipe := runPipeline([]uint32{
				insts.ADDI(1, 0, 3),
				insts.SW(1, 0, 2000),
				insts.LW(1, 0, 2000),
			}, 10, pipeline.WithLogger(slog.New(slog.NewTextHandler(buf, nil))))

			Expect(pipe.Halted()).To(BeFalse())
			Expect(pipe.Stats().MemFaults).To(Equal(uint64(2)))
			Expect(pipe.Reg(1)).To(Equal(uint32(0)))
			Expect(buf.String()).To(ContainSubstring("out-of-range memory access"))
		})

		It("should halt under the fault policy", func() {
			pipe := pipeline.NewPipeline([]uint32{
				insts.SW(0, 0, 2000),
				insts.ADDI(1, 0, 3),
			}, 10, pipeline.WithMemoryPolicy(emu.PolicyFault))

			err := pipe.Run()

			Expect(err).To(MatchError(emu.ErrOutOfRange))
			Expect(pipe.Err()).To(MatchError(emu.ErrOutOfRange))
			Expect(pipe.Halted()).To(BeTrue())
			Expect(pipe.Cycle()).To(Equal(4))
			Expect(pipe.Reg(1)).To(Equal(uint32(0)))

			pipe.Tick()
			Expect(pipe.Cycle()).To(Equal(4))
		})
	})

	Describe("hooks", func() {
		It("should publish every stage occupancy", func() {
			counter := &eventCounter{}
			pipe := runPipeline([]uint32{insts.ADDI(1, 0, 1)}, 5,
				pipeline.WithHook(counter))

			stages := make([]string, 0, len(counter.events))
			for _, ev := range counter.events {
				Expect(ev.ID).To(Equal(0))
				stages = append(stages, ev.Stage)
			}
			Expect(stages).To(Equal([]string{"IF", "ID", "EX", "MEM", "WB"}))
			Expect(pipe.NumHooks()).To(Equal(2))
		})
	})

	Describe("RunCycles", func() {
		It("should tick the requested number of cycles", func() {
			pipe := pipeline.NewPipeline([]uint32{insts.ADDI(1, 0, 1)}, 5)

			Expect(pipe.RunCycles(2)).To(BeTrue())
			Expect(pipe.Cycle()).To(Equal(2))
			Expect(pipe.Done()).To(BeFalse())
			Expect(pipe.GetIDEX().Valid).To(BeTrue())
			Expect(pipe.PC()).To(Equal(uint32(4)))
		})
	})

	Describe("Statistics", func() {
		It("should compute CPI", func() {
			Expect(pipeline.Statistics{Cycles: 10, Instructions: 4}.CPI()).To(Equal(2.5))
			Expect(pipeline.Statistics{Cycles: 10}.CPI()).To(Equal(0.0))
		})
	})
})
