package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/insts"
)

var _ = Describe("Decoder", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	Describe("R-type", func() {
		// add x5, x1, x2 -> 0x002082B3
		It("should decode add x5, x1, x2", func() {
			inst := decoder.Decode(0x002082B3)

			Expect(inst.Format).To(Equal(insts.FormatR))
			Expect(inst.Opcode).To(Equal(insts.OpcodeOp))
			Expect(inst.Fields).To(Equal(insts.RType{
				Rd: 5, Rs1: 1, Rs2: 2, Funct3: 0, Funct7: 0,
			}))
			Expect(inst.Sources()).To(Equal([2]uint8{1, 2}))
		})

		It("should decode funct7 of sub x5, x1, x2", func() {
			inst := decoder.Decode(0x402082B3)

			Expect(inst.Funct7()).To(Equal(uint8(0x20)))
			Expect(inst.Mnemonic()).To(Equal("sub"))
		})
	})

	Describe("I-type", func() {
		// addi x5, x1, 10 -> 0x00A08293
		It("should decode addi x5, x1, 10", func() {
			inst := decoder.Decode(0x00A08293)

			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Fields).To(Equal(insts.IType{Rd: 5, Rs1: 1, Funct3: 0, Imm: 10}))
			Expect(inst.Sources()).To(Equal([2]uint8{1, 0}))
		})

		It("should sign-extend a negative immediate", func() {
			// addi x1, x0, -1 -> 0xFFF00093
			inst := decoder.Decode(0xFFF00093)

			Expect(inst.Imm()).To(Equal(int32(-1)))
			Expect(inst.Rd()).To(Equal(uint8(1)))
		})

		It("should decode loads as I-type", func() {
			// lw x5, 8(x1) -> 0x0080A283
			inst := decoder.Decode(0x0080A283)

			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Opcode).To(Equal(insts.OpcodeLoad))
			Expect(inst.Funct3()).To(Equal(uint8(2)))
			Expect(inst.Imm()).To(Equal(int32(8)))
		})

		It("should decode jalr as I-type", func() {
			// jalr x1, 0(x5) -> 0x000280E7
			inst := decoder.Decode(0x000280E7)

			Expect(inst.Format).To(Equal(insts.FormatI))
			Expect(inst.Opcode).To(Equal(insts.OpcodeJALR))
			Expect(inst.Rd()).To(Equal(uint8(1)))
			Expect(inst.Rs1()).To(Equal(uint8(5)))
		})
	})

	Describe("S-type", func() {
		// sb x2, 20(x3) -> 0x00218A23
		It("should decode sb x2, 20(x3)", func() {
			inst := decoder.Decode(0x00218A23)

			Expect(inst.Format).To(Equal(insts.FormatS))
			Expect(inst.Fields).To(Equal(insts.SType{Rs1: 3, Rs2: 2, Funct3: 0, Imm: 20}))
			Expect(inst.Rd()).To(Equal(uint8(0)))
		})

		It("should sign-extend a negative offset", func() {
			// sw x2, -4(x3) -> 0xFE21AE23
			inst := decoder.Decode(0xFE21AE23)

			Expect(inst.Imm()).To(Equal(int32(-4)))
			Expect(inst.Funct3()).To(Equal(uint8(2)))
		})
	})

	Describe("B-type", func() {
		// beq x1, x2, 16 -> 0x00208863
		It("should decode beq x1, x2, 16", func() {
			inst := decoder.Decode(0x00208863)

			Expect(inst.Format).To(Equal(insts.FormatB))
			Expect(inst.Fields).To(Equal(insts.BType{Rs1: 1, Rs2: 2, Funct3: 0, Imm: 16}))
		})

		It("should gather and sign-extend a backward offset", func() {
			// beq x0, x0, -8 -> 0xFE000CE3
			inst := decoder.Decode(0xFE000CE3)

			Expect(inst.Imm()).To(Equal(int32(-8)))
		})
	})

	Describe("U-type", func() {
		// lui x5, 0x12345 -> 0x123452B7
		It("should decode lui x5, 0x12345", func() {
			inst := decoder.Decode(0x123452B7)

			Expect(inst.Format).To(Equal(insts.FormatU))
			Expect(inst.Fields).To(Equal(insts.UType{Rd: 5, Imm: 0x12345000}))
			Expect(inst.Sources()).To(Equal([2]uint8{0, 0}))
		})

		It("should decode auipc as U-type", func() {
			// auipc x3, 0x1 -> 0x00001197
			inst := decoder.Decode(0x00001197)

			Expect(inst.Format).To(Equal(insts.FormatU))
			Expect(inst.Opcode).To(Equal(insts.OpcodeAUIPC))
			Expect(inst.Imm()).To(Equal(int32(0x1000)))
		})
	})

	Describe("J-type", func() {
		// jal x1, 2 -> 0x002000EF
		It("should decode jal x1, 2", func() {
			inst := decoder.Decode(0x002000EF)

			Expect(inst.Format).To(Equal(insts.FormatJ))
			Expect(inst.Fields).To(Equal(insts.JType{Rd: 1, Imm: 2}))
		})

		It("should gather and sign-extend a backward offset", func() {
			// jal x0, -4 -> 0xFFDFF06F
			inst := decoder.Decode(0xFFDFF06F)

			Expect(inst.Imm()).To(Equal(int32(-4)))
			Expect(inst.Rd()).To(Equal(uint8(0)))
		})
	})

	Describe("NOP and unknown words", func() {
		It("should decode the zero word as NOP", func() {
			inst := decoder.Decode(0)

			Expect(inst.Format).To(Equal(insts.FormatNOP))
			Expect(inst.Fields).To(BeNil())
			Expect(inst.HasID()).To(BeFalse())
			Expect(inst).To(Equal(insts.Nop()))
		})

		It("should decode an unrecognized opcode as UNKNOWN", func() {
			inst := decoder.Decode(0xFFFFFFFF)

			Expect(inst.Format).To(Equal(insts.FormatUnknown))
			Expect(inst.Fields).To(BeNil())
			Expect(inst.Word).To(Equal(uint32(0xFFFFFFFF)))
			Expect(inst.Mnemonic()).To(Equal("unknown"))
		})
	})

	Describe("totality", func() {
		It("should map every sampled word to exactly one format, idempotently", func() {
			valid := map[insts.Format]bool{
				insts.FormatNOP: true, insts.FormatR: true, insts.FormatI: true,
				insts.FormatS: true, insts.FormatB: true, insts.FormatU: true,
				insts.FormatJ: true, insts.FormatUnknown: true,
			}

			word := uint32(0x12345678)
			for i := 0; i < 4096; i++ {
				word = word*1664525 + 1013904223

				first := decoder.Decode(word)
				second := decoder.Decode(word)

				Expect(valid[first.Format]).To(BeTrue())
				Expect(second).To(Equal(first))
			}
		})
	})
})
