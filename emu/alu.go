package emu

import "github.com/sarchlab/rvsim/insts"

// ALU implements the RV32 arithmetic primitives. It is stateless.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Execute applies op to a and b. ALUNone yields 0.
func (a *ALU) Execute(op insts.ALUOp, x, y uint32) uint32 {
	switch op {
	case insts.ALUAdd:
		return a.Add(x, y)
	case insts.ALUSub:
		return a.Sub(x, y)
	case insts.ALUMul:
		return a.Mul(x, y)
	case insts.ALUDiv:
		return a.Div(x, y)
	case insts.ALUSll, insts.ALUSlli:
		return a.SLL(x, y)
	case insts.ALUSrl, insts.ALUSrli:
		return a.SRL(x, y)
	case insts.ALUSra, insts.ALUSrai:
		return a.SRA(x, y)
	}
	return 0
}

// Add returns x + y, wrapping on overflow.
func (a *ALU) Add(x, y uint32) uint32 { return x + y }

// Sub returns x - y, wrapping on overflow.
func (a *ALU) Sub(x, y uint32) uint32 { return x - y }

// Mul returns the low 32 bits of x * y.
func (a *ALU) Mul(x, y uint32) uint32 { return x * y }

// Div performs signed division. Division by zero returns 0, and
// INT_MIN / -1 wraps to INT_MIN.
func (a *ALU) Div(x, y uint32) uint32 {
	if y == 0 {
		return 0
	}
	return uint32(int32(x) / int32(y))
}

// SLL shifts x left by the low 5 bits of y.
func (a *ALU) SLL(x, y uint32) uint32 { return x << (y & 0x1F) }

// SRL shifts x right logically by the low 5 bits of y.
func (a *ALU) SRL(x, y uint32) uint32 { return x >> (y & 0x1F) }

// SRA shifts x right arithmetically by the low 5 bits of y.
func (a *ALU) SRA(x, y uint32) uint32 { return uint32(int32(x) >> (y & 0x1F)) }
