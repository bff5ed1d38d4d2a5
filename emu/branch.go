package emu

// Branch funct3 encodings.
const (
	Funct3BEQ  uint8 = 0x0
	Funct3BNE  uint8 = 0x1
	Funct3BLT  uint8 = 0x4
	Funct3BGE  uint8 = 0x5
	Funct3BLTU uint8 = 0x6
	Funct3BGEU uint8 = 0x7
)

// BranchUnit evaluates branch conditions and computes control-flow
// targets. It is stateless.
type BranchUnit struct{}

// NewBranchUnit creates a new BranchUnit.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// Taken reports whether a conditional branch with the given funct3 is
// taken for operands a and b. Reserved encodings are never taken.
func (b *BranchUnit) Taken(funct3 uint8, x, y uint32) bool {
	switch funct3 {
	case Funct3BEQ:
		return x == y
	case Funct3BNE:
		return x != y
	case Funct3BLT:
		return int32(x) < int32(y)
	case Funct3BGE:
		return int32(x) >= int32(y)
	case Funct3BLTU:
		return x < y
	case Funct3BGEU:
		return x >= y
	}
	return false
}

// Target returns the PC-relative target pc + imm used by branches and JAL.
func (b *BranchUnit) Target(pc uint32, imm int32) uint32 {
	return pc + uint32(imm)
}

// JALRTarget returns (base + imm) with bit 0 cleared.
func (b *BranchUnit) JALRTarget(base uint32, imm int32) uint32 {
	return (base + uint32(imm)) &^ 1
}

// LinkAddress returns the return address saved by JAL and JALR.
func (b *BranchUnit) LinkAddress(pc uint32) uint32 {
	return pc + 4
}
