package insts

// Encode assembles an instruction word from a major opcode and the format
// fields. It is the inverse of Decode for the fields each format carries.
// A nil Fields encodes the zero word.
func Encode(opcode uint8, f Fields) uint32 {
	op := uint32(opcode & 0x7F)

	switch f := f.(type) {
	case RType:
		return uint32(f.Funct7&0x7F)<<25 | reg(f.Rs2)<<20 | reg(f.Rs1)<<15 |
			uint32(f.Funct3&0x7)<<12 | reg(f.Rd)<<7 | op
	case IType:
		return (uint32(f.Imm)&0xFFF)<<20 | reg(f.Rs1)<<15 |
			uint32(f.Funct3&0x7)<<12 | reg(f.Rd)<<7 | op
	case SType:
		imm := uint32(f.Imm)
		return ((imm>>5)&0x7F)<<25 | reg(f.Rs2)<<20 | reg(f.Rs1)<<15 |
			uint32(f.Funct3&0x7)<<12 | (imm&0x1F)<<7 | op
	case BType:
		imm := uint32(f.Imm)
		return ((imm>>12)&0x1)<<31 | ((imm>>5)&0x3F)<<25 |
			reg(f.Rs2)<<20 | reg(f.Rs1)<<15 | uint32(f.Funct3&0x7)<<12 |
			((imm>>1)&0xF)<<8 | ((imm>>11)&0x1)<<7 | op
	case UType:
		return uint32(f.Imm)&0xFFFFF000 | reg(f.Rd)<<7 | op
	case JType:
		imm := uint32(f.Imm)
		return ((imm>>20)&0x1)<<31 | ((imm>>1)&0x3FF)<<21 |
			((imm>>11)&0x1)<<20 | ((imm>>12)&0xFF)<<12 | reg(f.Rd)<<7 | op
	}

	return 0
}

func reg(r uint8) uint32 { return uint32(r & 0x1F) }
