package insts

// Assembly helpers. Each returns the machine word of one instruction.

func opR(funct7, funct3, rd, rs1, rs2 uint8) uint32 {
	return Encode(OpcodeOp, RType{Rd: rd, Rs1: rs1, Rs2: rs2, Funct3: funct3, Funct7: funct7})
}

func opI(opcode, funct3, rd, rs1 uint8, imm int32) uint32 {
	return Encode(opcode, IType{Rd: rd, Rs1: rs1, Funct3: funct3, Imm: imm})
}

func opS(funct3, rs2, rs1 uint8, imm int32) uint32 {
	return Encode(OpcodeStore, SType{Rs1: rs1, Rs2: rs2, Funct3: funct3, Imm: imm})
}

func opB(funct3, rs1, rs2 uint8, imm int32) uint32 {
	return Encode(OpcodeBranch, BType{Rs1: rs1, Rs2: rs2, Funct3: funct3, Imm: imm})
}

func ADD(rd, rs1, rs2 uint8) uint32 { return opR(0x00, 0x0, rd, rs1, rs2) }
func SUB(rd, rs1, rs2 uint8) uint32 { return opR(0x20, 0x0, rd, rs1, rs2) }
func SLL(rd, rs1, rs2 uint8) uint32 { return opR(0x00, 0x1, rd, rs1, rs2) }
func SRL(rd, rs1, rs2 uint8) uint32 { return opR(0x00, 0x5, rd, rs1, rs2) }
func SRA(rd, rs1, rs2 uint8) uint32 { return opR(0x20, 0x5, rd, rs1, rs2) }
func MUL(rd, rs1, rs2 uint8) uint32 { return opR(0x01, 0x0, rd, rs1, rs2) }
func DIV(rd, rs1, rs2 uint8) uint32 { return opR(0x01, 0x4, rd, rs1, rs2) }

func ADDI(rd, rs1 uint8, imm int32) uint32 { return opI(OpcodeOpImm, 0x0, rd, rs1, imm) }

func SLLI(rd, rs1, shamt uint8) uint32 {
	return opI(OpcodeOpImm, 0x1, rd, rs1, int32(shamt&0x1F))
}

func SRLI(rd, rs1, shamt uint8) uint32 {
	return opI(OpcodeOpImm, 0x5, rd, rs1, int32(shamt&0x1F))
}

func SRAI(rd, rs1, shamt uint8) uint32 {
	return opI(OpcodeOpImm, 0x5, rd, rs1, 0x400|int32(shamt&0x1F))
}

func LB(rd, rs1 uint8, imm int32) uint32  { return opI(OpcodeLoad, 0x0, rd, rs1, imm) }
func LH(rd, rs1 uint8, imm int32) uint32  { return opI(OpcodeLoad, 0x1, rd, rs1, imm) }
func LW(rd, rs1 uint8, imm int32) uint32  { return opI(OpcodeLoad, 0x2, rd, rs1, imm) }
func LBU(rd, rs1 uint8, imm int32) uint32 { return opI(OpcodeLoad, 0x4, rd, rs1, imm) }
func LHU(rd, rs1 uint8, imm int32) uint32 { return opI(OpcodeLoad, 0x5, rd, rs1, imm) }

func SB(rs2, rs1 uint8, imm int32) uint32 { return opS(0x0, rs2, rs1, imm) }
func SH(rs2, rs1 uint8, imm int32) uint32 { return opS(0x1, rs2, rs1, imm) }
func SW(rs2, rs1 uint8, imm int32) uint32 { return opS(0x2, rs2, rs1, imm) }
func SD(rs2, rs1 uint8, imm int32) uint32 { return opS(0x3, rs2, rs1, imm) }

func BEQ(rs1, rs2 uint8, imm int32) uint32  { return opB(0x0, rs1, rs2, imm) }
func BNE(rs1, rs2 uint8, imm int32) uint32  { return opB(0x1, rs1, rs2, imm) }
func BLT(rs1, rs2 uint8, imm int32) uint32  { return opB(0x4, rs1, rs2, imm) }
func BGE(rs1, rs2 uint8, imm int32) uint32  { return opB(0x5, rs1, rs2, imm) }
func BLTU(rs1, rs2 uint8, imm int32) uint32 { return opB(0x6, rs1, rs2, imm) }
func BGEU(rs1, rs2 uint8, imm int32) uint32 { return opB(0x7, rs1, rs2, imm) }

// LUI and AUIPC take the 20-bit upper immediate.
func LUI(rd uint8, upper uint32) uint32 {
	return Encode(OpcodeLUI, UType{Rd: rd, Imm: int32(upper << 12)})
}

func AUIPC(rd uint8, upper uint32) uint32 {
	return Encode(OpcodeAUIPC, UType{Rd: rd, Imm: int32(upper << 12)})
}

func JAL(rd uint8, imm int32) uint32 { return Encode(OpcodeJAL, JType{Rd: rd, Imm: imm}) }

func JALR(rd, rs1 uint8, imm int32) uint32 { return opI(OpcodeJALR, 0x0, rd, rs1, imm) }
