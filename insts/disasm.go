package insts

import "fmt"

var (
	loadNames   = [8]string{"lb", "lh", "lw", "", "lbu", "lhu", "", ""}
	storeNames  = [8]string{"sb", "sh", "sw", "sd", "", "", "", ""}
	branchNames = [8]string{"beq", "bne", "", "", "blt", "bge", "bltu", "bgeu"}
	opImmNames  = [8]string{"addi", "slli", "slti", "sltiu", "xori", "", "ori", "andi"}
	opNames     = [8]string{"add", "sll", "slt", "sltu", "xor", "srl", "or", "and"}
	mulNames    = [8]string{"mul", "mulh", "mulhsu", "mulhu", "div", "divu", "rem", "remu"}
)

// Mnemonic returns the lower-case assembly mnemonic of the instruction,
// "nop" for NOPs and "unknown" for unrecognized or reserved encodings.
func (i Instruction) Mnemonic() string {
	name := ""
	f3 := i.Funct3()

	switch i.Opcode {
	case OpcodeOp:
		switch i.Funct7() {
		case 0x00:
			name = opNames[f3]
		case 0x01:
			name = mulNames[f3]
		case 0x20:
			switch f3 {
			case 0x0:
				name = "sub"
			case 0x5:
				name = "sra"
			}
		}
	case OpcodeOpImm:
		name = opImmNames[f3]
		if f3 == 0x5 {
			name = "srli"
			if i.Word&(1<<30) != 0 {
				name = "srai"
			}
		}
	case OpcodeLoad:
		name = loadNames[f3]
	case OpcodeJALR:
		name = "jalr"
	case OpcodeStore:
		name = storeNames[f3]
	case OpcodeBranch:
		name = branchNames[f3]
	case OpcodeLUI:
		name = "lui"
	case OpcodeAUIPC:
		name = "auipc"
	case OpcodeJAL:
		name = "jal"
	}

	if i.IsNop() {
		return "nop"
	}
	if name == "" || i.Format == FormatUnknown {
		return "unknown"
	}
	return name
}

// String disassembles the instruction.
func (i Instruction) String() string {
	m := i.Mnemonic()

	switch f := i.Fields.(type) {
	case RType:
		return fmt.Sprintf("%s x%d, x%d, x%d", m, f.Rd, f.Rs1, f.Rs2)
	case IType:
		switch i.Opcode {
		case OpcodeLoad, OpcodeJALR:
			return fmt.Sprintf("%s x%d, %d(x%d)", m, f.Rd, f.Imm, f.Rs1)
		}
		imm := f.Imm
		if f.Funct3 == 0x1 || f.Funct3 == 0x5 {
			imm &= 0x1F
		}
		return fmt.Sprintf("%s x%d, x%d, %d", m, f.Rd, f.Rs1, imm)
	case SType:
		return fmt.Sprintf("%s x%d, %d(x%d)", m, f.Rs2, f.Imm, f.Rs1)
	case BType:
		return fmt.Sprintf("%s x%d, x%d, %d", m, f.Rs1, f.Rs2, f.Imm)
	case UType:
		return fmt.Sprintf("%s x%d, 0x%x", m, f.Rd, uint32(f.Imm)>>12)
	case JType:
		return fmt.Sprintf("%s x%d, %d", m, f.Rd, f.Imm)
	}

	if i.IsNop() {
		return m
	}
	return fmt.Sprintf(".word 0x%08x", i.Word)
}
