// Package insts provides RV32I instruction definitions and decoding.
package insts

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatNOP     Format = iota // Zero word or pipeline bubble
	FormatR                     // Register-register
	FormatI                     // Immediate, loads, JALR
	FormatS                     // Stores
	FormatB                     // Conditional branches
	FormatU                     // Upper immediate
	FormatJ                     // Jump and link
	FormatUnknown               // Unrecognized opcode
)

var formatNames = [...]string{"NOP", "R", "I", "S", "B", "U", "J", "UNKNOWN"}

// String returns the format tag name.
func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return "UNKNOWN"
}

// Major opcodes, bits [6:0].
const (
	OpcodeLoad   uint8 = 0x03
	OpcodeOpImm  uint8 = 0x13
	OpcodeAUIPC  uint8 = 0x17
	OpcodeStore  uint8 = 0x23
	OpcodeOp     uint8 = 0x33
	OpcodeLUI    uint8 = 0x37
	OpcodeBranch uint8 = 0x63
	OpcodeJALR   uint8 = 0x67
	OpcodeJAL    uint8 = 0x6F
)

// NoID marks an instruction that was not loaded from the program store
// (NOPs and synthesized bubbles).
const NoID = -1

// Fields is the format-specific payload of an instruction. Exactly one
// implementation exists per format; NOP and UNKNOWN carry no payload.
type Fields interface {
	format() Format
}

// RType holds register-register fields.
type RType struct {
	Rd, Rs1, Rs2   uint8
	Funct3, Funct7 uint8
}

// IType holds immediate-operand fields.
type IType struct {
	Rd, Rs1 uint8
	Funct3  uint8
	Imm     int32 // sign-extended 12-bit immediate
}

// SType holds store fields.
type SType struct {
	Rs1, Rs2 uint8
	Funct3   uint8
	Imm      int32 // sign-extended 12-bit offset
}

// BType holds conditional branch fields.
type BType struct {
	Rs1, Rs2 uint8
	Funct3   uint8
	Imm      int32 // sign-extended 13-bit offset, bit 0 always zero
}

// UType holds upper-immediate fields.
type UType struct {
	Rd  uint8
	Imm int32 // bits [31:12] in place, low 12 bits zero
}

// JType holds jump-and-link fields.
type JType struct {
	Rd  uint8
	Imm int32 // sign-extended 21-bit offset, bit 0 always zero
}

func (RType) format() Format { return FormatR }
func (IType) format() Format { return FormatI }
func (SType) format() Format { return FormatS }
func (BType) format() Format { return FormatB }
func (UType) format() Format { return FormatU }
func (JType) format() Format { return FormatJ }

// Instruction represents a decoded RV32 instruction. It is a value type
// and is never mutated after decode, except for ID assignment at load
// time.
type Instruction struct {
	Word   uint32 // Raw 32-bit word
	Opcode uint8  // bits [6:0]
	Format Format // Encoding format; determines the dynamic type of Fields
	Fields Fields // nil for NOP and UNKNOWN

	// ID is the program-order sequence id used for trace logging.
	ID int
}

// Nop returns the canonical no-op instruction.
func Nop() Instruction {
	return Instruction{Format: FormatNOP, ID: NoID}
}

// IsNop reports whether the instruction is a NOP or bubble.
func (i Instruction) IsNop() bool {
	return i.Format == FormatNOP
}

// HasID reports whether the instruction came from the program store.
func (i Instruction) HasID() bool {
	return i.ID != NoID && !i.IsNop()
}

// Rd returns the destination register, or 0 if the format has none.
func (i Instruction) Rd() uint8 {
	switch f := i.Fields.(type) {
	case RType:
		return f.Rd
	case IType:
		return f.Rd
	case UType:
		return f.Rd
	case JType:
		return f.Rd
	}
	return 0
}

// Rs1 returns the first source register, or 0 if the format has none.
func (i Instruction) Rs1() uint8 {
	switch f := i.Fields.(type) {
	case RType:
		return f.Rs1
	case IType:
		return f.Rs1
	case SType:
		return f.Rs1
	case BType:
		return f.Rs1
	}
	return 0
}

// Rs2 returns the second source register, or 0 if the format has none.
func (i Instruction) Rs2() uint8 {
	switch f := i.Fields.(type) {
	case RType:
		return f.Rs2
	case SType:
		return f.Rs2
	case BType:
		return f.Rs2
	}
	return 0
}

// Funct3 returns the funct3 field, or 0 if the format has none.
func (i Instruction) Funct3() uint8 {
	switch f := i.Fields.(type) {
	case RType:
		return f.Funct3
	case IType:
		return f.Funct3
	case SType:
		return f.Funct3
	case BType:
		return f.Funct3
	}
	return 0
}

// Funct7 returns the funct7 field of an R-type instruction, or 0.
func (i Instruction) Funct7() uint8 {
	if f, ok := i.Fields.(RType); ok {
		return f.Funct7
	}
	return 0
}

// Imm returns the sign-extended immediate, or 0 if the format has none.
func (i Instruction) Imm() int32 {
	switch f := i.Fields.(type) {
	case IType:
		return f.Imm
	case SType:
		return f.Imm
	case BType:
		return f.Imm
	case UType:
		return f.Imm
	case JType:
		return f.Imm
	}
	return 0
}

// Sources returns the source registers read by the instruction. Unused
// slots hold register 0, which never participates in a hazard.
func (i Instruction) Sources() [2]uint8 {
	switch i.Fields.(type) {
	case RType, SType, BType:
		return [2]uint8{i.Rs1(), i.Rs2()}
	case IType:
		return [2]uint8{i.Rs1(), 0}
	}
	return [2]uint8{}
}

// Decoder decodes RV32 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. It is total: every word
// yields exactly one format, and the zero word yields a NOP.
func (d *Decoder) Decode(word uint32) Instruction {
	if word == 0 {
		return Nop()
	}

	opcode := uint8(word & 0x7F)
	inst := Instruction{Word: word, Opcode: opcode, ID: NoID}

	switch opcode {
	case OpcodeOp:
		inst.Fields = d.decodeR(word)
	case OpcodeOpImm, OpcodeLoad, OpcodeJALR:
		inst.Fields = d.decodeI(word)
	case OpcodeStore:
		inst.Fields = d.decodeS(word)
	case OpcodeBranch:
		inst.Fields = d.decodeB(word)
	case OpcodeLUI, OpcodeAUIPC:
		inst.Fields = d.decodeU(word)
	case OpcodeJAL:
		inst.Fields = d.decodeJ(word)
	default:
		inst.Format = FormatUnknown
		return inst
	}

	inst.Format = inst.Fields.format()
	return inst
}

func rd(word uint32) uint8     { return uint8((word >> 7) & 0x1F) }
func funct3(word uint32) uint8 { return uint8((word >> 12) & 0x7) }
func rs1(word uint32) uint8    { return uint8((word >> 15) & 0x1F) }
func rs2(word uint32) uint8    { return uint8((word >> 20) & 0x1F) }

// signExtend sign-extends the low width bits of v.
func signExtend(v uint32, width uint) int32 {
	shift := 32 - width
	return int32(v<<shift) >> shift
}

// decodeR decodes: funct7 | rs2 | rs1 | funct3 | rd | opcode
func (d *Decoder) decodeR(word uint32) RType {
	return RType{
		Rd:     rd(word),
		Rs1:    rs1(word),
		Rs2:    rs2(word),
		Funct3: funct3(word),
		Funct7: uint8((word >> 25) & 0x7F),
	}
}

// decodeI decodes: imm[11:0] | rs1 | funct3 | rd | opcode
func (d *Decoder) decodeI(word uint32) IType {
	return IType{
		Rd:     rd(word),
		Rs1:    rs1(word),
		Funct3: funct3(word),
		Imm:    int32(word) >> 20,
	}
}

// decodeS decodes: imm[11:5] | rs2 | rs1 | funct3 | imm[4:0] | opcode
func (d *Decoder) decodeS(word uint32) SType {
	imm := (((word >> 25) & 0x7F) << 5) | ((word >> 7) & 0x1F)
	return SType{
		Rs1:    rs1(word),
		Rs2:    rs2(word),
		Funct3: funct3(word),
		Imm:    signExtend(imm, 12),
	}
}

// decodeB decodes: imm[12|10:5] | rs2 | rs1 | funct3 | imm[4:1|11] | opcode
func (d *Decoder) decodeB(word uint32) BType {
	imm := (((word >> 31) & 0x1) << 12) |
		(((word >> 7) & 0x1) << 11) |
		(((word >> 25) & 0x3F) << 5) |
		(((word >> 8) & 0xF) << 1)
	return BType{
		Rs1:    rs1(word),
		Rs2:    rs2(word),
		Funct3: funct3(word),
		Imm:    signExtend(imm, 13),
	}
}

// decodeU decodes: imm[31:12] | rd | opcode
func (d *Decoder) decodeU(word uint32) UType {
	return UType{
		Rd:  rd(word),
		Imm: int32(word & 0xFFFFF000),
	}
}

// decodeJ decodes: imm[20|10:1|11|19:12] | rd | opcode
func (d *Decoder) decodeJ(word uint32) JType {
	imm := (((word >> 31) & 0x1) << 20) |
		(((word >> 12) & 0xFF) << 12) |
		(((word >> 20) & 0x1) << 11) |
		(((word >> 21) & 0x3FF) << 1)
	return JType{
		Rd:  rd(word),
		Imm: signExtend(imm, 21),
	}
}
