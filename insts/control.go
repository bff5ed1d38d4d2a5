package insts

// ALUOp selects the ALU operation for an instruction.
type ALUOp uint8

// ALU operations.
const (
	ALUNone ALUOp = iota
	ALUAdd
	ALUSub
	ALUMul
	ALUDiv
	ALUSll
	ALUSrl
	ALUSra
	ALUSlli
	ALUSrli
	ALUSrai
)

var aluOpNames = [...]string{
	"NONE", "ADD", "SUB", "MUL", "DIV", "SLL", "SRL", "SRA", "SLLI", "SRLI", "SRAI",
}

// String returns the operation name.
func (op ALUOp) String() string {
	if int(op) < len(aluOpNames) {
		return aluOpNames[op]
	}
	return "NONE"
}

// ControlSignals are the datapath controls derived from an instruction.
type ControlSignals struct {
	RegWrite bool  // Instruction writes rd
	MemRead  bool  // Load
	MemWrite bool  // Store
	Branch   bool  // Conditional branch
	ALUOp    ALUOp // Execute-stage operation
}

// ControlUnit derives control signals from decoded instructions. It is
// stateless; the zero value is ready to use.
type ControlUnit struct{}

// NewControlUnit creates a new control unit.
func NewControlUnit() *ControlUnit {
	return &ControlUnit{}
}

// rFunct maps (funct7, funct3) of R-type instructions to ALU operations.
var rFunct = map[[2]uint8]ALUOp{
	{0x00, 0x0}: ALUAdd,
	{0x20, 0x0}: ALUSub,
	{0x00, 0x1}: ALUSll,
	{0x00, 0x5}: ALUSrl,
	{0x20, 0x5}: ALUSra,
	{0x01, 0x0}: ALUMul,
	{0x01, 0x4}: ALUDiv,
}

// Decode returns the control signals for inst. Unknown instructions and
// NOPs yield all-false signals.
func (c *ControlUnit) Decode(inst Instruction) ControlSignals {
	var sig ControlSignals

	switch inst.Format {
	case FormatR:
		sig.RegWrite = true
		sig.ALUOp = rFunct[[2]uint8{inst.Funct7(), inst.Funct3()}]

	case FormatI:
		switch inst.Opcode {
		case OpcodeOpImm:
			sig.RegWrite = true
			sig.ALUOp = ALUAdd
			switch inst.Funct3() {
			case 0x1:
				sig.ALUOp = ALUSlli
			case 0x5:
				// bit 30 separates arithmetic from logical shifts
				if inst.Word&(1<<30) != 0 {
					sig.ALUOp = ALUSrai
				} else {
					sig.ALUOp = ALUSrli
				}
			}
		case OpcodeLoad:
			sig.RegWrite = true
			sig.MemRead = true
			sig.ALUOp = ALUAdd
		case OpcodeJALR:
			sig.RegWrite = true
			sig.ALUOp = ALUAdd
		}

	case FormatS:
		sig.MemWrite = true
		sig.ALUOp = ALUAdd

	case FormatB:
		sig.Branch = true
		sig.ALUOp = ALUSub

	case FormatU, FormatJ:
		sig.RegWrite = true
	}

	return sig
}
