package pipeline

import "github.com/sarchlab/rvsim/insts"

// ForwardSource indicates where a forwarded value should come from.
type ForwardSource int

const (
	// ForwardNone means no forwarding needed - use register file value.
	ForwardNone ForwardSource = iota
	// ForwardFromEXMEM means forward from EX/MEM pipeline register.
	ForwardFromEXMEM
	// ForwardFromMEMWB means forward from MEM/WB pipeline register.
	ForwardFromMEMWB
)

// ForwardingResult contains forwarding decisions for both source operands.
type ForwardingResult struct {
	// ForwardRs1 specifies the forwarding source for the rs1 operand.
	ForwardRs1 ForwardSource
	// ForwardRs2 specifies the forwarding source for the rs2 operand
	// (second ALU operand or store data).
	ForwardRs2 ForwardSource
}

// Count returns the number of forwarded operands.
func (r ForwardingResult) Count() int {
	n := 0
	if r.ForwardRs1 != ForwardNone {
		n++
	}
	if r.ForwardRs2 != ForwardNone {
		n++
	}
	return n
}

// StallResult contains stall and flush control signals.
type StallResult struct {
	// StallIF indicates the IF stage should stall (hold current instruction).
	StallIF bool
	// StallID indicates the ID stage should stall.
	StallID bool
	// InsertBubbleEX indicates a bubble (NOP) should be inserted in EX stage.
	InsertBubbleEX bool
	// FlushIF indicates the sequential fetch is squashed (redirect).
	FlushIF bool
}

// HazardUnit detects data hazards and determines forwarding/stall signals.
type HazardUnit struct {
	forwarding bool
}

// NewHazardUnit creates a new hazard detection unit. With forwarding
// disabled every RAW dependency on an in-flight producer stalls.
func NewHazardUnit(forwarding bool) *HazardUnit {
	return &HazardUnit{forwarding: forwarding}
}

// Forwarding reports whether bypassing is enabled.
func (h *HazardUnit) Forwarding() bool {
	return h.forwarding
}

// DetectForwarding determines if forwarding is needed for the ID/EX stage.
// It checks if the source registers match the destination register of
// instructions in later pipeline stages.
func (h *HazardUnit) DetectForwarding(
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardingResult {
	result := ForwardingResult{}

	if !h.forwarding || !idex.Valid {
		return result
	}

	sources := idex.Inst.Sources()
	result.ForwardRs1 = h.detectForwardForReg(sources[0], exmem, memwb)
	result.ForwardRs2 = h.detectForwardForReg(sources[1], exmem, memwb)

	return result
}

// detectForwardForReg checks if a specific register needs forwarding.
// EX/MEM has precedence over MEM/WB. A load in EX/MEM has no data yet; its
// stale MEM/WB predecessor must not be used either.
func (h *HazardUnit) detectForwardForReg(
	reg uint8,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) ForwardSource {
	if reg == 0 {
		return ForwardNone
	}

	if exmem.writes(reg) {
		if exmem.Ctrl.MemRead {
			return ForwardNone
		}
		return ForwardFromEXMEM
	}

	if memwb.writes(reg) {
		return ForwardFromMEMWB
	}

	return ForwardNone
}

// GetForwardedValue returns the operand value for the given source.
func (h *HazardUnit) GetForwardedValue(
	source ForwardSource,
	regValue uint32,
	exmem *EXMEMRegister,
	memwb *MEMWBRegister,
) uint32 {
	switch source {
	case ForwardFromEXMEM:
		return exmem.ALUResult
	case ForwardFromMEMWB:
		return memwb.Result()
	}
	return regValue
}

// DetectLoadUseHazard detects load-use hazards where a load instruction
// is immediately followed by an instruction using the loaded value. Store
// data is exempt because the memory stage bypasses it from MEM/WB.
func (h *HazardUnit) DetectLoadUseHazard(idex *IDEXRegister, next insts.Instruction) bool {
	if !idex.Valid || !idex.Ctrl.MemRead || idex.Rd == 0 {
		return false
	}

	sources := next.Sources()
	if next.Format == insts.FormatS {
		sources[1] = 0
	}

	return sources[0] == idex.Rd || sources[1] == idex.Rd
}

// DetectDataHazard detects any RAW dependency of next on the instructions
// in ID/EX or EX/MEM. It is the stall condition when forwarding is off.
func (h *HazardUnit) DetectDataHazard(
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	next insts.Instruction,
) bool {
	for _, src := range next.Sources() {
		if src == 0 {
			continue
		}
		if idex.writes(src) || exmem.writes(src) {
			return true
		}
	}
	return false
}

// DetectBranchHazard detects dependencies of a decode-resolved branch or
// JALR that bypassing cannot satisfy: a producer still in execute, or a
// load still in the memory stage.
func (h *HazardUnit) DetectBranchHazard(
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	next insts.Instruction,
) bool {
	if !resolvesInDecode(next) {
		return false
	}

	for _, src := range next.Sources() {
		if src == 0 {
			continue
		}
		if idex.writes(src) {
			return true
		}
		if exmem.writes(src) && exmem.Ctrl.MemRead {
			return true
		}
	}
	return false
}

// DetectStall reports whether next must be held in IF/ID this cycle and
// why.
func (h *HazardUnit) DetectStall(
	idex *IDEXRegister,
	exmem *EXMEMRegister,
	next insts.Instruction,
) (bool, string) {
	if !h.forwarding {
		if h.DetectDataHazard(idex, exmem, next) {
			return true, "data hazard"
		}
		return false, ""
	}

	if h.DetectLoadUseHazard(idex, next) {
		return true, "load-use hazard"
	}
	if h.DetectBranchHazard(idex, exmem, next) {
		return true, "branch operand not ready"
	}
	return false, ""
}

// ComputeStalls determines stall and flush signals for the front end.
func (h *HazardUnit) ComputeStalls(stall bool, redirect bool) StallResult {
	result := StallResult{}

	if stall {
		result.StallIF = true
		result.StallID = true
		result.InsertBubbleEX = true
		return result
	}

	if redirect {
		result.FlushIF = true
	}

	return result
}

// resolvesInDecode reports whether the instruction reads operands during
// decode to resolve control flow.
func resolvesInDecode(inst insts.Instruction) bool {
	return inst.Format == insts.FormatB ||
		(inst.Format == insts.FormatI && inst.Opcode == insts.OpcodeJALR)
}
