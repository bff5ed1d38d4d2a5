// Package emu provides functional RV32 emulation and the execution units
// shared with the timing pipeline.
package emu

// NumRegs is the number of general-purpose registers.
const NumRegs = 32

// RegFile represents the RV32 integer register file.
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is hard-wired to zero.
	X [NumRegs]uint32
}

// ReadReg reads a register value. Register 0 and out-of-range register
// numbers read as 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= NumRegs {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are dropped.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= NumRegs {
		return
	}
	r.X[reg] = value
}

// Snapshot returns a copy of all registers.
func (r *RegFile) Snapshot() [NumRegs]uint32 {
	return r.X
}
