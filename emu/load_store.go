package emu

import "encoding/binary"

// Load and store funct3 encodings.
const (
	Funct3Byte   uint8 = 0x0 // LB / SB
	Funct3Half   uint8 = 0x1 // LH / SH
	Funct3Word   uint8 = 0x2 // LW / SW
	Funct3Double uint8 = 0x3 // SD
	Funct3ByteU  uint8 = 0x4 // LBU
	Funct3HalfU  uint8 = 0x5 // LHU
)

// LoadStoreUnit performs width- and sign-aware data memory accesses.
type LoadStoreUnit struct {
	memory *Memory
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to memory.
func NewLoadStoreUnit(memory *Memory) *LoadStoreUnit {
	return &LoadStoreUnit{memory: memory}
}

// LoadWidth returns the access width in bytes for a load funct3, or 0 for
// encodings that do not load.
func LoadWidth(funct3 uint8) int {
	switch funct3 {
	case Funct3Byte, Funct3ByteU:
		return 1
	case Funct3Half, Funct3HalfU:
		return 2
	case Funct3Word:
		return 4
	}
	return 0
}

// StoreWidth returns the access width in bytes for a store funct3, or 0
// for encodings that do not store.
func StoreWidth(funct3 uint8) int {
	switch funct3 {
	case Funct3Byte:
		return 1
	case Funct3Half:
		return 2
	case Funct3Word:
		return 4
	case Funct3Double:
		return 8
	}
	return 0
}

// Load reads the value selected by funct3 at addr. Signed forms are
// sign-extended. Reserved encodings load 0. An out-of-range access
// returns 0 and an error wrapping ErrOutOfRange.
func (u *LoadStoreUnit) Load(funct3 uint8, addr uint32) (uint32, error) {
	width := LoadWidth(funct3)
	if width == 0 {
		return 0, nil
	}

	data, err := u.memory.Read(addr, width)
	if err != nil {
		return 0, err
	}

	switch funct3 {
	case Funct3Byte:
		return uint32(int32(int8(data[0]))), nil
	case Funct3ByteU:
		return uint32(data[0]), nil
	case Funct3Half:
		return uint32(int32(int16(binary.LittleEndian.Uint16(data)))), nil
	case Funct3HalfU:
		return uint32(binary.LittleEndian.Uint16(data)), nil
	default:
		return binary.LittleEndian.Uint32(data), nil
	}
}

// Store writes the low bytes of value selected by funct3 at addr. SD
// writes value sign-extended to 64 bits. Reserved encodings are no-ops.
func (u *LoadStoreUnit) Store(funct3 uint8, addr, value uint32) error {
	width := StoreWidth(funct3)
	if width == 0 {
		return nil
	}

	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, uint64(int64(int32(value))))

	return u.memory.Write(addr, data[:width])
}
