// internal/status/encode.go
package status

// Encode converts a Snapshot into the live slots of a status block.
// Layout is protocol-locked. Name slots are left zero.
// No IO. No side effects.
func Encode(s Snapshot) []uint16 {
	regs := make([]uint16, SlotsPerInstance)

	regs[SlotInstanceCode] = s.Instance.Code()
	regs[SlotContainerCode] = s.Container.Code()
	regs[SlotHealthCode] = s.Health.Code()
	regs[SlotSecondsInState] = s.SecondsInState

	return regs
}

// EncodeName packs up to 16 ASCII characters into 8 registers,
// two bytes per register, big-endian. Non-printable bytes become '?'.
func EncodeName(name string) []uint16 {
	out := make([]uint16, SlotNameSlots)

	b := []byte(name)
	if len(b) > NameMaxChars {
		b = b[:NameMaxChars]
	}

	for i := 0; i < len(b); i++ {
		if b[i] < 0x20 || b[i] > 0x7E {
			b[i] = '?'
		}
	}

	for i := 0; i < NameMaxChars; i += 2 {
		var hi, lo byte
		if i < len(b) {
			hi = b[i]
		}
		if i+1 < len(b) {
			lo = b[i+1]
		}
		out[i/2] = uint16(hi)<<8 | uint16(lo)
	}

	return out
}

// EncodeBlock returns a full status block: live slots plus the instance name.
func EncodeBlock(s Snapshot, name string) []uint16 {
	regs := Encode(s)
	copy(regs[SlotNameStart:SlotNameEnd+1], EncodeName(name))
	return regs
}
