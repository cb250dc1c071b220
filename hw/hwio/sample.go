package hwio

// PackStereo packs a stereo sample pair into a 32-bit bus value, left channel
// in the high half.
func PackStereo(left, right int16) uint32 {
	return uint32(uint16(left))<<16 | uint32(uint16(right))
}

func UnpackStereo(v uint32) (left, right int16) {
	return int16(v >> 16), int16(v)
}
