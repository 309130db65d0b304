package lsb

func getBitUint8(num uint8, index int) uint8 {
	return (num >> uint(index)) & 1
}

func setBitUint8(num uint8, index int) uint8 {
	return num | 1<<uint(index)
}

func clearBitUint8(num uint8, index int) uint8 {
	return num &^ (1 << uint(index))
}

func putBitUint8(num uint8, index int, bit uint8) uint8 {
	if bit == 0 {
		return clearBitUint8(num, index)
	}
	return setBitUint8(num, index)
}
