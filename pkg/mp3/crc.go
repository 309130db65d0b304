package mp3

// CRC16 is the MPEG audio frame checksum: polynomial 0x8005, initial value
// 0xFFFF, MSB first, computed over header bytes 2 and 3 followed by the side
// information.
func CRC16(parts ...[]byte) uint16 {
	crc := uint16(0xFFFF)
	for _, p := range parts {
		for _, b := range p {
			for i := 7; i >= 0; i-- {
				in := uint16(b>>uint(i)) & 1
				top := crc >> 15
				crc <<= 1
				if top^in != 0 {
					crc ^= 0x8005
				}
			}
		}
	}
	return crc
}
