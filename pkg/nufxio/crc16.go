package nufxio

// CRC-16/CCITT-FALSE-style table, poly 0x1021, initial value 0x0000,
// non-reflected. This is the checksum NuFX uses for every header and for
// thread/uncompressed data integrity.

var crc16Table [256]uint16

func init() {
	const poly = 0x1021
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for bit := 0; bit < 8; bit++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crc16Table[i] = crc
	}
}

// CRCUpdate folds data into crc using the table-driven CCITT-16 update.
func CRCUpdate(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}

// CRC16 computes the CCITT-16 checksum (init 0x0000) of data.
func CRC16(data []byte) uint16 {
	return CRCUpdate(0, data)
}
