package codec

import "github.com/bgrewell/nufx-kit/pkg/nufxio"

func crcUpdate(crc uint16, data []byte) uint16 {
	return nufxio.CRCUpdate(crc, data)
}
