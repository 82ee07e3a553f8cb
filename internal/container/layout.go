package container

import "encoding/binary"

// Fixed prefix: magic words, the little-endian size field, a second magic
// block and the identifier length word. The identifier follows at
// IdentifierOffset.
const (
	PrefixMagicLen    = 72
	SizeFieldOffset   = 72
	SizeFieldLen      = 4
	TrailerMagicStart = SizeFieldOffset + SizeFieldLen
	TrailerMagicLen   = 60
	IdentifierLenAt   = TrailerMagicStart + TrailerMagicLen
	IdentifierOffset  = IdentifierLenAt + 4
	PrefixLen         = IdentifierOffset

	// SizeFieldBias is subtracted from the container length before it is
	// stored in the size field.
	SizeFieldBias = 128

	MaxIdentifierLen = 256
	IdentifierPad    = 0x00
)

// Config header, relative to its start (H).
const (
	ConfigHeaderLen         = 60
	cfgMagicAt              = 0
	cfgUncompressedSizeAt   = 8
	cfgDataSizeAt           = 12
	cfgChunkSizeAt          = 16
	cfgPayloadCRCAt         = 20
	cfgHeaderCRCAt          = 24
	cfgReservedAt           = 28
	ConfigHeaderChecksumLen = cfgHeaderCRCAt

	ConfigMagic uint32 = 0x01020304
)

// Data chunks.
const (
	ChunkHeaderLen = 12
	ChunkSize      = 0x10000

	// lastChunkEnd marks the final chunk; its body runs to the end of the
	// container.
	lastChunkEnd = 0
)

// MinContainerSize is the smallest buffer that can hold the fixed prefix,
// an empty identifier, the config header and one chunk header.
const MinContainerSize = PrefixLen + ConfigHeaderLen + ChunkHeaderLen

var prefixMagicWords = [PrefixMagicLen / 4]uint32{
	0x99999999, 0x44444444, 0x55555555, 0xAAAAAAAA,
	0, 0,
	0x04000000,
	0, 0, 0, 0, 0, 0, 0, 0,
	0x40000000,
	0x02000000, 0x80000000,
}

var trailerMagicWords = [TrailerMagicLen / 4]uint32{
	0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0x04030201, 0,
}

var (
	prefixMagic  = wordBytes(prefixMagicWords[:])
	trailerMagic = wordBytes(trailerMagicWords[:])
)

func wordBytes(words []uint32) []byte {
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint32(buf[4*i:], w)
	}
	return buf
}

// ConfigHeaderOffset returns H for an identifier field of the given width.
func ConfigHeaderOffset(identifierWidth int) int {
	return IdentifierOffset + identifierWidth
}

// ConfigHeader is the decoded 60-byte header that precedes the data chunks.
type ConfigHeader struct {
	Magic            uint32
	Reserved         uint32
	UncompressedSize uint32
	DataSize         uint32
	ChunkSize        uint32
	PayloadCRC       uint32
	HeaderCRC        uint32
}

func encodeConfigHeader(h ConfigHeader) []byte {
	buf := make([]byte, ConfigHeaderLen)
	binary.BigEndian.PutUint32(buf[cfgMagicAt:], h.Magic)
	binary.BigEndian.PutUint32(buf[cfgMagicAt+4:], h.Reserved)
	binary.BigEndian.PutUint32(buf[cfgUncompressedSizeAt:], h.UncompressedSize)
	binary.BigEndian.PutUint32(buf[cfgDataSizeAt:], h.DataSize)
	binary.BigEndian.PutUint32(buf[cfgChunkSizeAt:], h.ChunkSize)
	binary.BigEndian.PutUint32(buf[cfgPayloadCRCAt:], h.PayloadCRC)
	binary.BigEndian.PutUint32(buf[cfgHeaderCRCAt:], h.HeaderCRC)
	return buf
}

func decodeConfigHeader(b []byte) ConfigHeader {
	return ConfigHeader{
		Magic:            binary.BigEndian.Uint32(b[cfgMagicAt:]),
		Reserved:         binary.BigEndian.Uint32(b[cfgMagicAt+4:]),
		UncompressedSize: binary.BigEndian.Uint32(b[cfgUncompressedSizeAt:]),
		DataSize:         binary.BigEndian.Uint32(b[cfgDataSizeAt:]),
		ChunkSize:        binary.BigEndian.Uint32(b[cfgChunkSizeAt:]),
		PayloadCRC:       binary.BigEndian.Uint32(b[cfgPayloadCRCAt:]),
		HeaderCRC:        binary.BigEndian.Uint32(b[cfgHeaderCRCAt:]),
	}
}
