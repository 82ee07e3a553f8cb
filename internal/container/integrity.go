package container

import "hash/crc32"

// Checksum is the CRC-32 (IEEE) used for both the config header and the
// payload chain.
func Checksum(b []byte) uint32 {
	return ChecksumUpdate(0, b)
}

// ChecksumUpdate continues a checksum chain. The payload CRC is the chain
// over all compressed chunk bodies in order, seeded with 0.
func ChecksumUpdate(crc uint32, b []byte) uint32 {
	return crc32.Update(crc, crc32.IEEETable, b)
}

// VerifyChecksum reports whether b checksums to expected.
func VerifyChecksum(expected uint32, b []byte) bool {
	return Checksum(b) == expected
}

// SizeField is the value stored little-endian at SizeFieldOffset for a
// container of total bytes.
func SizeField(total int) uint32 {
	return uint32(total - SizeFieldBias)
}

// DataSize is the config header's data size for chunkBytes of framed chunks.
func DataSize(chunkBytes int) uint32 {
	return uint32(ConfigHeaderLen + chunkBytes)
}

// ContainerSize is the total length of a container with the given
// identifier width and framed chunk bytes.
func ContainerSize(identifierWidth, chunkBytes int) int {
	return ConfigHeaderOffset(identifierWidth) + int(DataSize(chunkBytes))
}
