package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Container is the validated content of one CTCE8 configuration file.
type Container struct {
	// Identifier is the device model string with field padding removed.
	Identifier string
	// IdentifierWidth is the stored width of the identifier field.
	IdentifierWidth int
	Document        Document
	Header          ConfigHeader
	Chunks          []ChunkHeader
	Size            int
}

// Parse validates b and extracts the document and device identifier. Checks
// run in a fixed order and the first failure is returned; no partial result
// is produced.
func Parse(b []byte) (*Container, error) {
	if len(b) < MinContainerSize {
		return nil, TooShortError{Length: len(b)}
	}
	if off := mismatch(b[:PrefixMagicLen], prefixMagic); off >= 0 {
		return nil, BadMagicError{Offset: off}
	}
	if off := mismatch(b[TrailerMagicStart:IdentifierLenAt], trailerMagic); off >= 0 {
		return nil, BadMagicError{Offset: TrailerMagicStart + off}
	}

	size := binary.LittleEndian.Uint32(b[SizeFieldOffset:])
	if want := SizeField(len(b)); size != want {
		return nil, LengthOutOfRangeError{Field: "file size", Declared: uint64(size), Limit: uint64(want)}
	}

	width := binary.BigEndian.Uint32(b[IdentifierLenAt:])
	limit := min(uint64(MaxIdentifierLen), uint64(len(b)-MinContainerSize))
	if uint64(width) > limit {
		return nil, LengthOutOfRangeError{Field: "identifier length", Declared: uint64(width), Limit: limit}
	}
	field := b[IdentifierOffset : IdentifierOffset+int(width)]
	identifier := string(bytes.TrimRight(field, string([]byte{IdentifierPad})))

	h := ConfigHeaderOffset(int(width))
	header, err := parseConfigHeader(b, h)
	if err != nil {
		return nil, err
	}

	headers, chunks, err := walkChunks(b, h)
	if err != nil {
		return nil, err
	}

	var crc uint32
	for _, c := range chunks {
		crc = ChecksumUpdate(crc, c.body)
	}
	if crc != header.PayloadCRC {
		return nil, ChecksumMismatchError{Field: "payload", Expected: header.PayloadCRC, Actual: crc}
	}

	rawTotal := 0
	for _, c := range chunks {
		rawTotal += c.rawSize
	}
	text := make([]byte, 0, rawTotal)
	for i, c := range chunks {
		out, err := decompressChunk(i, c.body, uint32(c.rawSize))
		if err != nil {
			return nil, err
		}
		text = append(text, out...)
	}
	if uint64(len(text)) != uint64(header.UncompressedSize) {
		return nil, LengthOutOfRangeError{
			Field:    "uncompressed size",
			Declared: uint64(header.UncompressedSize),
			Limit:    uint64(len(text)),
		}
	}
	if err := validateXML(text); err != nil {
		return nil, err
	}

	return &Container{
		Identifier:      identifier,
		IdentifierWidth: int(width),
		Document:        Document{text: text, chunks: chunks},
		Header:          header,
		Chunks:          headers,
		Size:            len(b),
	}, nil
}

// Rebuild serializes the container again with its original identifier
// width. For a container read from a device the result equals the input.
func (c *Container) Rebuild() ([]byte, error) {
	return Build(c.Document, c.Identifier, WithIdentifierWidth(c.IdentifierWidth))
}

// parseConfigHeader validates the config header at h. The header checksum
// is checked before its fields are trusted, so a damaged magic word at
// h+0..h+8 reports ChecksumMismatch rather than BadMagic; BadMagic here
// means the header was resealed around a wrong constant.
func parseConfigHeader(b []byte, h int) (ConfigHeader, error) {
	raw := b[h : h+ConfigHeaderLen]
	header := decodeConfigHeader(raw)

	covered := raw[:ConfigHeaderChecksumLen]
	if !VerifyChecksum(header.HeaderCRC, covered) {
		return ConfigHeader{}, ChecksumMismatchError{
			Field:    "config header",
			Expected: header.HeaderCRC,
			Actual:   Checksum(covered),
		}
	}

	template := encodeConfigHeader(ConfigHeader{Magic: ConfigMagic, ChunkSize: ChunkSize})
	for _, span := range [][2]int{
		{cfgMagicAt, cfgUncompressedSizeAt},
		{cfgChunkSizeAt, cfgPayloadCRCAt},
		{cfgReservedAt, ConfigHeaderLen},
	} {
		if off := mismatch(raw[span[0]:span[1]], template[span[0]:span[1]]); off >= 0 {
			return ConfigHeader{}, BadMagicError{Offset: h + span[0] + off}
		}
	}

	if actual := len(b) - h; uint64(header.DataSize) != uint64(actual) {
		return ConfigHeader{}, LengthOutOfRangeError{
			Field:    "data size",
			Declared: uint64(header.DataSize),
			Limit:    uint64(actual),
		}
	}
	return header, nil
}

// walkChunks follows the chunk chain starting after the config header at h.
// Every header and body must lie inside b, end offsets must chain exactly
// and the chain must finish with a chunk whose end offset is 0.
func walkChunks(b []byte, h int) ([]ChunkHeader, []chunk, error) {
	var (
		headers []ChunkHeader
		chunks  []chunk
	)
	dataEnd := uint64(len(b) - h)
	prevEnd := uint64(ConfigHeaderLen)
	pos := h + ConfigHeaderLen

	for i := 0; ; i++ {
		if pos+ChunkHeaderLen > len(b) {
			return nil, nil, LengthOutOfRangeError{
				Field:    fmt.Sprintf("chunk[%d] header", i),
				Declared: uint64(pos + ChunkHeaderLen),
				Limit:    uint64(len(b)),
			}
		}
		ch, err := DecodeChunkHeader(b[pos : pos+ChunkHeaderLen])
		if err != nil {
			return nil, nil, err
		}
		if ch.RawSize > ChunkSize {
			return nil, nil, LengthOutOfRangeError{
				Field:    fmt.Sprintf("chunk[%d] raw size", i),
				Declared: uint64(ch.RawSize),
				Limit:    ChunkSize,
			}
		}

		bodyStart := pos + ChunkHeaderLen
		bodyEnd := len(b)
		if !ch.Last() {
			end := uint64(ch.EndOffset)
			if end > dataEnd {
				return nil, nil, LengthOutOfRangeError{
					Field:    fmt.Sprintf("chunk[%d] end offset", i),
					Declared: end,
					Limit:    dataEnd,
				}
			}
			if end < prevEnd+ChunkHeaderLen {
				return nil, nil, LengthOutOfRangeError{
					Field:    fmt.Sprintf("chunk[%d] end offset", i),
					Declared: end,
					Limit:    prevEnd + ChunkHeaderLen,
				}
			}
			bodyEnd = h + int(end)
			prevEnd = end
		}

		if bodyLen := bodyEnd - bodyStart; uint64(ch.CompressedSize) != uint64(bodyLen) {
			return nil, nil, LengthOutOfRangeError{
				Field:    fmt.Sprintf("chunk[%d] compressed size", i),
				Declared: uint64(ch.CompressedSize),
				Limit:    uint64(bodyLen),
			}
		}

		body := make([]byte, bodyEnd-bodyStart)
		copy(body, b[bodyStart:bodyEnd])
		headers = append(headers, ch)
		chunks = append(chunks, chunk{rawSize: int(ch.RawSize), body: body})

		if ch.Last() {
			return headers, chunks, nil
		}
		pos = bodyEnd
	}
}

// mismatch returns the index of the first byte where got differs from want,
// or -1 when they are equal.
func mismatch(got, want []byte) int {
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			return i
		}
	}
	return -1
}
