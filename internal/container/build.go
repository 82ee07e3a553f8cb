package container

import (
	"encoding/binary"
	"math"
	"strings"
)

type buildOptions struct {
	identifierWidth int
}

// BuildOption adjusts Build.
type BuildOption func(*buildOptions)

// WithIdentifierWidth stores the identifier in a field of exactly width
// bytes, padded with IdentifierPad. Without it the field is as wide as the
// identifier.
func WithIdentifierWidth(width int) BuildOption {
	return func(o *buildOptions) {
		o.identifierWidth = width
	}
}

// Build lays out a container for doc and identifier. The document content
// is not validated. An identifier ending in IdentifierPad is rejected since
// Parse could not tell it from padding. An unedited Document obtained from Parse reuses its
// original compressed chunks.
func Build(doc Document, identifier string, opts ...BuildOption) ([]byte, error) {
	o := buildOptions{identifierWidth: -1}
	for _, opt := range opts {
		opt(&o)
	}

	width := len(identifier)
	if o.identifierWidth >= 0 {
		width = o.identifierWidth
	}
	if len(identifier) > width {
		return nil, IdentifierTooLongError{Length: len(identifier), Width: width}
	}
	if strings.HasSuffix(identifier, string(rune(IdentifierPad))) {
		return nil, IdentifierPaddedError{Length: len(identifier)}
	}
	if width > MaxIdentifierLen {
		return nil, IdentifierTooLongError{Length: width, Width: MaxIdentifierLen}
	}
	if uint64(doc.Len()) > math.MaxUint32 {
		return nil, LengthOutOfRangeError{Field: "uncompressed size", Declared: uint64(doc.Len()), Limit: math.MaxUint32}
	}

	chunks, err := documentChunks(doc)
	if err != nil {
		return nil, err
	}
	chunkBytes := 0
	for _, c := range chunks {
		chunkBytes += ChunkHeaderLen + len(c.body)
	}
	total := ContainerSize(width, chunkBytes)
	if uint64(total) > math.MaxUint32 {
		return nil, LengthOutOfRangeError{Field: "file size", Declared: uint64(total), Limit: math.MaxUint32}
	}

	buf := make([]byte, total)
	copy(buf, prefixMagic)
	binary.LittleEndian.PutUint32(buf[SizeFieldOffset:], SizeField(total))
	copy(buf[TrailerMagicStart:], trailerMagic)
	binary.BigEndian.PutUint32(buf[IdentifierLenAt:], uint32(width))
	n := copy(buf[IdentifierOffset:], identifier)
	for i := n; i < width; i++ {
		buf[IdentifierOffset+i] = IdentifierPad
	}

	h := ConfigHeaderOffset(width)
	pos := h + ConfigHeaderLen
	end := ConfigHeaderLen
	var crc uint32
	for i, c := range chunks {
		end += ChunkHeaderLen + len(c.body)
		ch := ChunkHeader{
			RawSize:        uint32(c.rawSize),
			CompressedSize: uint32(len(c.body)),
			EndOffset:      uint32(end),
		}
		if i == len(chunks)-1 {
			ch.EndOffset = lastChunkEnd
		}
		pos += copy(buf[pos:], EncodeChunkHeader(ch))
		pos += copy(buf[pos:], c.body)
		crc = ChecksumUpdate(crc, c.body)
	}

	header := encodeConfigHeader(ConfigHeader{
		Magic:            ConfigMagic,
		UncompressedSize: uint32(doc.Len()),
		DataSize:         DataSize(chunkBytes),
		ChunkSize:        ChunkSize,
		PayloadCRC:       crc,
	})
	binary.BigEndian.PutUint32(header[cfgHeaderCRCAt:], Checksum(header[:ConfigHeaderChecksumLen]))
	copy(buf[h:], header)

	return buf, nil
}

func documentChunks(doc Document) ([]chunk, error) {
	if len(doc.chunks) > 0 {
		return doc.chunks, nil
	}
	parts := splitPayload(doc.text)
	chunks := make([]chunk, 0, len(parts))
	for _, part := range parts {
		body, err := compressChunk(part)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk{rawSize: len(part), body: body})
	}
	return chunks, nil
}
