package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// ChunkHeader is the fixed 12-byte header in front of each compressed body.
// EndOffset is measured from the start of the config header; the final
// chunk stores 0.
type ChunkHeader struct {
	RawSize        uint32
	CompressedSize uint32
	EndOffset      uint32
}

// Last reports whether the header marks the final chunk.
func (h ChunkHeader) Last() bool {
	return h.EndOffset == lastChunkEnd
}

func EncodeChunkHeader(h ChunkHeader) []byte {
	buf := make([]byte, ChunkHeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.RawSize)
	binary.BigEndian.PutUint32(buf[4:8], h.CompressedSize)
	binary.BigEndian.PutUint32(buf[8:12], h.EndOffset)
	return buf
}

func DecodeChunkHeader(b []byte) (ChunkHeader, error) {
	if len(b) != ChunkHeaderLen {
		return ChunkHeader{}, fmt.Errorf("container: invalid chunk header length: %d", len(b))
	}
	return ChunkHeader{
		RawSize:        binary.BigEndian.Uint32(b[0:4]),
		CompressedSize: binary.BigEndian.Uint32(b[4:8]),
		EndOffset:      binary.BigEndian.Uint32(b[8:12]),
	}, nil
}

// chunk is one compressed body with the payload size it expands to.
type chunk struct {
	rawSize int
	body    []byte
}

// splitPayload cuts payload into ChunkSize pieces. An empty payload still
// yields one (empty) chunk so every container has a final chunk.
func splitPayload(payload []byte) [][]byte {
	if len(payload) == 0 {
		return [][]byte{payload}
	}
	parts := make([][]byte, 0, (len(payload)+ChunkSize-1)/ChunkSize)
	for off := 0; off < len(payload); off += ChunkSize {
		end := min(off+ChunkSize, len(payload))
		parts = append(parts, payload[off:end])
	}
	return parts
}

func compressChunk(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("container: zlib writer: %w", err)
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("container: zlib compress: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("container: zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

// decompressChunk expands one body and checks it yields exactly rawSize
// bytes and consumes the whole body. index is used only to name the chunk
// in errors.
func decompressChunk(index int, body []byte, rawSize uint32) ([]byte, error) {
	br := bytes.NewReader(body)
	zr, err := zlib.NewReader(br)
	if err != nil {
		return nil, PayloadMalformedError{Reason: fmt.Sprintf("chunk[%d] zlib header", index), Err: err}
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, int64(rawSize)+1))
	if err != nil {
		return nil, PayloadMalformedError{Reason: fmt.Sprintf("chunk[%d] zlib stream", index), Err: err}
	}
	if len(out) != int(rawSize) {
		return nil, LengthOutOfRangeError{
			Field:    fmt.Sprintf("chunk[%d] raw size", index),
			Declared: uint64(rawSize),
			Limit:    uint64(len(out)),
		}
	}
	// The stream must fill the body exactly; bytes.Reader is read without
	// buffering so anything left is trailing data.
	if br.Len() != 0 {
		return nil, LengthOutOfRangeError{
			Field:    fmt.Sprintf("chunk[%d] compressed size", index),
			Declared: uint64(len(body)),
			Limit:    uint64(len(body) - br.Len()),
		}
	}
	return out, nil
}
