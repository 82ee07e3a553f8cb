package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"testing"

	"github.com/klauspost/compress/zlib"
)

const testModel = "ZXHN F450"

func sampleXML() []byte {
	var sb strings.Builder
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<DB>\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "<Tbl name=\"WLANCfg%d\" RowCount=\"1\">\n<Row No=\"0\">\n<DM name=\"ESSID\" val=\"ChinaNet-%04d\"/>\n</Row>\n</Tbl>\n", i, i)
	}
	sb.WriteString("</DB>\n")
	return []byte(sb.String())
}

// largeXML returns a well-formed document of exactly size bytes.
func largeXML(t *testing.T, size int) []byte {
	t.Helper()
	head := []byte("<DB>")
	tail := []byte("</DB>")
	if size < len(head)+len(tail) {
		t.Fatalf("size %d too small", size)
	}
	body := bytes.Repeat([]byte("x"), size-len(head)-len(tail))
	for i := 0; i < len(body); i += 97 {
		body[i] = byte('a' + i%26)
	}
	return append(append(append([]byte{}, head...), body...), tail...)
}

func buildSample(t *testing.T) []byte {
	t.Helper()
	out, err := Build(NewDocument(sampleXML()), testModel)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return out
}

// deviceContainer assembles a container by hand the way the device firmware
// writes it, using stored (level 0) zlib streams so the bodies differ from
// what Build would produce.
func deviceContainer(t *testing.T, identifier string, width int, payload []byte) []byte {
	t.Helper()
	var bodies [][]byte
	var raws []int
	for off := 0; off < len(payload); off += ChunkSize {
		end := min(off+ChunkSize, len(payload))
		var buf bytes.Buffer
		zw, err := zlib.NewWriterLevel(&buf, zlib.NoCompression)
		if err != nil {
			t.Fatalf("zlib writer: %v", err)
		}
		if _, err := zw.Write(payload[off:end]); err != nil {
			t.Fatalf("zlib write: %v", err)
		}
		if err := zw.Close(); err != nil {
			t.Fatalf("zlib close: %v", err)
		}
		bodies = append(bodies, buf.Bytes())
		raws = append(raws, end-off)
	}

	var data bytes.Buffer
	var crc uint32
	end := uint32(60)
	for i, body := range bodies {
		end += 12 + uint32(len(body))
		offset := end
		if i == len(bodies)-1 {
			offset = 0
		}
		var hdr [12]byte
		binary.BigEndian.PutUint32(hdr[0:], uint32(raws[i]))
		binary.BigEndian.PutUint32(hdr[4:], uint32(len(body)))
		binary.BigEndian.PutUint32(hdr[8:], offset)
		data.Write(hdr[:])
		data.Write(body)
		crc = ChecksumUpdate(crc, body)
	}

	var out bytes.Buffer
	for _, w := range []uint32{0x99999999, 0x44444444, 0x55555555, 0xAAAAAAAA, 0, 0, 0x04000000, 0, 0, 0, 0, 0, 0, 0, 0, 0x40000000, 0x02000000, 0x80000000} {
		_ = binary.Write(&out, binary.BigEndian, w)
	}
	total := 140 + width + 60 + data.Len()
	_ = binary.Write(&out, binary.LittleEndian, uint32(total-128))
	out.Write(make([]byte, 52))
	_ = binary.Write(&out, binary.BigEndian, uint32(0x04030201))
	_ = binary.Write(&out, binary.BigEndian, uint32(0))
	_ = binary.Write(&out, binary.BigEndian, uint32(width))
	field := make([]byte, width)
	copy(field, identifier)
	out.Write(field)

	cfg := make([]byte, 60)
	binary.BigEndian.PutUint32(cfg[0:], 0x01020304)
	binary.BigEndian.PutUint32(cfg[8:], uint32(len(payload)))
	binary.BigEndian.PutUint32(cfg[12:], uint32(60+data.Len()))
	binary.BigEndian.PutUint32(cfg[16:], 0x10000)
	binary.BigEndian.PutUint32(cfg[20:], crc)
	binary.BigEndian.PutUint32(cfg[24:], Checksum(cfg[:24]))
	out.Write(cfg)
	out.Write(data.Bytes())
	return out.Bytes()
}

// reseal recomputes the payload and header checksums of a single-chunk
// container after a test edited its body.
func reseal(b []byte, width int) {
	h := ConfigHeaderOffset(width)
	body := b[h+ConfigHeaderLen+ChunkHeaderLen:]
	binary.BigEndian.PutUint32(b[h+cfgPayloadCRCAt:], Checksum(body))
	binary.BigEndian.PutUint32(b[h+cfgHeaderCRCAt:], Checksum(b[h:h+ConfigHeaderChecksumLen]))
}
