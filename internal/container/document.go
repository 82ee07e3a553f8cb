package container

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"

	"golang.org/x/net/html/charset"
)

// Document is the XML payload of a container. It is immutable: callers get
// copies of the bytes, and edits go through NewDocument.
//
// A Document returned by Parse keeps the compressed bodies it was decoded
// from so Build can reproduce the device's exact bytes.
type Document struct {
	text   []byte
	chunks []chunk
}

// NewDocument wraps text without validating it.
func NewDocument(text []byte) Document {
	buf := make([]byte, len(text))
	copy(buf, text)
	return Document{text: buf}
}

// Bytes returns a copy of the payload.
func (d Document) Bytes() []byte {
	buf := make([]byte, len(d.text))
	copy(buf, d.text)
	return buf
}

func (d Document) Len() int {
	return len(d.text)
}

// Equal compares payload bytes only.
func (d Document) Equal(other Document) bool {
	return bytes.Equal(d.text, other.text)
}

// Validate checks that the payload is a single well-formed XML document.
func (d Document) Validate() error {
	return validateXML(d.text)
}

// utf8BOM may open a document; encoding/xml reports it as character data.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func validateXML(b []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(bytes.TrimPrefix(b, utf8BOM)))
	dec.CharsetReader = charset.NewReaderLabel

	depth, roots := 0, 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return PayloadMalformedError{Reason: "xml", Err: err}
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					return PayloadMalformedError{Reason: "multiple root elements"}
				}
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) != 0 {
				return PayloadMalformedError{Reason: "text outside root element"}
			}
		}
	}
	if roots == 0 {
		return PayloadMalformedError{Reason: "no root element"}
	}
	return nil
}
