// Package container owns the CTCE8 configuration container codec.
//
// Ownership boundary:
// - layout constants and integrity arithmetic (layout.go, integrity.go)
// - chunk framing and zlib streams (chunk.go)
// - validated parse of device containers (parse.go)
// - byte-exact container build (build.go)
//
// The package works on in-memory buffers only. File handling and operator
// output live in cmd/ctce8.
package container
