package pngexif

import (
    "fmt"
    "unicode/utf8"
)

const _chunkTypeSize = 4

// PngChunk describes one chunk of a PNG file: its 4-character type and the
// length of its data field. The length excludes the length, type and CRC
// fields themselves.
type PngChunk struct {
    Length  uint32
    Type    string
}

func newPngChunk( length uint32, cType []byte ) (PngChunk, error) {
    if len(cType) != _chunkTypeSize || ! utf8.Valid( cType ) {
        return PngChunk{}, fmt.Errorf( "newPngChunk: invalid chunk type %q", cType )
    }
    return PngChunk{ Length: length, Type: string(cType) }, nil
}
