// support for decoding and encoding EXIF/TIFF metadata, and for embedding
// the encoded blob inside PNG files as a compressed zTXt text chunk
package pngexif

import (
    "errors"
    "fmt"
)

/*
    TIFF metadata layout:

    TIFF header:    Note this is the origin of all following offsets
      "II" | "MM"               2-byte endianess (Intel LE/Motorola BE)
                                All following multi-byte values depend on it
      0x002a                    2-byte Magic Number
      0x00000008                4-byte offset of immediately following IFD0

    An IFD has the following layout
      <n>                       2-byte count of following entries
      { IFD entry } * n         12-byte entries
      <offset next IFD>         4-byte offset of the next generic IFD, or
                                4 zero bytes if this is the last one
      <IFD data>                variable length data area for values pointed
                                to by entries and for embedded SubIFDs

    Each IFD entry is:
        entry tag               2-byte unique tag (within its group)
        entry format            2-byte TIFF format code
        component count         4-byte count of components
        value or value offset   4-byte data: the value itself if it fits in
                                4 bytes, otherwise the offset of the value,
                                relative to the TIFF header

    Generic IFDs (IFD0, IFD1, ...) chain linearly through their trailing
    link offset. Specialized IFDs (EXIF, GPS, Interoperability) are only
    reachable through IFD-offset tags in their parent IFD and never chain.
*/

// TagGroup is the namespace an IFD (and the tags inside it) belongs to.
// GENERIC covers the chainable top level IFDs (IFD0, IFD1, ...); the
// others are reached through IFD-offset tags only.
type TagGroup uint

const (
    GENERIC TagGroup = iota
    EXIF
    GPS
    INTEROP
    NO_GROUP

    _GROUP_N                // last entry + 1 to size arrays
)

var groupNames = [...]string{ "Generic", "Exif", "GPS",
                              "Interoperability", "No group" }

func (g TagGroup) String() string {
    if g >= _GROUP_N {
        return fmt.Sprintf( "Unknown group (%d)", uint(g) )
    }
    return groupNames[g]
}

// UnsignedRational is the EXIF unsigned integer-ratio value type. A zero
// Denominator is valid only to mean "undefined" and must never be divided.
type UnsignedRational struct {
    Nominator, Denominator  uint32
}

// SignedRational is the signed variant of UnsignedRational.
type SignedRational struct {
    Nominator, Denominator  int32
}

// Tag is one decoded IFD entry: its 16-bit id, TIFF format code, component
// count and decoded value. The value is one of []uint8, []int8, []uint16,
// []int16, []uint32, []int32, []UnsignedRational, []SignedRational,
// []float32, []float64, or [][]byte for the synthesized paired data-offset
// tags (e.g. StripOffsets carrying the gathered strip payloads).
type Tag struct {
    ID      uint16
    Format  Format
    Count   uint32
    Value   interface{}
}

// ImageFileDirectory is an ordered list of decoded tags together with the
// group namespace the IFD belongs to and the index of the top level generic
// IFD it was reached from (0 for IFD0 and everything embedded in it).
// IFDs only exist transiently: decode materializes them from bytes, encode
// serializes them right back.
type ImageFileDirectory struct {
    Tags        []Tag
    Group       TagGroup
    GenericNr   uint32
}

// Control adjusts decoding behavior. Warn turns on diagnostics for
// tolerated oddities (unknown tags, unmatched data-offset pairs).
type Control struct {
    Warn    bool
}

// ErrNoMetadata is returned by ReadMetadata when the file contains no
// zTXt chunk carrying the EXIF marker.
var ErrNoMetadata = errors.New( "pngexif: no metadata found" )
