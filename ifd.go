package pngexif

import (
    "bytes"
    "encoding/binary"
    "fmt"
)

const (
    _originOffset   = 6             // TIFF header offset after an EXIF header
    _headerSize     = 8             // TIFF header size
    _valOffSize     = 4             // value fits in if <= 4 bytes, else offset
    _IfdEntrySize   = ( _ShortSize + _LongSize ) * 2

    _maxIfdNesting  = 8             // EXIF nests 3-4 levels at most
    _maxIfdChain    = 64            // generic IFDs chained through links
)

// decoder walks one TIFF byte buffer. All offsets found in the data are
// relative to base; pos is the current absolute cursor in data.
type decoder struct {
    data    []byte
    base    uint32
    endian  binary.ByteOrder
    pos     uint32
    warn    bool
}

func (d *decoder) remaining( ) int64 {
    return int64(len(d.data)) - int64(d.pos)
}

// next returns the n bytes at the cursor and advances it
func (d *decoder) next( n uint32 ) ([]byte, error) {
    if int64(n) > d.remaining( ) {
        return nil, fmt.Errorf( "truncated buffer (%d bytes needed, %d left)",
                                n, d.remaining( ) )
    }
    b := d.data[d.pos:d.pos+n]
    d.pos += n
    return b, nil
}

// bytesAt returns count bytes at an offset relative to base, without
// moving the cursor
func (d *decoder) bytesAt( offset uint32, count uint64 ) ([]byte, error) {
    start := uint64(d.base) + uint64(offset)
    if start + count > uint64(len(d.data)) {
        return nil, fmt.Errorf( "offset %#x + %d bytes beyond end of buffer",
                                offset, count )
    }
    return d.data[start:start+count], nil
}

// decodeValue converts raw value bytes into the go representation of the
// given format, using the decoder endianess. len(raw) must match
// count * format.bytesPerComponent().
func (d *decoder) decodeValue( raw []byte, f Format,
                               count uint32 ) (interface{}, error) {
    var v interface{}
    switch f {
    case UnsignedByte, ASCIIString, Undefined:
        b := make( []uint8, count )
        copy( b, raw )
        return b, nil
    case SignedByte:
        v = make( []int8, count )
    case UnsignedShort:
        v = make( []uint16, count )
    case SignedShort:
        v = make( []int16, count )
    case UnsignedLong:
        v = make( []uint32, count )
    case SignedLong:
        v = make( []int32, count )
    case UnsignedRationalFmt:
        v = make( []UnsignedRational, count )
    case SignedRationalFmt:
        v = make( []SignedRational, count )
    case Float:
        v = make( []float32, count )
    case Double:
        v = make( []float64, count )
    default:
        return nil, fmt.Errorf( "illegal format value %d", uint16(f) )
    }
    if err := binary.Read( bytes.NewReader( raw ), d.endian, v ); err != nil {
        return nil, fmt.Errorf( "reading %s value: %v", f, err )
    }
    return v, nil
}

// one partially decoded pair of interlinked data-offset tags, waiting for
// its counterpart before the payload can be gathered
type pendingPair struct {
    member  [2]*Tag         // 0: offsets, 1: byte counts
}

// decodeIFD decodes the IFD at the cursor plus every SubIFD reachable from
// it, appending completed directories to into. It returns the offset of the
// next chained generic IFD and true, or false when there is no further
// link. Fewer than 6 bytes at the cursor means "no IFD here", which is a
// signal, not an error.
func (d *decoder) decodeIFD( group TagGroup, genericNr uint32, depth int,
                             into *[]ImageFileDirectory ) (uint32, bool, error) {

    if depth > _maxIfdNesting {
        return 0, false, fmt.Errorf(
                "decodeIFD: SubIFD nesting deeper than %d levels", _maxIfdNesting )
    }

    entryPosition := d.pos
    if d.remaining( ) < int64(_ShortSize + _LongSize) {
        return 0, false, nil
    }

    cnt, err := d.next( _ShortSize )
    if err != nil {
        return 0, false, fmt.Errorf( "decodeIFD: %v", err )
    }
    nEntries := d.endian.Uint16( cnt )

    needed := int64(_ShortSize) + int64(nEntries) * _IfdEntrySize + _LongSize
    if needed > int64(len(d.data)) - int64(entryPosition) {
        return 0, false, fmt.Errorf(
                "decodeIFD: not enough data to decode IFD (%d entries)", nEntries )
    }

    pending := make( map[pairRole]*pendingPair )
    tags := make( []Tag, 0, nEntries )

    for i := uint16(0); i < nEntries; i++ {
        entry, err := d.next( _IfdEntrySize )
        if err != nil {
            return 0, false, fmt.Errorf( "decodeIFD: %v", err )
        }
        id := d.endian.Uint16( entry[0:2] )
        format := Format( d.endian.Uint16( entry[2:4] ) )
        count := d.endian.Uint32( entry[4:8] )

        size := format.bytesPerComponent( )
        if size == 0 {
            return 0, false, fmt.Errorf(
                    "decodeIFD: illegal format value %d (tag %#04x)",
                    uint16(format), id )
        }
        byteCount := uint64(size) * uint64(count)

        var raw []byte
        if byteCount > _valOffSize {
            offset := d.endian.Uint32( entry[8:12] )
            raw, err = d.bytesAt( offset, byteCount )
            if err != nil {
                return 0, false, fmt.Errorf( "decodeIFD: tag %#04x value: %v",
                                             id, err )
            }
        } else {
            raw = entry[8:8+byteCount]
        }

        def, known := lookupTag( id, group )
        if ! known {
            // synthesized as a plain tag of its declared format, never
            // classified as an offset or data tag
            if d.warn {
                fmt.Printf( "%s IFD: unknown tag %#04x (format %s, count %d)\n",
                            group, id, format, count )
            }
            value, err := d.decodeValue( raw, format, count )
            if err != nil {
                return 0, false, fmt.Errorf( "decodeIFD: tag %#04x: %v", id, err )
            }
            tags = append( tags, Tag{ ID: id, Format: format,
                                      Count: count, Value: value } )
            continue
        }

        if def.kind == _IfdOffsetTag {
            if len(raw) != _LongSize {
                return 0, false, fmt.Errorf(
                        "decodeIFD: %s: invalid SubIFD offset size (%d bytes)",
                        def.name, len(raw) )
            }
            offset := d.endian.Uint32( raw )
            if uint64(d.base) + uint64(offset) +
               uint64(_ShortSize + _LongSize) > uint64(len(d.data)) {
                return 0, false, fmt.Errorf(
                        "decodeIFD: %s: SubIFD offset %#x beyond end of buffer",
                        def.name, offset )
            }
            backup := d.pos
            d.pos = d.base + offset
            next, chained, err := d.decodeIFD( def.child, genericNr,
                                               depth+1, into )
            if err != nil {
                return 0, false, fmt.Errorf(
                        "decodeIFD: could not decode %s SubIFD: %v",
                        def.name, err )
            }
            if chained {
                // SubIFDs are never chained to siblings
                return 0, false, fmt.Errorf(
                        "decodeIFD: %s SubIFD chains to offset %#x",
                        def.name, next )
            }
            d.pos = backup
            continue
        }

        var value interface{}
        if def.format != format {
            // exactly one coercion is permitted: 16-bit unsigned values
            // stored where 32-bit unsigned ones are expected
            if def.format == UnsignedLong && format == UnsignedShort {
                shorts, err := d.decodeValue( raw, UnsignedShort, count )
                if err != nil {
                    return 0, false, fmt.Errorf( "decodeIFD: %s: %v",
                                                 def.name, err )
                }
                longs := make( []uint32, count )
                for j, s := range shorts.([]uint16) {
                    longs[j] = uint32(s)
                }
                value = longs
                format = UnsignedLong
            } else {
                return 0, false, fmt.Errorf(
                    "decodeIFD: %s: illegal format for known tag %#04x: expected %s, got %s",
                    def.name, id, def.format, format )
            }
        } else {
            value, err = d.decodeValue( raw, format, count )
            if err != nil {
                return 0, false, fmt.Errorf( "decodeIFD: %s: %v", def.name, err )
            }
        }

        tag := Tag{ ID: id, Format: format, Count: count, Value: value }

        if def.kind == _DataOffsetTag {
            // held back until its counterpart arrives
            p := pending[def.role]
            if p == nil {
                p = new( pendingPair )
                pending[def.role] = p
            }
            p.member[def.member] = &tag
            continue
        }

        tags = append( tags, tag )
    }

    // resolve completed data-offset pairs: gather each segment's payload
    // and synthesize a single tag holding all of them. Unmatched pairs are
    // dropped without failing the whole IFD.
    for role, p := range pending {
        if p.member[0] == nil || p.member[1] == nil {
            if d.warn {
                fmt.Printf( "%s IFD: dropping unmatched data-offset tag (pair %d)\n",
                            group, uint(role) )
            }
            continue
        }
        offsets, ok := p.member[0].Value.([]uint32)
        if ! ok {
            continue
        }
        counts, ok := p.member[1].Value.([]uint32)
        if ! ok {
            continue
        }
        n := len(offsets)
        if len(counts) < n {
            n = len(counts)
        }
        segments := make( [][]byte, 0, n )
        for j := 0; j < n; j++ {
            seg, err := d.bytesAt( offsets[j], uint64(counts[j]) )
            if err != nil {
                return 0, false, fmt.Errorf( "decodeIFD: tag %#04x segment %d: %v",
                                             p.member[0].ID, j, err )
            }
            cp := make( []byte, len(seg) )
            copy( cp, seg )
            segments = append( segments, cp )
        }
        tags = append( tags, Tag{ ID: p.member[0].ID, Format: UnsignedLong,
                                  Count: uint32(len(segments)),
                                  Value: segments } )
    }

    *into = append( *into, ImageFileDirectory{ Tags: tags, Group: group,
                                               GenericNr: genericNr } )

    link, err := d.next( _LongSize )
    if err != nil {
        return 0, false, fmt.Errorf( "decodeIFD: %v", err )
    }
    if link[0] == 0 && link[1] == 0 && link[2] == 0 && link[3] == 0 {
        return 0, false, nil        // end of the generic chain
    }
    return d.endian.Uint32( link ), true, nil
}

// DecodeIFD decodes the IFD at offset start (relative to base) plus every
// SubIFD reachable from it, appending the completed directories to into.
// All offsets inside the data are interpreted relative to base. It returns
// the offset of the next chained generic IFD and true, or false when the
// chain ends; the caller performs the next top level decode and increments
// the generic index itself.
func DecodeIFD( data []byte, base, start uint32, endian binary.ByteOrder,
                group TagGroup, genericNr uint32, c *Control,
                into *[]ImageFileDirectory ) (uint32, bool, error) {
    if uint64(base) + uint64(start) > uint64(len(data)) {
        return 0, false, fmt.Errorf(
                "DecodeIFD: start offset %#x beyond end of buffer", start )
    }
    d := decoder{ data: data, base: base, endian: endian,
                  pos: base + start }
    if c != nil {
        d.warn = c.Warn
    }
    return d.decodeIFD( group, genericNr, 0, into )
}

func getEndianess( data []byte ) ( endian binary.ByteOrder, err error ) {
    endian = binary.BigEndian
    // TIFF data starts with 2 bytes indicating the byte ordering ("II"
    // short for Intel or "MM" short for Motorola, indicating little or
    // big endian respectively)
    if bytes.Equal( data[:2], []byte( "II" ) ) {
        endian = binary.LittleEndian
    } else if ! bytes.Equal( data[:2], []byte( "MM" ) ) {
        err = fmt.Errorf(
                "getEndianess: invalid TIFF header (unknown byte ordering: %v)",
                data[:2] )
    }
    return
}

// DecodeTIFF parses a complete container-agnostic TIFF blob: byte order
// mark, magic number, then the chain of generic IFDs with everything
// embedded in them. It returns the decoded directories in decode order and
// the detected byte order.
func DecodeTIFF( blob []byte, c *Control ) ([]ImageFileDirectory,
                                            binary.ByteOrder, error) {
    if len(blob) < _headerSize {
        return nil, nil, fmt.Errorf( "DecodeTIFF: truncated TIFF header (%d bytes)",
                                     len(blob) )
    }
    endian, err := getEndianess( blob )
    if err != nil {
        return nil, nil, err
    }
    if magic := endian.Uint16( blob[2:4] ); magic != 0x2a {
        return nil, nil, fmt.Errorf(
                "DecodeTIFF: invalid TIFF header (invalid identifier: %#02x)",
                magic )
    }
    offset := endian.Uint32( blob[4:8] )

    ifds := make( []ImageFileDirectory, 0, 4 )
    for genericNr := uint32(0); ; genericNr++ {
        if genericNr >= _maxIfdChain {
            return nil, nil, fmt.Errorf(
                    "DecodeTIFF: more than %d chained IFDs", _maxIfdChain )
        }
        next, chained, err := DecodeIFD( blob, 0, offset, endian,
                                         GENERIC, genericNr, c, &ifds )
        if err != nil {
            return nil, nil, err
        }
        if ! chained {
            break
        }
        offset = next
    }
    return ifds, endian, nil
}
