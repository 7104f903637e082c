package pngexif

import (
    "bytes"
    "encoding/binary"
    "fmt"
    "sort"
)

// where each specialized group hangs off its parent directory
var subIfdTags = map[TagGroup]struct {
    parent  TagGroup
    id      uint16
}{
    EXIF:    { GENERIC, _ExifIFD },
    GPS:     { GENERIC, _GpsIFD },
    INTEROP: { EXIF, _InteroperabilityIFD },
}

// encEntry is one 12-byte directory entry being laid out. Exactly one of
// the following holds: child points at an embedded SubIFD, segs holds the
// payload segments of a resolved data-offset pair, or value holds a typed
// component slice.
type encEntry struct {
    id          uint16
    format      Format
    count       uint32
    value       interface{}
    child       *ifdLayout
    segs        [][]byte
    valueOffset uint32      // relative to the TIFF base, when not inline
}

// ifdLayout is one directory block: the entry table plus its value pool
// and segment pool, placed at offset relative to the TIFF base. Children
// are placed after the whole block, depth first.
type ifdLayout struct {
    group       TagGroup
    entries     []encEntry
    children    []*ifdLayout
    offset      uint32
    end         uint32      // first offset past this block and its children
    next        uint32      // trailing link value (generic chain only)
}

func componentCount( v interface{} ) (uint32, bool) {
    switch t := v.(type) {
    case []uint8:               return uint32(len(t)), true
    case []int8:                return uint32(len(t)), true
    case []uint16:              return uint32(len(t)), true
    case []int16:               return uint32(len(t)), true
    case []uint32:              return uint32(len(t)), true
    case []int32:               return uint32(len(t)), true
    case []UnsignedRational:    return uint32(len(t)), true
    case []SignedRational:      return uint32(len(t)), true
    case []float32:             return uint32(len(t)), true
    case []float64:             return uint32(len(t)), true
    }
    return 0, false
}

func align2( offset uint32 ) uint32 {
    return ( offset + 1 ) &^ 1
}

// buildLayout converts one directory into its layout skeleton. Tags
// holding [][]byte payloads are expanded back into their two interlinked
// offset and byte-count entries; children are attached separately by the
// caller.
func buildLayout( ifd *ImageFileDirectory ) (*ifdLayout, error) {
    l := &ifdLayout{ group: ifd.Group }
    for i := range ifd.Tags {
        t := &ifd.Tags[i]

        if segs, ok := t.Value.([][]byte); ok {
            def, known := lookupTag( t.ID, ifd.Group )
            if ! known || def.kind != _DataOffsetTag {
                return nil, fmt.Errorf(
                    "buildLayout: tag %#04x carries payload segments but is not a data-offset tag",
                    t.ID )
            }
            pair := pairDefs[def.role]
            counts := make( []uint32, len(segs) )
            for j, s := range segs {
                counts[j] = uint32(len(s))
            }
            l.entries = append( l.entries,
                encEntry{ id: pair.offsets, format: UnsignedLong,
                          count: uint32(len(segs)), segs: segs },
                encEntry{ id: pair.counts, format: UnsignedLong,
                          count: uint32(len(counts)), value: counts } )
            continue
        }

        if def, known := lookupTag( t.ID, ifd.Group ); known &&
           def.kind == _IfdOffsetTag {
            return nil, fmt.Errorf(
                "buildLayout: tag %#04x (%s) is synthesized while encoding and may not appear as a value",
                t.ID, def.name )
        }

        count, ok := componentCount( t.Value )
        if ! ok {
            return nil, fmt.Errorf(
                "buildLayout: tag %#04x value type %T cannot be serialized",
                t.ID, t.Value )
        }
        if t.Format.bytesPerComponent( ) == 0 {
            return nil, fmt.Errorf( "buildLayout: tag %#04x: illegal format value %d",
                                    t.ID, uint16(t.Format) )
        }
        l.entries = append( l.entries, encEntry{ id: t.ID, format: t.Format,
                                                 count: count, value: t.Value } )
    }
    return l, nil
}

func (e *encEntry) valueSize( ) uint32 {
    if e.child != nil {
        return _LongSize
    }
    if e.segs != nil {
        return uint32(len(e.segs)) * _LongSize   // the offsets themselves
    }
    return e.count * uint32(e.format.bytesPerComponent( ))
}

// arrange sorts the entry table, places the block at offset and assigns
// every out-of-line value, every payload segment and every child directory
// a position. It returns the first offset past the whole subtree.
func (l *ifdLayout) arrange( offset uint32 ) uint32 {
    sort.Slice( l.entries, func( i, j int ) bool {
        return l.entries[i].id < l.entries[j].id
    } )
    l.offset = offset
    cur := offset + _ShortSize +
           uint32(len(l.entries)) * _IfdEntrySize + _LongSize

    for i := range l.entries {
        e := &l.entries[i]
        if e.child != nil {
            continue
        }
        if sz := e.valueSize( ); sz > _valOffSize {
            e.valueOffset = cur
            cur = align2( cur + sz )
        }
    }
    for i := range l.entries {
        e := &l.entries[i]
        if e.segs == nil {
            continue
        }
        offsets := make( []uint32, len(e.segs) )
        for j, s := range e.segs {
            offsets[j] = cur
            cur = align2( cur + uint32(len(s)) )
        }
        e.value = offsets
    }
    for _, c := range l.children {
        cur = c.arrange( cur )
    }
    for i := range l.entries {
        e := &l.entries[i]
        if e.child != nil {
            e.value = []uint32{ e.child.offset }
        }
    }
    l.end = cur
    return cur
}

func putValue( dst []byte, endian binary.ByteOrder, v interface{} ) error {
    b := new( bytes.Buffer )
    if err := binary.Write( b, endian, v ); err != nil {
        return err
    }
    copy( dst, b.Bytes( ) )
    return nil
}

// render writes the arranged block, its pools and its children into buf,
// which is indexed by TIFF-base-relative offsets.
func (l *ifdLayout) render( buf []byte, endian binary.ByteOrder ) error {
    pos := l.offset
    endian.PutUint16( buf[pos:], uint16(len(l.entries)) )
    pos += _ShortSize

    for i := range l.entries {
        e := &l.entries[i]
        endian.PutUint16( buf[pos:], e.id )
        endian.PutUint16( buf[pos+2:], uint16(e.format) )
        endian.PutUint32( buf[pos+4:], e.count )

        sz := e.valueSize( )
        if sz <= _valOffSize {
            if err := putValue( buf[pos+8:pos+12], endian, e.value ); err != nil {
                return fmt.Errorf( "render: tag %#04x: %v", e.id, err )
            }
        } else {
            endian.PutUint32( buf[pos+8:], e.valueOffset )
            if err := putValue( buf[e.valueOffset:], endian, e.value ); err != nil {
                return fmt.Errorf( "render: tag %#04x: %v", e.id, err )
            }
        }
        pos += _IfdEntrySize

        if e.segs != nil {
            for j, s := range e.segs {
                copy( buf[e.value.([]uint32)[j]:], s )
            }
        }
    }
    endian.PutUint32( buf[pos:], l.next )

    for _, c := range l.children {
        if err := c.render( buf, endian ); err != nil {
            return err
        }
    }
    return nil
}

// EncodeIFD serializes a single directory as one block placed at offset
// from the TIFF base, with next as its trailing link. SubIFDs are not
// followed; use EncodeTIFF for complete structures.
func EncodeIFD( ifd *ImageFileDirectory, endian binary.ByteOrder,
                offset, next uint32 ) ([]byte, error) {
    l, err := buildLayout( ifd )
    if err != nil {
        return nil, err
    }
    l.next = next
    end := l.arrange( offset )
    buf := make( []byte, end )
    if err = l.render( buf, endian ); err != nil {
        return nil, err
    }
    return buf[offset:], nil
}

// EncodeTIFF serializes a set of directories into a complete TIFF blob:
// header, the chain of generic IFDs, and every specialized directory
// embedded behind its offset tag. Specialized directories attach to the
// generic directory sharing their GenericNr (INTEROP attaches to that
// EXIF directory).
func EncodeTIFF( ifds []ImageFileDirectory,
                 endian binary.ByteOrder ) ([]byte, error) {

    type slot struct {
        generic *ifdLayout
        exif    *ifdLayout
    }
    slots := make( map[uint32]*slot )
    var order []uint32

    layouts := make( []*ifdLayout, len(ifds) )
    for i := range ifds {
        l, err := buildLayout( &ifds[i] )
        if err != nil {
            return nil, err
        }
        layouts[i] = l
        s := slots[ifds[i].GenericNr]
        if s == nil {
            s = new( slot )
            slots[ifds[i].GenericNr] = s
        }
        switch ifds[i].Group {
        case GENERIC:
            if s.generic != nil {
                return nil, fmt.Errorf(
                        "EncodeTIFF: duplicate generic IFD #%d", ifds[i].GenericNr )
            }
            s.generic = l
            order = append( order, ifds[i].GenericNr )
        case EXIF:
            if s.exif != nil {
                return nil, fmt.Errorf(
                        "EncodeTIFF: duplicate EXIF IFD for generic #%d",
                        ifds[i].GenericNr )
            }
            s.exif = l
        }
    }

    attach := func( parent, child *ifdLayout, id uint16 ) {
        parent.children = append( parent.children, child )
        parent.entries = append( parent.entries,
            encEntry{ id: id, format: UnsignedLong, count: 1, child: child } )
    }
    for i := range ifds {
        sub, ok := subIfdTags[ifds[i].Group]
        if ! ok {
            if ifds[i].Group != GENERIC {
                return nil, fmt.Errorf(
                        "EncodeTIFF: no offset tag to attach a %s IFD with",
                        ifds[i].Group )
            }
            continue        // a chained generic
        }
        s := slots[ifds[i].GenericNr]
        var parent *ifdLayout
        if sub.parent == GENERIC {
            parent = s.generic
        } else {
            parent = s.exif
        }
        if parent == nil {
            return nil, fmt.Errorf(
                    "EncodeTIFF: %s IFD #%d has no %s parent to attach to",
                    ifds[i].Group, ifds[i].GenericNr, sub.parent )
        }
        attach( parent, layouts[i], sub.id )
    }

    sort.Slice( order, func( i, j int ) bool { return order[i] < order[j] } )
    if len(order) == 0 {
        return nil, fmt.Errorf( "EncodeTIFF: no generic IFD to serialize" )
    }

    offset := uint32(_headerSize)
    generics := make( []*ifdLayout, len(order) )
    for i, nr := range order {
        generics[i] = slots[nr].generic
        offset = generics[i].arrange( offset )
    }
    for i := range generics {
        if i < len(generics)-1 {
            generics[i].next = generics[i+1].offset
        }
    }

    buf := make( []byte, offset )
    if endian == binary.LittleEndian {
        copy( buf, "II" )
    } else {
        copy( buf, "MM" )
    }
    endian.PutUint16( buf[2:], 0x2a )
    endian.PutUint32( buf[4:], _headerSize )

    for _, g := range generics {
        if err := g.render( buf, endian ); err != nil {
            return nil, err
        }
    }
    return buf, nil
}
