package pngexif

import (
    "fmt"
)

// Format is a TIFF entry format code, determining the byte size of one
// component of the entry value.
type Format uint16

const (                         // TIFF format codes
    UnsignedByte Format = 1 + iota
    ASCIIString
    UnsignedShort
    UnsignedLong
    UnsignedRationalFmt
    SignedByte
    Undefined
    SignedShort
    SignedLong
    SignedRationalFmt
    Float
    Double
)

const (                 // format sizes in bytes (signed or unsigned)
    _ASCIIChar      = 1
    _ByteSize       = 1
    _ShortSize      = 2
    _LongSize       = 4
    _RationalSize   = 8
    _FloatSize      = 4
    _DoubleSize     = 8
)

var formatSizes = [...]uint32{
    0,
    _ByteSize,      // UnsignedByte
    _ASCIIChar,     // ASCIIString
    _ShortSize,     // UnsignedShort
    _LongSize,      // UnsignedLong
    _RationalSize,  // UnsignedRationalFmt
    _ByteSize,      // SignedByte
    _ByteSize,      // Undefined
    _ShortSize,     // SignedShort
    _LongSize,      // SignedLong
    _RationalSize,  // SignedRationalFmt
    _FloatSize,     // Float
    _DoubleSize,    // Double
}

func (f Format) valid() bool {
    return f >= UnsignedByte && f <= Double
}

// bytesPerComponent returns the size of one component, or 0 for an
// unknown format code.
func (f Format) bytesPerComponent() uint32 {
    if ! f.valid() {
        return 0
    }
    return formatSizes[f]
}

func (f Format) String() string {
    switch f {
        case UnsignedByte: return "Unsigned byte"
        case ASCIIString: return "ASCII string"
        case UnsignedShort: return "Unsigned short"
        case UnsignedLong: return "Unsigned long"
        case UnsignedRationalFmt: return "Unsigned rational"
        case SignedByte: return "Signed byte"
        case Undefined: return "Undefined"
        case SignedShort: return "Signed short"
        case SignedLong: return "Signed long"
        case SignedRationalFmt: return "Signed rational"
        case Float: return "Float"
        case Double: return "Double"
        default: break
    }
    return fmt.Sprintf( "Unknown (%d)", uint16(f) )
}
