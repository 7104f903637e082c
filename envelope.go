package pngexif

import (
    "bytes"
    "fmt"
    "strconv"
)

// exifHeader precedes TIFF data wherever EXIF metadata is embedded in a
// container ("Exif" followed by 2 NUL bytes)
var exifHeader = []byte{ 0x45, 0x78, 0x69, 0x66, 0x00, 0x00 }

const (
    _newline    = 0x0a
    _space      = 0x20
    _lenDigits  = 8     // width of the space-padded decimal length field
)

func hexDigit( v byte ) byte {
    if v < 10 {
        return '0' + v
    }
    return 'a' + v - 10
}

// encodeByte expands one byte into the two ASCII characters of its
// lowercase hex representation. Independent of endianess, which never
// affects the ordering of values within a byte.
func encodeByte( b byte ) (byte, byte) {
    return hexDigit( b >> 4 ), hexDigit( b & 0x0f )
}

// encodeEnvelope wraps an EXIF payload into the text profile layout found
// in PNG zTXt chunks: a "\nexif\n" prefix, the total profile length as an
// 8-character space-padded decimal number, another newline, then the EXIF
// header and payload as lowercase hex character pairs, closed by the pair
// "00" and a final newline. The declared length counts the EXIF header,
// the payload and 1 for the closing byte.
func encodeEnvelope( payload []byte ) []byte {
    length := strconv.Itoa( len(exifHeader) + len(payload) + 1 )

    out := make( []byte, 0,
                 6 + _lenDigits + 1 +
                 2 * ( len(exifHeader) + len(payload) + 1 ) + 1 )
    out = append( out, _newline, 'e', 'x', 'i', 'f', _newline )
    for i := 0; i < _lenDigits - len(length); i++ {
        out = append( out, _space )
    }
    out = append( out, length... )
    out = append( out, _newline )

    for _, b := range exifHeader {
        hi, lo := encodeByte( b )
        out = append( out, hi, lo )
    }
    for _, b := range payload {
        hi, lo := encodeByte( b )
        out = append( out, hi, lo )
    }
    out = append( out, '0', '0', _newline )
    return out
}

// decodeEnvelope reverses encodeEnvelope. Newlines are ignored, the
// remaining characters are paired and each pair parsed as one hex byte
// (unparsable pairs, such as the padding of the length field, are
// skipped). The leading bytes before the EXIF header encode the declared
// profile length as decimal character pairs; it is cross-checked against
// the decoded stream. The returned stream still starts with the EXIF
// header and ends with the closing 0 byte.
func decodeEnvelope( encoded []byte ) ([]byte, error) {

    decoded := make( []byte, 0, len(encoded)/2 )
    pendingByte := byte(0)
    pending := false

    for _, b := range encoded {
        if b == _newline {
            continue
        }
        if ! pending {
            pendingByte = b
            pending = true
            continue
        }
        pair := bytes.TrimSpace( []byte{ pendingByte, b } )
        if v, err := strconv.ParseUint( string(pair), 16, 8 ); err == nil {
            decoded = append( decoded, byte(v) )
        }
        pending = false
    }

    // pop leading bytes until the stream starts with the EXIF header; the
    // popped bytes carry the declared length
    popped := 0
    for ! bytes.HasPrefix( decoded[popped:], exifHeader ) {
        popped++
        if popped + len(exifHeader) > len(decoded) {
            return nil, fmt.Errorf( "decodeEnvelope: no EXIF header in profile data" )
        }
    }
    if popped == 0 {
        return nil, fmt.Errorf( "decodeEnvelope: profile data carries no length field" )
    }

    // the last (up to) 4 popped bytes hold the declared length: their hex
    // characters are read back as pairs of decimal digits
    declared := uint64(0)
    weight := uint64(1)
    for i := 0; i < 4 && i < popped; i++ {
        hi, lo := encodeByte( decoded[popped-1-i] )
        if hi < '0' || hi > '9' || lo < '0' || lo > '9' {
            return nil, fmt.Errorf( "decodeEnvelope: invalid length field byte %#02x",
                                    decoded[popped-1-i] )
        }
        declared += uint64(hi-'0') * 10 * weight
        declared += uint64(lo-'0') * weight
        weight *= 100
    }
    if declared != uint64(len(decoded)-popped) {
        return nil, fmt.Errorf(
                "decodeEnvelope: declared profile length %d does not match %d decoded bytes",
                declared, len(decoded)-popped )
    }
    // the stream must extend past the EXIF header by at least the
    // closing byte
    if len(decoded) - popped <= len(exifHeader) {
        return nil, fmt.Errorf(
                "decodeEnvelope: profile data truncated after the EXIF header" )
    }
    return decoded[popped:], nil
}
