package pngexif

import (
    "bytes"
    "encoding/binary"
    "errors"
    "hash/crc32"
    "os"
    "path/filepath"
    "testing"

    "github.com/klauspost/compress/zlib"
)

func makeChunk( cType string, data []byte ) []byte {
    chunk := make( []byte, 0, len(data) + 12 )
    chunk = append( chunk, byte(len(data)>>24), byte(len(data)>>16),
                           byte(len(data)>>8), byte(len(data)) )
    chunk = append( chunk, cType... )
    chunk = append( chunk, data... )
    checksum := crc32.Update( crc32.ChecksumIEEE( []byte(cType) ),
                              crc32.IEEETable, data )
    return append( chunk, byte(checksum>>24), byte(checksum>>16),
                          byte(checksum>>8), byte(checksum) )
}

// minimalPNG builds a valid 1x1 grayscale PNG shell: signature, IHDR,
// one IDAT and IEND, all with correct CRCs. The IDAT payload is opaque to
// the chunk walk, so it needs no real image data.
func minimalPNG( extra ...[]byte ) []byte {
    ihdr := []byte{
        0, 0, 0, 1,     // width
        0, 0, 0, 1,     // height
        8, 0, 0, 0, 0,  // bit depth, color type, methods
    }
    png := append( []byte{}, pngSignature... )
    png = append( png, makeChunk( "IHDR", ihdr )... )
    for _, chunk := range extra {
        png = append( png, chunk... )
    }
    png = append( png, makeChunk( "IDAT", []byte{ 0x08, 0x1d, 0x01 } )... )
    png = append( png, makeChunk( "IEND", nil )... )
    return png
}

func writeTestPNG( t *testing.T, data []byte ) string {
    t.Helper( )
    path := filepath.Join( t.TempDir( ), "test.png" )
    if err := os.WriteFile( path, data, 0644 ); err != nil {
        t.Fatalf( "could not write test file: %v", err )
    }
    return path
}

func TestEnvelopeRoundTrip( t *testing.T ) {
    payload := []byte{ 0x01, 0x02, 0x03, 0xab, 0x00, 0xff }
    decoded, err := decodeEnvelope( encodeEnvelope( payload ) )
    if err != nil {
        t.Fatalf( "decodeEnvelope failed: %v", err )
    }
    want := append( append( []byte{}, exifHeader... ), payload... )
    want = append( want, 0x00 )
    if ! bytes.Equal( decoded, want ) {
        t.Errorf( "envelope round trip:\ngot  % x\nwant % x", decoded, want )
    }
}

func TestEnvelopeLengthMismatch( t *testing.T ) {
    // payload of 3 bytes declares length 10; corrupt the last digit
    envelope := encodeEnvelope( []byte{ 0x01, 0x02, 0x03 } )
    envelope[13] = '1'
    _, err := decodeEnvelope( envelope )
    if err == nil {
        t.Fatal( "expected a length mismatch error" )
    }
}

func TestEnvelopeHeaderOnly( t *testing.T ) {
    // declared length 6 covers the EXIF header alone, leaving no room
    // for the closing byte
    _, err := decodeEnvelope( []byte( "\nexif\n       6\n457869660000" ) )
    if err == nil {
        t.Fatal( "expected an error for profile data ending at the EXIF header" )
    }
}

func TestEnvelopeNoHeader( t *testing.T ) {
    _, err := decodeEnvelope( []byte( "\nexif\n      10\ndeadbeef\n" ) )
    if err == nil {
        t.Fatal( "expected an error for profile data without an EXIF header" )
    }
}

func TestParsePNG( t *testing.T ) {
    path := writeTestPNG( t, minimalPNG( ) )
    chunks, err := ParsePNG( path )
    if err != nil {
        t.Fatalf( "ParsePNG failed: %v", err )
    }
    want := []string{ "IHDR", "IDAT", "IEND" }
    if len(chunks) != len(want) {
        t.Fatalf( "parsed %d chunks, want %d", len(chunks), len(want) )
    }
    for i, w := range want {
        if chunks[i].Type != w {
            t.Errorf( "chunk %d type %q, want %q", i, chunks[i].Type, w )
        }
    }
}

func TestParsePNGBadSignature( t *testing.T ) {
    data := minimalPNG( )
    data[0] = 0x88
    path := writeTestPNG( t, data )
    if _, err := ParsePNG( path ); err == nil {
        t.Fatal( "expected a signature error" )
    }
}

func TestParsePNGCorruptChunk( t *testing.T ) {
    data := minimalPNG( )
    data[len(pngSignature)+8] ^= 0x01   // first IHDR data byte
    path := writeTestPNG( t, data )
    _, err := ParsePNG( path )
    if err == nil {
        t.Fatal( "expected a checksum error" )
    }
}

func TestWriteReadMetadata( t *testing.T ) {
    path := writeTestPNG( t, minimalPNG( ) )
    payload := []byte{ 0x01, 0x02, 0x03 }

    if err := WriteMetadata( path, payload, nil ); err != nil {
        t.Fatalf( "WriteMetadata failed: %v", err )
    }
    chunks, err := ParsePNG( path )
    if err != nil {
        t.Fatalf( "ParsePNG after write failed: %v", err )
    }
    want := []string{ "IHDR", "zTXt", "IDAT", "IEND" }
    if len(chunks) != len(want) {
        t.Fatalf( "parsed %d chunks after write, want %d", len(chunks), len(want) )
    }
    for i, w := range want {
        if chunks[i].Type != w {
            t.Errorf( "chunk %d type %q, want %q", i, chunks[i].Type, w )
        }
    }

    got, err := ReadMetadata( path )
    if err != nil {
        t.Fatalf( "ReadMetadata failed: %v", err )
    }
    if ! bytes.Equal( got, payload ) {
        t.Errorf( "read back % x, want % x", got, payload )
    }
}

func TestWriteMetadataReplacesPrevious( t *testing.T ) {
    path := writeTestPNG( t, minimalPNG( ) )
    if err := WriteMetadata( path, []byte{ 0xaa, 0xbb }, nil ); err != nil {
        t.Fatalf( "first WriteMetadata failed: %v", err )
    }
    second := []byte{ 0x10, 0x20, 0x30, 0x40 }
    if err := WriteMetadata( path, second, nil ); err != nil {
        t.Fatalf( "second WriteMetadata failed: %v", err )
    }

    chunks, err := ParsePNG( path )
    if err != nil {
        t.Fatalf( "ParsePNG failed: %v", err )
    }
    if len(chunks) != 4 {
        t.Fatalf( "parsed %d chunks, want 4 (old profile not removed?)", len(chunks) )
    }
    got, err := ReadMetadata( path )
    if err != nil {
        t.Fatalf( "ReadMetadata failed: %v", err )
    }
    if ! bytes.Equal( got, second ) {
        t.Errorf( "read back % x, want % x", got, second )
    }
}

func TestClearMetadata( t *testing.T ) {
    path := writeTestPNG( t, minimalPNG( ) )
    if err := WriteMetadata( path, []byte{ 0x01 }, nil ); err != nil {
        t.Fatalf( "WriteMetadata failed: %v", err )
    }
    if err := ClearMetadata( path, nil ); err != nil {
        t.Fatalf( "ClearMetadata failed: %v", err )
    }
    if _, err := ReadMetadata( path ); ! errors.Is( err, ErrNoMetadata ) {
        t.Errorf( "ReadMetadata after clear: %v, want ErrNoMetadata", err )
    }
    chunks, err := ParsePNG( path )
    if err != nil {
        t.Fatalf( "ParsePNG failed: %v", err )
    }
    if len(chunks) != 3 {
        t.Errorf( "parsed %d chunks after clear, want 3", len(chunks) )
    }
}

func TestClearMetadataWithoutProfile( t *testing.T ) {
    original := minimalPNG( )
    path := writeTestPNG( t, original )
    if err := ClearMetadata( path, nil ); err != nil {
        t.Fatalf( "ClearMetadata failed: %v", err )
    }
    after, err := os.ReadFile( path )
    if err != nil {
        t.Fatalf( "could not read file back: %v", err )
    }
    if ! bytes.Equal( after, original ) {
        t.Error( "clearing a file without a profile modified it" )
    }
}

func TestClearMetadataKeepsOtherZTXt( t *testing.T ) {
    other := makeChunk( "zTXt", append( []byte( "Comment\x00\x00" ),
                                        0x78, 0x9c, 0x03, 0x00,
                                        0x00, 0x00, 0x00, 0x01 ) )
    path := writeTestPNG( t, minimalPNG( other ) )

    if err := WriteMetadata( path, []byte{ 0x42 }, nil ); err != nil {
        t.Fatalf( "WriteMetadata failed: %v", err )
    }
    if err := ClearMetadata( path, nil ); err != nil {
        t.Fatalf( "ClearMetadata failed: %v", err )
    }
    chunks, err := ParsePNG( path )
    if err != nil {
        t.Fatalf( "ParsePNG failed: %v", err )
    }
    zTXtCount := 0
    for _, chunk := range chunks {
        if chunk.Type == _zTXtChunkType {
            zTXtCount++
        }
    }
    if zTXtCount != 1 {
        t.Errorf( "%d zTXt chunks after clear, want the unrelated one to survive",
                  zTXtCount )
    }
}

func TestReadMetadataHeaderOnlyProfile( t *testing.T ) {
    // a CRC-valid zTXt profile whose envelope declares length 6: the
    // decoded stream is exactly the EXIF header with nothing behind it
    body := new( bytes.Buffer )
    body.Write( rawProfileTypeExif )
    deflater, err := zlib.NewWriterLevel( body, _zlibLevel )
    if err != nil {
        t.Fatalf( "could not create deflater: %v", err )
    }
    if _, err = deflater.Write( []byte( "\nexif\n       6\n457869660000" ) ); err != nil {
        t.Fatalf( "could not compress profile: %v", err )
    }
    if err = deflater.Close( ); err != nil {
        t.Fatalf( "could not compress profile: %v", err )
    }
    path := writeTestPNG( t, minimalPNG( makeChunk( "zTXt", body.Bytes( ) ) ) )

    if _, err = ReadMetadata( path ); err == nil {
        t.Fatal( "expected an error for profile data ending at the EXIF header" )
    }
}

func TestReadMetadataNone( t *testing.T ) {
    path := writeTestPNG( t, minimalPNG( ) )
    if _, err := ReadMetadata( path ); ! errors.Is( err, ErrNoMetadata ) {
        t.Errorf( "ReadMetadata on a clean file: %v, want ErrNoMetadata", err )
    }
}

func TestMetadataEndToEnd( t *testing.T ) {
    // a decoded TIFF structure embedded in a PNG and recovered intact
    want := testIFDs( )
    blob, err := EncodeTIFF( want, binary.BigEndian )
    if err != nil {
        t.Fatalf( "EncodeTIFF failed: %v", err )
    }

    path := writeTestPNG( t, minimalPNG( ) )
    if err = WriteMetadata( path, blob, nil ); err != nil {
        t.Fatalf( "WriteMetadata failed: %v", err )
    }
    embedded, err := ReadMetadata( path )
    if err != nil {
        t.Fatalf( "ReadMetadata failed: %v", err )
    }
    got, endian, err := DecodeTIFF( embedded, nil )
    if err != nil {
        t.Fatalf( "DecodeTIFF failed: %v", err )
    }
    if endian != binary.BigEndian {
        t.Errorf( "decoded byte order %v, want BigEndian", endian )
    }
    checkIFDs( t, got, want )
}
