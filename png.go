package pngexif

import (
    "bytes"
    "fmt"
    "hash/crc32"
    "io"
    "os"

    "github.com/klauspost/compress/zlib"
)

var pngSignature = []byte{ 0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a }

// rawProfileTypeExif is the keyword marking the zTXt chunk carrying EXIF
// metadata ("Raw profile type exif" followed by 2 NUL bytes: the keyword
// terminator and the compression method)
var rawProfileTypeExif = []byte{
    0x52, 0x61, 0x77, 0x20,                             // Raw
    0x70, 0x72, 0x6f, 0x66, 0x69, 0x6c, 0x65, 0x20,     // profile
    0x74, 0x79, 0x70, 0x65, 0x20,                       // type
    0x65, 0x78, 0x69, 0x66, 0x00, 0x00,                 // exif NUL NUL
}

const (
    _zTXtChunkType  = "zTXt"
    _iendChunkType  = "IEND"
    _zlibLevel      = 8     // default compression
)

// checkSignature reads the 8-byte PNG signature, leaving the file
// positioned at the first chunk
func checkSignature( file *os.File ) error {
    signature := make( []byte, len(pngSignature) )
    if _, err := io.ReadFull( file, signature ); err != nil {
        return fmt.Errorf( "checkSignature: %v", err )
    }
    if ! bytes.Equal( signature, pngSignature ) {
        return fmt.Errorf( "checkSignature: not a PNG file (wrong signature)" )
    }
    return nil
}

// nextChunkDescriptor reads the chunk at the current file position,
// validates its CRC and type, and returns its descriptor. The checksum is
// computed over the type and data fields.
func nextChunkDescriptor( file *os.File ) (PngChunk, error) {
    start := make( []byte, 8 )
    if _, err := io.ReadFull( file, start ); err != nil {
        return PngChunk{}, fmt.Errorf( "nextChunkDescriptor: could not read start of chunk: %v", err )
    }
    length := uint32(start[0])<<24 | uint32(start[1])<<16 |
              uint32(start[2])<<8 | uint32(start[3])

    data := make( []byte, length )
    if _, err := io.ReadFull( file, data ); err != nil {
        return PngChunk{}, fmt.Errorf( "nextChunkDescriptor: could not read chunk data: %v", err )
    }
    crc := make( []byte, 4 )
    if _, err := io.ReadFull( file, crc ); err != nil {
        return PngChunk{}, fmt.Errorf( "nextChunkDescriptor: could not read chunk CRC: %v", err )
    }

    checksum := crc32.Update( crc32.ChecksumIEEE( start[4:8] ),
                              crc32.IEEETable, data )
    stored := uint32(crc[0])<<24 | uint32(crc[1])<<16 |
              uint32(crc[2])<<8 | uint32(crc[3])
    if checksum != stored {
        return PngChunk{}, fmt.Errorf(
                "nextChunkDescriptor: checksum mismatch in %q chunk (%#08x, stored %#08x)",
                start[4:8], checksum, stored )
    }
    return newPngChunk( length, start[4:8] )
}

// ParsePNG validates the file at path as a PNG: signature first, then
// every chunk up to and including IEND, checking each CRC along the way.
// It returns the chunk descriptors in file order.
func ParsePNG( path string ) ([]PngChunk, error) {
    file, err := os.Open( path )
    if err != nil {
        return nil, fmt.Errorf( "ParsePNG: %v", err )
    }
    defer file.Close( )

    if err = checkSignature( file ); err != nil {
        return nil, fmt.Errorf( "ParsePNG: %v", err )
    }
    var chunks []PngChunk
    for {
        chunk, err := nextChunkDescriptor( file )
        if err != nil {
            return nil, fmt.Errorf( "ParsePNG: %v", err )
        }
        chunks = append( chunks, chunk )
        if chunk.Type == _iendChunkType {
            break
        }
    }
    return chunks, nil
}

// isExifChunk checks whether zTXt chunk data starts with the EXIF profile
// keyword
func isExifChunk( data []byte ) bool {
    return bytes.HasPrefix( data, rawProfileTypeExif )
}

// ClearMetadata removes the EXIF-carrying zTXt chunk from the file at
// path, splicing the remainder of the file over it and truncating. Other
// zTXt chunks are left alone. Clearing a file without such a chunk is not
// an error.
func ClearMetadata( path string, c *Control ) error {
    chunks, err := ParsePNG( path )
    if err != nil {
        return fmt.Errorf( "ClearMetadata: %v", err )
    }
    file, err := os.OpenFile( path, os.O_RDWR, 0 )
    if err != nil {
        return fmt.Errorf( "ClearMetadata: %v", err )
    }
    defer file.Close( )
    if err = checkSignature( file ); err != nil {
        return fmt.Errorf( "ClearMetadata: %v", err )
    }

    seekCounter := int64(len(pngSignature))
    for _, chunk := range chunks {
        if chunk.Type != _zTXtChunkType {
            seekCounter += int64(chunk.Length) + 12
            if _, err = file.Seek( int64(chunk.Length) + 12, io.SeekCurrent ); err != nil {
                return fmt.Errorf( "ClearMetadata: %v", err )
            }
            continue
        }

        // skip chunk length and type, read the data to identify the chunk
        if _, err = file.Seek( 8, io.SeekCurrent ); err != nil {
            return fmt.Errorf( "ClearMetadata: %v", err )
        }
        data := make( []byte, chunk.Length )
        if _, err = io.ReadFull( file, data ); err != nil {
            return fmt.Errorf( "ClearMetadata: could not read chunk data: %v", err )
        }
        if _, err = file.Seek( 4, io.SeekCurrent ); err != nil {    // CRC
            return fmt.Errorf( "ClearMetadata: %v", err )
        }
        if ! isExifChunk( data ) {
            seekCounter += int64(chunk.Length) + 12
            continue
        }

        // splice the rest of the file over the chunk and truncate
        if c != nil && c.Warn {
            fmt.Printf( "removing EXIF zTXt chunk (%d data bytes)\n", chunk.Length )
        }
        tail, err := io.ReadAll( file )
        if err != nil {
            return fmt.Errorf( "ClearMetadata: %v", err )
        }
        if _, err = file.Seek( seekCounter, io.SeekStart ); err != nil {
            return fmt.Errorf( "ClearMetadata: %v", err )
        }
        if _, err = file.Write( tail ); err != nil {
            return fmt.Errorf( "ClearMetadata: %v", err )
        }
        if err = file.Truncate( seekCounter + int64(len(tail)) ); err != nil {
            return fmt.Errorf( "ClearMetadata: %v", err )
        }
        if _, err = file.Seek( seekCounter, io.SeekStart ); err != nil {
            return fmt.Errorf( "ClearMetadata: %v", err )
        }
    }
    return nil
}

// ReadMetadata returns the EXIF payload embedded in the file at path: the
// compressed profile is located, inflated, the text envelope decoded and
// the EXIF header plus closing byte stripped, leaving exactly the bytes a
// previous WriteMetadata embedded. ErrNoMetadata is returned when the
// file carries no EXIF profile.
func ReadMetadata( path string ) ([]byte, error) {
    chunks, err := ParsePNG( path )
    if err != nil {
        return nil, fmt.Errorf( "ReadMetadata: %v", err )
    }
    file, err := os.Open( path )
    if err != nil {
        return nil, fmt.Errorf( "ReadMetadata: %v", err )
    }
    defer file.Close( )
    if err = checkSignature( file ); err != nil {
        return nil, fmt.Errorf( "ReadMetadata: %v", err )
    }

    for _, chunk := range chunks {
        if chunk.Type != _zTXtChunkType {
            if _, err = file.Seek( int64(chunk.Length) + 12, io.SeekCurrent ); err != nil {
                return nil, fmt.Errorf( "ReadMetadata: %v", err )
            }
            continue
        }

        // CRCs were already validated while parsing
        if _, err = file.Seek( 8, io.SeekCurrent ); err != nil {
            return nil, fmt.Errorf( "ReadMetadata: %v", err )
        }
        data := make( []byte, chunk.Length )
        if _, err = io.ReadFull( file, data ); err != nil {
            return nil, fmt.Errorf( "ReadMetadata: could not read chunk data: %v", err )
        }
        if ! isExifChunk( data ) {
            if _, err = file.Seek( 4, io.SeekCurrent ); err != nil {
                return nil, fmt.Errorf( "ReadMetadata: %v", err )
            }
            continue
        }

        inflater, err := zlib.NewReader(
                bytes.NewReader( data[len(rawProfileTypeExif):] ) )
        if err != nil {
            return nil, fmt.Errorf( "ReadMetadata: could not inflate chunk data: %v", err )
        }
        envelope, err := io.ReadAll( inflater )
        inflater.Close( )
        if err != nil {
            return nil, fmt.Errorf( "ReadMetadata: could not inflate chunk data: %v", err )
        }
        decoded, err := decodeEnvelope( envelope )
        if err != nil {
            return nil, fmt.Errorf( "ReadMetadata: %v", err )
        }
        // strip the EXIF header and the closing 0 byte
        return decoded[len(exifHeader):len(decoded)-1], nil
    }
    return nil, ErrNoMetadata
}

// compressProfile builds the zTXt chunk data carrying the payload: the
// profile keyword followed by the zlib-compressed text envelope
func compressProfile( payload []byte ) ([]byte, error) {
    buf := new( bytes.Buffer )
    buf.Write( rawProfileTypeExif )
    deflater, err := zlib.NewWriterLevel( buf, _zlibLevel )
    if err != nil {
        return nil, err
    }
    if _, err = deflater.Write( encodeEnvelope( payload ) ); err != nil {
        return nil, err
    }
    if err = deflater.Close( ); err != nil {
        return nil, err
    }
    return buf.Bytes( ), nil
}

// WriteMetadata embeds an EXIF payload into the file at path as a
// compressed zTXt profile chunk inserted right after IHDR. Any previously
// embedded profile is removed first, so writing is idempotent with
// respect to earlier payloads.
func WriteMetadata( path string, payload []byte, c *Control ) error {
    if err := ClearMetadata( path, c ); err != nil {
        return fmt.Errorf( "WriteMetadata: %v", err )
    }
    chunks, err := ParsePNG( path )
    if err != nil {
        return fmt.Errorf( "WriteMetadata: %v", err )
    }

    chunkData, err := compressProfile( payload )
    if err != nil {
        return fmt.Errorf( "WriteMetadata: %v", err )
    }

    chunk := make( []byte, 0, len(chunkData) + 12 )
    chunk = append( chunk,
                    byte(len(chunkData)>>24), byte(len(chunkData)>>16),
                    byte(len(chunkData)>>8), byte(len(chunkData)) )
    chunk = append( chunk, _zTXtChunkType... )
    chunk = append( chunk, chunkData... )
    checksum := crc32.Update( crc32.ChecksumIEEE( []byte(_zTXtChunkType) ),
                              crc32.IEEETable, chunkData )
    chunk = append( chunk, byte(checksum>>24), byte(checksum>>16),
                           byte(checksum>>8), byte(checksum) )

    // the insertion point is right past the IHDR chunk
    seekStart := int64(len(pngSignature)) + int64(chunks[0].Length) + 12

    file, err := os.OpenFile( path, os.O_RDWR, 0 )
    if err != nil {
        return fmt.Errorf( "WriteMetadata: %v", err )
    }
    defer file.Close( )
    if _, err = file.Seek( seekStart, io.SeekStart ); err != nil {
        return fmt.Errorf( "WriteMetadata: %v", err )
    }
    tail, err := io.ReadAll( file )
    if err != nil {
        return fmt.Errorf( "WriteMetadata: %v", err )
    }
    if _, err = file.Seek( seekStart, io.SeekStart ); err != nil {
        return fmt.Errorf( "WriteMetadata: %v", err )
    }
    if _, err = file.Write( chunk ); err != nil {
        return fmt.Errorf( "WriteMetadata: %v", err )
    }
    if _, err = file.Write( tail ); err != nil {
        return fmt.Errorf( "WriteMetadata: %v", err )
    }
    return nil
}
