package pngexif

// The tag catalog: a static lookup table from (tag id, group) to the tag
// definition, giving the expected format and the tag kind. Most tags are
// plain values; IFD-offset tags point at an embedded SubIFD of a child
// group, and data-offset tags come in interlinked pairs whose payload
// lives elsewhere in the file (strip offsets and their byte counts).

type tagKind uint

const (
    _ValueTag tagKind = iota
    _IfdOffsetTag
    _DataOffsetTag
)

// pairRole identifies one known pair of interlinked data-offset tags.
type pairRole uint

const (
    _StripPair pairRole = iota

    _PAIR_N
)

// per role: the tag holding the offsets and the tag holding the byte
// counts of each data segment
type pairTags struct {
    offsets uint16
    counts  uint16
}

var pairDefs = [_PAIR_N]pairTags{
    _StripPair: { _StripOffsets, _StripByteCounts },
}

type tagDef struct {
    name    string
    format  Format
    kind    tagKind
    child   TagGroup    // _IfdOffsetTag only: group of the SubIFD
    role    pairRole    // _DataOffsetTag only
    member  int         // _DataOffsetTag only: 0 offsets, 1 byte counts
}

const (                                     // generic (TIFF) IFD tags
    _ImageWidth                 = 0x100
    _ImageLength                = 0x101
    _BitsPerSample              = 0x102
    _Compression                = 0x103
    _PhotometricInterpretation  = 0x106
    _ImageDescription           = 0x10e
    _Make                       = 0x10f
    _Model                      = 0x110
    _StripOffsets               = 0x111
    _Orientation                = 0x112
    _SamplesPerPixel            = 0x115
    _RowsPerStrip               = 0x116
    _StripByteCounts            = 0x117
    _XResolution                = 0x11a
    _YResolution                = 0x11b
    _PlanarConfiguration        = 0x11c
    _ResolutionUnit             = 0x128
    _Software                   = 0x131
    _DateTime                   = 0x132
    _Artist                     = 0x13b
    _WhitePoint                 = 0x13e
    _PrimaryChromaticities      = 0x13f
    _YCbCrCoefficients          = 0x211
    _YCbCrPositioning           = 0x213
    _ReferenceBlackWhite        = 0x214
    _Copyright                  = 0x8298

    _ExifIFD                    = 0x8769
    _GpsIFD                     = 0x8825
)

const (                                     // EXIF IFD specific tags
    _ExposureTime               = 0x829a
    _FNumber                    = 0x829d
    _ExposureProgram            = 0x8822
    _ISOSpeedRatings            = 0x8827
    _ExifVersion                = 0x9000
    _DateTimeOriginal           = 0x9003
    _DateTimeDigitized          = 0x9004
    _ComponentsConfiguration    = 0x9101
    _CompressedBitsPerPixel     = 0x9102
    _ShutterSpeedValue          = 0x9201
    _ApertureValue              = 0x9202
    _BrightnessValue            = 0x9203
    _ExposureBiasValue          = 0x9204
    _MaxApertureValue           = 0x9205
    _SubjectDistance            = 0x9206
    _MeteringMode               = 0x9207
    _LightSource                = 0x9208
    _Flash                      = 0x9209
    _FocalLength                = 0x920a
    _UserComment                = 0x9286
    _FlashpixVersion            = 0xa000
    _ColorSpace                 = 0xa001
    _PixelXDimension            = 0xa002
    _PixelYDimension            = 0xa003

    _InteroperabilityIFD        = 0xa005

    _FocalPlaneXResolution      = 0xa20e
    _FocalPlaneYResolution      = 0xa20f
    _FocalPlaneResolutionUnit   = 0xa210
    _CustomRendered             = 0xa401
    _ExposureMode               = 0xa402
    _WhiteBalance               = 0xa403
    _DigitalZoomRatio           = 0xa404
    _FocalLengthIn35mmFilm      = 0xa405
    _SceneCaptureType           = 0xa406
    _ImageUniqueID              = 0xa420
    _LensMake                   = 0xa433
    _LensModel                  = 0xa434
)

const (                                     // GPS IFD specific tags
    _GPSVersionID               = 0x00
    _GPSLatitudeRef             = 0x01
    _GPSLatitude                = 0x02
    _GPSLongitudeRef            = 0x03
    _GPSLongitude               = 0x04
    _GPSAltitudeRef             = 0x05
    _GPSAltitude                = 0x06
    _GPSTimeStamp               = 0x07
    _GPSMapDatum                = 0x12
    _GPSDateStamp               = 0x1d
)

const (                                     // Interoperability IFD tags
    _InteroperabilityIndex      = 0x01
    _InteroperabilityVersion    = 0x02
)

var tiffTagDefs = map[uint16]tagDef{
    _ImageWidth:                { name: "ImageWidth", format: UnsignedLong },
    _ImageLength:               { name: "ImageLength", format: UnsignedLong },
    _BitsPerSample:             { name: "BitsPerSample", format: UnsignedShort },
    _Compression:               { name: "Compression", format: UnsignedShort },
    _PhotometricInterpretation: { name: "PhotometricInterpretation", format: UnsignedShort },
    _ImageDescription:          { name: "ImageDescription", format: ASCIIString },
    _Make:                      { name: "Make", format: ASCIIString },
    _Model:                     { name: "Model", format: ASCIIString },
    _StripOffsets:              { name: "StripOffsets", format: UnsignedLong,
                                  kind: _DataOffsetTag, role: _StripPair, member: 0 },
    _Orientation:               { name: "Orientation", format: UnsignedShort },
    _SamplesPerPixel:           { name: "SamplesPerPixel", format: UnsignedShort },
    _RowsPerStrip:              { name: "RowsPerStrip", format: UnsignedLong },
    _StripByteCounts:           { name: "StripByteCounts", format: UnsignedLong,
                                  kind: _DataOffsetTag, role: _StripPair, member: 1 },
    _XResolution:               { name: "XResolution", format: UnsignedRationalFmt },
    _YResolution:               { name: "YResolution", format: UnsignedRationalFmt },
    _PlanarConfiguration:       { name: "PlanarConfiguration", format: UnsignedShort },
    _ResolutionUnit:            { name: "ResolutionUnit", format: UnsignedShort },
    _Software:                  { name: "Software", format: ASCIIString },
    _DateTime:                  { name: "DateTime", format: ASCIIString },
    _Artist:                    { name: "Artist", format: ASCIIString },
    _WhitePoint:                { name: "WhitePoint", format: UnsignedRationalFmt },
    _PrimaryChromaticities:     { name: "PrimaryChromaticities", format: UnsignedRationalFmt },
    _YCbCrCoefficients:         { name: "YCbCrCoefficients", format: UnsignedRationalFmt },
    _YCbCrPositioning:          { name: "YCbCrPositioning", format: UnsignedShort },
    _ReferenceBlackWhite:       { name: "ReferenceBlackWhite", format: UnsignedRationalFmt },
    _Copyright:                 { name: "Copyright", format: ASCIIString },

    _ExifIFD:                   { name: "ExifIFD", format: UnsignedLong,
                                  kind: _IfdOffsetTag, child: EXIF },
    _GpsIFD:                    { name: "GpsIFD", format: UnsignedLong,
                                  kind: _IfdOffsetTag, child: GPS },
}

var exifTagDefs = map[uint16]tagDef{
    _ExposureTime:              { name: "ExposureTime", format: UnsignedRationalFmt },
    _FNumber:                   { name: "FNumber", format: UnsignedRationalFmt },
    _ExposureProgram:           { name: "ExposureProgram", format: UnsignedShort },
    _ISOSpeedRatings:           { name: "ISOSpeedRatings", format: UnsignedShort },
    _ExifVersion:               { name: "ExifVersion", format: Undefined },
    _DateTimeOriginal:          { name: "DateTimeOriginal", format: ASCIIString },
    _DateTimeDigitized:         { name: "DateTimeDigitized", format: ASCIIString },
    _ComponentsConfiguration:   { name: "ComponentsConfiguration", format: Undefined },
    _CompressedBitsPerPixel:    { name: "CompressedBitsPerPixel", format: UnsignedRationalFmt },
    _ShutterSpeedValue:         { name: "ShutterSpeedValue", format: SignedRationalFmt },
    _ApertureValue:             { name: "ApertureValue", format: UnsignedRationalFmt },
    _BrightnessValue:           { name: "BrightnessValue", format: SignedRationalFmt },
    _ExposureBiasValue:         { name: "ExposureBiasValue", format: SignedRationalFmt },
    _MaxApertureValue:          { name: "MaxApertureValue", format: UnsignedRationalFmt },
    _SubjectDistance:           { name: "SubjectDistance", format: UnsignedRationalFmt },
    _MeteringMode:              { name: "MeteringMode", format: UnsignedShort },
    _LightSource:               { name: "LightSource", format: UnsignedShort },
    _Flash:                     { name: "Flash", format: UnsignedShort },
    _FocalLength:               { name: "FocalLength", format: UnsignedRationalFmt },
    _UserComment:               { name: "UserComment", format: Undefined },
    _FlashpixVersion:           { name: "FlashpixVersion", format: Undefined },
    _ColorSpace:                { name: "ColorSpace", format: UnsignedShort },
    _PixelXDimension:           { name: "PixelXDimension", format: UnsignedLong },
    _PixelYDimension:           { name: "PixelYDimension", format: UnsignedLong },

    _InteroperabilityIFD:       { name: "InteroperabilityIFD", format: UnsignedLong,
                                  kind: _IfdOffsetTag, child: INTEROP },

    _FocalPlaneXResolution:     { name: "FocalPlaneXResolution", format: UnsignedRationalFmt },
    _FocalPlaneYResolution:     { name: "FocalPlaneYResolution", format: UnsignedRationalFmt },
    _FocalPlaneResolutionUnit:  { name: "FocalPlaneResolutionUnit", format: UnsignedShort },
    _CustomRendered:            { name: "CustomRendered", format: UnsignedShort },
    _ExposureMode:              { name: "ExposureMode", format: UnsignedShort },
    _WhiteBalance:              { name: "WhiteBalance", format: UnsignedShort },
    _DigitalZoomRatio:          { name: "DigitalZoomRatio", format: UnsignedRationalFmt },
    _FocalLengthIn35mmFilm:     { name: "FocalLengthIn35mmFilm", format: UnsignedShort },
    _SceneCaptureType:          { name: "SceneCaptureType", format: UnsignedShort },
    _ImageUniqueID:             { name: "ImageUniqueID", format: ASCIIString },
    _LensMake:                  { name: "LensMake", format: ASCIIString },
    _LensModel:                 { name: "LensModel", format: ASCIIString },
}

var gpsTagDefs = map[uint16]tagDef{
    _GPSVersionID:              { name: "GPSVersionID", format: UnsignedByte },
    _GPSLatitudeRef:            { name: "GPSLatitudeRef", format: ASCIIString },
    _GPSLatitude:               { name: "GPSLatitude", format: UnsignedRationalFmt },
    _GPSLongitudeRef:           { name: "GPSLongitudeRef", format: ASCIIString },
    _GPSLongitude:              { name: "GPSLongitude", format: UnsignedRationalFmt },
    _GPSAltitudeRef:            { name: "GPSAltitudeRef", format: UnsignedByte },
    _GPSAltitude:               { name: "GPSAltitude", format: UnsignedRationalFmt },
    _GPSTimeStamp:              { name: "GPSTimeStamp", format: UnsignedRationalFmt },
    _GPSMapDatum:               { name: "GPSMapDatum", format: ASCIIString },
    _GPSDateStamp:              { name: "GPSDateStamp", format: ASCIIString },
}

var iopTagDefs = map[uint16]tagDef{
    _InteroperabilityIndex:     { name: "InteroperabilityIndex", format: ASCIIString },
    _InteroperabilityVersion:   { name: "InteroperabilityVersion", format: Undefined },
}

var groupTagDefs = [_GROUP_N]map[uint16]tagDef{
    GENERIC:    tiffTagDefs,
    EXIF:       exifTagDefs,
    GPS:        gpsTagDefs,
    INTEROP:    iopTagDefs,
    NO_GROUP:   nil,
}

// lookupTag returns the definition of a tag in the given group namespace.
// Tags absent from the catalog are unknown: decoded as plain values of
// their declared format and never classified as offset or data tags.
func lookupTag( id uint16, group TagGroup ) ( tagDef, bool ) {
    if group >= _GROUP_N || groupTagDefs[group] == nil {
        return tagDef{}, false
    }
    def, ok := groupTagDefs[group][id]
    return def, ok
}
