package pngexif

import (
    "math"
)

const (
    _maxTermCount           = 42
    _convergenceTolerance   = 1e-9
)

// Float64 returns the real value of the ratio. The denominator may be 0,
// in which case the result is an infinity or NaN, as EXIF rationals have
// no better answer for it either.
func (r UnsignedRational) Float64( ) float64 {
    return float64(r.Nominator) / float64(r.Denominator)
}

func (r SignedRational) Float64( ) float64 {
    return float64(r.Nominator) / float64(r.Denominator)
}

// the convergent recurrence: each continued fraction term combines the
// current and previous convergent into the next one
func addFractionTerm( term uint32, convergent,
                      previous UnsignedRational ) UnsignedRational {
    return UnsignedRational{
        Nominator:   term * convergent.Nominator + previous.Nominator,
        Denominator: term * convergent.Denominator + previous.Denominator,
    }
}

// F64ToRational64u approximates |real| as a ratio of two unsigned 32-bit
// integers using its continued fraction expansion. NaN becomes 0/0;
// values at or above 2^32 - 0.5 saturate to (2^31-1)/1. Expansion stops
// after at most 42 terms or once the residual drops within 1e-9, and both
// fields are kept within the 32-bit signed range so results stay usable
// for the signed variant as well.
func F64ToRational64u( real float64 ) UnsignedRational {
    real = math.Abs( real )

    if math.IsNaN( real ) {
        return UnsignedRational{ Nominator: 0, Denominator: 0 }
    }
    if real >= float64(math.MaxUint32) + 0.5 {
        return UnsignedRational{ Nominator: math.MaxInt32, Denominator: 1 }
    }

    reciprocalResidual := real
    term := math.Floor( real )

    previous := UnsignedRational{ Nominator: 1, Denominator: 0 }
    convergent := UnsignedRational{ Nominator: uint32(term), Denominator: 1 }

    n := uint32(0)
    for termCount := 2; termCount < _maxTermCount; termCount++ {
        // the value after the decimal point
        nextResidual := reciprocalResidual - term
        if math.Abs( nextResidual ) <= _convergenceTolerance {
            return convergent
        }
        reciprocalResidual = 1.0 / nextResidual
        term = math.Floor( reciprocalResidual )

        // largest next term that keeps both fields in 32-bit signed range
        n = ( math.MaxInt32 - previous.Denominator ) / convergent.Denominator
        if convergent.Nominator > 0 {
            limit := ( math.MaxInt32 - previous.Nominator ) / convergent.Nominator
            if limit < n {
                n = limit
            }
        }
        if term >= float64(n) {
            break
        }

        next := addFractionTerm( uint32(term), convergent, previous )
        previous = convergent
        convergent = next
    }

    best := convergent

    // a final semiconvergent term may still improve the approximation
    lowerBound := term / 2.0
    if float64(n) >= lowerBound {
        if float64(n) > term {
            n = uint32(term)
        }
        semiconvergent := addFractionTerm( n, convergent, previous )
        if float64(n) > lowerBound ||
           math.Abs( real - semiconvergent.Float64( ) ) <
           math.Abs( real - convergent.Float64( ) ) {
            best = semiconvergent
        }
    }
    return best
}

// F64ToRational64s is the signed companion of F64ToRational64u: the
// magnitude is approximated the same way and the sign reapplied to the
// nominator.
func F64ToRational64s( real float64 ) SignedRational {
    best := F64ToRational64u( real )
    nominator := int32(best.Nominator)
    if real < 0 {
        nominator = -nominator
    }
    return SignedRational{ Nominator: nominator,
                           Denominator: int32(best.Denominator) }
}
