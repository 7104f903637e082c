package pngexif

import (
    "math"
    "testing"
)

func TestF64ToRational64u( t *testing.T ) {
    cases := []struct {
        name    string
        in      float64
        want    UnsignedRational
    }{
        { "zero", 0.0, UnsignedRational{ 0, 1 } },
        { "half", 0.5, UnsignedRational{ 1, 2 } },
        { "threeHalves", 1.5, UnsignedRational{ 3, 2 } },
        { "integer", 2022.0, UnsignedRational{ 2022, 1 } },
        { "oneThird", 1.0 / 3.0, UnsignedRational{ 1, 3 } },
        { "negative", -0.5, UnsignedRational{ 1, 2 } },
        { "nan", math.NaN( ), UnsignedRational{ 0, 0 } },
        { "saturated", 5e9, UnsignedRational{ math.MaxInt32, 1 } },
        { "infinity", math.Inf( 1 ), UnsignedRational{ math.MaxInt32, 1 } },
    }
    for _, c := range cases {
        t.Run( c.name, func( t *testing.T ) {
            if got := F64ToRational64u( c.in ); got != c.want {
                t.Errorf( "F64ToRational64u(%v) = %v/%v, want %v/%v",
                          c.in, got.Nominator, got.Denominator,
                          c.want.Nominator, c.want.Denominator )
            }
        } )
    }
}

func TestF64ToRational64uApproximation( t *testing.T ) {
    for _, in := range []float64{ math.Pi, math.E, 0.1, 1.0 / 250.0, 72.0, 2.8 } {
        got := F64ToRational64u( in )
        if got.Denominator == 0 {
            t.Fatalf( "F64ToRational64u(%v) produced denominator 0", in )
        }
        if diff := math.Abs( got.Float64( ) - in ); diff > 1e-7 {
            t.Errorf( "F64ToRational64u(%v) = %v/%v, off by %v",
                      in, got.Nominator, got.Denominator, diff )
        }
    }
}

func TestF64ToRational64s( t *testing.T ) {
    cases := []struct {
        name    string
        in      float64
        want    SignedRational
    }{
        { "positive", 1.5, SignedRational{ 3, 2 } },
        { "negative", -1.5, SignedRational{ -3, 2 } },
        { "negativeThird", -1.0 / 3.0, SignedRational{ -1, 3 } },
        { "nan", math.NaN( ), SignedRational{ 0, 0 } },
    }
    for _, c := range cases {
        t.Run( c.name, func( t *testing.T ) {
            if got := F64ToRational64s( c.in ); got != c.want {
                t.Errorf( "F64ToRational64s(%v) = %v/%v, want %v/%v",
                          c.in, got.Nominator, got.Denominator,
                          c.want.Nominator, c.want.Denominator )
            }
        } )
    }
}
