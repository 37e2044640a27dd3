// Package visual provides the read-only snapshot consumed by the decorative
// visualization panel. It never writes back into calculator state.
package visual

import (
	"fmt"
	"strconv"
	"strings"
)

// Dimension selects which projection the visualization panel draws.
type Dimension string

const (
	Dim2D Dimension = "2d"
	Dim3D Dimension = "3d"
	Dim4D Dimension = "4d"
	Dim5D Dimension = "5d"
	Dim6D Dimension = "6d"

	DefaultDimension = Dim3D
)

var dimensions = []Dimension{Dim2D, Dim3D, Dim4D, Dim5D, Dim6D}

// Dimensions returns the selectable dimensions in display order.
func Dimensions() []Dimension {
	out := make([]Dimension, len(dimensions))
	copy(out, dimensions)
	return out
}

// ParseDimension accepts "2d".."6d" in any case.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range dimensions {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown dimension %q", s)
}

// Next returns the following dimension, wrapping from 6d back to 2d.
func (d Dimension) Next() Dimension {
	for i, known := range dimensions {
		if d == known {
			return dimensions[(i+1)%len(dimensions)]
		}
	}
	return DefaultDimension
}

// Label is the upper-case form shown in the panel header.
func (d Dimension) Label() string {
	return strings.ToUpper(string(d))
}

// Snapshot is everything the visualization panel may read.
type Snapshot struct {
	Value      float64   `json:"value"`
	Normalized float64   `json:"normalized"`
	Dimension  Dimension `json:"dimension"`
}

// NewSnapshot builds a snapshot from the operand text as displayed.
// Normalized is value/100 clamped to [-1, 1], the scale shapes are drawn at.
func NewSnapshot(operand string, dim Dimension) Snapshot {
	v := leadingNumber(operand)

	n := v / 100
	switch {
	case n > 1:
		n = 1
	case n < -1:
		n = -1
	}

	return Snapshot{
		Value:      v,
		Normalized: n,
		Dimension:  dim,
	}
}

// leadingNumber parses the longest numeric prefix of s and returns 0 when
// there is none, so "12.5abc" is 12.5 and "Error" is 0.
func leadingNumber(s string) float64 {
	s = strings.TrimSpace(s)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
		digits++
	}
	if end < len(s) && s[end] == '.' {
		end++
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
			digits++
		}
	}
	if digits == 0 {
		return 0
	}
	if end < len(s) && (s[end] == 'e' || s[end] == 'E') {
		j := end + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && s[k] >= '0' && s[k] <= '9' {
			k++
		}
		if k > j {
			end = k
		}
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return v
}
