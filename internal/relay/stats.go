package relay

import (
	"encoding/binary"
	"math"
)

// Stats is the running amplitude range of a recording session
type Stats struct {
	Min     int16  `json:"min"`
	Max     int16  `json:"max"`
	Samples uint64 `json:"samples"`
}

// NewStats returns an empty range; Min and Max start inverted so the first
// observed sample sets both
func NewStats() Stats {
	return Stats{Min: math.MaxInt16, Max: math.MinInt16}
}

// Observe folds signed 16-bit little-endian samples into the range. A
// trailing odd byte is ignored.
func (s *Stats) Observe(pcm []byte) {
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int16(binary.LittleEndian.Uint16(pcm[i:]))
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Samples += uint64(len(pcm) / 2)
}

// Empty reports whether no sample has been observed
func (s Stats) Empty() bool {
	return s.Samples == 0
}
