package scoring

import (
	"fmt"
	"strings"
)

// Band is a qualitative performance label. Higher values rank better, so
// bands compare with the usual integer operators.
type Band int

const (
	Limited Band = iota
	Developing
	Strong
	Exceptional
)

// Lower bounds (inclusive) in percent of the maximum total.
const (
	ExceptionalFloor = 80.0
	StrongFloor      = 60.0
	DevelopingFloor  = 40.0
)

var bandNames = [...]string{
	Limited:     "Limited",
	Developing:  "Developing",
	Strong:      "Strong",
	Exceptional: "Exceptional",
}

// Bands lists every band from lowest to highest.
func Bands() []Band {
	return []Band{Limited, Developing, Strong, Exceptional}
}

// Classify maps a total and its maximum to a band. Each band's lower bound is
// inclusive: exactly 80% is Exceptional, exactly 60% Strong, exactly 40%
// Developing. maxTotal <= 0 classifies as Limited.
func Classify(total, maxTotal float64) Band {
	if maxTotal <= 0 {
		return Limited
	}
	// Compare total*100 against floor*max so integral scores at a boundary
	// never lose to division rounding.
	scaled := total * percentScale
	switch {
	case scaled >= ExceptionalFloor*maxTotal:
		return Exceptional
	case scaled >= StrongFloor*maxTotal:
		return Strong
	case scaled >= DevelopingFloor*maxTotal:
		return Developing
	default:
		return Limited
	}
}

func (b Band) String() string {
	if b < Limited || b > Exceptional {
		return fmt.Sprintf("Band(%d)", int(b))
	}
	return bandNames[b]
}

// ParseBand accepts a band label, case-insensitively.
func ParseBand(s string) (Band, error) {
	for _, b := range Bands() {
		if strings.EqualFold(strings.TrimSpace(s), bandNames[b]) {
			return b, nil
		}
	}
	return Limited, &ValidationError{Field: "band", Reason: fmt.Sprintf("unknown band %q", s)}
}

// MarshalText encodes the band as its label.
func (b Band) MarshalText() ([]byte, error) {
	if b < Limited || b > Exceptional {
		return nil, fmt.Errorf("scoring: invalid band %d", int(b))
	}
	return []byte(bandNames[b]), nil
}

// UnmarshalText decodes a band label.
func (b *Band) UnmarshalText(text []byte) error {
	parsed, err := ParseBand(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
