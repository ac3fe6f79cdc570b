package atlas

// Tier is a predefined character set generated into the atlas as a group.
// The engine rasterizes TierASCII eagerly at startup; the remaining tiers
// and everything outside them arrive on demand, one glyph at a time.
type Tier uint8

const (
	// TierASCII covers the printable ASCII range U+0020..U+007E.
	TierASCII Tier = iota

	// TierLatin1 covers the Latin-1 supplement U+00A0..U+00FF.
	TierLatin1

	// TierSymbols covers the ranges terminal output leans on: box drawing,
	// block elements, and arrows.
	TierSymbols
)

// runeRange is a closed range of code points.
type runeRange struct {
	lo, hi rune
}

var tierRanges = map[Tier][]runeRange{
	TierASCII:  {{0x0020, 0x007E}},
	TierLatin1: {{0x00A0, 0x00FF}},
	TierSymbols: {
		{0x2500, 0x257F}, // box drawing
		{0x2580, 0x259F}, // block elements
		{0x2190, 0x21FF}, // arrows
	},
}

// Runes returns the code points of the tier in ascending order.
func (t Tier) Runes() []rune {
	ranges, ok := tierRanges[t]
	if !ok {
		return nil
	}
	n := 0
	for _, rr := range ranges {
		n += int(rr.hi-rr.lo) + 1
	}
	out := make([]rune, 0, n)
	for _, rr := range ranges {
		for r := rr.lo; r <= rr.hi; r++ {
			out = append(out, r)
		}
	}
	return out
}

func (t Tier) String() string {
	switch t {
	case TierASCII:
		return "ascii"
	case TierLatin1:
		return "latin1"
	case TierSymbols:
		return "symbols"
	default:
		return "unknown"
	}
}
