package chat

// Band is the visual category a confidence score renders with.
type Band string

const (
	BandPositive Band = "positive"
	BandNeutral  Band = "neutral"
	BandNegative Band = "negative"
)

const (
	positiveFloor = 80
	neutralFloor  = 60
)

// BandFor maps a confidence score to its band: >=80 positive, 60-79 neutral,
// below 60 negative.
func BandFor(confidence int) Band {
	switch {
	case confidence >= positiveFloor:
		return BandPositive
	case confidence >= neutralFloor:
		return BandNeutral
	default:
		return BandNegative
	}
}
