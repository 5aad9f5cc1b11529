package render

const (
	// MinSizeMargin is the smallest slack added to a size hint.
	MinSizeMargin = 32
	// MaxSizeMargin is the largest slack added to a size hint.
	MaxSizeMargin = 512
)

// SizeHint turns the byte count of a template's known literals into an
// initial output buffer capacity: the count plus 10%, with the extra clamped
// to [MinSizeMargin, MaxSizeMargin].
func SizeHint(textSize int) int {
	if textSize < 0 {
		textSize = 0
	}
	margin := textSize / 10
	if margin < MinSizeMargin {
		margin = MinSizeMargin
	}
	if margin > MaxSizeMargin {
		margin = MaxSizeMargin
	}
	return textSize + margin
}
