package knowledge

// PriorityScore derives a record's ranking value from its feedback counters.
// The positive ratio is the base and total volume is an amplifier that reaches
// 2x at 100 votes and keeps growing linearly beyond it; that growth is accepted
// behavior. With no feedback the score is zero.
func PriorityScore(positive, negative int64) float64 {
	total := positive + negative
	if total == 0 {
		return 0.0
	}
	ratio := float64(positive) / float64(total)
	return ratio * (1 + float64(total)/100)
}
