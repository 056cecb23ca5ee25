package core

// NextSluggishDays returns the sluggish-day counter after one import cycle.
// prev is the counter stored before this batch, or nil when no record existed yet.
//
//	stock == 0               -> 0
//	dailySales > 0           -> 0
//	stock > 0, no daily sale -> prev + 1 (1 for a new record)
func NextSluggishDays(prev *int, stock, dailySales int) int {
	if stock <= 0 || dailySales > 0 {
		return 0
	}
	if prev == nil {
		return 1
	}
	return *prev + 1
}
