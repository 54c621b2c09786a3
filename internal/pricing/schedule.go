package pricing

import "time"

// EstimateDelivery adds businessDays working days to from, skipping Saturdays and Sundays.
// The time of day is preserved.
func EstimateDelivery(from time.Time, businessDays int) time.Time {
	date := from
	for added := 0; added < businessDays; {
		date = date.AddDate(0, 0, 1)
		switch date.Weekday() {
		case time.Saturday, time.Sunday:
			continue
		}
		added++
	}
	return date
}
