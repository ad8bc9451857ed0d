package recurrence

import "github.com/cleared-dev/txray/internal/model"

// band bounds the average gap that selects a frequency and the range every
// individual gap must stay within.
type band struct {
	freq           model.Frequency
	avgMin, avgMax float64
	gapMin, gapMax int
}

var bands = []band{
	{model.FrequencyWeekly, 6, 9, 5, 10},
	{model.FrequencyMonthly, 25, 35, 20, 40},
	{model.FrequencyQuarterly, 85, 95, 80, 100},
	{model.FrequencyAnnual, 350, 380, 340, 390},
}

// Classify maps day gaps between consecutive occurrences to a frequency.
// The average gap picks the band; a single gap outside that band's
// tolerance rejects the series.
func Classify(gaps []int) (model.Frequency, bool) {
	if len(gaps) == 0 {
		return "", false
	}

	sum := 0
	for _, g := range gaps {
		sum += g
	}
	avg := float64(sum) / float64(len(gaps))

	for _, b := range bands {
		if avg < b.avgMin || avg > b.avgMax {
			continue
		}
		for _, g := range gaps {
			if g < b.gapMin || g > b.gapMax {
				return "", false
			}
		}
		return b.freq, true
	}
	return "", false
}
