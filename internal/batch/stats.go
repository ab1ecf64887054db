package batch

import "github.com/staywatch/staywatch/internal/types"

// ComputeStats derives the per-listing aggregates from a finished pass.
// Price statistics cover usable quotes only.
func ComputeStats(result *types.ListingResult) types.ListingStats {
	stats := types.ListingStats{
		DaysTotal:       len(result.Calendar),
		QuotesCollected: len(result.Quotes),
	}

	for _, day := range result.Calendar {
		switch day.Status {
		case types.StatusBookable:
			stats.DaysBookable++
		case types.StatusCheckoutOnly:
			stats.DaysCheckoutOnly++
		case types.StatusNoEligibleCheckout:
			stats.DaysNoCheckout++
		default:
			stats.DaysNotBookable++
		}
	}

	var sum float64
	for _, quote := range result.Quotes {
		if !quote.Usable() {
			continue
		}
		price := quote.NightlyPrice.Amount
		if stats.NightlyPriceCount == 0 || price < stats.NightlyPriceMin {
			stats.NightlyPriceMin = price
		}
		if price > stats.NightlyPriceMax {
			stats.NightlyPriceMax = price
		}
		sum += price
		stats.NightlyPriceCount++
	}
	if stats.NightlyPriceCount > 0 {
		stats.NightlyPriceMean = sum / float64(stats.NightlyPriceCount)
	}
	return stats
}
