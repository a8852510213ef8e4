package stats

import (
	"context"

	"github.com/travigo/onebusaway/pkg/ctdf"
)

type StopsStats struct {
	Total int

	Loaded         int
	ReauthRequired int
	SetupError     int

	// Loaded stops whose last update failed
	Failing int
}

func GetStops(ctx context.Context, store ctdf.StopConfigStore) (StopsStats, error) {
	stopConfigs, err := store.List(ctx)
	if err != nil {
		return StopsStats{}, err
	}

	stats := StopsStats{Total: len(stopConfigs)}
	for _, stopConfig := range stopConfigs {
		switch stopConfig.State {
		case ctdf.StopConfigStateReauthRequired:
			stats.ReauthRequired++
		case ctdf.StopConfigStateSetupError:
			stats.SetupError++
		default:
			stats.Loaded++
			if stopConfig.LastError != "" {
				stats.Failing++
			}
		}
	}

	return stats, nil
}
