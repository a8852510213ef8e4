package stops

import (
	"context"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/travigo/onebusaway/pkg/configflow"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/onebusaway"
)

const checkConcurrency = 5

type CheckResult struct {
	StopConfig *ctdf.StopConfig
	Arrivals   int
	Status     string
	Err        error
}

// Check fetches every stop once, reporting the same error keys as the setup form
func Check(ctx context.Context, stopConfigs []*ctdf.StopConfig, newClient func(url string, key string) configflow.ArrivalsFetcher, now func() time.Time) []CheckResult {
	results := pool.NewWithResults[CheckResult]().WithContext(ctx).WithMaxGoroutines(checkConcurrency)

	for _, stopConfig := range stopConfigs {
		results.Go(func(ctx context.Context) (CheckResult, error) {
			result := CheckResult{StopConfig: stopConfig, Status: "ok"}

			response, err := newClient(stopConfig.URL, stopConfig.Token).GetArrivalsAndDepartures(ctx, stopConfig.StopID)
			switch {
			case onebusaway.IsAuthentication(err):
				result.Status = configflow.ErrorAuth
			case onebusaway.IsCommunication(err):
				result.Status = configflow.ErrorConnection
			case err != nil:
				result.Status = configflow.ErrorUnknown
			default:
				result.Arrivals = len(ctdf.ComputeArrivals(response.Data.Entry.ArrivalsAndDepartures, now()))
				if result.Arrivals == 0 {
					result.Status = configflow.ErrorNoArrivals
				}
			}
			result.Err = err

			return result, nil
		})
	}

	checked, _ := results.Wait()
	sort.Slice(checked, func(i, j int) bool {
		return checked[i].StopConfig.PrimaryIdentifier < checked[j].StopConfig.PrimaryIdentifier
	})

	return checked
}
