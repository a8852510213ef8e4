package ctdf

import (
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"
)

// ArrivalFilterEnvironment is what a route filter expression can reference,
// eg. `Route in ["43", "49"] && Minutes >= 3`
type ArrivalFilterEnvironment struct {
	Route    string
	RouteID  string
	Headsign string
	Type     string
	TripID   string
	Minutes  int
}

type ArrivalFilter struct {
	Source  string
	program *vm.Program
}

func CompileArrivalFilter(source string) (*ArrivalFilter, error) {
	program, err := expr.Compile(source, expr.Env(ArrivalFilterEnvironment{}), expr.AsBool())
	if err != nil {
		return nil, err
	}

	return &ArrivalFilter{
		Source:  source,
		program: program,
	}, nil
}

func (f *ArrivalFilter) Match(arrival *Arrival, now time.Time) bool {
	output, err := expr.Run(f.program, ArrivalFilterEnvironment{
		Route:    arrival.RouteShortName,
		RouteID:  arrival.RouteID,
		Headsign: arrival.Headsign,
		Type:     string(arrival.Type),
		TripID:   arrival.TripID,
		Minutes:  arrival.MinutesUntil(now),
	})
	if err != nil {
		log.Error().Err(err).Str("filter", f.Source).Msg("Failed to evaluate arrival filter")
		return false
	}

	return output.(bool)
}

// Apply returns the arrivals matching the filter, a nil filter matches everything
func (f *ArrivalFilter) Apply(arrivals []*Arrival, now time.Time) []*Arrival {
	if f == nil {
		return arrivals
	}

	filtered := []*Arrival{}
	for _, arrival := range arrivals {
		if f.Match(arrival, now) {
			filtered = append(filtered, arrival)
		}
	}

	return filtered
}
