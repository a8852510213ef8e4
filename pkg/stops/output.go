package stops

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/travigo/onebusaway/pkg/ctdf"
)

func WriteArrivalsCSV(writer io.Writer, arrivals []*ctdf.Arrival) error {
	return gocsv.Marshal(arrivals, writer)
}

func WriteArrivalsTable(writer io.Writer, arrivals []*ctdf.Arrival, now time.Time) error {
	table := tabwriter.NewWriter(writer, 0, 4, 2, ' ', 0)

	fmt.Fprintln(table, "ROUTE\tHEADSIGN\tTIME\tMINUTES\tTYPE")
	for _, arrival := range arrivals {
		fmt.Fprintf(table, "%s\t%s\t%s\t%d\t%s\n",
			arrival.RouteShortName,
			arrival.Headsign,
			arrival.Time.Local().Format("15:04"),
			arrival.MinutesUntil(now),
			arrival.Type,
		)
	}

	return table.Flush()
}
