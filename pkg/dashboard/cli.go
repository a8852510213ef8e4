package dashboard

import (
	"os"

	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/database"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "dashboard",
		Usage: "Print the Lovelace card YAML for a configured stop",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "stop",
				Usage:    "OneBusAway stop ID, eg. 1_75403",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "arrivals",
				Usage: "Number of arrival rows, defaults to the stop's maximum arrivals",
			},
		},
		Action: func(c *cli.Context) error {
			if err := database.Connect(); err != nil {
				return err
			}
			defer database.Disconnect()

			stopConfig, err := (ctdf.MongoStopConfigStore{}).Get(c.Context, ctdf.StopConfigIdentifier(c.String("stop")))
			if err != nil {
				return err
			}

			arrivals := c.Int("arrivals")
			if arrivals <= 0 {
				arrivals = stopConfig.GetMaxArrivals()
			}

			rendered, err := Render(StopCard(stopConfig, arrivals))
			if err != nil {
				return err
			}

			_, err = os.Stdout.Write(rendered)
			return err
		},
	}
}
