package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/api"
	"github.com/travigo/onebusaway/pkg/dashboard"
	"github.com/travigo/onebusaway/pkg/events"
	"github.com/travigo/onebusaway/pkg/notify"
	"github.com/travigo/onebusaway/pkg/stops"
	"github.com/travigo/onebusaway/pkg/tracker"
	"github.com/urfave/cli/v2"

	_ "time/tzdata"
)

func main() {
	if os.Getenv("ONEBUSAWAY_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if os.Getenv("ONEBUSAWAY_DEBUG") == "YES" {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "onebusaway",
		Description: "Publishes upcoming OneBusAway arrivals and situations as Home Assistant sensors",

		Commands: []*cli.Command{
			stops.RegisterCLI(),
			tracker.RegisterCLI(),
			api.RegisterCLI(),
			events.RegisterCLI(),
			notify.RegisterCLI(),
			dashboard.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
