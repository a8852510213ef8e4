package stops

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kr/pretty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/configflow"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/database"
	"github.com/travigo/onebusaway/pkg/onebusaway"
	"github.com/urfave/cli/v2"
)

func stopConfigFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "url",
			Usage: "OneBusAway API base URL",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "OneBusAway API key, reused from the other stops when empty",
		},
		&cli.StringFlag{
			Name:  "route-filter",
			Usage: "Expression arrivals must match, eg. Route == \"43\"",
		},
		&cli.IntFlag{
			Name:  "max-arrivals",
			Usage: "Maximum number of arrival sensors",
		},
		&cli.StringFlag{
			Name:  "refresh-interval",
			Usage: "ISO8601 refresh interval, eg. PT2M",
		},
	}
}

func userInput(c *cli.Context) configflow.UserInput {
	return configflow.UserInput{
		URL:             c.String("url"),
		Token:           c.String("token"),
		ID:              c.String("stop"),
		RouteFilter:     c.String("route-filter"),
		MaxArrivals:     c.Int("max-arrivals"),
		RefreshInterval: c.String("refresh-interval"),
	}
}

func flowError(err error) error {
	var formErr *configflow.FormError
	if errors.As(err, &formErr) {
		for field, key := range formErr.Errors {
			log.Error().Err(formErr.Err).Str("field", field).Str("error", key).Msg("Stop config rejected")
		}
	}

	return err
}

func RegisterCLI() *cli.Command {
	stopFlag := &cli.StringFlag{
		Name:     "stop",
		Usage:    "OneBusAway stop ID, eg. 1_75403",
		Required: true,
	}

	return &cli.Command{
		Name:  "stops",
		Usage: "Manage the configured OneBusAway stops",
		Before: func(c *cli.Context) error {
			if c.Args().First() == "arrivals" {
				return nil
			}

			return database.Connect()
		},
		After: func(c *cli.Context) error {
			database.Disconnect()
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "validate and add a new stop",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "stop",
						Value: configflow.DefaultStopID,
						Usage: "OneBusAway stop ID, eg. 1_75403",
					},
				}, stopConfigFlags()...),
				Action: func(c *cli.Context) error {
					flow := configflow.NewFlow(ctdf.MongoStopConfigStore{})

					stopConfig, err := flow.Create(c.Context, userInput(c))
					if err != nil {
						return flowError(err)
					}

					log.Info().Str("id", stopConfig.PrimaryIdentifier).Str("title", stopConfig.Title).Msg("Added stop")

					return nil
				},
			},
			{
				Name:  "update",
				Usage: "change the settings or credentials of a stop",
				Flags: append([]cli.Flag{stopFlag}, stopConfigFlags()...),
				Action: func(c *cli.Context) error {
					flow := configflow.NewFlow(ctdf.MongoStopConfigStore{})

					input := userInput(c)
					input.ID = ""

					stopConfig, err := flow.Update(c.Context, ctdf.StopConfigIdentifier(c.String("stop")), input)
					if err != nil {
						return flowError(err)
					}

					log.Info().Str("id", stopConfig.PrimaryIdentifier).Str("state", string(stopConfig.State)).Msg("Updated stop")

					return nil
				},
			},
			{
				Name:  "remove",
				Usage: "remove a stop",
				Flags: []cli.Flag{stopFlag},
				Action: func(c *cli.Context) error {
					primaryIdentifier := ctdf.StopConfigIdentifier(c.String("stop"))

					if err := (ctdf.MongoStopConfigStore{}).Delete(c.Context, primaryIdentifier); err != nil {
						return err
					}

					log.Info().Str("id", primaryIdentifier).Msg("Removed stop")

					return nil
				},
			},
			{
				Name:  "list",
				Usage: "list the configured stops",
				Action: func(c *cli.Context) error {
					stopConfigs, err := (ctdf.MongoStopConfigStore{}).List(c.Context)
					if err != nil {
						return err
					}

					for _, stopConfig := range stopConfigs {
						log.Info().
							Str("id", stopConfig.PrimaryIdentifier).
							Str("title", stopConfig.Title).
							Str("url", stopConfig.URL).
							Str("state", string(stopConfig.State)).
							Str("routefilter", stopConfig.RouteFilter).
							Dur("refresh", stopConfig.GetRefreshInterval()).
							Str("lasterror", stopConfig.LastError).
							Msg("Stop")
					}
					log.Info().Int("stops", len(stopConfigs)).Msg("Listed stops")

					return nil
				},
			},
			{
				Name:  "check",
				Usage: "check every configured stop can still be fetched",
				Action: func(c *cli.Context) error {
					stopConfigs, err := (ctdf.MongoStopConfigStore{}).List(c.Context)
					if err != nil {
						return err
					}

					newClient := func(url string, key string) configflow.ArrivalsFetcher {
						return onebusaway.NewClient(url, key)
					}

					failed := 0
					for _, result := range Check(c.Context, stopConfigs, newClient, time.Now) {
						if result.Status != "ok" {
							failed++
							log.Error().Err(result.Err).Str("id", result.StopConfig.PrimaryIdentifier).Str("status", result.Status).Msg("Stop check failed")
						} else {
							log.Info().Str("id", result.StopConfig.PrimaryIdentifier).Int("arrivals", result.Arrivals).Msg("Stop check passed")
						}
					}

					if failed > 0 {
						return fmt.Errorf("%d of %d stops failed their check", failed, len(stopConfigs))
					}

					return nil
				},
			},
			{
				Name:  "import",
				Usage: "add or update stops from a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Usage:    "YAML file with a list of stops",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					file, err := os.Open(c.String("file"))
					if err != nil {
						return err
					}
					defer file.Close()

					importFile, err := ParseImportFile(file)
					if err != nil {
						return err
					}

					result := Import(c.Context, configflow.NewFlow(ctdf.MongoStopConfigStore{}), importFile)
					log.Info().
						Int("created", result.Created).
						Int("updated", result.Updated).
						Int("failed", result.Failed).
						Msg("Imported stops")

					if result.Failed > 0 {
						return fmt.Errorf("%d stops failed to import", result.Failed)
					}

					return nil
				},
			},
			{
				Name:  "arrivals",
				Usage: "fetch the upcoming arrivals of a stop without configuring it",
				Flags: []cli.Flag{
					stopFlag,
					&cli.StringFlag{
						Name:  "url",
						Value: onebusaway.DefaultURL,
						Usage: "OneBusAway API base URL",
					},
					&cli.StringFlag{
						Name:    "token",
						EnvVars: []string{"ONEBUSAWAY_API_KEY"},
						Usage:   "OneBusAway API key",
					},
					&cli.IntFlag{
						Name:  "count",
						Value: ctdf.DefaultMaxArrivals,
						Usage: "Maximum number of arrivals to print",
					},
					&cli.StringFlag{
						Name:  "format",
						Value: "table",
						Usage: "Output format, table or csv",
					},
				},
				Action: func(c *cli.Context) error {
					client := onebusaway.NewClient(c.String("url"), c.String("token"))

					response, err := client.GetArrivalsAndDepartures(c.Context, c.String("stop"))
					if err != nil {
						return err
					}

					if log.Logger.GetLevel() <= zerolog.DebugLevel {
						pretty.Println(response.Data.Entry)
					}

					now := time.Now()
					arrivals := ctdf.ComputeArrivals(response.Data.Entry.ArrivalsAndDepartures, now)
					if count := c.Int("count"); count >= 0 && len(arrivals) > count {
						arrivals = arrivals[:count]
					}

					switch c.String("format") {
					case "csv":
						return WriteArrivalsCSV(os.Stdout, arrivals)
					case "table":
						return WriteArrivalsTable(os.Stdout, arrivals, now)
					default:
						return fmt.Errorf("unknown format %q", c.String("format"))
					}
				},
			},
		},
	}
}
