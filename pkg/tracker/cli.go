package tracker

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/database"
	"github.com/travigo/onebusaway/pkg/dbwatch"
	"github.com/travigo/onebusaway/pkg/homeassistant"
	"github.com/travigo/onebusaway/pkg/redis_client"
	"github.com/travigo/onebusaway/pkg/sensor"
	"github.com/travigo/onebusaway/pkg/statecache"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "tracker",
		Usage: "Track arrivals at the configured OneBusAway stops",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run an instance of the stop tracker",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "reload-interval",
						Value: DefaultReloadInterval,
						Usage: "How often to reload the configured stops",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Reload stops as soon as they change using a MongoDB change stream",
					},
					&cli.DurationFlag{
						Name:  "cache-expiration",
						Value: 90 * time.Minute,
						Usage: "How long computed sensors are kept in the state cache",
					},
				},
				Action: func(c *cli.Context) error {
					if err := database.Connect(); err != nil {
						return err
					}
					defer database.Disconnect()
					if err := redis_client.Connect(); err != nil {
						return err
					}

					publishers := sensor.MultiPublisher{
						statecache.New(redis_client.Client, c.Duration("cache-expiration")),
					}

					if homeAssistant := homeassistant.NewPublisherFromEnvironment(); homeAssistant != nil {
						if err := homeAssistant.Ping(c.Context); err != nil {
							return err
						}
						log.Info().Str("url", homeAssistant.URL).Msg("Publishing sensors to Home Assistant")

						publishers = append(publishers, homeAssistant)
					} else {
						log.Warn().Msg("Home Assistant not configured, sensors are only kept in the state cache")
					}

					eventQueue, err := redis_client.QueueConnection.OpenQueue("events-queue")
					if err != nil {
						return err
					}

					trackerManager := NewTrackerManager(ctdf.MongoStopConfigStore{}, publishers, eventQueue)
					trackerManager.ReloadInterval = c.Duration("reload-interval")

					ctx, cancel := context.WithCancel(c.Context)
					defer cancel()

					if c.Bool("watch") {
						stopConfigsWatch := dbwatch.NewStopConfigsWatch(func(primaryIdentifier string, operationType string) {
							trackerManager.RequestReload()
						})

						go func() {
							if err := stopConfigsWatch.Run(ctx); err != nil {
								log.Error().Err(err).Msg("Stop config watch failed, relying on the reload interval")
							}
						}()
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					go func() {
						<-signals // wait for signal
						log.Info().Msg("Shutting down stop tracker")
						cancel()

						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					return trackerManager.Run(ctx)
				},
			},
		},
	}
}
