package events

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/consumer"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/elastic_client"
	"github.com/travigo/onebusaway/pkg/notify"
	"github.com/travigo/onebusaway/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Provides the events runner",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run events server",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "notify",
						Value: true,
						Usage: "Forward situations & reauthentication requests to the notify queue",
					},
					&cli.StringFlag{
						Name:  "stats-listen",
						Value: "",
						Usage: "Listen address for the queue stats & health server",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}
					if err := elastic_client.Connect(false); err != nil {
						return err
					}
					defer elastic_client.WaitUntilQueueEmpty()

					batchConsumer := NewEventsBatchConsumer()
					if c.Bool("notify") {
						notifyQueue, err := redis_client.QueueConnection.OpenQueue(notify.QueueName)
						if err != nil {
							return err
						}
						batchConsumer.NotifyQueue = notifyQueue
					}

					redisConsumer := consumer.RedisConsumer{
						QueueName:       "events-queue",
						NumberConsumers: 5,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        batchConsumer,
						StatsListen:     c.String("stats-listen"),
					}
					if err := redisConsumer.Setup(); err != nil {
						return err
					}

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
			{
				Name:  "test-event",
				Usage: "generate a test event",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "stop",
						Value: "1_75403",
						Usage: "Stop the test situation is raised for",
					},
				},
				Action: func(c *cli.Context) error {
					if err := redis_client.Connect(); err != nil {
						return err
					}

					eventsQueue, err := redis_client.QueueConnection.OpenQueue("events-queue")
					if err != nil {
						return err
					}

					serviceAlert := &ctdf.ServiceAlert{
						PrimaryIdentifier: "ONEBUSAWAY:SITUATION:TEST",
						AlertType:         ctdf.ServiceAlertTypeServiceSuspended,

						Title: "Stop Closed",
						Text:  "Buses are not serving this stop due to construction",

						MatchedIdentifiers: []string{c.String("stop")},
					}

					eventBytes, _ := json.Marshal(ctdf.Event{
						Type:      ctdf.EventTypeSituationCreated,
						Timestamp: time.Now(),
						Body: &ctdf.SituationCreatedEvent{
							StopID:       c.String("stop"),
							ServiceAlert: serviceAlert,
						},
					})

					log.Info().Str("stop", c.String("stop")).Msg("Publishing test event")

					return eventsQueue.PublishBytes(eventBytes)
				},
			},
		},
	}
}
