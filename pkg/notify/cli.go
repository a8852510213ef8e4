package notify

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/travigo/onebusaway/pkg/consumer"
	"github.com/travigo/onebusaway/pkg/homeassistant"
	"github.com/travigo/onebusaway/pkg/redis_client"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Provides the notification system",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run notify server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "service",
						Value:   homeassistant.DefaultNotifyService,
						EnvVars: []string{"ONEBUSAWAY_HOMEASSISTANT_NOTIFY_SERVICE"},
						Usage:   "Home Assistant notify service to send notifications through",
					},
				},
				Action: func(c *cli.Context) error {
					homeAssistant := homeassistant.NewPublisherFromEnvironment()
					if homeAssistant == nil {
						return errors.New("ONEBUSAWAY_HOMEASSISTANT_URL must be set to send notifications")
					}
					if err := redis_client.Connect(); err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						QueueName:       QueueName,
						NumberConsumers: 5,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewNotifyBatchConsumer(homeAssistant, c.String("service")),
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
		},
	}
}
