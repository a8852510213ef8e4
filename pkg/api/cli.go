package api

import (
	"github.com/travigo/onebusaway/pkg/api/routes"
	"github.com/travigo/onebusaway/pkg/configflow"
	"github.com/travigo/onebusaway/pkg/ctdf"
	"github.com/travigo/onebusaway/pkg/database"
	"github.com/travigo/onebusaway/pkg/redis_client"
	"github.com/travigo/onebusaway/pkg/statecache"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the core web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Value: ":8080",
						Usage: "listen target for the web server",
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

					store := ctdf.MongoStopConfigStore{}

					stops := routes.NewStops(store, configflow.NewFlow(store), statecache.New(redis_client.Client, 0))

					return SetupServer(c.String("listen"), stops)
				},
			},
		},
	}
}
