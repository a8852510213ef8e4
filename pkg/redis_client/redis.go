package redis_client

import (
	"context"
	"strconv"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/onebusaway/pkg/util"
)

var Client *redis.Client
var QueueConnection rmq.Connection

const defaultConnectionAddress = "localhost:6379"
const defaultDatabase = 0

func Connect() error {
	if Client != nil {
		return nil
	}

	address := util.GetEnvironmentVariable("REDIS_ADDRESS", defaultConnectionAddress)
	password := util.GetEnvironmentVariable("REDIS_PASSWORD", "")
	database := defaultDatabase

	if databaseString := util.GetEnvironmentVariable("REDIS_DATABASE", ""); databaseString != "" {
		n, err := strconv.Atoi(databaseString)
		if err != nil {
			return err
		}

		database = n
	}

	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       database,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return err
	}

	queueConnection, err := rmq.OpenConnectionWithRedisClient("onebusaway", client, nil)
	if err != nil {
		return err
	}

	Client = client
	QueueConnection = queueConnection

	return nil
}
