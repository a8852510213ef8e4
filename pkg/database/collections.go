package database

import (
	"context"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes() {
	createStopConfigsIndexes()
}

func createStopConfigsIndexes() {
	stopConfigsCollection := GetCollection("stop_configs")
	stopConfigsIndex := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "primaryidentifier", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "state", Value: 1}},
		},
	}

	opts := options.CreateIndexes()
	_, err := stopConfigsCollection.Indexes().CreateMany(context.Background(), stopConfigsIndex, opts)
	if err != nil {
		log.Error().Err(err).Msg("Creating Index")
	}
}
