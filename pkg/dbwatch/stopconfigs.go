package dbwatch

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/travigo/onebusaway/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// StopConfigsWatch calls OnChange whenever a stop config is added, changed or removed.
// Change streams need MongoDB to run as a replica set.
type StopConfigsWatch struct {
	OnChange func(primaryIdentifier string, operationType string)
}

func NewStopConfigsWatch(onChange func(primaryIdentifier string, operationType string)) *StopConfigsWatch {
	return &StopConfigsWatch{
		OnChange: onChange,
	}
}

func (w *StopConfigsWatch) Run(ctx context.Context) error {
	log.Info().Msg("Starting dbwatch on collection stop_configs")
	collection := database.GetCollection("stop_configs")
	matchPipeline := bson.D{
		{
			Key: "$match", Value: bson.D{
				{Key: "operationType", Value: bson.D{{Key: "$in", Value: bson.A{"insert", "update", "replace", "delete"}}}},
			},
		},
	}
	stream, err := collection.Watch(ctx, mongo.Pipeline{matchPipeline})
	if err != nil {
		return err
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var data struct {
			OperationType string `bson:"operationType"`
			DocumentKey   struct {
				ID interface{} `bson:"_id"`
			} `bson:"documentKey"`
			FullDocument struct {
				PrimaryIdentifier string `bson:"primaryidentifier"`
			} `bson:"fullDocument"`
		}
		if err := stream.Decode(&data); err != nil {
			log.Error().Err(err).Msg("Failed to decode change")
			continue
		}

		log.Debug().Str("stop", data.FullDocument.PrimaryIdentifier).Str("operation", data.OperationType).Msg("Stop config changed")

		w.OnChange(data.FullDocument.PrimaryIdentifier, data.OperationType)
	}

	if ctx.Err() != nil {
		return nil
	}

	return stream.Err()
}
