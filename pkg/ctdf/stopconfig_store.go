package ctdf

import (
	"context"

	"github.com/travigo/onebusaway/pkg/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const stopConfigsCollection = "stop_configs"

// MongoStopConfigStore keeps stop configs in the global MongoDB database
type MongoStopConfigStore struct{}

func (m MongoStopConfigStore) List(ctx context.Context) ([]*StopConfig, error) {
	collection := database.GetCollection(stopConfigsCollection)

	cursor, err := collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "primaryidentifier", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stopConfigs := []*StopConfig{}
	for cursor.Next(ctx) {
		var stopConfig *StopConfig
		if err := cursor.Decode(&stopConfig); err != nil {
			return nil, err
		}

		stopConfigs = append(stopConfigs, stopConfig)
	}

	return stopConfigs, cursor.Err()
}

func (m MongoStopConfigStore) Get(ctx context.Context, primaryIdentifier string) (*StopConfig, error) {
	collection := database.GetCollection(stopConfigsCollection)

	var stopConfig *StopConfig
	err := collection.FindOne(ctx, bson.M{"primaryidentifier": primaryIdentifier}).Decode(&stopConfig)
	if err == mongo.ErrNoDocuments {
		return nil, ErrStopConfigNotFound
	} else if err != nil {
		return nil, err
	}

	return stopConfig, nil
}

func (m MongoStopConfigStore) Save(ctx context.Context, stopConfig *StopConfig) error {
	collection := database.GetCollection(stopConfigsCollection)

	_, err := collection.ReplaceOne(
		ctx,
		bson.M{"primaryidentifier": stopConfig.PrimaryIdentifier},
		stopConfig,
		options.Replace().SetUpsert(true),
	)

	return err
}

func (m MongoStopConfigStore) Delete(ctx context.Context, primaryIdentifier string) error {
	collection := database.GetCollection(stopConfigsCollection)

	result, err := collection.DeleteOne(ctx, bson.M{"primaryidentifier": primaryIdentifier})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrStopConfigNotFound
	}

	return nil
}

func (m MongoStopConfigStore) SetState(ctx context.Context, primaryIdentifier string, state StopConfigState, lastError string) error {
	collection := database.GetCollection(stopConfigsCollection)

	result, err := collection.UpdateOne(
		ctx,
		bson.M{"primaryidentifier": primaryIdentifier},
		bson.M{"$set": bson.M{"state": state, "lasterror": lastError}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrStopConfigNotFound
	}

	return nil
}
