// internal/repository/mongo_alert.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"alertmap/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	AlertsCollection   = "alerts"
	CountersCollection = "counters"

	alertSeqCounter = "alert_seq"
)

// MongoAlertRepository хранит алерты в коллекции alerts.
// Seq выдается атомарным $inc в коллекции counters.
type MongoAlertRepository struct {
	alertCollection   *mongo.Collection
	counterCollection *mongo.Collection
}

var _ AlertRepository = (*MongoAlertRepository)(nil)

func NewMongoAlertRepository(db *mongo.Database) *MongoAlertRepository {
	return &MongoAlertRepository{
		alertCollection:   db.Collection(AlertsCollection),
		counterCollection: db.Collection(CountersCollection),
	}
}

type counter struct {
	ID    string `bson:"_id"`
	Value int64  `bson:"value"`
}

// NextSeq выдает следующий номер последовательности
func NextSeq(ctx context.Context, counters *mongo.Collection) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var c counter
	err := counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": alertSeqCounter},
		bson.M{"$inc": bson.M{"value": 1}},
		opts,
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate alert seq: %w", err)
	}
	return c.Value, nil
}

func (r *MongoAlertRepository) Insert(ctx context.Context, alert *models.Alert) error {
	seq, err := NextSeq(ctx, r.counterCollection)
	if err != nil {
		return err
	}
	alert.Seq = seq

	if _, err := r.alertCollection.InsertOne(ctx, alert); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (r *MongoAlertRepository) List(ctx context.Context) ([]models.Alert, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "seq", Value: 1},
	})

	cursor, err := r.alertCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	defer cursor.Close(ctx)

	alerts := []models.Alert{}
	for cursor.Next(ctx) {
		var alert models.Alert
		if err := cursor.Decode(&alert); err != nil {
			// Битые документы пропускаем, а не роняем всю выдачу
			continue
		}
		alerts = append(alerts, alert)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}

func (r *MongoAlertRepository) Latest(ctx context.Context) (*models.Alert, error) {
	opts := options.FindOne().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "seq", Value: -1},
	})

	var alert models.Alert
	err := r.alertCollection.FindOne(ctx, bson.M{}, opts).Decode(&alert)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch latest alert: %w", err)
	}
	return &alert, nil
}
