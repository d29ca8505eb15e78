// Выдает seq алертам, записанным до появления счетчика. Порядок выдачи:
// created_at, затем _id.
package main

import (
	"context"
	"fmt"
	"time"

	"alertmap/internal/config"
	"alertmap/internal/database"
	"alertmap/internal/repository"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg := config.Load()

	db, err := database.NewMongoDB(cfg)
	if err != nil {
		logrus.Fatal(err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	alerts := db.Database.Collection(repository.AlertsCollection)
	counters := db.Database.Collection(repository.CountersCollection)

	cursor, err := alerts.Find(
		ctx,
		bson.M{
			"$or": []bson.M{
				{"seq": bson.M{"$exists": false}},
				{"seq": 0},
			},
		},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
			SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		logrus.Fatal(err)
	}
	defer cursor.Close(ctx)

	migrated := 0
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			logrus.Fatal(err)
		}

		seq, err := repository.NextSeq(ctx, counters)
		if err != nil {
			logrus.Fatal(err)
		}

		if _, err := alerts.UpdateByID(ctx, doc.ID, bson.M{"$set": bson.M{"seq": seq}}); err != nil {
			logrus.Fatal(err)
		}
		migrated++
	}
	if err := cursor.Err(); err != nil {
		logrus.Fatal(err)
	}

	fmt.Printf("Мигрировано %d алертов\n", migrated)
}
