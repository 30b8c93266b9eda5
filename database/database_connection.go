package database

import (
	"context"
	"log"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/learnlab/backend/config"
)

var (
	dbClient *mongo.Client
	dbName   string
)

// Connect dials MongoDB once at startup. OpenCollection reuses the
// client's connection pool for every request afterwards.
func Connect(cfg config.Config) *mongo.Client {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.MongoURI).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(opts)
	if err != nil {
		log.Fatalf("mongo connect: %v", err)
	}
	if err := client.Ping(context.TODO(), readpref.Primary()); err != nil {
		log.Fatalf("mongo ping: %v", err)
	}
	log.Println("Connected to MongoDB")

	dbClient = client
	dbName = cfg.DatabaseName
	return client
}

func OpenCollection(collectionName string) *mongo.Collection {
	return dbClient.Database(dbName).Collection(collectionName)
}
