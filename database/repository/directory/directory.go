package directoryRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rentwheels/database/repository"
	"rentwheels/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// VehicleDirectory resolves listed vehicles. Vehicles are managed by the
// catalogue front end; the core only reads them.
type VehicleDirectory interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
}

// ContactDirectory resolves a user's email, phone and push token.
type ContactDirectory interface {
	GetContact(ctx context.Context, userID string) (*models.Contact, error)
}

// MongoDirectory reads the vehicles and users collections.
type MongoDirectory struct {
	vehicleColl *mongo.Collection
	userColl    *mongo.Collection
}

func NewMongoDirectory(client *mongo.Client, dbName string) *MongoDirectory {
	db := client.Database(dbName)
	return &MongoDirectory{
		vehicleColl: db.Collection("vehicles"),
		userColl:    db.Collection("users"),
	}
}

func (d *MongoDirectory) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"id": 1, "owner_id": 1, "active": 1})
	var v models.Vehicle
	err := d.vehicleColl.FindOne(ctx, bson.M{"id": id}, opts).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching vehicle %s: %w", id, err)
	}
	return &v, nil
}

func (d *MongoDirectory) GetContact(ctx context.Context, userID string) (*models.Contact, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"id": 1, "email": 1, "phone": 1, "fcm_token": 1})
	var c models.Contact
	err := d.userColl.FindOne(ctx, bson.M{"id": userID}, opts).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching contact for %s: %w", userID, err)
	}
	return &c, nil
}
