package models

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,13}$`)

var Validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("review_phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// ClientProvider yields a ready MongoDB client; connect.Guard is the
// production implementation.
type ClientProvider interface {
	Client(ctx context.Context) (*mongo.Client, error)
	Ping(ctx context.Context) (time.Duration, error)
	ReadyState() int
}

type MongodbRepo struct {
	clients ClientProvider
	dbName  string
	colName string
}

func MongodbNewRepo(clients ClientProvider, dbName, colName string) *MongodbRepo {
	return &MongodbRepo{
		clients: clients,
		dbName:  dbName,
		colName: colName,
	}
}

func (mdb *MongodbRepo) GetCollection(ctx context.Context) (*mongo.Collection, error) {
	if mdb.clients == nil {
		return nil, fmt.Errorf("%w: mongodb client is not initialized", ErrStorageUnavailable)
	}
	client, err := mdb.clients.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(mdb.dbName).Collection(mdb.colName), nil
}
