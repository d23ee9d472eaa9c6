package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

type fixedClient struct {
	client *mongo.Client
	err    error
}

func (f fixedClient) Client(context.Context) (*mongo.Client, error) { return f.client, f.err }
func (f fixedClient) Ping(context.Context) (time.Duration, error)   { return time.Millisecond, f.err }
func (f fixedClient) ReadyState() int {
	if f.err != nil {
		return 0
	}
	return 1
}

func TestMongodbRepo_WithoutClient(t *testing.T) {
	repo := MongodbNewRepo(nil, ReviewDbName, ReviewColName)
	ctx := context.Background()

	if _, err := repo.FindByStatus(ctx, StatusActive); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("FindByStatus: %v", err)
	}
	if _, err := repo.Ping(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Ping: %v", err)
	}
	if repo.ReadyState() != 0 {
		t.Fatal("a repo without client is disconnected")
	}
}

func TestMongodbRepo_ProviderErrorPassesThrough(t *testing.T) {
	down := errors.Join(ErrStorageUnavailable, errors.New("reconnect attempts exhausted"))
	repo := MongodbNewRepo(fixedClient{err: down}, ReviewDbName, ReviewColName)

	_, err := repo.Insert(context.Background(), &Review{Name: "Ali", Rating: 5, Comment: "Juda mazali sushi!"})
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("Insert: %v", err)
	}
}

func TestMongodbRepo_InsertValidatesFirst(t *testing.T) {
	repo := MongodbNewRepo(fixedClient{err: errors.New("must not be reached")}, ReviewDbName, ReviewColName)
	_, err := repo.Insert(context.Background(), &Review{Name: "Ali", Rating: 5, Comment: "short"})
	if !IsValidation(err) {
		t.Fatalf("expected a schema error, got %v", err)
	}
}

func TestMongodbRepo_Mock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := ReviewDbName + "." + ReviewColName

	mt.Run("insert", func(mt *mtest.T) {
		repo := MongodbNewRepo(fixedClient{client: mt.Client}, ReviewDbName, ReviewColName)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		r, err := repo.Insert(context.Background(), &Review{Name: "Ali", Phone: "+998901234567", Rating: 5, Comment: "Juda mazali sushi!"})
		if err != nil {
			mt.Fatalf("Insert: %v", err)
		}
		if r.ID.IsZero() || r.Status != StatusActive || r.Timestamp.IsZero() {
			mt.Fatalf("store fields not assigned: %+v", r)
		}
	})

	mt.Run("find by status decodes the cursor", func(mt *mtest.T) {
		repo := MongodbNewRepo(fixedClient{client: mt.Client}, ReviewDbName, ReviewColName)
		newer := primitive.NewObjectID()
		older := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: newer}, {Key: "name", Value: "Vali"}, {Key: "rating", Value: 4}, {Key: "comment", Value: "Plov was really good"}, {Key: "status", Value: StatusActive}},
			bson.D{{Key: "_id", Value: older}, {Key: "name", Value: "Ali"}, {Key: "rating", Value: 5}, {Key: "comment", Value: "Juda mazali sushi!"}, {Key: "status", Value: StatusActive}},
		))

		got, err := repo.FindByStatus(context.Background(), StatusActive)
		if err != nil {
			mt.Fatalf("FindByStatus: %v", err)
		}
		if len(got) != 2 || got[0].ID != newer || got[1].Name != "Ali" {
			mt.Fatalf("unexpected reviews: %+v", got)
		}
	})

	mt.Run("find by id reports not found", func(mt *mtest.T) {
		repo := MongodbNewRepo(fixedClient{client: mt.Client}, ReviewDbName, ReviewColName)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		if _, err := repo.FindByID(context.Background(), primitive.NewObjectID()); !errors.Is(err, ErrReviewNotFound) {
			mt.Fatalf("FindByID: %v", err)
		}
	})

	mt.Run("update status without match", func(mt *mtest.T) {
		repo := MongodbNewRepo(fixedClient{client: mt.Client}, ReviewDbName, ReviewColName)
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 0}, {Key: "nModified", Value: 0}})

		if err := repo.UpdateStatus(context.Background(), primitive.NewObjectID(), StatusDeleted); !errors.Is(err, ErrReviewNotFound) {
			mt.Fatalf("UpdateStatus: %v", err)
		}
	})

	mt.Run("server error is wrapped", func(mt *mtest.T) {
		repo := MongodbNewRepo(fixedClient{client: mt.Client}, ReviewDbName, ReviewColName)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 8000, Message: "boom", Name: "AtlasError"}))

		_, err := repo.FindAll(context.Background())
		if err == nil || errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrStorageTimeout) {
			mt.Fatalf("expected a plain wrapped error, got %v", err)
		}
	})
}
