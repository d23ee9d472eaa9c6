package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ReviewDbName  = "comments_db"
	ReviewColName = "comments"
)

// ReviewStore is the persistence contract for reviews. Listings are sorted
// newest first with the id as tie breaker.
type ReviewStore interface {
	Insert(ctx context.Context, review *Review) (*Review, error)
	FindByStatus(ctx context.Context, status string) ([]*Review, error)
	FindAll(ctx context.Context) ([]*Review, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Review, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error
	Ping(ctx context.Context) (time.Duration, error)
	ReadyState() int
}

// markable is implemented by providers that can be told a connection broke.
type markable interface {
	MarkDown()
}

var newestFirst = bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}

func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	col, err := mdb.GetCollection(ctx)
	if err != nil {
		return err
	}
	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "status", Value: 1}, {Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("status_timestamp"),
	})
	if err != nil {
		return mdb.classify(err, "failed to create review indexes")
	}
	return nil
}

func (mdb *MongodbRepo) Insert(ctx context.Context, review *Review) (*Review, error) {
	review.BeforeCreate(time.Now())
	if err := review.ValidateReview(); err != nil {
		return nil, err
	}

	col, err := mdb.GetCollection(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := col.InsertOne(ctx, review); err != nil {
		return nil, mdb.classify(err, "failed to insert review into database")
	}
	return review, nil
}

func (mdb *MongodbRepo) FindByStatus(ctx context.Context, status string) ([]*Review, error) {
	opts := options.Find().
		SetSort(newestFirst).
		SetProjection(bson.M{"phone": 0, "owner_token_hash": 0})
	return mdb.find(ctx, bson.M{"status": status}, opts)
}

func (mdb *MongodbRepo) FindAll(ctx context.Context) ([]*Review, error) {
	opts := options.Find().
		SetSort(newestFirst).
		SetProjection(bson.M{"owner_token_hash": 0})
	return mdb.find(ctx, bson.M{}, opts)
}

func (mdb *MongodbRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*Review, error) {
	col, err := mdb.GetCollection(ctx)
	if err != nil {
		return nil, err
	}

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, mdb.classify(err, "error finding reviews")
	}
	defer cursor.Close(ctx)

	reviews := make([]*Review, 0)
	for cursor.Next(ctx) {
		var r Review
		if err := cursor.Decode(&r); err != nil {
			return nil, fmt.Errorf("error decoding review: %w", err)
		}
		reviews = append(reviews, &r)
	}
	if err := cursor.Err(); err != nil {
		return nil, mdb.classify(err, "cursor error")
	}
	return reviews, nil
}

func (mdb *MongodbRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*Review, error) {
	col, err := mdb.GetCollection(ctx)
	if err != nil {
		return nil, err
	}

	var r Review
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReviewNotFound
		}
		return nil, mdb.classify(err, "error finding review by ID")
	}
	return &r, nil
}

func (mdb *MongodbRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	col, err := mdb.GetCollection(ctx)
	if err != nil {
		return err
	}

	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return mdb.classify(err, "error updating review status")
	}
	if res.MatchedCount == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func (mdb *MongodbRepo) Ping(ctx context.Context) (time.Duration, error) {
	if mdb.clients == nil {
		return 0, ErrStorageUnavailable
	}
	return mdb.clients.Ping(ctx)
}

func (mdb *MongodbRepo) ReadyState() int {
	if mdb.clients == nil {
		return 0
	}
	return mdb.clients.ReadyState()
}

// classify maps driver failures onto the storage error taxonomy.
func (mdb *MongodbRepo) classify(err error, msg string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err):
		return fmt.Errorf("%w: %s: %w", ErrStorageTimeout, msg, err)
	case mongo.IsNetworkError(err), errors.Is(err, mongo.ErrClientDisconnected):
		if m, ok := mdb.clients.(markable); ok {
			m.MarkDown()
		}
		return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, msg, err)
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
