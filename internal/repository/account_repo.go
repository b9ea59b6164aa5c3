package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AccountRepository interface {
	Create(ctx context.Context, a *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error)
	TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error
	DeleteByEnrollee(ctx context.Context, enrolleeID primitive.ObjectID) error
}

type mongoAccountRepo struct {
	col *mongo.Collection
}

func NewMongoAccountRepo(db *mongo.Database, collection string) AccountRepository {
	col := db.Collection(collection)
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "enrollee_id", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	return &mongoAccountRepo{col: col}
}

func (r *mongoAccountRepo) Create(ctx context.Context, a *models.Account) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Email = models.NormalizeEmail(a.Email)
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, a)
	return classifyWriteErr(err, "email")
}

func (r *mongoAccountRepo) findOne(ctx context.Context, filter bson.M) (*models.Account, error) {
	var a models.Account
	err := r.col.FindOne(ctx, filter).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *mongoAccountRepo) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (r *mongoAccountRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Account, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoAccountRepo) TouchLogin(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"last_login_at": at, "updated_at": at}})
	return err
}

func (r *mongoAccountRepo) DeleteByEnrollee(ctx context.Context, enrolleeID primitive.ObjectID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"enrollee_id": enrolleeID})
	return err
}
