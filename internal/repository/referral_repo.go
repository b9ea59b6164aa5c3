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

type ReferralRepository interface {
	Create(ctx context.Context, r *models.Referral) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Referral, error)
	FindByReferred(ctx context.Context, referred primitive.ObjectID) (*models.Referral, error)
	ListByReferrer(ctx context.Context, referrer primitive.ObjectID) ([]models.Referral, error)
	List(ctx context.Context, f models.ReferralFilter) ([]models.Referral, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, upd models.ReferralUpdate) (*models.Referral, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DeleteTouching removes every edge where id is referrer or referred.
	DeleteTouching(ctx context.Context, id primitive.ObjectID) (int64, error)
	Stats(ctx context.Context) (*models.ReferralStats, error)
}

type mongoReferralRepo struct {
	col *mongo.Collection
}

func NewMongoReferralRepo(db *mongo.Database, collection string) ReferralRepository {
	col := db.Collection(collection)
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "referrer", Value: 1}}},
		{Keys: bson.D{{Key: "referred", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	return &mongoReferralRepo{col: col}
}

func (r *mongoReferralRepo) Create(ctx context.Context, ref *models.Referral) error {
	now := time.Now().UTC()
	ref.CreatedAt = now
	ref.UpdatedAt = now
	if ref.ID.IsZero() {
		ref.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, ref)
	return classifyWriteErr(err, "referred")
}

func (r *mongoReferralRepo) findOne(ctx context.Context, filter bson.M) (*models.Referral, error) {
	var ref models.Referral
	err := r.col.FindOne(ctx, filter).Decode(&ref)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrReferralNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *mongoReferralRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Referral, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoReferralRepo) FindByReferred(ctx context.Context, referred primitive.ObjectID) (*models.Referral, error) {
	return r.findOne(ctx, bson.M{"referred": referred})
}

func (r *mongoReferralRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Referral, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Referral{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoReferralRepo) ListByReferrer(ctx context.Context, referrer primitive.ObjectID) ([]models.Referral, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return r.find(ctx, bson.M{"referrer": referrer}, opts)
}

func (r *mongoReferralRepo) List(ctx context.Context, f models.ReferralFilter) ([]models.Referral, int64, error) {
	page, limit := clampPage(f.Page, f.Limit)
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	out, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *mongoReferralRepo) Update(ctx context.Context, id primitive.ObjectID, upd models.ReferralUpdate) (*models.Referral, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Commission != nil {
		set["commission"] = *upd.Commission
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var ref models.Referral
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&ref)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrReferralNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func (r *mongoReferralRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrReferralNotFound
	}
	return nil
}

func (r *mongoReferralRepo) DeleteTouching(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"referrer": id},
		bson.M{"referred": id},
	}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

type referralStatusRow struct {
	Status     models.ReferralStatus `bson:"_id"`
	Count      int64                 `bson:"count"`
	Commission float64               `bson:"commission"`
}

func (r *mongoReferralRepo) Stats(ctx context.Context) (*models.ReferralStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "commission", Value: bson.D{{Key: "$sum", Value: "$commission"}}},
		}}},
	}
	cur, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []referralStatusRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return foldReferralStats(rows), nil
}

func foldReferralStats(rows []referralStatusRow) *models.ReferralStats {
	out := &models.ReferralStats{}
	for _, row := range rows {
		out.Total += row.Count
		out.TotalCommission += row.Commission
		switch row.Status {
		case models.ReferralPending:
			out.Pending += row.Count
		case models.ReferralCompleted:
			out.Completed += row.Count
		case models.ReferralCancelled:
			out.Cancelled += row.Count
		}
	}
	return out
}
