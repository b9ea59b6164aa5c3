package repository

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/fathima-sithara/konga-enrollment/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type EnrolleeRepository interface {
	Create(ctx context.Context, e *models.Enrollee) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Enrollee, error)
	FindByEmail(ctx context.Context, email string) (*models.Enrollee, error)
	FindByReferralCode(ctx context.Context, code string) (*models.Enrollee, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Enrollee, error)
	List(ctx context.Context, f models.EnrolleeFilter) ([]models.Enrollee, int64, error)
	ListByTeam(ctx context.Context, team models.TeamSide) ([]models.Enrollee, error)
	// Update writes the mutable fields of e. Position, email, referral code
	// and sponsor are never touched.
	Update(ctx context.Context, e *models.Enrollee) error
	SetLink(ctx context.Context, id primitive.ObjectID, status models.LinkStatus, sponsorID *primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoEnrolleeRepo struct {
	col *mongo.Collection
}

func NewMongoEnrolleeRepo(db *mongo.Database, collection string) EnrolleeRepository {
	col := db.Collection(collection)
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "referral_code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "position", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "team", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return &mongoEnrolleeRepo{col: col}
}

func (r *mongoEnrolleeRepo) Create(ctx context.Context, e *models.Enrollee) error {
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	_, err := r.col.InsertOne(ctx, e)
	return classifyWriteErr(err, "referral_code", "email", "position")
}

func (r *mongoEnrolleeRepo) findOne(ctx context.Context, filter bson.M) (*models.Enrollee, error) {
	var e models.Enrollee
	err := r.col.FindOne(ctx, filter).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrEnrolleeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *mongoEnrolleeRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Enrollee, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoEnrolleeRepo) FindByEmail(ctx context.Context, email string) (*models.Enrollee, error) {
	return r.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

func (r *mongoEnrolleeRepo) FindByReferralCode(ctx context.Context, code string) (*models.Enrollee, error) {
	return r.findOne(ctx, bson.M{"referral_code": models.NormalizeCode(code)})
}

func (r *mongoEnrolleeRepo) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Enrollee, error) {
	out := []models.Enrollee{}
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func enrolleeFilterDoc(f models.EnrolleeFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Package != "" {
		filter["selected_package"] = f.Package
	}
	if f.Team != "" {
		filter["team"] = f.Team
	}
	if f.Search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"first_name": rx},
			bson.M{"last_name": rx},
			bson.M{"email": rx},
		}
	}
	return filter
}

// clampPage normalises page (1-based) and limit.
func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

func (r *mongoEnrolleeRepo) List(ctx context.Context, f models.EnrolleeFilter) ([]models.Enrollee, int64, error) {
	page, limit := clampPage(f.Page, f.Limit)
	filter := enrolleeFilterDoc(f)

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []models.Enrollee{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *mongoEnrolleeRepo) ListByTeam(ctx context.Context, team models.TeamSide) ([]models.Enrollee, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"team": team}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Enrollee{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoEnrolleeRepo) Update(ctx context.Context, e *models.Enrollee) error {
	e.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"first_name":        e.FirstName,
		"last_name":         e.LastName,
		"phone":             e.Phone,
		"address":           e.Address,
		"selected_package":  e.Package,
		"package_price":     e.PackagePrice,
		"status":            e.Status,
		"team":              e.Team,
		"payment_collected": e.PaymentCollected,
		"payment_info":      e.PaymentInfo,
		"updated_at":        e.UpdatedAt,
	}
	res, err := r.col.UpdateByID(ctx, e.ID, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrEnrolleeNotFound
	}
	return nil
}

func (r *mongoEnrolleeRepo) SetLink(ctx context.Context, id primitive.ObjectID, status models.LinkStatus, sponsorID *primitive.ObjectID) error {
	set := bson.M{"link_status": status, "updated_at": time.Now().UTC()}
	if sponsorID != nil {
		set["sponsor_id"] = *sponsorID
	}
	res, err := r.col.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrEnrolleeNotFound
	}
	return nil
}

func (r *mongoEnrolleeRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrEnrolleeNotFound
	}
	return nil
}
