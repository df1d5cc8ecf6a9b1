package repositories

import (
	"context"
	"time"

	"github.com/goodsco/referidos_backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LeadRepository struct {
	collection *mongo.Collection
}

func NewLeadRepository(db *mongo.Database) *LeadRepository {
	return &LeadRepository{
		collection: db.Collection(LeadsCollection),
	}
}

// Insert creates a lead; a violation of the dedupKey index yields ErrDuplicateKey
func (r *LeadRepository) Insert(ctx context.Context, lead *models.Lead) error {
	if lead.ID.IsZero() {
		lead.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, lead)
	return translate(err)
}

func (r *LeadRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&lead); err != nil {
		return nil, translate(err)
	}
	return &lead, nil
}

func (r *LeadRepository) FindByPhone(ctx context.Context, phone string) ([]models.Lead, error) {
	return r.find(ctx, bson.M{"phone": phone}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// FindByContact returns the first lead matching any of the phone or email values
func (r *LeadRepository) FindByContact(ctx context.Context, phones []string, emails []string) (*models.Lead, error) {
	var or bson.A
	for _, p := range phones {
		if p != "" {
			or = append(or, bson.M{"phone": p}, bson.M{"rawPhone": p})
		}
	}
	for _, e := range emails {
		if e != "" {
			or = append(or, bson.M{"email": e})
		}
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}

	var lead models.Lead
	if err := r.collection.FindOne(ctx, bson.M{"$or": or}).Decode(&lead); err != nil {
		return nil, translate(err)
	}
	return &lead, nil
}

// UpdateStatus sets the pipeline status and, when given, the transaction value
func (r *LeadRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.LeadStatus, value *float64) (*models.Lead, error) {
	set := bson.M{"status": status, "updatedAt": time.Now()}
	if value != nil {
		set["transactionValue"] = *value
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var lead models.Lead
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&lead); err != nil {
		return nil, translate(err)
	}
	return &lead, nil
}

// ToggleValidity flips isValid atomically with an aggregation pipeline update
func (r *LeadRepository) ToggleValidity(ctx context.Context, id primitive.ObjectID) (*models.Lead, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"isValid":   bson.M{"$not": bson.A{"$isValid"}},
			"updatedAt": "$$NOW",
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var lead models.Lead
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&lead); err != nil {
		return nil, translate(err)
	}
	return &lead, nil
}

func (r *LeadRepository) ListByReferrer(ctx context.Context, referrerID primitive.ObjectID) ([]models.Lead, error) {
	return r.find(ctx, bson.M{"referrerId": referrerID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

func (r *LeadRepository) List(ctx context.Context, filter models.LeadFilter) ([]models.Lead, error) {
	q := bson.M{}
	if filter.ReferrerID != nil {
		q["referrerId"] = *filter.ReferrerID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.Phone != "" {
		q["phone"] = filter.Phone
	}
	return r.find(ctx, q, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// ListAll returns every lead, oldest first
func (r *LeadRepository) ListAll(ctx context.Context) ([]models.Lead, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// CountByReferrer returns the number of leads owned by each partner
func (r *LeadRepository) CountByReferrer(ctx context.Context) (map[primitive.ObjectID]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$referrerId"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ReferrerID primitive.ObjectID `bson:"_id"`
		Count      int                `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[primitive.ObjectID]int, len(rows))
	for _, row := range rows {
		counts[row.ReferrerID] = row.Count
	}
	return counts, nil
}

func (r *LeadRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *LeadRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Lead, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	leads := []models.Lead{}
	if err := cursor.All(ctx, &leads); err != nil {
		return nil, err
	}
	return leads, nil
}
