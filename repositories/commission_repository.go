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

type CommissionRepository struct {
	collection *mongo.Collection
}

func NewCommissionRepository(db *mongo.Database) *CommissionRepository {
	return &CommissionRepository{
		collection: db.Collection(CommissionsCollection),
	}
}

// Insert creates a commission; a second commission for the same lead yields ErrDuplicateKey
func (r *CommissionRepository) Insert(ctx context.Context, commission *models.Commission) error {
	if commission.ID.IsZero() {
		commission.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, commission)
	return translate(err)
}

func (r *CommissionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *CommissionRepository) FindByLeadID(ctx context.Context, leadID primitive.ObjectID) (*models.Commission, error) {
	return r.findOne(ctx, bson.M{"leadId": leadID})
}

// UpdateAmount rewrites the amount of the lead's commission in place
func (r *CommissionRepository) UpdateAmount(ctx context.Context, leadID primitive.ObjectID, amount float64) (*models.Commission, error) {
	update := bson.M{"$set": bson.M{"amount": amount, "updatedAt": time.Now()}}
	return r.findOneAndUpdate(ctx, bson.M{"leadId": leadID}, update)
}

// CompareAndSetStatus moves the commission from one status to another and
// returns ErrNotFound when the commission is no longer in the from status
func (r *CommissionRepository) CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.CommissionStatus) (*models.Commission, error) {
	now := time.Now()
	set := bson.M{"status": to, "updatedAt": now}
	if to == models.CommissionPaid {
		set["paidAt"] = now
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, bson.M{"$set": set})
}

// Reassign points a commission at another lead; only the offline dedup pass uses it
func (r *CommissionRepository) Reassign(ctx context.Context, id, leadID, partnerID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"leadId": leadID, "partnerId": partnerID, "updatedAt": time.Now()}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return translate(err)
}

func (r *CommissionRepository) ListByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]models.Commission, error) {
	return r.find(ctx, bson.M{"partnerId": partnerID})
}

// List returns commissions matching filter, newest first
func (r *CommissionRepository) List(ctx context.Context, filter models.CommissionFilter) ([]models.Commission, error) {
	q := bson.M{}
	if filter.PartnerID != nil {
		q["partnerId"] = *filter.PartnerID
	}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	return r.find(ctx, q)
}

func (r *CommissionRepository) find(ctx context.Context, filter bson.M) ([]models.Commission, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	commissions := []models.Commission{}
	if err := cursor.All(ctx, &commissions); err != nil {
		return nil, err
	}
	return commissions, nil
}

func (r *CommissionRepository) findOne(ctx context.Context, filter bson.M) (*models.Commission, error) {
	var commission models.Commission
	if err := r.collection.FindOne(ctx, filter).Decode(&commission); err != nil {
		return nil, translate(err)
	}
	return &commission, nil
}

func (r *CommissionRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Commission, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var commission models.Commission
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&commission); err != nil {
		return nil, translate(err)
	}
	return &commission, nil
}
