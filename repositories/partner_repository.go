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

type PartnerRepository struct {
	collection *mongo.Collection
}

func NewPartnerRepository(db *mongo.Database) *PartnerRepository {
	return &PartnerRepository{
		collection: db.Collection(PartnersCollection),
	}
}

func (r *PartnerRepository) Create(ctx context.Context, partner *models.Partner) error {
	if partner.ID.IsZero() {
		partner.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, partner)
	return translate(err)
}

func (r *PartnerRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Partner, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *PartnerRepository) FindByEmail(ctx context.Context, email string) (*models.Partner, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *PartnerRepository) FindByReferralCode(ctx context.Context, code string) (*models.Partner, error) {
	return r.findOne(ctx, bson.M{"referralCode": code})
}

// FindEarliestWithRole returns the first registered partner holding one of roles
func (r *PartnerRepository) FindEarliestWithRole(ctx context.Context, roles []models.Role) (*models.Partner, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	var partner models.Partner
	err := r.collection.FindOne(ctx, bson.M{"role": bson.M{"$in": roles}}, opts).Decode(&partner)
	if err != nil {
		return nil, translate(err)
	}
	return &partner, nil
}

// SetStatus unconditionally writes status and reason
func (r *PartnerRepository) SetStatus(ctx context.Context, id primitive.ObjectID, status models.PartnerStatus, reason string) (*models.Partner, error) {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}}
	if reason != "" {
		update["$set"].(bson.M)["blockingReason"] = reason
	} else {
		update["$unset"] = bson.M{"blockingReason": ""}
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

// SetDerivedStatus writes status unless the partner carries an administrative
// override. The partner is returned as stored after the attempt.
func (r *PartnerRepository) SetDerivedStatus(ctx context.Context, id primitive.ObjectID, status models.PartnerStatus) (*models.Partner, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$nin": models.OverrideStatuses}}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}}
	partner, err := r.findOneAndUpdate(ctx, filter, update)
	if err == ErrNotFound {
		return r.FindByID(ctx, id)
	}
	return partner, err
}

func (r *PartnerRepository) SetFCMToken(ctx context.Context, id primitive.ObjectID, token string) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"fcmToken": token, "updatedAt": time.Now()}})
	return translate(err)
}

// List returns the partners holding one of roles, newest first. No roles
// means every partner.
func (r *PartnerRepository) List(ctx context.Context, roles []models.Role) ([]models.Partner, error) {
	filter := bson.M{}
	if len(roles) > 0 {
		filter["role"] = bson.M{"$in": roles}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	partners := []models.Partner{}
	if err := cursor.All(ctx, &partners); err != nil {
		return nil, err
	}
	return partners, nil
}

func (r *PartnerRepository) findOne(ctx context.Context, filter bson.M) (*models.Partner, error) {
	var partner models.Partner
	if err := r.collection.FindOne(ctx, filter).Decode(&partner); err != nil {
		return nil, translate(err)
	}
	return &partner, nil
}

func (r *PartnerRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*models.Partner, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var partner models.Partner
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&partner); err != nil {
		return nil, translate(err)
	}
	return &partner, nil
}
