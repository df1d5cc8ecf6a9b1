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

type PhoneClaimRepository struct {
	collection *mongo.Collection
}

func NewPhoneClaimRepository(db *mongo.Database) *PhoneClaimRepository {
	return &PhoneClaimRepository{
		collection: db.Collection(PhoneClaimsCollection),
	}
}

// Claim records partnerID as the owner of phone unless another partner got
// there first, and returns the owner as stored. The phone is the _id, so two
// concurrent claims cannot both insert.
func (r *PhoneClaimRepository) Claim(ctx context.Context, phone string, partnerID primitive.ObjectID) (primitive.ObjectID, error) {
	update := bson.M{"$setOnInsert": bson.M{"partnerId": partnerID, "claimedAt": time.Now()}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var claim models.PhoneClaim
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": phone}, update, opts).Decode(&claim)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// lost the upsert race; the winner's claim is now readable
		err = r.collection.FindOne(ctx, bson.M{"_id": phone}).Decode(&claim)
	}
	if err != nil {
		return primitive.NilObjectID, translate(err)
	}
	return claim.PartnerID, nil
}

// Reassign moves a claim to another partner; only the offline dedup pass uses it
func (r *PhoneClaimRepository) Reassign(ctx context.Context, phone string, partnerID primitive.ObjectID) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": phone}, bson.M{"$set": bson.M{"partnerId": partnerID}})
	return translate(err)
}
