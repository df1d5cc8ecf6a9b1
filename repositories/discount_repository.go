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

type DiscountRepository struct {
	collection *mongo.Collection
}

func NewDiscountRepository(db *mongo.Database) *DiscountRepository {
	return &DiscountRepository{
		collection: db.Collection(DiscountsCollection),
	}
}

func (r *DiscountRepository) Insert(ctx context.Context, discount *models.Discount) error {
	if discount.ID.IsZero() {
		discount.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, discount)
	return translate(err)
}

// List returns discounts newest first, optionally only the active ones
func (r *DiscountRepository) List(ctx context.Context, activeOnly bool) ([]models.Discount, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	discounts := []models.Discount{}
	if err := cursor.All(ctx, &discounts); err != nil {
		return nil, err
	}
	return discounts, nil
}

func (r *DiscountRepository) SetActive(ctx context.Context, id primitive.ObjectID, active bool) (*models.Discount, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$set": bson.M{"isActive": active, "updatedAt": time.Now()}}
	var discount models.Discount
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&discount); err != nil {
		return nil, translate(err)
	}
	return &discount, nil
}
