package repositories

import (
	"context"

	"github.com/goodsco/referidos_backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type InboxRepository struct {
	collection *mongo.Collection
}

func NewInboxRepository(db *mongo.Database) *InboxRepository {
	return &InboxRepository{
		collection: db.Collection(InboxCollection),
	}
}

func (r *InboxRepository) Append(ctx context.Context, msg *models.InboxMessage) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, msg)
	return translate(err)
}
