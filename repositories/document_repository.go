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

type DocumentRepository struct {
	collection *mongo.Collection
}

func NewDocumentRepository(db *mongo.Database) *DocumentRepository {
	return &DocumentRepository{
		collection: db.Collection(DocumentsCollection),
	}
}

// Insert stores a submission. The partial unique index on open documents
// rejects a second pending or approved submission of the same type.
func (r *DocumentRepository) Insert(ctx context.Context, doc *models.Document) error {
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	_, err := r.collection.InsertOne(ctx, doc)
	return translate(err)
}

func (r *DocumentRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	var doc models.Document
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}

// ListByPartner returns a partner's submissions, newest first
func (r *DocumentRepository) ListByPartner(ctx context.Context, partnerID primitive.ObjectID) ([]models.Document, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"partnerId": partnerID}, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cursor.Close(ctx)

	docs := []models.Document{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Review records a decision; rejected documents stop blocking resubmission
func (r *DocumentRepository) Review(ctx context.Context, id primitive.ObjectID, status models.DocumentStatus, feedback string, reviewer primitive.ObjectID) (*models.Document, error) {
	now := time.Now()
	update := bson.M{"$set": bson.M{
		"status":     status,
		"feedback":   feedback,
		"open":       status != models.DocumentRejected,
		"reviewerId": reviewer,
		"reviewedAt": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc models.Document
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return &doc, nil
}
