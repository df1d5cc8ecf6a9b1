package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	PartnersCollection    = "partners"
	LeadsCollection       = "leads"
	PhoneClaimsCollection = "phone_claims"
	CommissionsCollection = "commissions"
	DocumentsCollection   = "documents"
	InboxCollection       = "inbox_messages"
	DiscountsCollection   = "discounts"
)

// IndexSpec pairs a collection with the indexes it needs
type IndexSpec struct {
	Collection string
	Models     []mongo.IndexModel
}

// Indexes lists every index the stores rely on. The unique indexes are the
// concurrency control for the intake, commission and document write paths.
func Indexes() []IndexSpec {
	return []IndexSpec{
		{
			Collection: PartnersCollection,
			Models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "referralCode", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "role", Value: 1}, {Key: "createdAt", Value: 1}}},
			},
		},
		{
			Collection: LeadsCollection,
			Models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "dedupKey", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "phone", Value: 1}}},
				{Keys: bson.D{{Key: "email", Value: 1}}},
				{Keys: bson.D{{Key: "referrerId", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
		{
			Collection: CommissionsCollection,
			Models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "leadId", Value: 1}}, Options: options.Index().SetUnique(true)},
				{Keys: bson.D{{Key: "partnerId", Value: 1}}},
			},
		},
		{
			Collection: DocumentsCollection,
			Models: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "partnerId", Value: 1}, {Key: "type", Value: 1}},
					Options: options.Index().
						SetUnique(true).
						SetName("partner_type_open").
						SetPartialFilterExpression(bson.M{"open": true}),
				},
				{Keys: bson.D{{Key: "partnerId", Value: 1}, {Key: "submittedAt", Value: -1}}},
			},
		},
		{
			Collection: InboxCollection,
			Models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "phone", Value: 1}, {Key: "receivedAt", Value: -1}}},
			},
		},
		{
			Collection: DiscountsCollection,
			Models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "createdAt", Value: -1}}},
			},
		},
	}
}

// EnsureIndexes creates the collections' indexes; it is safe to call repeatedly
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, ix := range Indexes() {
		if _, err := db.Collection(ix.Collection).Indexes().CreateMany(ctx, ix.Models); err != nil {
			return err
		}
	}
	return nil
}
