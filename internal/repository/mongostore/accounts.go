package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/noah-isme/portal-sabido-api/internal/models"
)

// AccountStore holds identity provider credentials.
type AccountStore struct {
	col *mongo.Collection
}

// NewAccountStore binds the accounts collection.
func NewAccountStore(db *mongo.Database) *AccountStore {
	return &AccountStore{col: db.Collection(AccountsCollection)}
}

func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	if _, err := s.col.InsertOne(ctx, account); err != nil {
		return fmt.Errorf("create account: %w", duplicate(err))
	}
	return nil
}

func (s *AccountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&account); err != nil {
		return nil, fmt.Errorf("find account by email: %w", notFound(err))
	}
	return &account, nil
}

func (s *AccountStore) TouchSignIn(ctx context.Context, uid string, ts time.Time) error {
	if _, err := s.col.UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": bson.M{"lastSignInAt": ts}}); err != nil {
		return fmt.Errorf("touch sign in: %w", err)
	}
	return nil
}
