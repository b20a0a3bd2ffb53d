package purchasecache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/storefront/internal/clock"
	commercedomain "github.com/smallbiznis/storefront/internal/commerce/domain"
	"github.com/smallbiznis/storefront/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrEmailRequired = errors.New("email_required")
	ErrNotFound      = errors.New("purchase_not_found")
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

// Repository keeps the last purchase per email so the thank-you page can
// render it after the redirect.
type Repository struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewRepository(p Params) *Repository {
	return &Repository{
		db:    p.DB,
		log:   p.Log.Named("purchasecache.repository"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

// Store replaces the cached purchase for email.
func (r *Repository) Store(ctx context.Context, email string, purchase commercedomain.Purchase) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}
	payload, err := encodePurchase(purchase)
	if err != nil {
		return err
	}

	now := r.clock.Now().UTC()
	entry := Entry{
		ID:         r.genID.Generate(),
		Email:      email,
		PurchaseID: string(purchase.ID),
		Quantity:   purchase.Quantity,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if entry.Quantity < 1 {
		entry.Quantity = 1
	}
	if purchase.Sellable != nil {
		entry.SellableID = string(purchase.Sellable.ID)
	}

	err = r.db.WithContext(ctx).Create(&entry).Error
	if err == nil {
		return nil
	}
	if !db.IsDuplicateKeyErr(err) {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&Entry{}).
		Where("email = ?", email).
		Updates(map[string]any{
			"purchase_id": entry.PurchaseID,
			"sellable_id": entry.SellableID,
			"quantity":    entry.Quantity,
			"payload":     entry.Payload,
			"updated_at":  now,
		}).Error
}

// Latest returns the cached purchase for email.
func (r *Repository) Latest(ctx context.Context, email string) (*commercedomain.Purchase, time.Time, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, time.Time{}, ErrEmailRequired
	}

	var entry Entry
	err := r.db.WithContext(ctx).Where("email = ?", email).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, err
	}

	var purchase commercedomain.Purchase
	if err := json.Unmarshal(entry.Payload, &purchase); err != nil {
		r.log.Warn("cached purchase payload unreadable", zap.Int64("id", entry.ID.Int64()), zap.Error(err))
		return nil, time.Time{}, err
	}
	return &purchase, entry.UpdatedAt, nil
}

func encodePurchase(purchase commercedomain.Purchase) ([]byte, error) {
	if len(purchase.Raw) > 0 && json.Valid(purchase.Raw) {
		return append([]byte(nil), purchase.Raw...), nil
	}
	return json.Marshal(purchase)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
