package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound      = errors.New("trial record not found")
	ErrNoEntitlement = errors.New("free use consumed and no paid credits left")
)

// CreditKind reports which kind of entitlement a ConsumeCredit call redeemed.
type CreditKind string

const (
	CreditFree CreditKind = "free"
	CreditPaid CreditKind = "paid"
)

// RegisterTrial inserts the record if no row with its ID exists. Returns true
// if a row was created. On the already-exists path the network origin and
// last-seen fields are refreshed; the entitlement fields are left alone.
func RegisterTrial(ctx context.Context, gdb *gorm.DB, rec *TrialRecord) (bool, error) {
	now := time.Now()
	rec.CreatedAt = now
	rec.LastSeen = now
	if rec.LastIP == "" {
		rec.LastIP = rec.IP
	}

	res := gdb.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	res = gdb.WithContext(ctx).Model(&TrialRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{"last_ip": rec.LastIP, "last_seen": now})
	return false, res.Error
}

// GetTrial fetches a record by identity, distinguishing not-found from
// transport errors.
func GetTrial(ctx context.Context, gdb *gorm.DB, id string) (*TrialRecord, error) {
	var rec TrialRecord
	err := gdb.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteTrial removes a record. Only reconciliation discard and support use
// this; entitlement flows never hard-delete.
func DeleteTrial(ctx context.Context, gdb *gorm.DB, id string) error {
	res := gdb.WithContext(ctx).Where("id = ?", id).Delete(&TrialRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ConsumeCredit redeems one generation from the identity's entitlement as a
// single conditional update, so two concurrent calls can never both redeem
// the same credit. The free use is consumed first; once free_used is set,
// paid credits are decremented. Returns ErrNoEntitlement when neither
// condition matches a row.
func ConsumeCredit(ctx context.Context, gdb *gorm.DB, id string) (CreditKind, error) {
	now := time.Now()

	res := gdb.WithContext(ctx).Model(&TrialRecord{}).
		Where("id = ? AND free_used = ?", id, false).
		Updates(map[string]interface{}{"free_used": true, "last_seen": now})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected > 0 {
		return CreditFree, nil
	}

	res = gdb.WithContext(ctx).Model(&TrialRecord{}).
		Where("id = ? AND paid_credits > 0", id).
		Updates(map[string]interface{}{
			"last_seen":    now,
			"paid_credits": gorm.Expr("paid_credits - 1"),
		})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected > 0 {
		return CreditPaid, nil
	}

	return "", ErrNoEntitlement
}

// RefundCredit returns a consumed credit after a failed generation. The free
// refund is conditional on free_used still being set, so a refund can never
// mint an extra free use.
func RefundCredit(ctx context.Context, gdb *gorm.DB, id string, kind CreditKind) error {
	switch kind {
	case CreditFree:
		return gdb.WithContext(ctx).Model(&TrialRecord{}).
			Where("id = ? AND free_used = ?", id, true).
			Update("free_used", false).Error
	case CreditPaid:
		return gdb.WithContext(ctx).Model(&TrialRecord{}).
			Where("id = ?", id).
			Update("paid_credits", gorm.Expr("paid_credits + 1")).Error
	}
	return nil
}

// AddPaidCredits atomically increments the paid credit balance. ErrNotFound
// means the identity row vanished; after a verified payment the caller must
// surface that as a bookkeeping failure, never swallow it.
func AddPaidCredits(ctx context.Context, gdb *gorm.DB, id string, n int) error {
	res := gdb.WithContext(ctx).Model(&TrialRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_seen":    time.Now(),
			"paid_credits": gorm.Expr("paid_credits + ?", n),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
