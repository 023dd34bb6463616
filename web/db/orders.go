package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

func CreateOrder(ctx context.Context, gdb *gorm.DB, order *PaymentOrder) error {
	if order.Status == "" {
		order.Status = "created"
	}
	return gdb.WithContext(ctx).Create(order).Error
}

func GetOrder(ctx context.Context, gdb *gorm.DB, orderID string) (*PaymentOrder, error) {
	var order PaymentOrder
	err := gdb.WithContext(ctx).First(&order, "order_id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkOrderPaid records the gateway payment id against the local order row.
func MarkOrderPaid(ctx context.Context, gdb *gorm.DB, orderID, paymentID string) error {
	res := gdb.WithContext(ctx).Model(&PaymentOrder{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{"status": "paid", "payment_id": paymentID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
