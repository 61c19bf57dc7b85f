package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/iamhemantkumawat/ifsseeds/internal/domain"
	"github.com/iamhemantkumawat/ifsseeds/internal/repository"
)

type couponRepo struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) repository.CouponRepository {
	return &couponRepo{db: db}
}

func (r *couponRepo) Create(ctx context.Context, coupon *domain.Coupon) error {
	if coupon.ID == "" {
		coupon.ID = uuid.NewString()
	}
	if coupon.CreatedAt.IsZero() {
		coupon.CreatedAt = time.Now().UTC()
	}

	row := mapDomainCouponToRow(*coupon)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("coupon[%s]: %w", coupon.Code, repository.ErrDuplicate)
		}
		return fmt.Errorf("db.Create: %w", err)
	}

	return nil
}

func (r *couponRepo) FindByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	var row couponRow

	if err := r.db.WithContext(ctx).First(&row, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("coupon[%s]: %w", code, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("db.First: %w", err)
	}

	c := mapCouponRowToDomain(row)
	return &c, nil
}

func (r *couponRepo) List(ctx context.Context) ([]domain.Coupon, error) {
	var rows []couponRow

	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("db.Find: %w", err)
	}

	return lo.Map(rows, func(row couponRow, _ int) domain.Coupon {
		return mapCouponRowToDomain(row)
	}), nil
}

func (r *couponRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&couponRow{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("db.Delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("coupon id[%s]: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *couponRepo) Redeem(ctx context.Context, code string, orderID uuid.UUID) (bool, error) {
	redeemed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		redemption := couponRedemptionRow{
			OrderID:   orderID.String(),
			Code:      code,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Create(&redemption).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil
			}
			return fmt.Errorf("tx.Create redemption: %w", err)
		}

		res := tx.Model(&couponRow{}).
			Where("code = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", code).
			UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
		if res.Error != nil {
			return fmt.Errorf("tx.UpdateColumn usage_count: %w", res.Error)
		}

		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&couponRow{}).Where("code = ?", code).Count(&count).Error; err != nil {
				return fmt.Errorf("tx.Count: %w", err)
			}
			if count == 0 {
				return fmt.Errorf("coupon[%s]: %w", code, repository.ErrNotFound)
			}
			return fmt.Errorf("coupon[%s]: %w", code, repository.ErrCouponExhausted)
		}

		redeemed = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return redeemed, nil
}

func mapDomainCouponToRow(c domain.Coupon) couponRow {
	row := couponRow{
		ID:            c.ID,
		Code:          c.Code,
		DiscountType:  string(c.DiscountType),
		DiscountValue: c.DiscountValue,
		MinOrderValue: c.MinOrderValue,
		UsageLimit:    c.UsageLimit,
		UsageCount:    c.UsageCount,
		ValidFrom:     c.ValidFrom,
		ValidUntil:    c.ValidUntil,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
	}
	if c.MaxDiscount != nil {
		row.MaxDiscount = decimal.NewNullDecimal(*c.MaxDiscount)
	}
	return row
}

func mapCouponRowToDomain(row couponRow) domain.Coupon {
	c := domain.Coupon{
		ID:            row.ID,
		Code:          row.Code,
		DiscountType:  domain.DiscountType(row.DiscountType),
		DiscountValue: normalize(row.DiscountValue),
		MinOrderValue: normalize(row.MinOrderValue),
		UsageLimit:    row.UsageLimit,
		UsageCount:    row.UsageCount,
		ValidFrom:     row.ValidFrom,
		ValidUntil:    row.ValidUntil,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt,
	}
	if row.MaxDiscount.Valid {
		c.MaxDiscount = lo.ToPtr(normalize(row.MaxDiscount.Decimal))
	}
	return c
}
