package models

import (
	"context"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductEdition is one numbered, individually claimable instance of a product.
// owner_id is null exactly while status is 'available'; every mutation goes
// through the edition lock + row-lock discipline in the workflow package.
type ProductEdition struct {
	ID          int            `gorm:"primary_key" json:"id"`
	ProductId   int            `gorm:"not null;index:idx_editions_product_number,unique,composite:num" json:"product_id"`
	Number      int            `gorm:"not null;index:idx_editions_product_number,unique,composite:num" json:"number"`
	OwnerId     *int           `gorm:"index" json:"owner_id"`
	Status      EditionStatus  `gorm:"size:20;not null;default:'available';index" json:"status"`
	QrCode      string         `gorm:"size:64;not null;uniqueIndex" json:"qr_code"`
	QrShortCode string         `gorm:"size:8;uniqueIndex" json:"qr_short_code"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Product *Product `gorm:"foreignKey:ProductId" json:"product,omitempty"`
}

func (e *ProductEdition) IsAvailable() bool {
	return e.Status == EditionStatusAvailable
}

func (e *ProductEdition) IsSold() bool {
	return e.Status == EditionStatusSold
}

func (e *ProductEdition) IsRedeemed() bool {
	return e.Status == EditionStatusRedeemed
}

// GetEditionByQRCode resolves the public QR token. Returns nil (no error) when
// unknown so callers can report NotFound without unwrapping gorm errors.
func GetEditionByQRCode(ctx context.Context, qrCode string) (*ProductEdition, error) {
	var edition ProductEdition
	db := config.GetDB()
	err := db.WithContext(ctx).Preload("Product").Preload("Product.Artist").
		Where("qr_code = ?", qrCode).First(&edition).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &edition, nil
}

// GetEditionForUpdate re-reads the edition row with an exclusive row lock.
// This MUST be the first read of the edition inside any mutating transaction:
// the advisory lock in front of it is best-effort only, the row lock is the
// authoritative serialization point. All legality checks happen on the copy
// this returns, never on state read before the transaction.
func GetEditionForUpdate(tx *gorm.DB, id int) (*ProductEdition, error) {
	var edition ProductEdition
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&edition, id).Error
	if err != nil {
		return nil, err
	}
	return &edition, nil
}

type NewEditionBatch struct {
	Count int `json:"count" binding:"required,min=1,max=10000"`
}

// CreateEditionsBulk creates up to input.Count editions for a product,
// numbering from the current maximum. QR codes are deterministic, so re-running
// a partially failed batch regenerates the same codes; duplicate-key rows are
// skipped rather than failing the whole batch.
func CreateEditionsBulk(ctx context.Context, productId int, input *NewEditionBatch) ([]*ProductEdition, error) {

	product, err := GetProductById(ctx, productId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	var maxNumber int
	row := db.WithContext(ctx).Model(&ProductEdition{}).
		Where("product_id = ?", productId).
		Select("COALESCE(MAX(number), 0)").Row()
	if err := row.Scan(&maxNumber); err != nil {
		return nil, err
	}

	created := make([]*ProductEdition, 0, input.Count)
	for i := 1; i <= input.Count; i++ {
		number := maxNumber + i
		edition := ProductEdition{
			ProductId:   productId,
			Number:      number,
			Status:      EditionStatusAvailable,
			QrCode:      utils.GenerateQRCode(productId, number, product.Slug),
			QrShortCode: utils.GenerateShortQRCode(productId, number, product.Slug),
		}
		if err := db.WithContext(ctx).Create(&edition).Error; err != nil {
			if isDuplicateKeyErr(err) {
				continue
			}
			return created, err
		}
		created = append(created, &edition)
	}

	if err := db.WithContext(ctx).Model(&Product{}).Where("id = ?", productId).
		Update("edition_total", gorm.Expr("edition_total + ?", len(created))).Error; err != nil {
		return created, err
	}

	return created, nil
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// InvalidateEdition is the administrative override path. It still goes through
// the row lock so it cannot race a claim or an in-flight transfer resolution.
func InvalidateEdition(ctx context.Context, id int) (*ProductEdition, error) {
	db := config.GetDB()
	var result *ProductEdition
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		edition, err := GetEditionForUpdate(tx, id)
		if err != nil {
			return err
		}
		if edition.Status == EditionStatusPendingTransfer {
			return errors.New("edition has a pending transfer; resolve it first")
		}
		edition.Status = EditionStatusInvalidated
		if err := tx.Save(edition).Error; err != nil {
			return err
		}
		result = edition
		return nil
	})
	return result, err
}

func GetEditionsByOwner(ctx context.Context, ownerId int) ([]*ProductEdition, error) {
	var editions []*ProductEdition
	db := config.GetDB()
	err := db.WithContext(ctx).Preload("Product").Preload("Product.Artist").
		Where("owner_id = ?", ownerId).Order("id ASC").Find(&editions).Error
	if err != nil {
		return nil, err
	}
	return editions, nil
}
