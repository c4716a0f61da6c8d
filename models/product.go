package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID           int             `gorm:"primary_key" json:"id"`
	ArtistId     int             `gorm:"index;not null" json:"artist_id"`
	Name         string          `gorm:"size:200;not null" json:"name"`
	Slug         string          `gorm:"size:200;not null;index:idx_products_artist_slug,unique,composite:artist" json:"slug"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:decimal(13,2);not null;default:0" json:"price"`
	EditionTotal int             `gorm:"not null;default:0" json:"edition_total"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Artist *Artist `gorm:"foreignKey:ArtistId" json:"artist,omitempty"`
}

type NewProduct struct {
	ArtistId    int             `json:"artist_id" binding:"required"`
	Name        string          `json:"name" binding:"required"`
	Slug        string          `json:"slug" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

func (input *NewProduct) validate(ctx context.Context, id int) error {
	db := config.GetDB()
	var artist Artist
	if err := db.WithContext(ctx).First(&artist, input.ArtistId).Error; err != nil {
		return errors.New("artist not found")
	}
	var count int64
	q := db.WithContext(ctx).Model(&Product{}).
		Where("artist_id = ? AND slug = ?", input.ArtistId, strings.ToLower(input.Slug))
	if id > 0 {
		q = q.Where("id <> ?", id)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("slug already in use for this artist")
	}
	if input.Price.IsNegative() {
		return errors.New("price must not be negative")
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	product := Product{
		ArtistId:    input.ArtistId,
		Name:        input.Name,
		Slug:        strings.ToLower(input.Slug),
		Description: input.Description,
		Price:       input.Price,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id int, input *NewProduct) (*Product, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var product Product
	if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}

	product.ArtistId = input.ArtistId
	product.Name = input.Name
	product.Slug = strings.ToLower(input.Slug)
	product.Description = input.Description
	product.Price = input.Price

	if err := db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func GetProductById(ctx context.Context, id int) (*Product, error) {
	var product Product
	db := config.GetDB()
	if err := db.WithContext(ctx).Preload("Artist").First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func GetAllProducts(ctx context.Context) ([]*Product, error) {
	var products []*Product
	db := config.GetDB()
	if err := db.WithContext(ctx).Preload("Artist").Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// CountAvailableEditions counts claimable editions of a product on the given
// transaction, so a claim that just consumed the last one sees zero.
func CountAvailableEditions(tx *gorm.DB, productId int) (int64, error) {
	var count int64
	err := tx.Model(&ProductEdition{}).
		Where("product_id = ? AND status = ?", productId, EditionStatusAvailable).
		Count(&count).Error
	return count, err
}
