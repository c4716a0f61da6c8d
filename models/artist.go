package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ltdedn/editions_backend/config"
	"gorm.io/gorm"
)

type Artist struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Slug      string    `gorm:"size:150;not null;uniqueIndex" json:"slug"`
	Bio       string    `gorm:"type:text" json:"bio"`
	OwnerId   *int      `gorm:"index" json:"owner_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewArtist struct {
	Name    string `json:"name" binding:"required"`
	Slug    string `json:"slug" binding:"required"`
	Bio     string `json:"bio"`
	OwnerId *int   `json:"owner_id"`
}

func (input *NewArtist) validate(ctx context.Context, id int) error {
	db := config.GetDB()
	var count int64
	q := db.WithContext(ctx).Model(&Artist{}).Where("slug = ?", strings.ToLower(input.Slug))
	if id > 0 {
		q = q.Where("id <> ?", id)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("slug already in use")
	}
	if input.OwnerId != nil {
		var owner User
		if err := db.WithContext(ctx).First(&owner, *input.OwnerId).Error; err != nil {
			return errors.New("owner user not found")
		}
	}
	return nil
}

func CreateArtist(ctx context.Context, input *NewArtist) (*Artist, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	artist := Artist{
		Name:    input.Name,
		Slug:    strings.ToLower(input.Slug),
		Bio:     input.Bio,
		OwnerId: input.OwnerId,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&artist).Error
	if err != nil {
		return nil, err
	}
	return &artist, nil
}

func UpdateArtist(ctx context.Context, id int, input *NewArtist) (*Artist, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var artist Artist
	if err := db.WithContext(ctx).First(&artist, id).Error; err != nil {
		return nil, err
	}

	artist.Name = input.Name
	artist.Slug = strings.ToLower(input.Slug)
	artist.Bio = input.Bio
	artist.OwnerId = input.OwnerId

	if err := db.WithContext(ctx).Save(&artist).Error; err != nil {
		return nil, err
	}
	return &artist, nil
}

func GetArtistById(ctx context.Context, id int) (*Artist, error) {
	var artist Artist
	db := config.GetDB()
	if err := db.WithContext(ctx).First(&artist, id).Error; err != nil {
		return nil, err
	}
	return &artist, nil
}

func GetAllArtists(ctx context.Context) ([]*Artist, error) {
	var artists []*Artist
	db := config.GetDB()
	if err := db.WithContext(ctx).Order("name ASC").Find(&artists).Error; err != nil {
		return nil, err
	}
	return artists, nil
}

// GetArtistOwnerUserId resolves the user who should receive artist-facing
// notifications for a product. Returns 0 when the artist has no owner account.
func GetArtistOwnerUserId(tx *gorm.DB, artistId int) (int, error) {
	var artist Artist
	if err := tx.First(&artist, artistId).Error; err != nil {
		return 0, err
	}
	if artist.OwnerId == nil {
		return 0, nil
	}
	return *artist.OwnerId, nil
}
