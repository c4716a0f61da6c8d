package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
)

const verifyModuleName = "handlers/verify"

const (
	tokenMetadataCacheTTL = 5 * time.Minute
	verifyCacheTTL        = 30 * time.Second
)

// VerifyEdition is the public authenticity check: edition, product, artist,
// and the on-chain provenance when the edition has been redeemed. An
// invalidated edition verifies as not authentic. Responses are cached briefly;
// admin invalidation drops the cached entry so a voided edition never verifies
// longer than one request.
func VerifyEdition(c *gin.Context) {
	code := c.Param("code")

	cacheKey := "verify:" + code
	var cached map[string]any
	if exists, err := config.GetRedisObject(cacheKey, &cached); err == nil && exists {
		c.JSON(http.StatusOK, cached)
		return
	}

	ctx := c.Request.Context()
	edition, err := models.GetEditionByQRCode(ctx, code)
	if err != nil {
		config.LogError(config.GetLogger(), verifyModuleName, "VerifyEdition", "resolving qr code", code, err)
		respondInternalError(c)
		return
	}
	if edition == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown code", "authentic": false})
		return
	}

	body := gin.H{
		"authentic": edition.Status != models.EditionStatusInvalidated,
		"edition": gin.H{
			"number": edition.Number,
			"status": edition.Status,
		},
		"product": edition.Product,
	}

	token, err := models.GetChainTokenForEdition(ctx, edition.ID)
	if err != nil {
		respondInternalError(c)
		return
	}
	if token != nil {
		events, err := models.ListCertificateEventsForEdition(ctx, edition.ID)
		if err != nil {
			respondInternalError(c)
			return
		}
		body["certificate"] = gin.H{
			"chain":        token.Chain,
			"token_id":     token.TokenId,
			"mint_tx_hash": token.MintTxHash,
			"last_tx_hash": token.LastTxHash,
			"events":       events,
		}
	}

	_ = config.SetRedisObject(cacheKey, body, verifyCacheTTL)
	c.JSON(http.StatusOK, body)
}

type tokenMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Attributes  []struct {
		TraitType string `json:"trait_type"`
		Value     any    `json:"value"`
	} `json:"attributes"`
}

// TokenMetadata serves the certificate metadata document for a redeemed
// edition, in the shape marketplaces expect. Cached in Redis since the
// document only changes if the product is edited.
func TokenMetadata(c *gin.Context) {
	editionId, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid edition id"})
		return
	}

	cacheKey := "tokenMetadata:" + strconv.Itoa(editionId)
	var cached tokenMetadata
	if exists, err := config.GetRedisObject(cacheKey, &cached); err == nil && exists {
		c.JSON(http.StatusOK, cached)
		return
	}

	ctx := c.Request.Context()
	token, err := models.GetChainTokenForEdition(ctx, editionId)
	if err != nil {
		respondInternalError(c)
		return
	}
	if token == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "edition has no certificate"})
		return
	}

	db := config.GetDB()
	var edition models.ProductEdition
	if err := db.WithContext(ctx).Preload("Product").Preload("Product.Artist").
		First(&edition, editionId).Error; err != nil {
		respondInternalError(c)
		return
	}

	metadata := tokenMetadata{
		Name:        fmt.Sprintf("%s #%d", edition.Product.Name, edition.Number),
		Description: edition.Product.Description,
	}
	metadata.Attributes = []struct {
		TraitType string `json:"trait_type"`
		Value     any    `json:"value"`
	}{
		{TraitType: "Artist", Value: edition.Product.Artist.Name},
		{TraitType: "Edition", Value: edition.Number},
		{TraitType: "Edition Total", Value: edition.Product.EditionTotal},
		{TraitType: "Chain", Value: token.Chain},
	}

	_ = config.SetRedisObject(cacheKey, &metadata, tokenMetadataCacheTTL)
	c.JSON(http.StatusOK, metadata)
}

// dropTokenMetadataCache removes the cached metadata documents for every
// edition of a product, so a product edit is visible to marketplaces before
// the cache TTL runs out.
func dropTokenMetadataCache(ctx context.Context, productId int) {
	var editionIds []int
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&models.ProductEdition{}).
		Where("product_id = ?", productId).Pluck("id", &editionIds).Error; err != nil {
		config.LogError(config.GetLogger(), verifyModuleName, "dropTokenMetadataCache", "listing editions", productId, err)
		return
	}
	if len(editionIds) == 0 {
		return
	}

	keys := make([]string, 0, len(editionIds))
	for _, id := range editionIds {
		keys = append(keys, "tokenMetadata:"+strconv.Itoa(id))
	}
	if err := config.RemoveRedisKey(keys...); err != nil {
		config.LogError(config.GetLogger(), verifyModuleName, "dropTokenMetadataCache", "removing cache keys", productId, err)
	}
}
