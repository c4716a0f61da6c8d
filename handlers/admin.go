package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
	"github.com/ltdedn/editions_backend/utils"
	"github.com/ltdedn/editions_backend/workflow"
)

const adminModuleName = "handlers/admin"

func bindJSON(c *gin.Context, input any) bool {
	if err := c.ShouldBindJSON(input); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(verrs)})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return false
	}
	return true
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// --- users ---

func AdminCreateUser(c *gin.Context) {
	var input models.NewUser
	if !bindJSON(c, &input) {
		return
	}
	user, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func AdminListUsers(c *gin.Context) {
	users, err := models.GetAllUsers(c.Request.Context())
	if err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// --- artists ---

func AdminCreateArtist(c *gin.Context) {
	var input models.NewArtist
	if !bindJSON(c, &input) {
		return
	}
	artist, err := models.CreateArtist(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"artist": artist})
}

func AdminUpdateArtist(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewArtist
	if !bindJSON(c, &input) {
		return
	}
	artist, err := models.UpdateArtist(c.Request.Context(), id, &input)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"artist": artist})
}

func ListArtists(c *gin.Context) {
	artists, err := models.GetAllArtists(c.Request.Context())
	if err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artists": artists})
}

// --- products ---

func AdminCreateProduct(c *gin.Context) {
	var input models.NewProduct
	if !bindJSON(c, &input) {
		return
	}
	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

func AdminUpdateProduct(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewProduct
	if !bindJSON(c, &input) {
		return
	}
	product, err := models.UpdateProduct(c.Request.Context(), id, &input)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	dropTokenMetadataCache(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"product": product})
}

func ListProducts(c *gin.Context) {
	products, err := models.GetAllProducts(c.Request.Context())
	if err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func ShowProduct(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	product, err := models.GetProductById(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// --- editions ---

// AdminCreateEditions mints a numbered batch of editions with their QR codes.
func AdminCreateEditions(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewEditionBatch
	if !bindJSON(c, &input) {
		return
	}
	editions, err := models.CreateEditionsBulk(c.Request.Context(), id, &input)
	if err != nil {
		config.LogError(config.GetLogger(), adminModuleName, "AdminCreateEditions", "creating batch", id, err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "created": len(editions)})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"editions": editions})
}

// AdminInvalidateEdition voids a lost or counterfeit-suspect edition.
func AdminInvalidateEdition(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	edition, err := models.InvalidateEdition(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	// A voided edition must stop verifying right away, not after the TTL.
	_ = config.RemoveRedisKey("verify:" + edition.QrCode)
	c.JSON(http.StatusOK, gin.H{"edition": edition})
}

// --- reports ---

type runReportInput struct {
	ArtistId int    `json:"artist_id"`
	Month    string `json:"month"` // 2006-01; defaults to last month
}

// AdminRunReport generates a monthly activity report on demand, for one
// artist or for all of them.
func AdminRunReport(c *gin.Context) {
	var input runReportInput
	if !bindJSON(c, &input) {
		return
	}

	month := time.Now().UTC().AddDate(0, -1, 0)
	if input.Month != "" {
		parsed, err := time.Parse("2006-01", input.Month)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be formatted as 2006-01"})
			return
		}
		month = parsed
	}

	ctx := c.Request.Context()
	if input.ArtistId > 0 {
		report, err := workflow.GenerateMonthlyReport(ctx, input.ArtistId, month)
		if err != nil {
			config.LogError(config.GetLogger(), adminModuleName, "AdminRunReport", "generating report", input.ArtistId, err)
			respondInternalError(c)
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": report})
		return
	}

	generated, err := workflow.GenerateMonthlyReportsForAllArtists(ctx, time.Now().UTC())
	if err != nil {
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"generated": generated})
}
