package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
	"github.com/ltdedn/editions_backend/utils"
	"github.com/ltdedn/editions_backend/workflow"
)

const qrModuleName = "handlers/qr"

// ShowEditionByQR is the public scan landing: what is this edition and can it
// still be claimed. Owner identity is not exposed here.
func ShowEditionByQR(c *gin.Context) {
	ctx := c.Request.Context()
	edition, err := models.GetEditionByQRCode(ctx, c.Param("code"))
	if err != nil {
		config.LogError(config.GetLogger(), qrModuleName, "ShowEditionByQR", "resolving qr code", c.Param("code"), err)
		respondInternalError(c)
		return
	}
	if edition == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"edition": gin.H{
			"number":  edition.Number,
			"status":  edition.Status,
			"claimed": edition.OwnerId != nil,
		},
		"product": edition.Product,
	})
}

// ClaimEdition hands the scanned edition to the authenticated user, first
// come first served.
func ClaimEdition(c *gin.Context) {
	ctx := c.Request.Context()
	userId, _ := utils.GetUserIdFromContext(ctx)

	result, err := workflow.ClaimEdition(ctx, userId, c.Param("code"))
	if err != nil {
		respondInternalError(c)
		return
	}

	body := gin.H{}
	if result.Edition != nil && result.Outcome != workflow.OutcomeNotFound {
		body["edition"] = result.Edition
	}
	respondOutcome(c, result.Outcome, body)
}

type createTransferInput struct {
	RecipientEmail string `json:"recipient_email" binding:"required,email"`
}

// CreateTransfer opens a 48h offer of the scanned edition to another user.
func CreateTransfer(c *gin.Context) {
	var input createTransferInput
	if err := c.ShouldBindJSON(&input); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(verrs)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	userId, _ := utils.GetUserIdFromContext(ctx)

	result, err := workflow.CreateTransfer(ctx, userId, c.Param("code"), input.RecipientEmail)
	if err != nil {
		respondInternalError(c)
		return
	}

	if result.Outcome == workflow.OutcomeTransferCreated {
		c.JSON(http.StatusCreated, gin.H{
			"outcome":  result.Outcome,
			"message":  outcomeMessages[result.Outcome],
			"transfer": result.Transfer,
		})
		return
	}
	respondOutcome(c, result.Outcome, gin.H{})
}

// RedeemEdition mints the on-chain certificate for an edition the caller owns.
func RedeemEdition(c *gin.Context) {
	ctx := c.Request.Context()
	userId, _ := utils.GetUserIdFromContext(ctx)

	result, err := workflow.RedeemEdition(ctx, userId, c.Param("code"))
	if err != nil {
		respondInternalError(c)
		return
	}

	body := gin.H{}
	if result.Token != nil {
		body["token"] = result.Token
	}
	if result.Wallet != nil {
		body["wallet"] = result.Wallet
	}
	respondOutcome(c, result.Outcome, body)
}
