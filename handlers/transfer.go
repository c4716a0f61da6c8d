package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
	"github.com/ltdedn/editions_backend/utils"
	"github.com/ltdedn/editions_backend/workflow"
)

const transferModuleName = "handlers/transfer"

// ShowTransfer lets the two parties inspect an offer by its token.
func ShowTransfer(c *gin.Context) {
	ctx := c.Request.Context()
	userId, _ := utils.GetUserIdFromContext(ctx)

	transfer, err := models.GetTransferByToken(ctx, c.Param("token"))
	if err != nil {
		config.LogError(config.GetLogger(), transferModuleName, "ShowTransfer", "resolving token", c.Param("token"), err)
		respondInternalError(c)
		return
	}
	if transfer == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown transfer"})
		return
	}
	if transfer.SenderId != userId && transfer.RecipientId != userId {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a party to this transfer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transfer": transfer})
}

// AcceptTransfer resolves a pending offer in the recipient's favor.
func AcceptTransfer(c *gin.Context) {
	resolveTransferRequest(c, workflow.AcceptTransfer)
}

// RejectTransfer declines a pending offer; the sender keeps the edition.
func RejectTransfer(c *gin.Context) {
	resolveTransferRequest(c, workflow.RejectTransfer)
}

// CancelTransfer withdraws a pending offer; sender only.
func CancelTransfer(c *gin.Context) {
	resolveTransferRequest(c, workflow.CancelTransfer)
}

func resolveTransferRequest(c *gin.Context, resolve func(ctx context.Context, userId int, token string) (*workflow.TransferResult, error)) {
	ctx := c.Request.Context()
	userId, _ := utils.GetUserIdFromContext(ctx)

	result, err := resolve(ctx, userId, c.Param("token"))
	if err != nil {
		respondInternalError(c)
		return
	}

	body := gin.H{}
	if result.Transfer != nil && result.Outcome != workflow.OutcomeNotFound {
		body["transfer"] = result.Transfer
	}
	respondOutcome(c, result.Outcome, body)
}
