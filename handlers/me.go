package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
	"github.com/ltdedn/editions_backend/utils"
	"github.com/ltdedn/editions_backend/workflow"
)

const meModuleName = "handlers/me"

const notificationPageSize = 50

// Me returns the authenticated user's profile.
func Me(c *gin.Context) {
	ctx := c.Request.Context()
	userId, _ := utils.GetUserIdFromContext(ctx)

	user, err := models.GetUserById(ctx, userId)
	if err != nil {
		config.LogError(config.GetLogger(), meModuleName, "Me", "loading user", userId, err)
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// MyEditions lists everything the caller currently owns.
func MyEditions(c *gin.Context) {
	ctx := c.Request.Context()
	userId, _ := utils.GetUserIdFromContext(ctx)

	editions, err := models.GetEditionsByOwner(ctx, userId)
	if err != nil {
		config.LogError(config.GetLogger(), meModuleName, "MyEditions", "listing editions", userId, err)
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"editions": editions})
}

// MyTransfers lists offers the caller sent or received, newest first.
func MyTransfers(c *gin.Context) {
	ctx := c.Request.Context()
	userId, _ := utils.GetUserIdFromContext(ctx)

	transfers, err := models.ListTransfersForUser(ctx, userId)
	if err != nil {
		config.LogError(config.GetLogger(), meModuleName, "MyTransfers", "listing transfers", userId, err)
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfers": transfers})
}

// MyNotifications is the in-app feed, backed by the outbox table.
func MyNotifications(c *gin.Context) {
	ctx := c.Request.Context()
	userId, _ := utils.GetUserIdFromContext(ctx)

	records, err := models.ListNotificationsForUser(ctx, userId, notificationPageSize)
	if err != nil {
		config.LogError(config.GetLogger(), meModuleName, "MyNotifications", "listing notifications", userId, err)
		respondInternalError(c)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": records})
}

// MyWallet shows the caller's custodial wallet, if one has been created.
func MyWallet(c *gin.Context) {
	ctx := c.Request.Context()
	userId, _ := utils.GetUserIdFromContext(ctx)

	wallet, err := models.GetWalletForUser(ctx, userId, workflow.DefaultChain())
	if err != nil {
		config.LogError(config.GetLogger(), meModuleName, "MyWallet", "loading wallet", userId, err)
		respondInternalError(c)
		return
	}
	if wallet == nil {
		c.JSON(http.StatusOK, gin.H{"wallet": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}
