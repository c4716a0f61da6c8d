package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/ltdedn/editions_backend/config"
	"github.com/ltdedn/editions_backend/models"
	"github.com/ltdedn/editions_backend/utils"
)

const authModuleName = "handlers/auth"

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a JWT.
func Login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ProcessValidationErrors(verrs)})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ctx := c.Request.Context()
	user, err := models.GetUserByEmail(ctx, input.Email)
	if err != nil {
		config.LogError(config.GetLogger(), authModuleName, "Login", "looking up user", input.Email, err)
		respondInternalError(c)
		return
	}
	// Same response for unknown email and wrong password.
	if user == nil || utils.ComparePassword(user.Password, input.Password) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := utils.JwtGenerate(user.ID, string(user.Role))
	if err != nil {
		config.LogError(config.GetLogger(), authModuleName, "Login", "generating token", user.ID, err)
		respondInternalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  user,
	})
}
