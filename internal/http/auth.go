package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const refreshCookie = "refreshToken"

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username, email, and password are required"})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.renderError(c, err)
		return
	}

	accessToken, err := h.tokens.IssueAccess(user.ID.Hex(), user.Email, h.tokenCfg.RegisterAccessTTL)
	if err == nil {
		var refreshToken string
		refreshToken, err = h.tokens.IssueRefresh(user.ID.Hex(), user.Email, h.tokenCfg.RefreshTTL)
		if err == nil {
			h.setRefreshCookie(c, refreshToken)
			c.JSON(http.StatusCreated, gin.H{
				"message":     "Registration successful",
				"user":        user,
				"accessToken": accessToken,
			})
			return
		}
	}

	// Token issuance failed after the user was persisted; compensate so the
	// registration is not observable as half-committed.
	if delErr := h.users.Delete(c.Request.Context(), user.ID.Hex(), user.ID.Hex()); delErr != nil {
		h.logger.WithError(delErr).Error("failed to roll back registration")
	}
	h.renderError(c, err)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "email and password are required"})
		return
	}

	user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.renderError(c, err)
		return
	}

	accessToken, err := h.tokens.IssueAccess(user.ID.Hex(), user.Email, h.tokenCfg.AccessTTL)
	if err != nil {
		h.renderError(c, err)
		return
	}
	refreshToken, err := h.tokens.IssueRefresh(user.ID.Hex(), user.Email, h.tokenCfg.RefreshTTL)
	if err != nil {
		h.renderError(c, err)
		return
	}

	h.setRefreshCookie(c, refreshToken)
	c.JSON(http.StatusOK, gin.H{
		"message":     "Login successful",
		"user":        user,
		"accessToken": accessToken,
	})
}

func (h *Handler) logout(c *gin.Context) {
	c.SetCookie(refreshCookie, "", -1, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

// refreshToken verifies the refresh cookie against the refresh secret and
// mints a new access token for the same subject. An access token presented
// here fails verification because the secrets differ.
func (h *Handler) refreshToken(c *gin.Context) {
	token, err := c.Cookie(refreshCookie)
	if err != nil || token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "No refresh token provided"})
		return
	}

	claims, err := h.tokens.VerifyRefresh(token)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"message": "Invalid refresh token"})
		return
	}

	accessToken, err := h.tokens.IssueAccess(claims.UserID, claims.Email, h.tokenCfg.AccessTTL)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

func (h *Handler) setRefreshCookie(c *gin.Context, token string) {
	maxAge := int(h.tokenCfg.RefreshTTL.Seconds())
	c.SetCookie(refreshCookie, token, maxAge, "/", "", true, true)
}
