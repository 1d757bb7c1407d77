package http

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"social-server/internal/repository"
	"social-server/internal/service"
	"social-server/internal/storage"
)

// pictureURLTTL bounds how long a presigned picture URL stays fetchable.
const pictureURLTTL = 24 * time.Hour

type updateUserRequest struct {
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	Password     *string `json:"password"`
	Desc         *string `json:"desc"`
	City         *string `json:"city"`
	From         *string `json:"from"`
	Relationship *int    `json:"relationship"`
}

func (h *Handler) updateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	user, err := h.users.Update(c.Request.Context(), callerID(c), c.Param("id"), service.UserUpdateInput{
		Username:     req.Username,
		Email:        req.Email,
		Password:     req.Password,
		Desc:         req.Desc,
		City:         req.City,
		From:         req.From,
		Relationship: req.Relationship,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (h *Handler) getAllUsers(c *gin.Context) {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)

	users, err := h.users.List(c.Request.Context(), repositoryUserListOptions(c, page, limit))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "No users found"})
			return
		}
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func repositoryUserListOptions(c *gin.Context, page, limit int64) repository.UserListOptions {
	return repository.UserListOptions{
		Page:        page,
		Limit:       limit,
		SortBy:      c.DefaultQuery("sortBy", "createdAt"),
		Order:       c.DefaultQuery("order", "desc"),
		FilterField: c.Query("filterField"),
		FilterValue: c.Query("filterValue"),
	}
}

func (h *Handler) followUser(c *gin.Context) {
	if err := h.users.Follow(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User followed successfully"})
}

func (h *Handler) unfollowUser(c *gin.Context) {
	if err := h.users.Unfollow(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unfollowed successfully"})
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	h.uploadPicture(c, "profilePicture", "avatar")
}

func (h *Handler) uploadCover(c *gin.Context) {
	h.uploadPicture(c, "coverPicture", "cover")
}

func (h *Handler) uploadPicture(c *gin.Context, field, kind string) {
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "storage service not configured"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.renderError(c, err)
		return
	}
	defer file.Close()

	targetID := c.Param("id")
	previous := h.currentPicture(c, targetID, field)

	key := fmt.Sprintf("%s/users/%s/%s-%s%s", h.keyPrefix, targetID, kind, uuid.NewString(), filepath.Ext(fileHeader.Filename))
	location, err := h.storage.Upload(c.Request.Context(), storage.UploadInput{
		Bucket:      h.bucket,
		Key:         key,
		Body:        file,
		ContentType: contentType(fileHeader),
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	if err := h.users.SetPicture(c.Request.Context(), callerID(c), targetID, field, location); err != nil {
		h.renderError(c, err)
		return
	}

	// The replaced object is no longer referenced; remove it so uploads do
	// not accumulate.
	if bucket, oldKey, ok := storage.ParseLocation(previous); ok && previous != location {
		if err := h.storage.DeleteObject(c.Request.Context(), bucket, oldKey); err != nil {
			h.logger.WithError(err).Warn("delete previous picture")
		}
	}

	resp := gin.H{"message": "Picture uploaded successfully", "location": location}
	if url, err := h.storage.GetObjectURL(c.Request.Context(), h.bucket, key, pictureURLTTL); err == nil {
		resp["url"] = url
	}
	c.JSON(http.StatusOK, resp)
}

// currentPicture looks up the stored location for the field being replaced.
// Best effort: an unreadable user just means no cleanup.
func (h *Handler) currentPicture(c *gin.Context, targetID, field string) string {
	user, err := h.users.Get(c.Request.Context(), targetID)
	if err != nil {
		return ""
	}
	if field == "coverPicture" {
		return user.CoverPicture
	}
	return user.ProfilePicture
}

func contentType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
