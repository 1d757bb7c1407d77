package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"social-server/internal/repository"
)

type createPostRequest struct {
	Desc string `json:"desc" binding:"required"`
	Img  string `json:"img"`
}

type updatePostRequest struct {
	Desc string `json:"desc" binding:"required"`
	Img  string `json:"img"`
}

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) createPost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "desc is required"})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), callerID(c), req.Desc, req.Img)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *Handler) getPost(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) getAllPosts(c *gin.Context) {
	page, _ := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "10"), 10, 64)

	result, err := h.posts.List(c.Request.Context(), repository.PostListOptions{
		Page:   page,
		Limit:  limit,
		SortBy: c.DefaultQuery("sortBy", "createdAt"),
		Order:  c.DefaultQuery("order", "desc"),
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":       result.Posts,
		"totalPages":  result.TotalPages,
		"currentPage": result.CurrentPage,
	})
}

func (h *Handler) getPostsByUser(c *gin.Context) {
	posts, err := h.posts.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

func (h *Handler) updatePost(c *gin.Context) {
	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "desc is required"})
		return
	}

	post, err := h.posts.Update(c.Request.Context(), c.Param("id"), req.Desc, req.Img)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) deletePost(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), callerID(c), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

func (h *Handler) likePost(c *gin.Context) {
	liked, err := h.posts.ToggleLike(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if liked {
		c.JSON(http.StatusOK, gin.H{"message": "Post has been liked"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post has been disliked"})
}

func (h *Handler) likeComment(c *gin.Context) {
	liked, err := h.posts.ToggleCommentLike(c.Request.Context(), c.Param("id"), c.Param("commentId"), callerID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if liked {
		c.JSON(http.StatusOK, gin.H{"message": "Comment has been liked"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment has been disliked"})
}

func (h *Handler) addComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "text is required"})
		return
	}

	post, err := h.posts.AddComment(c.Request.Context(), c.Param("id"), callerID(c), req.Text)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment added successfully", "post": post})
}

func (h *Handler) updateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "text is required"})
		return
	}

	post, err := h.posts.UpdateComment(c.Request.Context(), c.Param("id"), c.Param("commentId"), req.Text)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) deleteComment(c *gin.Context) {
	post, err := h.posts.DeleteComment(c.Request.Context(), c.Param("id"), c.Param("commentId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully", "post": post})
}

func (h *Handler) replyToComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "text is required"})
		return
	}

	post, err := h.posts.ReplyToComment(c.Request.Context(), c.Param("id"), c.Param("commentId"), callerID(c), req.Text)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) deleteReply(c *gin.Context) {
	post, err := h.posts.DeleteReply(c.Request.Context(), c.Param("id"), c.Param("commentId"), c.Param("replyId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reply deleted successfully", "post": post})
}
