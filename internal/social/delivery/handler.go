package delivery

import (
	"net/http"

	authdelivery "miinplanner-backend/internal/auth/delivery"
	"miinplanner-backend/internal/social/domain"
	"miinplanner-backend/internal/workspace"

	"github.com/gin-gonic/gin"
)

// PostHandler handles social media post requests
type PostHandler struct {
	registry *workspace.Registry
}

func NewPostHandler(registry *workspace.Registry) *PostHandler {
	return &PostHandler{registry: registry}
}

// RegisterRoutes registers post routes on an authenticated group
func (h *PostHandler) RegisterRoutes(rg *gin.RouterGroup) {
	posts := rg.Group("/posts")
	{
		posts.GET("", h.List)
		posts.POST("", h.Create)
		posts.PATCH("/:id", h.Update)
		posts.DELETE("/:id", h.Delete)
	}
}

func (h *PostHandler) workspace(c *gin.Context) *workspace.Workspace {
	session, _ := authdelivery.SessionFrom(c)
	return h.registry.For(session)
}

func respondError(c *gin.Context, err error) {
	c.JSON(workspace.HTTPStatus(err), gin.H{"error": workspace.Message(err)})
}

func (h *PostHandler) List(c *gin.Context) {
	ws := h.workspace(c)
	if err := ws.FetchPosts(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": ws.Posts()})
}

func (h *PostHandler) Create(c *gin.Context) {
	var in domain.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, err := h.workspace(c).AddPost(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *PostHandler) Update(c *gin.Context) {
	var in domain.PostInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	post, err := h.workspace(c).UpdatePost(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) Delete(c *gin.Context) {
	if err := h.workspace(c).DeletePost(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}
