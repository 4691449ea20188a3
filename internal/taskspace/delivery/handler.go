package delivery

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	authdelivery "miinplanner-backend/internal/auth/delivery"
	"miinplanner-backend/internal/taskspace/domain"
	"miinplanner-backend/internal/workspace"

	"github.com/gin-gonic/gin"
)

// maxImportSize caps uploaded task space files
const maxImportSize = 5 << 20

// SpaceHandler handles task space requests
type SpaceHandler struct {
	registry *workspace.Registry
}

func NewSpaceHandler(registry *workspace.Registry) *SpaceHandler {
	return &SpaceHandler{registry: registry}
}

// RegisterRoutes registers task space routes on an authenticated group
func (h *SpaceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	spaces := rg.Group("/spaces")
	{
		spaces.GET("", h.List)
		spaces.POST("", h.Save)
		spaces.POST("/import", h.Import)
		spaces.POST("/:id/load", h.Load)
		spaces.GET("/:id/export", h.Export)
		spaces.DELETE("/:id", h.Delete)
	}
}

func (h *SpaceHandler) workspace(c *gin.Context) *workspace.Workspace {
	session, _ := authdelivery.SessionFrom(c)
	return h.registry.For(session)
}

func respondError(c *gin.Context, err error) {
	c.JSON(workspace.HTTPStatus(err), gin.H{"error": workspace.Message(err)})
}

// List returns the saved spaces without their tasks
// GET /api/spaces
func (h *SpaceHandler) List(c *gin.Context) {
	spaces, err := h.workspace(c).TaskSpaces(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"spaces": spaces})
}

type saveRequest struct {
	Name string `json:"name" binding:"required"`
}

// Save stores the current tasks as a named space
// POST /api/spaces
func (h *SpaceHandler) Save(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	space, err := h.workspace(c).SaveCurrentTaskSpace(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, space.Summary())
}

// Load replaces all tasks with a saved space
// POST /api/spaces/:id/load
func (h *SpaceHandler) Load(c *gin.Context) {
	ws := h.workspace(c)
	if err := ws.LoadTaskSpace(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": ws.Tasks(), "statuses": ws.Statuses()})
}

// Delete removes a saved space
// DELETE /api/spaces/:id
func (h *SpaceHandler) Delete(c *gin.Context) {
	if err := h.workspace(c).DeleteTaskSpace(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task space deleted successfully"})
}

// Export downloads a space as a JSON file
// GET /api/spaces/:id/export
func (h *SpaceHandler) Export(c *gin.Context) {
	data, name, err := h.workspace(c).ExportTaskSpace(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, FileName(name)))
	c.Data(http.StatusOK, "application/json", data)
}

// Import saves and loads an uploaded space. The document is read from the
// multipart field "file" or, failing that, from the request body.
// POST /api/spaces/import
func (h *SpaceHandler) Import(c *gin.Context) {
	data, err := readImport(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	space, err := domain.Decode(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ws := h.workspace(c)
	saved, err := ws.ImportTaskSpace(c.Request.Context(), *space)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"space": saved.Summary(), "tasks": ws.Tasks()})
}

func readImport(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("file is required: %w", err)
		}
		if header.Size > maxImportSize {
			return nil, fmt.Errorf("file exceeds %d bytes", maxImportSize)
		}
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxImportSize))
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxImportSize {
		return nil, fmt.Errorf("body exceeds %d bytes", maxImportSize)
	}
	return data, nil
}

// FileName turns a space name into a safe download file name
func FileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	if b.Len() == 0 {
		return "task-space"
	}
	return b.String()
}
