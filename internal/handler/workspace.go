package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"team_chat/internal/service"
	"team_chat/pkg/logger"
)

type WorkspaceHandler struct {
	workspaceService service.WorkspaceService
	searchService    service.SearchService
	log              logger.Logger
}

func NewWorkspaceHandler(workspaceService service.WorkspaceService, searchService service.SearchService, log logger.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
		searchService:    searchService,
		log:              log,
	}
}

type UpdateWorkspaceRequest struct {
	Name string `json:"name"`
}

func (h *WorkspaceHandler) GetByID(c *gin.Context) {
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	ws, err := h.workspaceService.GetByID(c.Request.Context(), workspaceID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, ws)
}

func (h *WorkspaceHandler) GetInfo(c *gin.Context) {
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	info, err := h.workspaceService.GetInfoByID(c.Request.Context(), workspaceID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, info)
}

func (h *WorkspaceHandler) Update(c *gin.Context) {
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateWorkspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, badRequest("%v", err))
		return
	}

	id, err := h.workspaceService.Update(c.Request.Context(), workspaceID, req.Name)
	if err != nil {
		fail(c, err)
		return
	}

	h.log.Info("Workspace renamed", "workspace_id", id)
	c.JSON(http.StatusOK, gin.H{"id": id})
}

func (h *WorkspaceHandler) Search(c *gin.Context) {
	workspaceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	results, err := h.searchService.Search(c.Request.Context(), workspaceID, c.Query("q"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
