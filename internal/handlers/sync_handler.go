package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/itsmesamster/reduce-app/internal/services"
	"github.com/itsmesamster/reduce-app/pkg/response"
)

// SyncHandler exposes the scheduler state and manual sync triggers.
type SyncHandler struct {
	scheduler *services.SyncScheduler
}

func NewSyncHandler(scheduler *services.SyncScheduler) *SyncHandler {
	return &SyncHandler{scheduler: scheduler}
}

// Status reports whether the scheduler ticks and what runs next.
func (h *SyncHandler) Status(c *gin.Context) {
	response.Success(c, h.scheduler.Status())
}

// TriggerKpmSync starts one KPM cycle in the background.
func (h *SyncHandler) TriggerKpmSync(c *gin.Context) {
	h.scheduler.TriggerKpmSync()
	response.SuccessWithMessage(c, "KPM sync cycle triggered", nil)
}

// TriggerJiraSync starts one Jira to Jira cycle in the background.
func (h *SyncHandler) TriggerJiraSync(c *gin.Context) {
	h.scheduler.TriggerJiraSync()
	response.SuccessWithMessage(c, "Jira to Jira sync cycle triggered", nil)
}
