package handlers

import (
	"os"

	"github.com/gin-gonic/gin"

	"github.com/itsmesamster/reduce-app/internal/services"
	"github.com/itsmesamster/reduce-app/pkg/pagination"
	"github.com/itsmesamster/reduce-app/pkg/response"
)

// ReportHandler serves the stored sync reports.
type ReportHandler struct {
	reports *services.ReportService
}

func NewReportHandler(reports *services.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// List returns the report file names, newest first, paged.
func (h *ReportHandler) List(c *gin.Context) {
	names, err := h.reports.List()
	if err != nil {
		response.ServerError(c, "failed to list sync reports")
		return
	}
	params := pagination.ParsePageParams(c)
	start, end := params.Bounds(len(names))
	pageInfo := pagination.NewPageInfo(params.Page, params.PageSize, int64(len(names)))
	response.SuccessWithPage(c, names[start:end], pageInfo)
}

// Get returns one stored report by file name.
func (h *ReportHandler) Get(c *gin.Context) {
	name := c.Param("name")
	report, err := h.reports.Load(name)
	if err != nil {
		if os.IsNotExist(err) {
			response.NotFound(c, "sync report not found")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, report)
}

// Latest returns the most recent stored report.
func (h *ReportHandler) Latest(c *gin.Context) {
	names, err := h.reports.List()
	if err != nil || len(names) == 0 {
		response.NotFound(c, "no sync reports stored yet")
		return
	}
	report, err := h.reports.Load(names[0])
	if err != nil {
		response.ServerError(c, "failed to load the latest sync report")
		return
	}
	response.Success(c, report)
}
