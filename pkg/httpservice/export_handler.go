package httpservice

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/csvkit/pkg/export"
	"github.com/yourorg/csvkit/pkg/logging"
)

// ExportHandler serves the CSV render and export API under /api/v1/csv.
type ExportHandler struct {
	exporter *export.Exporter
	auth     []gin.HandlerFunc
}

// NewExportHandler creates the handler. auth, when given, guards every route.
func NewExportHandler(exporter *export.Exporter, auth ...gin.HandlerFunc) *ExportHandler {
	return &ExportHandler{exporter: exporter, auth: auth}
}

// Register implements Handler.
func (h *ExportHandler) Register(router *gin.Engine) {
	group := router.Group("/api/v1/csv", h.auth...)
	group.POST("/render", Wrap("csv.render", h.render))
	group.POST("/exports", Wrap("csv.export", h.create))
	group.GET("/exports/:id", Wrap("csv.download", h.download))
}

func (h *ExportHandler) render(c *gin.Context) error {
	var req export.Request
	if !BindJSON(c, &req) {
		return nil
	}

	content, rows, err := h.exporter.Render(req)
	if err != nil {
		return err
	}

	c.Header("X-Row-Count", strconv.Itoa(rows))
	c.Data(http.StatusOK, export.ContentType, []byte(content))
	return nil
}

func (h *ExportHandler) create(c *gin.Context) error {
	var req export.Request
	if !BindJSON(c, &req) {
		return nil
	}

	result, err := h.exporter.Export(c.Request.Context(), req)
	if err != nil {
		return err
	}

	c.Header("Location", "/api/v1/csv/exports/"+result.ID)
	CreatedResponse(c, result)
	return nil
}

func (h *ExportHandler) download(c *gin.Context) error {
	id := c.Param("id")
	rc, err := h.exporter.Open(c.Request.Context(), id)
	if err != nil {
		return err
	}
	defer rc.Close()

	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", id+".csv"))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		// The status line is already sent.
		GetLogger(c).Error("Failed to stream export",
			logging.NewField("export_id", id),
			logging.NewField("error", err),
		)
	}
	return nil
}
