package contract

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"royalty-split-manager/internal/errors"
	"royalty-split-manager/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) GenerateForWork(c *gin.Context) {
	workID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid work id", err))
		return
	}

	contracts, err := h.service.GenerateForWork(c.Request.Context(), workID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"contracts": contracts})
}

func (h *Handler) Send(c *gin.Context) {
	contractID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid contract id", err))
		return
	}

	contract, err := h.service.SendContract(c.Request.Context(), contractID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, contract)
}

func (h *Handler) ShowStatus(c *gin.Context) {
	contractID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid contract id", err))
		return
	}

	status, err := h.service.GetStatus(c.Request.Context(), contractID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Webhook ingests provider events. The body is either raw JSON or
// form-encoded with the JSON in a `json` field. Responds 200 with
// {received: true} for everything except a signature mismatch (401) or an
// unparseable body (400), so the provider does not storm retries on
// application-level conditions.
func (h *Handler) Webhook(c *gin.Context) {
	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil || len(rawBody) == 0 {
		c.Error(errors.BadRequest("Can't read webhook body", err))
		return
	}

	signatureHeader := c.GetHeader("x-signwell-signature")
	if signatureHeader == "" {
		signatureHeader = c.GetHeader("x-signature")
	}

	eventJSON := rawBody
	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		// The HMAC covers the raw request body; only event parsing uses
		// the extracted `json` field.
		if values, err := url.ParseQuery(string(rawBody)); err == nil {
			if jsonField := values.Get("json"); jsonField != "" {
				eventJSON = []byte(jsonField)
			}
		}
	}

	if err := h.service.HandleWebhook(c.Request.Context(), rawBody, eventJSON, signatureHeader); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *Handler) Download(c *gin.Context) {
	contractID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid contract id", err))
		return
	}

	doc, contract, err := h.service.GetDocument(c.Request.Context(), contractID)
	if err != nil {
		c.Error(err)
		return
	}

	filename := fmt.Sprintf(
		"%s_%s_%s.pdf",
		contract.TemplateType,
		slugify(contract.Work.Title),
		slugify(contract.CollaboratorShare.Collaborator.Name),
	)
	if doc.Signed {
		filename = "signed_" + filename
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", doc.Data)
}

func (h *Handler) ListWorkContracts(c *gin.Context) {
	workID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid work id", err))
		return
	}

	page, pageSize := utils.GetPaginationParams(c)
	contracts, meta, err := h.service.ListWorkContracts(c.Request.Context(), workID, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": contracts, "meta": meta})
}

func slugify(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
