package split

import (
	"net/http"
	"strconv"

	"royalty-split-manager/internal/domain"
	"royalty-split-manager/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("role_in_song", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case domain.RoleWriter, domain.RoleArtist, domain.RoleMusician, domain.RoleProducer, domain.RoleLabel:
				return true
			}
			return false
		})
	}
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Percentages cross the HTTP boundary in the 0-100 convention and are
// converted to 0..1 fractions before they reach the ledger.

type publishingEntityEntry struct {
	PublishingEntityID  uint64  `json:"publishing_entity_id" binding:"required"`
	OwnershipPercentage float64 `json:"ownership_percentage"`
}

type SetPublishingEntitiesRequest struct {
	Entities []publishingEntityEntry `json:"entities" binding:"required,min=1,dive"`
}

func (h *Handler) SetPublishingEntities(c *gin.Context) {
	workID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid work id", err))
		return
	}

	var form SetPublishingEntitiesRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.UnprocessableEntity("Invalid publishing entities payload", err))
		return
	}

	entries := make([]PublishingEntityInput, 0, len(form.Entities))
	for _, e := range form.Entities {
		entries = append(entries, PublishingEntityInput{
			PublishingEntityID: e.PublishingEntityID,
			Percentage:         e.OwnershipPercentage / 100,
		})
	}

	shares, err := h.service.SetPublishingEntities(c.Request.Context(), workID, entries)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"publishing_entity_shares": shares})
}

type LabelShareRequest struct {
	LabelMasterShare *float64 `json:"label_master_share" binding:"required"`
}

func (h *Handler) SetLabelShare(c *gin.Context) {
	workID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid work id", err))
		return
	}

	var form LabelShareRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.UnprocessableEntity("Invalid label share payload", err))
		return
	}

	if err := h.service.SetLabelMasterShare(c.Request.Context(), workID, *form.LabelMasterShare/100); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"label_master_share": *form.LabelMasterShare})
}

type collaboratorShareEntry struct {
	CollaboratorID uint64  `json:"collaborator_id" binding:"required"`
	RoleInSong     string  `json:"role_in_song" binding:"required,role_in_song"`
	Ownership      float64 `json:"ownership"`
}

type SetCollaboratorSharesRequest struct {
	Facet  string                   `json:"facet" binding:"required,oneof=publishing master"`
	Shares []collaboratorShareEntry `json:"shares" binding:"required,dive"`
}

func (h *Handler) SetCollaboratorShares(c *gin.Context) {
	workID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid work id", err))
		return
	}

	var form SetCollaboratorSharesRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.UnprocessableEntity("Invalid collaborator shares payload", err))
		return
	}

	entries := make([]CollaboratorShareEntry, 0, len(form.Shares))
	for _, e := range form.Shares {
		entries = append(entries, CollaboratorShareEntry{
			CollaboratorID: e.CollaboratorID,
			RoleInSong:     e.RoleInSong,
			Ownership:      e.Ownership / 100,
		})
	}

	if err := h.service.SetCollaboratorShares(c.Request.Context(), workID, form.Facet, entries); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}

type LockRequest struct {
	Facet string `json:"facet" binding:"required,oneof=publishing master"`
}

func (h *Handler) Lock(c *gin.Context) {
	workID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid work id", err))
		return
	}

	var form LockRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.UnprocessableEntity("Invalid lock payload", err))
		return
	}

	if err := h.service.Lock(c.Request.Context(), workID, form.Facet); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"locked": form.Facet})
}

func (h *Handler) ShowSplits(c *gin.Context) {
	workID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.Error(errors.BadRequest("Invalid work id", err))
		return
	}

	result, err := h.service.GetSplits(c.Request.Context(), workID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
