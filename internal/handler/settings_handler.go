package handler

import (
	"net/http"

	"bookkeeping/internal/service"
	"bookkeeping/pkg/response"

	"github.com/gin-gonic/gin"
)

type SettingsHandler struct {
	settingsService service.SettingsService
}

func NewSettingsHandler(settingsService service.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

type bulkSettingsRequest struct {
	Settings []service.SettingInput `json:"settings" binding:"required,dive"`
}

func (h *SettingsHandler) List(c *gin.Context) {
	res, err := h.settingsService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *SettingsHandler) Get(c *gin.Context) {
	res, err := h.settingsService.Get(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// Set creates or replaces one setting
// @Summary      Update setting
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        key      path      string                     true  "Setting key"
// @Param        payload  body      service.SetSettingRequest  true  "Value"
// @Success      200      {object}  response.Response{data=service.SettingView}
// @Failure      400      {object}  response.Response
// @Router       /settings/{key} [put]
func (h *SettingsHandler) Set(c *gin.Context) {
	var req service.SetSettingRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.settingsService.Set(c.Request.Context(), c.Param("key"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *SettingsHandler) BulkSet(c *gin.Context) {
	var req bulkSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.settingsService.BulkSet(c.Request.Context(), req.Settings)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// Import loads settings from an export; nothing is written when any entry is invalid
// @Summary      Import settings
// @Tags         settings
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ImportSettingsRequest  true  "Settings"
// @Success      200      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /settings/import [post]
func (h *SettingsHandler) Import(c *gin.Context) {
	var req service.ImportSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	n, err := h.settingsService.Import(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage(gin.H{"imported": n}, "Settings imported"))
}

func (h *SettingsHandler) Export(c *gin.Context) {
	res, err := h.settingsService.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *SettingsHandler) Reset(c *gin.Context) {
	res, err := h.settingsService.Reset(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithMessage(res, "Settings restored to defaults"))
}

func (h *SettingsHandler) Company(c *gin.Context) {
	res, err := h.settingsService.Company(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *SettingsHandler) UpsertCompany(c *gin.Context) {
	var req service.CompanyRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.settingsService.UpsertCompany(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}
