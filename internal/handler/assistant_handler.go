package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"bookkeeping/internal/ocr"
	"bookkeeping/internal/service"
	"bookkeeping/pkg/apperror"
	"bookkeeping/pkg/response"

	"github.com/gin-gonic/gin"
)

// receiptField is the multipart field carrying the receipt image
const receiptField = "receipt"

type AssistantHandler struct {
	assistantService service.AssistantService
}

func NewAssistantHandler(assistantService service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistantService: assistantService}
}

// ClassifyTransaction suggests a category for a transaction description
// @Summary      Classify transaction
// @Tags         assistant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ClassifyRequest  true  "Transaction"
// @Success      200      {object}  response.Response{data=service.Classification}
// @Router       /assistant/classify-transaction [post]
func (h *AssistantHandler) ClassifyTransaction(c *gin.Context) {
	var req service.ClassifyRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.assistantService.Classify(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// Chat answers a free-text question about the caller's books
// @Summary      Assistant chat
// @Tags         assistant
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ChatRequest  true  "Message"
// @Success      200      {object}  response.Response{data=service.ChatReply}
// @Router       /assistant/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req service.ChatRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.assistantService.Chat(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *AssistantHandler) SmartReport(c *gin.Context) {
	var req service.SmartReportRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	res, err := h.assistantService.SmartReport(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// ScanReceipt extracts receipt fields from an uploaded image; save=true records a pending expense
// @Summary      Scan receipt
// @Tags         assistant
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        receipt  formData  file    true   "Receipt image"
// @Param        save     formData  bool    false  "Record the receipt as an expense"
// @Success      200      {object}  response.Response{data=service.ScanResult}
// @Failure      400      {object}  response.Response
// @Router       /assistant/scan-receipt [post]
func (h *AssistantHandler) ScanReceipt(c *gin.Context) {
	img, err := receiptImage(c)
	if err != nil {
		respondError(c, err)
		return
	}
	save, _ := strconv.ParseBool(c.PostForm("save"))
	res, err := h.assistantService.ScanReceipt(c.Request.Context(), userID(c), img, save)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func receiptImage(c *gin.Context) (ocr.Image, error) {
	fh, err := c.FormFile(receiptField)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return ocr.Image{}, apperror.TooLarge("Request body exceeds maximum allowed size")
		}
		return ocr.Image{}, apperror.Validation("Receipt image is required",
			apperror.FieldError{Field: receiptField, Message: "This field is required"})
	}
	f, err := fh.Open()
	if err != nil {
		return ocr.Image{}, apperror.Wrap(err, "Failed to read receipt image")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return ocr.Image{}, apperror.Wrap(err, "Failed to read receipt image")
	}
	return ocr.Image{FileName: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: data}, nil
}

func (h *AssistantHandler) Reminders(c *gin.Context) {
	res, err := h.assistantService.Reminders(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *AssistantHandler) HealthScore(c *gin.Context) {
	res, err := h.assistantService.HealthScore(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *AssistantHandler) Insights(c *gin.Context) {
	res, err := h.assistantService.Insights(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *AssistantHandler) TaskSuggestions(c *gin.Context) {
	res, err := h.assistantService.TaskSuggestions(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *AssistantHandler) FinancialGoals(c *gin.Context) {
	res, err := h.assistantService.FinancialGoals(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *AssistantHandler) AutomationSuggestions(c *gin.Context) {
	res, err := h.assistantService.AutomationSuggestions(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

func (h *AssistantHandler) BackupStatus(c *gin.Context) {
	res, err := h.assistantService.BackupStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// Backup snapshots the database and uploads it when off-site storage is configured
// @Summary      Create backup
// @Tags         assistant
// @Produce      json
// @Security     BearerAuth
// @Success      201  {object}  response.Response{data=model.Backup}
// @Router       /assistant/backup [post]
func (h *AssistantHandler) Backup(c *gin.Context) {
	backup, err := h.assistantService.Backup(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.SuccessWithMessage(backup, "Backup created"))
}

func (h *AssistantHandler) ReceiptTemplates(c *gin.Context) {
	ok(c, h.assistantService.ReceiptTemplates())
}
