package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bookkeeping/internal/logger"
	"bookkeeping/internal/middleware"
	"bookkeeping/internal/repository"
	"bookkeeping/pkg/apperror"
	"bookkeeping/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// exposeErrorsKey marks requests whose 500 responses may carry the underlying error text
const exposeErrorsKey = "expose_errors"

// exposeErrors is installed on the router in development
func exposeErrors(c *gin.Context) {
	c.Set(exposeErrorsKey, true)
	c.Next()
}

// respondError translates err into the standard envelope
func respondError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	status := appErr.StatusCode()

	switch {
	case status >= http.StatusInternalServerError:
		logger.FromGin(c).Error("Request failed", zap.Error(err))
		_ = c.Error(err)
		msg := appErr.Message
		if c.GetBool(exposeErrorsKey) && appErr.Err != nil {
			msg = appErr.Error()
		}
		c.JSON(status, response.Error(msg))
	case appErr.Kind == apperror.KindValidation && len(appErr.Details) > 0:
		c.JSON(status, response.ValidationError(appErr.Message, appErr.Details))
	default:
		c.JSON(status, response.Error(appErr.Message))
	}
}

// bindJSON decodes the body into req and writes the error envelope on failure
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

// bindQuery decodes query parameters into req and writes the error envelope on failure
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		respondError(c, bindingError(err))
		return false
	}
	return true
}

func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]apperror.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, apperror.FieldError{Field: fieldPath(fe), Message: validationMessage(fe)})
		}
		return apperror.Validation("Request validation failed", details...)
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return apperror.TooLarge("Request body exceeds maximum allowed size")
	}
	return apperror.Validation("Invalid request payload")
}

// fieldPath drops the top-level struct name from the namespace (Request.items[0].name -> items[0].name)
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "len":
		return fmt.Sprintf("Must be exactly %s characters", fe.Param())
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "lte":
		return "Must be less than or equal to " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "numeric":
		return "Must contain digits only"
	case "date":
		return "Must be a date in YYYY-MM-DD format"
	case "yearmonth":
		return "Must be a month in YYYY-MM format"
	case "period":
		return "Must be YYYY-MM or YYYY"
	}
	return "Invalid value"
}

// ok writes a 200 success envelope
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, response.Success(data))
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, response.Success(data))
}

// idParam parses the :id path parameter
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperror.Validation("Invalid id",
			apperror.FieldError{Field: "id", Message: "Must be a positive integer"}))
		return 0, false
	}
	return uint(id), true
}

// intQuery reads an optional integer query parameter; absent means 0
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		respondError(c, apperror.Validation("Invalid query parameter",
			apperror.FieldError{Field: name, Message: "Must be an integer"}))
		return 0, false
	}
	return n, true
}

// rangeQuery holds the start_date/end_date query parameters shared by stats endpoints
type rangeQuery struct {
	StartDate string `form:"start_date" binding:"omitempty,date"`
	EndDate   string `form:"end_date" binding:"omitempty,date"`
}

func dateRange(c *gin.Context) (repository.DateRange, bool) {
	var q rangeQuery
	if !bindQuery(c, &q) {
		return repository.DateRange{}, false
	}
	return repository.DateRange{Start: q.StartDate, End: q.EndDate}, true
}

func userID(c *gin.Context) string {
	return middleware.UserID(c)
}
