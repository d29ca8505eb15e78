// internal/handlers/alert.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"alertmap/internal/models"
	"alertmap/internal/repository"
	"alertmap/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

type AlertHandler struct {
	alertService *services.AlertService
}

func NewAlertHandler(alertService *services.AlertService) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// GetAlerts - полный упорядоченный список
func (h *AlertHandler) GetAlerts(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	alerts, version, err := h.alertService.Snapshot(ctx)
	if err != nil {
		logrus.WithError(err).Error("Error fetching alerts")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error fetching alerts",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts":  alerts,
		"version": version,
	})
}

// GetLatestTimestamp - время последнего алерта без загрузки списка
func (h *AlertHandler) GetLatestTimestamp(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	ts, ok, err := h.alertService.LatestTimestamp(ctx)
	if err != nil {
		logrus.WithError(err).Error("Error fetching latest alert")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Error fetching latest alert",
		})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No alerts yet",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"created_at": ts,
	})
}

// CreateAlert - запись с id, выделенным сервером
func (h *AlertHandler) CreateAlert(c *gin.Context) {
	h.create(c, "")
}

// CommitAlert - запись с id, заранее выделенным клиентом
func (h *AlertHandler) CommitAlert(c *gin.Context) {
	id := c.Param("id")
	if err := services.ValidateID(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid alert ID",
			"details": err.Error(),
		})
		return
	}
	h.create(c, id)
}

func (h *AlertHandler) create(c *gin.Context, id string) {
	var req models.AlertRecord
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request data",
			"details": describeBindError(err),
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	alert, err := h.alertService.Create(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidID), errors.Is(err, services.ErrInvalidRecord):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request data",
				"details": err.Error(),
			})
		case errors.Is(err, repository.ErrDuplicateID):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Alert already exists",
			})
		default:
			logrus.WithError(err).Error("Error creating alert")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Error creating alert",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, alert)
}

func describeBindError(err error) interface{} {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}
