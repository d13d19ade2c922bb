package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/planify/analytics-service/internal/model"
	"github.com/planify/analytics-service/internal/repo"
	"github.com/planify/analytics-service/internal/service"
)

// RegisterHandlers mounts the read-only analytics query surface. The service
// owns all aggregate state; nothing here mutates.
func RegisterHandlers(r *gin.Engine, svc *service.AnalyticsService) {
	api := r.Group("/api/analytics")
	{
		api.GET("/events", eventsByDateRangeHandler(svc))
		api.GET("/events/:eventId", eventMetricsHandler(svc))
		api.GET("/events/:eventId/activities", eventActivitiesHandler(svc))
		api.GET("/organizations/:organizationId/events", organizationEventsHandler(svc))
		api.GET("/users/:userId/activities", userActivitiesHandler(svc))
		api.GET("/system/active-events", activeEventsHandler(svc))
		api.GET("/system/metrics/:name", systemMetricsHandler(svc))
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func eventMetricsHandler(svc *service.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathUUID(c, "eventId")
		if !ok {
			return
		}
		m, err := svc.GetEventMetrics(c, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "event metrics not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, m)
	}
}

func eventsByDateRangeHandler(svc *service.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		fromStr := c.DefaultQuery("from", time.Now().AddDate(0, -1, 0).Format(time.RFC3339))
		toStr := c.DefaultQuery("to", time.Now().AddDate(0, 1, 0).Format(time.RFC3339))
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from"})
			return
		}
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to"})
			return
		}
		rows, err := svc.GetEventMetricsByDateRange(c, from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func organizationEventsHandler(svc *service.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathUUID(c, "organizationId")
		if !ok {
			return
		}
		rows, err := svc.GetEventMetricsByOrganization(c, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func userActivitiesHandler(svc *service.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathUUID(c, "userId")
		if !ok {
			return
		}
		if sinceStr := c.Query("since"); sinceStr != "" {
			since, err := time.Parse(time.RFC3339, sinceStr)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
				return
			}
			rows, err := svc.GetRecentUserActivities(c, id, since)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusOK, rows)
			return
		}
		rows, err := svc.GetUserActivities(c, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func eventActivitiesHandler(svc *service.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathUUID(c, "eventId")
		if !ok {
			return
		}
		rows, err := svc.GetEventActivities(c, id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func activeEventsHandler(svc *service.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := svc.GetActiveEventsCount(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"activeEvents": n})
	}
}

func systemMetricsHandler(svc *service.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := model.MetricName(c.Param("name"))
		rows, err := svc.GetSystemMetricsByName(c, name)
		if err != nil {
			if errors.Is(err, service.ErrInvalidMetricName) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
