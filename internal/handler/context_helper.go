package handler

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-portal-api/internal/dto"
	"github.com/noah-isme/campus-portal-api/internal/middleware"
	"github.com/noah-isme/campus-portal-api/internal/models"
)

func actorFromContext(c *gin.Context) *models.Actor {
	return middleware.CurrentActor(c)
}

func batchQueryFromContext(c *gin.Context) dto.BatchQuery {
	query := dto.BatchQuery{}
	if rawStatus := c.Query("status"); rawStatus != "" {
		for _, part := range strings.Split(rawStatus, ",") {
			part = strings.ToLower(strings.TrimSpace(part))
			if part != "" {
				query.Status = append(query.Status, part)
			}
		}
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.Query("page_size")); err == nil {
		query.PageSize = size
	}
	return query
}
