package server

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/MikhailHal/IlluMefy-Guardian/internal/domain"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

type EditHistoryReader interface {
	GetByID(ctx context.Context, id string) (*domain.CreatorEditHistory, error)
	List(ctx context.Context, limit, offset int) ([]domain.CreatorEditHistory, error)
}

// Server exposes the read-only ops surface: health plus recent edit
// history, for operators checking what the guardian has seen and marked.
type Server struct {
	histories EditHistoryReader
	db        *sql.DB
}

func NewServer(histories EditHistoryReader, db *sql.DB) *Server {
	return &Server{
		histories: histories,
		db:        db,
	}
}

func (s *Server) HealthCheck(c echo.Context) error {
	if err := s.db.Ping(); err != nil {
		log.WithField("error", err).Error("Health check failed: database is down")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database connection error",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) ListEditHistories(c echo.Context) error {
	limit := 20
	offset := 0

	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid limit parameter",
			})
		}
		limit = parsed
	}
	if limit > 100 {
		limit = 100
	}

	if raw := c.QueryParam("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "invalid offset parameter",
			})
		}
		offset = parsed
	}

	ctx := c.Request().Context()
	histories, err := s.histories.List(ctx, limit, offset)
	if err != nil {
		log.WithError(err).Error("Failed to list edit histories")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, histories)
}

func (s *Server) GetEditHistory(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "edit history ID is required",
		})
	}

	ctx := c.Request().Context()
	history, err := s.histories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrEditHistoryNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "edit history not found",
			})
		}
		log.WithError(err).WithField("edit_history_id", id).Error("Failed to get edit history")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, history)
}
