package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/0x0BSoD/greenwood/internal/cache"
	"github.com/0x0BSoD/greenwood/internal/cms"
	"github.com/0x0BSoD/greenwood/internal/content"
	"github.com/0x0BSoD/greenwood/internal/mailer"
	"github.com/0x0BSoD/greenwood/internal/metrics"
	"github.com/0x0BSoD/greenwood/internal/model"
)

const (
	errInvalidJSON      = "Invalid JSON body"
	errSubjectRequired  = "Subject is required"
	errContentRequired  = "Either text or html content is required"
	errSendFailed       = "Failed to send email"
	errRevalidateFailed = "Error revalidating"
)

type sendEmailRequest struct {
	Subject string `json:"subject" binding:"required"`
	Text    string `json:"text" binding:"required_without=HTML"`
	HTML    string `json:"html" binding:"required_without=Text"`
}

func (s *Server) sendEmail(c *gin.Context) {
	log := s.log.Named("email")

	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidJSON})
			return
		}
		msg := errContentRequired
		if strings.TrimSpace(req.Subject) == "" {
			msg = errSubjectRequired
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	// A blank subject is missing even though the validator accepted it.

	if strings.TrimSpace(req.Subject) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errSubjectRequired})
		return
	}

	err := s.mailer.Send(c.Request.Context(), mailer.Message{
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	})
	if err != nil {
		log.Error("send email", zap.String("subject", req.Subject), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errSendFailed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) upcomingEvents(c *gin.Context) {
	events, err := s.content.UpcomingEvents(c.Request.Context(), s.opts.Now())
	if err != nil {
		s.log.Named("events").Error("fetch upcoming events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"events": []model.Event{}})
		return
	}
	if events == nil {
		events = []model.Event{}
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) notificationsCount(c *gin.Context) {
	now := s.opts.Now()

	items, err := s.content.NotificationsCreatedSince(c.Request.Context(), model.StartOfDay(now))
	if err != nil {
		s.log.Named("notifications").Error("count notifications", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"count": 0})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": content.CountCreatedToday(items, now)})
}

type revalidateRequest struct {
	Tags []string `json:"tags"`
	Path *string  `json:"path"`
}

func (s *Server) revalidate(c *gin.Context) {
	log := s.log.Named("revalidate")
	ctx := c.Request.Context()

	var req revalidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("decode request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": errRevalidateFailed})
		return
	}

	invalidated := make([]string, 0, len(req.Tags))
	for _, tag := range cms.ExpandTags(req.Tags) {
		n, err := s.cache.InvalidateTag(ctx, tag)
		if err != nil {
			metrics.CacheInvalidations.WithLabelValues("tag", "error").Inc()
			log.Error("invalidate tag", zap.String("tag", tag), zap.Error(err))
			continue
		}
		metrics.CacheInvalidations.WithLabelValues("tag", "ok").Inc()
		log.Info("invalidated tag", zap.String("tag", tag), zap.Int("entries", n))
		invalidated = append(invalidated, tag)
	}

	var invalidatedPath *string
	if req.Path != nil && strings.TrimSpace(*req.Path) != "" {
		path := *req.Path
		n, err := cache.InvalidatePath(ctx, s.cache, path)
		if err != nil {
			metrics.CacheInvalidations.WithLabelValues("path", "error").Inc()
			log.Error("invalidate path", zap.String("path", path), zap.Error(err))
		} else {
			metrics.CacheInvalidations.WithLabelValues("path", "ok").Inc()
			log.Info("invalidated path", zap.String("path", path), zap.Int("entries", n))
			invalidatedPath = &path
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"invalidatedTags": invalidated,
		"invalidatedPath": invalidatedPath,
	})
}
