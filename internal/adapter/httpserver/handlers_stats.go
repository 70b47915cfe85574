package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/johnbyeon/feelscore-sub000/internal/domain"
	apperrors "github.com/johnbyeon/feelscore-sub000/internal/platform/errors"
)

type analysisRequest struct {
	CategoryID int64          `json:"category_id"`
	Scores     map[string]int `json:"scores"`
}

type reactionRequest struct {
	CategoryID int64  `json:"category_id"`
	Emotion    string `json:"emotion"`
}

type switchReactionRequest struct {
	CategoryID int64  `json:"category_id"`
	From       string `json:"from"`
	To         string `json:"to"`
}

type toggleReactionRequest struct {
	UserID     string `json:"user_id"`
	CategoryID int64  `json:"category_id"`
	Emotion    string `json:"emotion"`
}

type rankingResponse struct {
	Metric     domain.RankMetric    `json:"metric"`
	CategoryID *int64               `json:"category_id,omitempty"`
	Rankings   []domain.EmotionRank `json:"rankings"`
}

func (s *Server) registerStatsRoutes(writeLimit echo.MiddlewareFunc) {
	api := s.echo.Group("/api")

	writes := api.Group("", writeLimit)
	writes.POST("/analysis/apply", s.handleApplyAnalysis)
	writes.POST("/analysis/revert", s.handleRevertAnalysis)
	writes.POST("/posts/:postID/analysis", s.handleRecordAnalysis)
	writes.DELETE("/posts/:postID/analysis", s.handleRemoveAnalysis)
	writes.POST("/reactions/apply", s.handleApplyReaction)
	writes.POST("/reactions/revert", s.handleRevertReaction)
	writes.POST("/reactions/switch", s.handleSwitchReaction)
	writes.POST("/posts/:postID/reactions", s.handleToggleReaction)

	api.GET("/rankings/count", s.handleRankByCount)
	api.GET("/rankings/score", s.handleRankByScore)
	api.GET("/rankings/categories/:categoryID", s.handleCategoryRanking)
}

func (s *Server) handleApplyAnalysis(c echo.Context) error {
	req, v, err := bindAnalysis(c)
	if err != nil {
		return err
	}
	if err := s.stats.ApplyAnalysis(c.Request().Context(), req.CategoryID, v); err != nil {
		return err
	}
	return respondOK(c)
}

func (s *Server) handleRevertAnalysis(c echo.Context) error {
	req, v, err := bindAnalysis(c)
	if err != nil {
		return err
	}
	if err := s.stats.RevertAnalysis(c.Request().Context(), req.CategoryID, v); err != nil {
		return err
	}
	return respondOK(c)
}

func (s *Server) handleRecordAnalysis(c echo.Context) error {
	postID, err := parsePostID(c)
	if err != nil {
		return err
	}
	req, v, err := bindAnalysis(c)
	if err != nil {
		return err
	}
	if err := s.analyses.Record(c.Request().Context(), postID, req.CategoryID, v); err != nil {
		return err
	}
	return respondOK(c)
}

func (s *Server) handleRemoveAnalysis(c echo.Context) error {
	postID, err := parsePostID(c)
	if err != nil {
		return err
	}
	if err := s.analyses.Remove(c.Request().Context(), postID); err != nil {
		return err
	}
	return respondOK(c)
}

func (s *Server) handleApplyReaction(c echo.Context) error {
	req, e, err := bindReaction(c)
	if err != nil {
		return err
	}
	if err := s.stats.ApplyReaction(c.Request().Context(), req.CategoryID, e); err != nil {
		return err
	}
	return respondOK(c)
}

func (s *Server) handleRevertReaction(c echo.Context) error {
	req, e, err := bindReaction(c)
	if err != nil {
		return err
	}
	if err := s.stats.RevertReaction(c.Request().Context(), req.CategoryID, e); err != nil {
		return err
	}
	return respondOK(c)
}

func (s *Server) handleSwitchReaction(c echo.Context) error {
	var req switchReactionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if err := validateCategoryID(req.CategoryID); err != nil {
		return err
	}
	from, err := domain.ParseEmotion(req.From)
	if err != nil {
		return apperrors.ValidationError("invalid from emotion").WithField("from", req.From)
	}
	to, err := domain.ParseEmotion(req.To)
	if err != nil {
		return apperrors.ValidationError("invalid to emotion").WithField("to", req.To)
	}
	if from == to {
		return apperrors.ValidationError("from and to must differ")
	}

	if err := s.stats.SwitchReaction(c.Request().Context(), req.CategoryID, from, to); err != nil {
		return err
	}
	return respondOK(c)
}

func (s *Server) handleToggleReaction(c echo.Context) error {
	postID, err := parsePostID(c)
	if err != nil {
		return err
	}

	var req toggleReactionRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return apperrors.ValidationError("invalid user_id").WithField("user_id", req.UserID)
	}
	if err := validateCategoryID(req.CategoryID); err != nil {
		return err
	}
	e, err := domain.ParseEmotion(req.Emotion)
	if err != nil {
		return apperrors.ValidationError("invalid emotion").WithField("emotion", req.Emotion)
	}

	action, err := s.reactions.Toggle(c.Request().Context(), postID, userID, req.CategoryID, e)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, map[string]string{"action": string(action)}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleRankByCount(c echo.Context) error {
	rankings, err := s.stats.RankByCount(c.Request().Context())
	if err != nil {
		return err
	}
	return respondRanking(c, rankingResponse{Metric: domain.RankByCount, Rankings: rankings})
}

func (s *Server) handleRankByScore(c echo.Context) error {
	rankings, err := s.stats.RankByScore(c.Request().Context())
	if err != nil {
		return err
	}
	return respondRanking(c, rankingResponse{Metric: domain.RankByScore, Rankings: rankings})
}

func (s *Server) handleCategoryRanking(c echo.Context) error {
	raw := c.Param("categoryID")
	categoryID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || categoryID <= 0 {
		return apperrors.ValidationError("invalid category ID").WithField("category_id", raw)
	}

	rankings, err := s.stats.CategoryRanking(c.Request().Context(), categoryID)
	if err != nil {
		return err
	}
	return respondRanking(c, rankingResponse{Metric: domain.RankByScore, CategoryID: &categoryID, Rankings: rankings})
}

func bindAnalysis(c echo.Context) (analysisRequest, domain.Vector, error) {
	var req analysisRequest
	if err := c.Bind(&req); err != nil {
		return req, domain.Vector{}, apperrors.ValidationError("invalid request body")
	}
	if err := validateCategoryID(req.CategoryID); err != nil {
		return req, domain.Vector{}, err
	}
	for name, score := range req.Scores {
		if score < 0 {
			return req, domain.Vector{}, apperrors.ValidationError("scores must be non-negative").WithField("emotion", name)
		}
	}
	v, err := domain.VectorFromNames(req.Scores)
	if err != nil {
		return req, domain.Vector{}, apperrors.ValidationError("invalid emotion in scores").Wrap(err)
	}
	return req, v, nil
}

func bindReaction(c echo.Context) (reactionRequest, domain.Emotion, error) {
	var req reactionRequest
	if err := c.Bind(&req); err != nil {
		return req, 0, apperrors.ValidationError("invalid request body")
	}
	if err := validateCategoryID(req.CategoryID); err != nil {
		return req, 0, err
	}
	e, err := domain.ParseEmotion(req.Emotion)
	if err != nil {
		return req, 0, apperrors.ValidationError("invalid emotion").WithField("emotion", req.Emotion)
	}
	return req, e, nil
}

func parsePostID(c echo.Context) (uuid.UUID, error) {
	raw := c.Param("postID")
	postID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.ValidationError("invalid post ID").WithField("post_id", raw)
	}
	return postID, nil
}

func validateCategoryID(id int64) error {
	if id <= 0 {
		return apperrors.ValidationError("category_id is required")
	}
	return nil
}

func respondOK(c echo.Context) error {
	if err := c.JSON(http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func respondRanking(c echo.Context, resp rankingResponse) error {
	if resp.Rankings == nil {
		resp.Rankings = []domain.EmotionRank{}
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
