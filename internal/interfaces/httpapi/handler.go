package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kmcbride/sleeper-exposure/internal/domain/exposure"
	"github.com/kmcbride/sleeper-exposure/internal/usecase"
)

type Handler struct {
	exposureService *usecase.ExposureService
	logger          *slog.Logger
	validator       *validator.Validate
}

func NewHandler(exposureService *usecase.ExposureService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		exposureService: exposureService,
		logger:          logger,
		validator:       validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetExposure(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetExposure")
	defer span.End()

	query := r.URL.Query()
	req := exposureRequest{
		Username:   strings.TrimSpace(query.Get("username")),
		Season:     strings.TrimSpace(query.Get("season")),
		SeasonType: strings.TrimSpace(query.Get("season_type")),
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.exposureService.Run(ctx, usecase.ExposureInput{
		Username:   req.Username,
		Season:     req.Season,
		SeasonType: req.SeasonType,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "exposure run failed", "username", req.Username, "season", req.Season, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, exposureResultToDTO(ctx, result))
}

func (h *Handler) GetLatestExposure(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLatestExposure")
	defer span.End()

	snapshot := h.exposureService.Latest()
	dto := exposureSnapshotDTO{
		Loading:      snapshot.Loading,
		ErrorMessage: snapshot.ErrorMessage,
	}
	if snapshot.Result != nil {
		result := exposureResultToDTO(ctx, *snapshot.Result)
		dto.Result = &result
	}

	writeSuccess(ctx, w, http.StatusOK, dto)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

type exposureRequest struct {
	Username   string `validate:"required,max=64"`
	Season     string `validate:"required,len=4,numeric"`
	SeasonType string `validate:"omitempty,oneof=regular pre post"`
}

type exposureSnapshotDTO struct {
	Loading      bool               `json:"loading"`
	ErrorMessage string             `json:"error,omitempty"`
	Result       *exposureResultDTO `json:"result,omitempty"`
}

type exposureResultDTO struct {
	Username      string              `json:"username"`
	Season        string              `json:"season"`
	SeasonType    string              `json:"seasonType"`
	TotalLeagues  int                 `json:"totalLeagues"`
	Degraded      bool                `json:"degraded"`
	FailedLeagues []string            `json:"failedLeagues,omitempty"`
	Players       []playerExposureDTO `json:"players"`
}

type playerExposureDTO struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Position    string        `json:"position"`
	Team        string        `json:"team"`
	LeagueCount int           `json:"leagueCount"`
	Leagues     []leagueDTO   `json:"leagues"`
	ESPNID      string        `json:"espnId,omitempty"`
	HeadshotURL string        `json:"headshotUrl"`
	PointsPPR   float64       `json:"pointsPpr"`
	StatLines   []statLineDTO `json:"statLines,omitempty"`
}

type leagueDTO struct {
	Name     string `json:"name"`
	RosterID int    `json:"rosterId"`
}

type statLineDTO struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

func exposureResultToDTO(ctx context.Context, result usecase.ExposureResult) exposureResultDTO {
	ctx, span := startSpan(ctx, "httpapi.exposureResultToDTO")
	defer span.End()

	players := make([]playerExposureDTO, 0, len(result.Players))
	for _, p := range result.Players {
		players = append(players, playerExposureToDTO(ctx, p))
	}

	return exposureResultDTO{
		Username:      result.Username,
		Season:        result.Season,
		SeasonType:    result.SeasonType,
		TotalLeagues:  result.TotalLeagues,
		Degraded:      result.Degraded,
		FailedLeagues: result.FailedLeagues,
		Players:       players,
	}
}

func playerExposureToDTO(ctx context.Context, p exposure.PlayerExposure) playerExposureDTO {
	ctx, span := startSpan(ctx, "httpapi.playerExposureToDTO")
	defer span.End()

	leagues := make([]leagueDTO, 0, len(p.Leagues))
	for _, l := range p.Leagues {
		leagues = append(leagues, leagueDTO{Name: l.Name, RosterID: l.RosterID})
	}

	lines := usecase.ProjectStats(p.Position, p.Stats)
	statLines := make([]statLineDTO, 0, len(lines))
	for _, line := range lines {
		statLines = append(statLines, statLineDTO{Label: line.Label, Value: line.Value})
	}

	return playerExposureDTO{
		ID:          p.ID,
		Name:        p.Name,
		Position:    string(p.Position),
		Team:        p.Team,
		LeagueCount: p.LeagueCount,
		Leagues:     leagues,
		ESPNID:      p.ESPNID,
		HeadshotURL: usecase.HeadshotURL(p.ESPNID),
		PointsPPR:   p.Stats.PointsPPR,
		StatLines:   statLines,
	}
}
