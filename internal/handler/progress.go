package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/auth"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/service"
)

const invalidChallengeIDMessage = "유효하지 않은 challengeId입니다."

type updateStatusRequest struct {
	UserID      string            `json:"userId"      validate:"required"`
	DailyStatus model.DailyStatus `json:"dailyStatus" validate:"required,len=21"`
	StartDate   *model.Date       `json:"startDate"   validate:"required"`
}

var updateStatusMessages = fieldMessages{
	"userId":          "userId, dailyStatus, startDate는 필수입니다.",
	"dailyStatus":     "userId, dailyStatus, startDate는 필수입니다.",
	"startDate":       "userId, dailyStatus, startDate는 필수입니다.",
	"dailyStatus.len": fmt.Sprintf("dailyStatus는 %d개의 값을 가져야 합니다.", model.ChallengeDays),
}

type updateStatusResponse struct {
	Message       string               `json:"message"`
	UserChallenge *model.UserChallenge `json:"userChallenge"`
}

type userStatusResponse struct {
	DailyStatus model.DailyStatus `json:"dailyStatus"`
	StartDate   model.Date        `json:"startDate"`
}

// ProgressHandler serves the per-user 21-day grid and the community views
// built from everybody's grids.
type ProgressHandler struct {
	progress  *service.ProgressService
	community *service.CommunityService
	logger    *slog.Logger
}

func NewProgressHandler(progress *service.ProgressService, community *service.CommunityService, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{progress: progress, community: community, logger: logger}
}

// HandleUpdateStatus saves the caller's grid for a challenge.
//
// HTTP: POST /challenges/{id}/status
// Auth: Required. The body's userId must be the logged-in user.
// REQUEST BODY:
//
//	{"userId":"12345","dailyStatus":[true,false,...21 items],"startDate":"2024-01-01"}
func (h *ProgressHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	challengeID, err := challengeIDParam(r, invalidChallengeIDMessage)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := validateRequest(&req, updateStatusMessages); err != nil {
		writeError(w, h.logger, err)
		return
	}

	sessionUser, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized("로그인이 필요합니다."))
		return
	}
	if req.UserID != sessionUser {
		h.logger.Warn("status update for another user rejected",
			slog.String("sessionUser", sessionUser),
			slog.String("userId", req.UserID),
		)
		writeError(w, h.logger, apperror.Forbidden("본인의 챌린지 현황만 수정할 수 있습니다."))
		return
	}

	uc, err := h.progress.UpdateStatus(r.Context(), service.UpdateStatusInput{
		ChallengeID: challengeID,
		UserID:      req.UserID,
		DailyStatus: req.DailyStatus,
		StartDate:   req.StartDate,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, updateStatusResponse{
		Message:       "챌린지 현황이 업데이트되었습니다.",
		UserChallenge: uc,
	})
}

// HandleUserStatus returns one user's saved grid.
//
// HTTP: GET /challenges/{id}/user-status/{userId}
// 404 when the user never saved progress for this challenge.
func (h *ProgressHandler) HandleUserStatus(w http.ResponseWriter, r *http.Request) {
	challengeID, err := challengeIDParam(r, invalidChallengeIDMessage)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	uc, err := h.progress.GetStatus(r.Context(), challengeID, chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, userStatusResponse{
		DailyStatus: uc.DailyStatus,
		StartDate:   uc.StartDate,
	})
}

// HandleCommunityStatus returns every participant's completion rate.
//
// HTTP: GET /challenges/{id}/community-status
func (h *ProgressHandler) HandleCommunityStatus(w http.ResponseWriter, r *http.Request) {
	challengeID, err := challengeIDParam(r, invalidChallengeIDMessage)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	entries, err := h.community.CommunityStatus(r.Context(), challengeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleParticipants lists enrolled users by nickname.
//
// HTTP: GET /challenges/{id}/participants
func (h *ProgressHandler) HandleParticipants(w http.ResponseWriter, r *http.Request) {
	challengeID, err := challengeIDParam(r, invalidChallengeIDMessage)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	participants, err := h.community.Participants(r.Context(), challengeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if participants == nil {
		participants = []model.Participant{}
	}
	writeJSON(w, http.StatusOK, participants)
}
