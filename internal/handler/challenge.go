package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jinzhu/copier"

	"github.com/sakif/challenge-tracker/internal/apperror"
	"github.com/sakif/challenge-tracker/internal/model"
	"github.com/sakif/challenge-tracker/internal/service"
)

// countResponse mirrors the "_count" object the frontend reads.
type countResponse struct {
	UserChallenges int `json:"userChallenges"`
}

// challengeResponse is a challenge as GET /challenges/{id} returns it.
type challengeResponse struct {
	ID          int64         `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Icon        string        `json:"icon"`
	Color       string        `json:"color"`
	BgGradient  string        `json:"bgGradient"`
	Duration    string        `json:"duration"`
	Difficulty  string        `json:"difficulty"`
	CreatedAt   time.Time     `json:"createdAt"`
	Count       countResponse `json:"_count"`
}

type participantResponse struct {
	Nickname          string  `json:"nickname"`
	ProfilePictureURL *string `json:"profilePictureUrl"`
}

// challengeListItem adds the avatars shown on a catalogue card.
type challengeListItem struct {
	challengeResponse
	ParticipantsPreview []participantResponse `json:"participantsPreview"`
}

func toChallengeResponse(s *model.ChallengeSummary) (challengeResponse, error) {
	var resp challengeResponse
	if err := copier.Copy(&resp, &s.Challenge); err != nil {
		return resp, fmt.Errorf("handler: mapping challenge %d: %w", s.ID, err)
	}
	resp.Count.UserChallenges = s.ParticipantCount
	return resp, nil
}

func toChallengeListItem(s *model.ChallengeSummary) (challengeListItem, error) {
	base, err := toChallengeResponse(s)
	if err != nil {
		return challengeListItem{}, err
	}
	item := challengeListItem{
		challengeResponse:   base,
		ParticipantsPreview: []participantResponse{},
	}
	if len(s.Preview) > 0 {
		if err := copier.Copy(&item.ParticipantsPreview, &s.Preview); err != nil {
			return item, fmt.Errorf("handler: mapping preview of challenge %d: %w", s.ID, err)
		}
	}
	return item, nil
}

type createChallengeRequest struct {
	Title       string `json:"title"       validate:"required"`
	Description string `json:"description"`
}

type updateChallengeRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// ChallengeHandler serves the challenge catalogue.
//
// HTTP → ChallengeHandler → ChallengeService → ChallengeRepository
type ChallengeHandler struct {
	service *service.ChallengeService
	logger  *slog.Logger
}

func NewChallengeHandler(svc *service.ChallengeService, logger *slog.Logger) *ChallengeHandler {
	return &ChallengeHandler{service: svc, logger: logger}
}

// HandleList returns the whole catalogue.
//
// HTTP: GET /challenges
//
// RESPONSE FORMAT:
//
//	[
//	  {"id":1,"title":"매일 물 2L 마시기",...,"_count":{"userChallenges":3},
//	   "participantsPreview":[{"nickname":"...","profilePictureUrl":null}]},
//	  ...
//	]
func (h *ChallengeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]challengeListItem, 0, len(summaries))
	for i := range summaries {
		item, err := toChallengeListItem(&summaries[i])
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, items)
}

// HandleGet returns one challenge.
//
// HTTP: GET /challenges/{id}
func (h *ChallengeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := challengeIDParam(r, "유효하지 않은 챌린지 ID입니다.")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	summary, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := toChallengeResponse(summary)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCreate adds a challenge to the catalogue.
//
// HTTP: POST /challenges
// REQUEST BODY: {"title": "매일 물 2L 마시기", "description": "..."}
func (h *ChallengeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := validateRequest(&req, fieldMessages{"title": "제목은 필수입니다."}); err != nil {
		writeError(w, h.logger, err)
		return
	}

	challenge, err := h.service.Create(r.Context(), service.CreateChallengeInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, challenge)
}

// HandleUpdate changes title and/or description.
//
// HTTP: PUT /challenges/{id}
func (h *ChallengeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := challengeIDParam(r, "유효하지 않은 챌린지 ID입니다.")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var req updateChallengeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	challenge, err := h.service.Update(r.Context(), id, service.UpdateChallengeInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, challenge)
}

// HandleDelete removes a challenge.
//
// HTTP: DELETE /challenges/{id}
// 204 on success, 409 while users are still enrolled.
func (h *ChallengeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := challengeIDParam(r, "유효하지 않은 챌린지 ID입니다.")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// challengeIDParam parses the {id} URL parameter. Only positive integers
// are accepted; "12abc" is rejected rather than read as 12.
func challengeIDParam(r *http.Request, message string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", message)
	}
	return id, nil
}
