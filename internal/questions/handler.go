package questions

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/studyloop/backend/internal/generator"
	"github.com/studyloop/backend/internal/models"
)

const maxGenerateCount = 5

type Handler struct {
	service *Service
	gen     *generator.Generator
}

func NewHandler(service *Service, gen *generator.Generator) *Handler {
	return &Handler{service: service, gen: gen}
}

// getLearnerID extracts the authenticated learner ID from the request context.
func getLearnerID(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value("learner_id").(int64)
	return id, ok
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := getLearnerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req models.ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.TopicID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "topic_id is required"})
		return
	}
	if req.Difficulty != "" && !req.Difficulty.Valid() {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be 'easy', 'medium', or 'hard'"})
		return
	}
	req.LearnerID = learnerID

	writeJSON(w, http.StatusOK, h.service.Resolve(req))
}

// Generate is the resolve-miss path: it calls the generative backend, drops
// near-duplicates of the session window, caches the survivors and returns
// them.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := getLearnerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req struct {
		models.ResolveRequest
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.TopicID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "topic_id is required"})
		return
	}
	if req.Count <= 0 {
		req.Count = 1
	}
	if req.Count > maxGenerateCount {
		req.Count = maxGenerateCount
	}
	req.LearnerID = learnerID
	if !req.Difficulty.Valid() {
		req.Difficulty = h.service.RecommendDifficulty(learnerID, req.TopicID).Difficulty
	}

	candidates, _, err := h.gen.GeneratePractice(r.Context(), req.ResolveRequest, req.Count)
	if err != nil {
		if errors.Is(err, generator.ErrUnparseable) {
			writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Generated output could not be parsed"})
			return
		}
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Printf("[handler] generation failed for learner %d: %v", learnerID, err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Generation failed"})
		return
	}

	questions := h.ingestCandidates(learnerID, req.TopicID, candidates, models.SourceCacheGenerated)
	if len(questions) == 0 {
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "No usable questions were generated"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"questions": questions})
}

func (h *Handler) ingestCandidates(learnerID int64, topicID string, candidates []models.GeneratedCandidate, source models.SourceTag) []models.QuestionRecord {
	ingest := h.service.IngestGenerated
	if source == models.SourceIngested {
		ingest = h.service.IngestExternal
	}

	var out []models.QuestionRecord
	for _, c := range candidates {
		if h.service.IsNearDuplicate(learnerID, topicID, c.Text) {
			log.Printf("[handler] dropping near-duplicate candidate for learner %d topic %s", learnerID, topicID)
			continue
		}
		id, err := ingest(c)
		if err != nil {
			log.Printf("WARN: [handler] failed to cache candidate: %v", err)
			continue
		}
		q, err := h.service.store.GetQuestion(id)
		if err != nil || q == nil {
			log.Printf("WARN: [handler] cached question %d not readable: %v", id, err)
			continue
		}
		h.service.deliver(models.ResolveRequest{LearnerID: learnerID, TopicID: topicID}, q)
		out = append(out, *q)
	}
	return out
}

// ExtractWorksheet runs a worksheet image through the vision path and caches
// every question it can read off the page.
func (h *Handler) ExtractWorksheet(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := getLearnerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req struct {
		models.ResolveRequest
		ImageMediaType string `json:"image_media_type"`
		ImageBase64    string `json:"image_base64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.TopicID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "topic_id is required"})
		return
	}
	if req.ImageBase64 == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "image_base64 is required"})
		return
	}
	if req.ImageMediaType == "" {
		req.ImageMediaType = "image/png"
	}
	req.LearnerID = learnerID
	if !req.Difficulty.Valid() {
		req.Difficulty = models.DifficultyMedium
	}

	candidates, _, err := h.gen.ExtractFromWorksheet(r.Context(), req.ResolveRequest, req.ImageMediaType, req.ImageBase64)
	if err != nil {
		if errors.Is(err, generator.ErrUnparseable) {
			writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Worksheet contents could not be parsed"})
			return
		}
		log.Printf("[handler] worksheet extraction failed for learner %d: %v", learnerID, err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Worksheet extraction failed"})
		return
	}
	if len(candidates) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: "No questions found on the worksheet"})
		return
	}

	questions := h.ingestCandidates(learnerID, req.TopicID, candidates, models.SourceIngested)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"questions": questions})
}

func (h *Handler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	q, err := h.service.store.GetQuestion(id)
	if err != nil {
		log.Printf("[handler] GetQuestion error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to load question"})
		return
	}
	if q == nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Question not found"})
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := getLearnerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	var req struct {
		TopicID string `json:"topic_id"`
		models.AnswerOutcome
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.TopicID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "topic_id is required"})
		return
	}
	if !req.Difficulty.Valid() {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "difficulty must be 'easy', 'medium', or 'hard'"})
		return
	}
	if req.Attempts <= 0 {
		req.Attempts = 1
	}
	req.QuestionID = &id

	writeJSON(w, http.StatusOK, h.service.RecordAnswer(learnerID, req.TopicID, req.AnswerOutcome))
}

func (h *Handler) GetExclusions(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := getLearnerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	topicID := r.URL.Query().Get("topic_id")
	if topicID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "topic_id is required"})
		return
	}

	ids := h.service.ExclusionSet(learnerID, topicID)
	if ids == nil {
		ids = []int64{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"topic_id": topicID, "exclusion_ids": ids})
}

func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := getLearnerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	topicID := r.URL.Query().Get("topic_id")
	if topicID == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "topic_id is required"})
		return
	}

	writeJSON(w, http.StatusOK, h.service.RecommendDifficulty(learnerID, topicID))
}

// ResetSession clears the session window. With a topic_id it resets one
// topic, without it resets everything for the learner.
func (h *Handler) ResetSession(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := getLearnerID(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication required"})
		return
	}

	var req struct {
		TopicID string `json:"topic_id"`
	}
	if r.Body != nil {
		// Body is optional; decode errors on an empty body are fine.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	h.service.ClearSession(learnerID, req.TopicID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
