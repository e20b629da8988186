package http

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/edulearn-hub/enrollment-hub/internal/application/command"
	"github.com/edulearn-hub/enrollment-hub/internal/application/query"
	"github.com/edulearn-hub/enrollment-hub/internal/domain/quiz"
	"github.com/edulearn-hub/enrollment-hub/internal/interface/http/handlers"
	"github.com/edulearn-hub/enrollment-hub/pkg/logger"
)

// Identity headers set by the API gateway after authenticating the caller.
// This service trusts them; it never sees end-user credentials.
const (
	headerStudentID    = "X-Student-ID"
	headerInstructorID = "X-Instructor-ID"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot serves the root endpoint with basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":        "EduLearn Hub Enrollment API",
		"version":     "v1",
		"description": "Enrollment and progress tracking service for EduLearn Hub",
		"endpoints": map[string]string{
			"health":      "/health",
			"enrollment":  "/api/v1/enrollments/{id}",
			"enrollments": "/api/v1/students/{id}/enrollments",
			"progress":    "/api/v1/courses/{id}/progress",
		},
	}

	writeJSON(w, http.StatusOK, info)
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Healthy {
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		writeJSON(w, http.StatusOK, status)
		return
	}

	// Default health response
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  s.Uptime().String(),
		"version": "v1",
	})
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.HealthChecker != nil {
		status := s.deps.HealthChecker.Check(r.Context())
		if !status.Ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not_ready",
				"reason": status.Message,
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT READ HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetEnrollment handles GET /api/v1/enrollments/{id}
func (s *Server) handleGetEnrollment(w http.ResponseWriter, r *http.Request) {
	studentID := r.Header.Get(headerStudentID)
	if studentID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Student-ID header is required")
		return
	}
	if s.deps.GetEnrollmentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment handler not configured")
		return
	}

	q := query.GetEnrollmentQuery{
		EnrollmentID:    r.PathValue("id"),
		StudentID:       studentID,
		IncludeProgress: getQueryParamBool(r, "include_progress"),
	}

	result, err := s.deps.GetEnrollmentHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Warn("failed to get enrollment",
			logger.EnrollmentID(q.EnrollmentID),
			logger.Err(err))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListStudentEnrollments handles GET /api/v1/students/{id}/enrollments
func (s *Server) handleListStudentEnrollments(w http.ResponseWriter, r *http.Request) {
	studentID := r.PathValue("id")
	if caller := r.Header.Get(headerStudentID); caller != "" && caller != studentID {
		writeJSONError(w, http.StatusForbidden, "forbidden", "Cannot list another student's enrollments")
		return
	}
	if s.deps.ListStudentEnrollmentsHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Enrollment list handler not configured")
		return
	}

	q := query.ListStudentEnrollmentsQuery{
		StudentID: studentID,
		Status:    getQueryParam(r, "status", ""),
		Offset:    getQueryParamInt(r, "offset", 0),
		Limit:     getQueryParamInt(r, "limit", 50),
	}

	result, err := s.deps.ListStudentEnrollmentsHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Warn("failed to list enrollments",
			logger.StudentID(studentID),
			logger.Err(err))
		writeDomainError(w, err)
		return
	}

	meta := &ResponseMeta{
		TotalCount: result.Count,
		Offset:     result.Offset,
		Limit:      result.Limit,
	}

	writeJSONWithMeta(w, r, http.StatusOK, result, meta)
}

// handleGetCourseProgress handles GET /api/v1/courses/{id}/progress
// Instructor-facing: a per-student progress roll-up for one course.
func (s *Server) handleGetCourseProgress(w http.ResponseWriter, r *http.Request) {
	instructorID := r.Header.Get(headerInstructorID)
	if instructorID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Instructor-ID header is required")
		return
	}
	if s.deps.GetCourseProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Course progress handler not configured")
		return
	}

	q := query.GetCourseProgressQuery{
		CourseID:     r.PathValue("id"),
		InstructorID: instructorID,
		Offset:       getQueryParamInt(r, "offset", 0),
		Limit:        getQueryParamInt(r, "limit", 100),
	}

	result, err := s.deps.GetCourseProgressHandler.Handle(r.Context(), q)
	if err != nil {
		s.logger.Warn("failed to get course progress",
			logger.CourseID(q.CourseID),
			logger.Err(err))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS WRITE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// lessonProgressRequest is one watch-time report from the player.
type lessonProgressRequest struct {
	// CurrentTime is the player position (or increment) in seconds.
	CurrentTime float64 `json:"current_time"`

	// Duration is the lesson duration in seconds. Zero keeps the stored value.
	Duration int `json:"duration,omitempty"`

	// Absolute selects position semantics: true means CurrentTime is the
	// player position, false means it is a watched increment.
	Absolute bool `json:"absolute"`
}

// handleUpdateLessonProgress handles POST /api/v1/enrollments/{id}/lessons/{lessonID}/progress
func (s *Server) handleUpdateLessonProgress(w http.ResponseWriter, r *http.Request) {
	studentID := r.Header.Get(headerStudentID)
	if studentID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Student-ID header is required")
		return
	}
	if s.deps.UpdateLessonProgressHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Lesson progress handler not configured")
		return
	}

	var req lessonProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	cmd := command.UpdateLessonProgressCommand{
		EnrollmentID:  r.PathValue("id"),
		StudentID:     studentID,
		LessonID:      r.PathValue("lessonID"),
		CurrentTime:   req.CurrentTime,
		Duration:      req.Duration,
		Absolute:      req.Absolute,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.UpdateLessonProgressHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.logger.Warn("failed to update lesson progress",
			logger.EnrollmentID(cmd.EnrollmentID),
			logger.LessonID(cmd.LessonID),
			logger.Err(err))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// quizAttemptRequest is one quiz submission.
type quizAttemptRequest struct {
	Answers []quizAnswerPayload `json:"answers"`
}

// quizAnswerPayload is the answer to one question.
type quizAnswerPayload struct {
	QuestionID      string `json:"question_id"`
	SelectedOptions []int  `json:"selected_options"`
}

// handleSubmitQuizAttempt handles POST /api/v1/enrollments/{id}/quizzes/{quizID}/attempts
func (s *Server) handleSubmitQuizAttempt(w http.ResponseWriter, r *http.Request) {
	studentID := r.Header.Get(headerStudentID)
	if studentID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Student-ID header is required")
		return
	}
	if s.deps.SubmitQuizAttemptHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Quiz attempt handler not configured")
		return
	}

	var req quizAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	answers := make([]quiz.Answer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, quiz.Answer{
			QuestionID:      a.QuestionID,
			SelectedOptions: a.SelectedOptions,
		})
	}

	cmd := command.SubmitQuizAttemptCommand{
		EnrollmentID:  r.PathValue("id"),
		StudentID:     studentID,
		QuizID:        r.PathValue("quizID"),
		Answers:       answers,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.SubmitQuizAttemptHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.logger.Warn("failed to submit quiz attempt",
			logger.EnrollmentID(cmd.EnrollmentID),
			logger.QuizID(cmd.QuizID),
			logger.Err(err))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleDropEnrollment handles POST /api/v1/enrollments/{id}/drop
func (s *Server) handleDropEnrollment(w http.ResponseWriter, r *http.Request) {
	studentID := r.Header.Get(headerStudentID)
	if studentID == "" {
		writeJSONError(w, http.StatusUnauthorized, "missing_identity", "X-Student-ID header is required")
		return
	}
	if s.deps.DropEnrollmentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Drop handler not configured")
		return
	}

	cmd := command.DropEnrollmentCommand{
		EnrollmentID:  r.PathValue("id"),
		StudentID:     studentID,
		CorrelationID: getRequestID(r.Context()),
	}

	result, err := s.deps.DropEnrollmentHandler.Handle(r.Context(), cmd)
	if err != nil {
		s.logger.Warn("failed to drop enrollment",
			logger.EnrollmentID(cmd.EnrollmentID),
			logger.Err(err))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// deleteEnrollmentRequest carries the audit fields for an admin deletion.
type deleteEnrollmentRequest struct {
	RequestedBy string `json:"requested_by"`
	Reason      string `json:"reason"`
}

// handleDeleteEnrollment handles DELETE /api/v1/admin/enrollments/{id}
// Soft delete: the row and its progress entries stay in the database.
func (s *Server) handleDeleteEnrollment(w http.ResponseWriter, r *http.Request) {
	if s.deps.DeleteEnrollmentHandler == nil {
		writeJSONError(w, http.StatusNotImplemented, "not_implemented", "Delete handler not configured")
		return
	}

	var req deleteEnrollmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	cmd := command.DeleteEnrollmentCommand{
		EnrollmentID: r.PathValue("id"),
		RequestedBy:  req.RequestedBy,
		Reason:       req.Reason,
	}

	if err := s.deps.DeleteEnrollmentHandler.Handle(r.Context(), cmd); err != nil {
		s.logger.Warn("failed to delete enrollment",
			logger.EnrollmentID(cmd.EnrollmentID),
			logger.Err(err))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"enrollment_id": cmd.EnrollmentID,
		"status":        "deleted",
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// WEBHOOK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleOrderWebhook handles POST /webhook/orders
func (s *Server) handleOrderWebhook(w http.ResponseWriter, r *http.Request) {
	s.processOrderWebhook(w, r, r.Header.Get("X-Webhook-Secret"))
}

// handleOrderWebhookWithToken handles POST /webhook/orders/{token}
func (s *Server) handleOrderWebhookWithToken(w http.ResponseWriter, r *http.Request) {
	s.processOrderWebhook(w, r, r.PathValue("token"))
}

// processOrderWebhook is the internal implementation for webhook processing.
//
// The commerce system redelivers on non-2xx. A malformed payload answers 400
// without redelivery hope; a handler failure answers 500 so the event comes
// back - redelivery of a valid event is idempotent downstream.
func (s *Server) processOrderWebhook(w http.ResponseWriter, r *http.Request, secret string) {
	if s.config.WebhookSecret != "" &&
		subtle.ConstantTimeCompare([]byte(secret), []byte(s.config.WebhookSecret)) != 1 {
		s.logger.Warn("invalid webhook secret", logger.String("ip", getClientIP(r)))
		writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid webhook secret")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		s.logger.Error("failed to read webhook body", logger.Err(err))
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Failed to read request body")
		return
	}
	defer r.Body.Close()

	if s.deps.OrderWebhook != nil {
		if err := s.deps.OrderWebhook.HandleOrderCompleted(r.Context(), body); err != nil {
			s.logger.Error("failed to handle order webhook",
				logger.Err(err),
				logger.String("request_id", getRequestID(r.Context())))

			if errors.Is(err, handlers.ErrInvalidPayload) {
				writeJSONError(w, http.StatusBadRequest, "invalid_request", "Invalid webhook payload")
				return
			}
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to process order event")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
