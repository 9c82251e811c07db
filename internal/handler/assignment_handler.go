package handler

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/isshoni-club/club-api/internal/middleware"
	"github.com/isshoni-club/club-api/internal/store"
	appErrors "github.com/isshoni-club/club-api/pkg/errors"
	"github.com/isshoni-club/club-api/pkg/response"
	"github.com/isshoni-club/club-api/pkg/storage"
)

// AssignmentHandler exposes assignment, submission, and grading endpoints.
type AssignmentHandler struct {
	assignments *store.Assignments
	files       *storage.FileStore
	signer      *storage.SignedURLSigner
	maxUpload   int64
}

// NewAssignmentHandler creates a new handler. files and signer may be nil
// when uploads are disabled; file submission endpoints then reject requests.
func NewAssignmentHandler(assignments *store.Assignments, files *storage.FileStore, signer *storage.SignedURLSigner, maxUpload int64) *AssignmentHandler {
	return &AssignmentHandler{
		assignments: assignments,
		files:       files,
		signer:      signer,
		maxUpload:   maxUpload,
	}
}

// List godoc
// @Summary List assignments
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [get]
func (h *AssignmentHandler) List(c *gin.Context) {
	assignments, err := h.assignments.Fetch(c.Request.Context())
	if err != nil {
		cached, status := h.assignments.Snapshot()
		if len(cached) > 0 {
			response.JSON(c, http.StatusOK, cached, map[string]interface{}{"stale": true, "error": status.Error})
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Pending godoc
// @Summary List the caller's pending assignments
// @Description Assignments without a submission by the signed-in student
// @Tags Assignments
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/pending [get]
func (h *AssignmentHandler) Pending(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if _, err := h.assignments.Fetch(c.Request.Context()); err != nil {
		if cached, _ := h.assignments.Snapshot(); len(cached) == 0 {
			response.Error(c, err)
			return
		}
	}
	pending, status := h.assignments.Pending(claims.UserID)
	meta := map[string]interface{}{}
	if status.Error != "" {
		meta["stale"] = true
		meta["error"] = status.Error
	}
	response.JSON(c, http.StatusOK, pending, meta)
}

// Create godoc
// @Summary Create an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body store.AssignmentInput true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req store.AssignmentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	assignment, err := h.assignments.Add(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Update godoc
// @Summary Edit an assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body store.AssignmentUpdate true "Partial edit"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) Update(c *gin.Context) {
	var req store.AssignmentUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	if err := h.assignments.Update(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	assignments, _ := h.assignments.Snapshot()
	response.JSON(c, http.StatusOK, assignments, nil)
}

// Delete godoc
// @Summary Delete an assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	if err := h.assignments.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Submit godoc
// @Summary Submit an assignment
// @Description Text submission; one per student per assignment, replaced on resubmit until graded
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param payload body store.SubmitInput true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/submissions [post]
func (h *AssignmentHandler) Submit(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req store.SubmitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid submission payload"))
		return
	}
	submission, err := h.assignments.Submit(c.Request.Context(), c.Param("id"), claims.UserID, claims.Name, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// SubmitFile godoc
// @Summary Submit an assignment with a file
// @Description Multipart upload; the stored file is referenced by a signed URL on the submission
// @Tags Assignments
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Assignment ID"
// @Param file formData file true "Submission file"
// @Param content formData string false "Optional text content"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/submissions/file [post]
func (h *AssignmentHandler) SubmitFile(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if h.files == nil || h.signer == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file uploads are disabled"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file field required"))
		return
	}
	if h.maxUpload > 0 && fileHeader.Size > h.maxUpload {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file too large"))
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "open upload"))
		return
	}
	defer src.Close()

	assignmentID := c.Param("id")
	stored := fmt.Sprintf("%s_%s_%s", assignmentID, claims.UserID, filepath.Base(fileHeader.Filename))
	relPath, err := h.files.SaveStream(stored, src)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "store upload"))
		return
	}

	submission, err := h.assignments.Submit(c.Request.Context(), assignmentID, claims.UserID, claims.Name, store.SubmitInput{
		Content:  c.PostForm("content"),
		FileURL:  relPath,
		FileName: fileHeader.Filename,
	})
	if err != nil {
		_ = h.files.Delete(relPath)
		response.Error(c, err)
		return
	}

	token, expires, err := h.signer.Generate(submission.ID, relPath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "sign download url"))
		return
	}
	response.Created(c, gin.H{
		"submission":  submission,
		"downloadUrl": "/files/submissions?token=" + token,
		"expiresAt":   expires,
	})
}

// Download godoc
// @Summary Download a submission file
// @Description Validates the signed token and streams the stored file
// @Tags Assignments
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /files/submissions [get]
func (h *AssignmentHandler) Download(c *gin.Context) {
	if h.files == nil || h.signer == nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	_, relPath, _, err := h.signer.Parse(token)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token"))
		return
	}
	c.FileAttachment(h.files.Path(relPath), filepath.Base(relPath))
}

// Grade godoc
// @Summary Grade a submission
// @Description Sets points, feedback, and graded status; re-grading overwrites
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Assignment ID"
// @Param studentId path string true "Student ID"
// @Param payload body store.GradeInput true "Grade payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /assignments/{id}/submissions/{studentId}/grade [post]
func (h *AssignmentHandler) Grade(c *gin.Context) {
	var req store.GradeInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid grade payload"))
		return
	}
	submission, err := h.assignments.Grade(c.Request.Context(), c.Param("id"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}
