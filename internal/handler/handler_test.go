package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/middleware"
	"github.com/isshoni-club/club-api/internal/models"
	"github.com/isshoni-club/club-api/internal/store"
)

type responseEnvelope struct {
	Data json.RawMessage        `json:"data"`
	Meta map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func testContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, rec
}

func asAdmin(c *gin.Context) *models.JWTClaims {
	claims := &models.JWTClaims{UserID: "admin-1", Email: "admin@club.jp", Name: "Tanaka Sensei", Role: models.RoleAdmin}
	c.Set(middleware.ContextUserKey, claims)
	return claims
}

func asStudent(c *gin.Context, id string) *models.JWTClaims {
	claims := &models.JWTClaims{UserID: id, Email: id + "@club.jp", Name: "Student " + id, Role: models.RoleStudent}
	c.Set(middleware.ContextUserKey, claims)
	return claims
}

func setParam(c *gin.Context, key, value string) {
	c.Params = append(c.Params, gin.Param{Key: key, Value: value})
}

// seedStudent writes a student user document straight into the gateway so
// leaderboard and grading paths have someone to point at.
func seedStudent(t *testing.T, gw gateway.Store, id, name string, points int) {
	t.Helper()
	user := models.NewStudent(id, name+"@club.jp", name, time.Now().UTC())
	user.Student.Points = points
	require.NoError(t, gw.SetByID(context.Background(), store.CollectionUsers, id, user))
}

func noopLogger() *zap.Logger {
	return zap.NewNop()
}
