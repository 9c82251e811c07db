package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isshoni-club/club-api/internal/gateway"
	"github.com/isshoni-club/club-api/internal/models"
	"github.com/isshoni-club/club-api/internal/store"
)

func newResourceHandler(t *testing.T) *ResourceHandler {
	t.Helper()
	return NewResourceHandler(store.NewResources(gateway.NewMemory(), nil, noopLogger()))
}

func validResourceInput() store.ResourceInput {
	return store.ResourceInput{
		Title:    "Particle guide",
		Type:     models.ResourceLink,
		URL:      "https://example.com/particles",
		Category: models.CategoryGrammar,
		Level:    models.LevelBeginner,
	}
}

func TestResourceHandlerCreateAndList(t *testing.T) {
	h := newResourceHandler(t)

	c, rec := testContext(t, http.MethodPost, "/resources", validResourceInput())
	asAdmin(c)
	h.Create(c)
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = testContext(t, http.MethodGet, "/resources", nil)
	asStudent(c, "student-1")
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var resources []models.Resource
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resources))
	require.Len(t, resources, 1)
	assert.Equal(t, "Particle guide", resources[0].Title)
	assert.Equal(t, "admin-1", resources[0].CreatedBy)
}

func TestResourceHandlerCreateRejectsInvalidType(t *testing.T) {
	h := newResourceHandler(t)

	input := validResourceInput()
	input.Type = "podcast"
	c, rec := testContext(t, http.MethodPost, "/resources", input)
	asAdmin(c)
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResourceHandlerUpdatePreservesOtherFields(t *testing.T) {
	h := newResourceHandler(t)

	c, rec := testContext(t, http.MethodPost, "/resources", validResourceInput())
	asAdmin(c)
	h.Create(c)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Resource
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))

	title := "Particle guide v2"
	c, rec = testContext(t, http.MethodPut, "/resources/"+created.ID, store.ResourceUpdate{Title: &title})
	asAdmin(c)
	setParam(c, "id", created.ID)
	h.Update(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var resources []models.Resource
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &resources))
	require.Len(t, resources, 1)
	assert.Equal(t, title, resources[0].Title)
	assert.Equal(t, models.CategoryGrammar, resources[0].Category)
}

func TestResourceHandlerDeleteIsIdempotent(t *testing.T) {
	h := newResourceHandler(t)

	c, rec := testContext(t, http.MethodDelete, "/resources/ghost", nil)
	asAdmin(c)
	setParam(c, "id", "ghost")
	h.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
