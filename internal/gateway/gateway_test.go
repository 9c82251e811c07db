package gateway

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalRejectsNonObject(t *testing.T) {
	_, err := Marshal([]string{"a", "b"})
	assert.Error(t, err)

	_, err = Marshal("plain string")
	assert.Error(t, err)

	raw, err := Marshal(map[string]string{"name": "hiragana"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"hiragana"}`, string(raw))
}

func TestMergePatchShallowMerge(t *testing.T) {
	base := json.RawMessage(`{"title":"Week 1","points":10,"tags":["a"]}`)
	patch := json.RawMessage(`{"points":25,"feedback":"good"}`)

	merged, err := MergePatch(base, patch)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Week 1","points":25,"tags":["a"],"feedback":"good"}`, string(merged))
}

func TestMergePatchRejectsInvalidBase(t *testing.T) {
	_, err := MergePatch(json.RawMessage(`[1,2]`), json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestSortDocumentsByStringField(t *testing.T) {
	docs := []Document{
		{ID: "b", Data: json.RawMessage(`{"timestamp":"2026-03-02T10:00:00Z"}`)},
		{ID: "a", Data: json.RawMessage(`{"timestamp":"2026-03-01T10:00:00Z"}`)},
		{ID: "c", Data: json.RawMessage(`{"timestamp":"2026-03-03T10:00:00Z"}`)},
	}

	SortDocuments(docs, "timestamp", true)
	assert.Equal(t, []string{"a", "b", "c"}, ids(docs))

	SortDocuments(docs, "timestamp", false)
	assert.Equal(t, []string{"c", "b", "a"}, ids(docs))
}

func TestSortDocumentsByNumericField(t *testing.T) {
	docs := []Document{
		{ID: "low", Data: json.RawMessage(`{"points":5}`)},
		{ID: "high", Data: json.RawMessage(`{"points":120}`)},
		{ID: "mid", Data: json.RawMessage(`{"points":40}`)},
	}

	SortDocuments(docs, "points", false)
	assert.Equal(t, []string{"high", "mid", "low"}, ids(docs))
}

func TestSortDocumentsMissingFieldSortsLast(t *testing.T) {
	docs := []Document{
		{ID: "missing", Data: json.RawMessage(`{"other":1}`)},
		{ID: "present", Data: json.RawMessage(`{"points":1}`)},
	}

	SortDocuments(docs, "points", true)
	assert.Equal(t, []string{"present", "missing"}, ids(docs))
}

func TestSortDocumentsStableOnTies(t *testing.T) {
	docs := []Document{
		{ID: "first", Data: json.RawMessage(`{"points":10}`)},
		{ID: "second", Data: json.RawMessage(`{"points":10}`)},
		{ID: "third", Data: json.RawMessage(`{"points":10}`)},
	}

	SortDocuments(docs, "points", false)
	assert.Equal(t, []string{"first", "second", "third"}, ids(docs))
}

func ids(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}
