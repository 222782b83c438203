package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	testutils "github.com/hyepartners-gmail/message-testing-api/api/controllers/testing"
	"github.com/hyepartners-gmail/message-testing-api/api/models"
	"github.com/hyepartners-gmail/message-testing-api/logging"
	"github.com/hyepartners-gmail/message-testing-api/storage"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdminRouter(t *testing.T) (*gin.Engine, *storage.MemoryMessageStorage, *storage.MemoryPairStorage) {
	t.Helper()
	logging.Log = logrus.New()
	t.Setenv("ADMIN_TOKEN", "secret")

	messageStorage := storage.NewMemoryMessageStorage()
	pairStorage := storage.NewMemoryPairStorage()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	adminController := NewAdminController(messageStorage, pairStorage)
	adminController.RegisterRoutes(r)
	metaController := NewMessageMetaController(messageStorage, pairStorage)
	metaController.RegisterRoutes(r)

	return r, messageStorage, pairStorage
}

func adminHeaders() map[string]string {
	return map[string]string{"x-admin-token": "secret"}
}

func TestAdminAuth(t *testing.T) {
	router, _, _ := setupAdminRouter(t)

	t.Run("missing token is unauthorized", func(t *testing.T) {
		w := testutils.PerformRequest(router, http.MethodGet, "/api/admin/messages", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong token is unauthorized", func(t *testing.T) {
		w := testutils.PerformRequest(router, http.MethodGet, "/api/admin/messages", nil,
			map[string]string{"x-admin-token": "wrong"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAdminMessageLifecycle(t *testing.T) {
	router, _, _ := setupAdminRouter(t)

	// Create
	createRes := testutils.PerformRequest(router, http.MethodPost, "/api/admin/messages", models.CreateMessageRequest{
		Slogan:  "Clean energy now",
		Subline: "Jobs and lower bills",
		Status:  storage.MessageStatusActive,
		Rank:    2,
	}, adminHeaders())
	require.Equal(t, http.StatusOK, createRes.Code)

	var created storage.Message
	require.NoError(t, json.Unmarshal(createRes.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, storage.MessageStatusActive, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	// Patch
	newSlogan := "Clean energy today"
	patchRes := testutils.PerformRequest(router, http.MethodPatch, "/api/admin/messages/"+created.ID,
		models.PatchMessageRequest{Slogan: &newSlogan}, adminHeaders())
	require.Equal(t, http.StatusOK, patchRes.Code)

	var patched storage.Message
	require.NoError(t, json.Unmarshal(patchRes.Body.Bytes(), &patched))
	assert.Equal(t, newSlogan, patched.Slogan)
	assert.Equal(t, "Jobs and lower bills", patched.Subline, "untouched fields survive a patch")

	// Delete is a soft archive
	deleteRes := testutils.PerformRequest(router, http.MethodDelete, "/api/admin/messages/"+created.ID, nil, adminHeaders())
	require.Equal(t, http.StatusOK, deleteRes.Code)

	var archived storage.Message
	require.NoError(t, json.Unmarshal(deleteRes.Body.Bytes(), &archived))
	assert.Equal(t, storage.MessageStatusArchived, archived.Status)

	// Still listed for admins after archiving
	listRes := testutils.PerformRequest(router, http.MethodGet, "/api/admin/messages", nil, adminHeaders())
	require.Equal(t, http.StatusOK, listRes.Code)

	var all []storage.Message
	require.NoError(t, json.Unmarshal(listRes.Body.Bytes(), &all))
	assert.Len(t, all, 1)
}

func TestAdminMessageValidation(t *testing.T) {
	router, _, _ := setupAdminRouter(t)

	t.Run("missing slogan", func(t *testing.T) {
		w := testutils.PerformRequest(router, http.MethodPost, "/api/admin/messages",
			models.CreateMessageRequest{Subline: "only a subline"}, adminHeaders())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid status", func(t *testing.T) {
		w := testutils.PerformRequest(router, http.MethodPost, "/api/admin/messages",
			models.CreateMessageRequest{Slogan: "A slogan", Status: "published"}, adminHeaders())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("patching a missing message is 404", func(t *testing.T) {
		rank := 1
		w := testutils.PerformRequest(router, http.MethodPatch, "/api/admin/messages/NOPE",
			models.PatchMessageRequest{Rank: &rank}, adminHeaders())
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAdminReorderMessages(t *testing.T) {
	router, messages, _ := setupAdminRouter(t)
	require.NoError(t, messages.Create(context.Background(), &storage.Message{ID: "m1", Slogan: "one", Status: storage.MessageStatusActive, Rank: 1}))
	require.NoError(t, messages.Create(context.Background(), &storage.Message{ID: "m2", Slogan: "two", Status: storage.MessageStatusActive, Rank: 2}))

	w := testutils.PerformRequest(router, http.MethodPost, "/api/admin/messages/reorder", models.ReorderMessagesRequest{
		Order: []models.ReorderEntry{{ID: "m1", Rank: 2}, {ID: "m2", Rank: 1}},
	}, adminHeaders())
	require.Equal(t, http.StatusOK, w.Code)

	metaRes := testutils.PerformRequest(router, http.MethodGet, "/api/meta/messages", nil, nil)
	require.Equal(t, http.StatusOK, metaRes.Code)

	var active []storage.Message
	require.NoError(t, json.Unmarshal(metaRes.Body.Bytes(), &active))
	require.Len(t, active, 2)
	assert.Equal(t, "m2", active[0].ID, "meta listing follows the new rank order")
	assert.Equal(t, "m1", active[1].ID)
}

func TestAdminPairs(t *testing.T) {
	router, messages, _ := setupAdminRouter(t)
	require.NoError(t, messages.Create(context.Background(), &storage.Message{ID: "m1", Slogan: "one", Status: storage.MessageStatusActive}))
	require.NoError(t, messages.Create(context.Background(), &storage.Message{ID: "m2", Slogan: "two", Status: storage.MessageStatusActive}))

	t.Run("pair must reference two different messages", func(t *testing.T) {
		w := testutils.PerformRequest(router, http.MethodPost, "/api/admin/pairs",
			models.CreatePairRequest{MessageA: "m1", MessageB: "m1"}, adminHeaders())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("pair must reference existing messages", func(t *testing.T) {
		w := testutils.PerformRequest(router, http.MethodPost, "/api/admin/pairs",
			models.CreatePairRequest{MessageA: "m1", MessageB: "ghost"}, adminHeaders())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("happy path create and patch", func(t *testing.T) {
		createRes := testutils.PerformRequest(router, http.MethodPost, "/api/admin/pairs",
			models.CreatePairRequest{MessageA: "m1", MessageB: "m2", Rank: 1}, adminHeaders())
		require.Equal(t, http.StatusOK, createRes.Code)

		var pair storage.ABPair
		require.NoError(t, json.Unmarshal(createRes.Body.Bytes(), &pair))
		assert.NotEmpty(t, pair.ID)
		assert.Equal(t, storage.MessageStatusActive, pair.Status)

		archived := storage.MessageStatusArchived
		patchRes := testutils.PerformRequest(router, http.MethodPatch, "/api/admin/pairs/"+pair.ID,
			models.PatchPairRequest{Status: &archived}, adminHeaders())
		require.Equal(t, http.StatusOK, patchRes.Code)

		metaRes := testutils.PerformRequest(router, http.MethodGet, "/api/meta/pairs", nil, nil)
		require.Equal(t, http.StatusOK, metaRes.Code)
		var activePairs []storage.ABPair
		require.NoError(t, json.Unmarshal(metaRes.Body.Bytes(), &activePairs))
		assert.Empty(t, activePairs, "archived pairs disappear from the public listing")
	})
}
