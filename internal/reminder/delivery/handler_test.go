package delivery

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authdelivery "miinplanner-backend/internal/auth/delivery"
	authdomain "miinplanner-backend/internal/auth/domain"
	authusecase "miinplanner-backend/internal/auth/usecase"
	"miinplanner-backend/internal/reminder/domain"
	"miinplanner-backend/internal/reminder/repository"
	"miinplanner-backend/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router *gin.Engine
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := store.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Reminder{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	verifier := authusecase.NewJWTVerifier("test-secret", time.Hour)
	s := &testServer{tokens: map[string]string{}}
	for _, uid := range []string{"u1", "u2"} {
		token, err := verifier.Issue(authdomain.Session{UID: uid, EmailVerified: true})
		require.NoError(t, err)
		s.tokens[uid] = token
	}

	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	NewReminderHandler(repository.NewGormReminderRepository(db)).
		RegisterRoutes(s.router.Group("/api", authdelivery.AuthMiddleware(verifier)))
	return s
}

func (s *testServer) do(uid, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.tokens[uid])
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestReminderLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do("u1", http.MethodGet, "/api/reminders", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"reminders": []}`, w.Body.String())

	w = s.do("u1", http.MethodPost, "/api/reminders", `{"title": " Call the printer ", "remindAt": "2026-03-10T11:00:00+02:00", "taskId": "t1"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.Reminder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Call the printer", created.Title)
	assert.True(t, created.RemindAt.Equal(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))
	require.NotNil(t, created.TaskID)
	assert.False(t, created.Triggered)

	w = s.do("u1", http.MethodPatch, "/api/reminders/"+created.ID+"/triggered", `{"triggered": true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do("u1", http.MethodGet, "/api/reminders", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Reminders []domain.Reminder `json:"reminders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Reminders, 1)
	assert.True(t, list.Reminders[0].Triggered)

	w = s.do("u2", http.MethodGet, "/api/reminders", "")
	assert.JSONEq(t, `{"reminders": []}`, w.Body.String())

	assert.Equal(t, http.StatusNoContent, s.do("u1", http.MethodDelete, "/api/reminders/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do("u1", http.MethodDelete, "/api/reminders/"+created.ID, "").Code)
}

func TestReminderValidation(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]string{
		"missing title":    `{"remindAt": "2026-03-10T09:00:00Z"}`,
		"blank title":      `{"title": "  ", "remindAt": "2026-03-10T09:00:00Z"}`,
		"date only":        `{"title": "x", "remindAt": "2026-03-10"}`,
		"missing remindAt": `{"title": "x"}`,
		"malformed":        `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := s.do("u1", http.MethodPost, "/api/reminders", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	w := s.do("u1", http.MethodPatch, "/api/reminders/r1/triggered", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemindersAreOwnerScoped(t *testing.T) {
	s := newTestServer(t)

	w := s.do("u1", http.MethodPost, "/api/reminders", `{"title": "mine", "remindAt": "2026-03-10T09:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Reminder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	assert.Equal(t, http.StatusNotFound, s.do("u2", http.MethodPatch, "/api/reminders/"+created.ID+"/triggered", `{"triggered": true}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do("u2", http.MethodDelete, "/api/reminders/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNoContent, s.do("u1", http.MethodDelete, "/api/reminders/"+created.ID, "").Code)
}

func TestRemindersRequireToken(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/reminders", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
