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
	"miinplanner-backend/internal/social/domain"
	"miinplanner-backend/internal/social/repository"
	"miinplanner-backend/internal/workspace"
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
	require.NoError(t, db.AutoMigrate(&domain.Post{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	registry := workspace.NewRegistry(workspace.Deps{Posts: repository.NewGormPostRepository(db)})
	verifier := authusecase.NewJWTVerifier("test-secret", time.Hour)
	s := &testServer{tokens: map[string]string{}}
	for _, uid := range []string{"u1", "u2"} {
		token, err := verifier.Issue(authdomain.Session{UID: uid, EmailVerified: true})
		require.NoError(t, err)
		s.tokens[uid] = token
	}

	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	NewPostHandler(registry).RegisterRoutes(s.router.Group("/api", authdelivery.AuthMiddleware(verifier)))
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

func (s *testServer) list(t *testing.T, uid string) []domain.Post {
	t.Helper()
	w := s.do(uid, http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Posts []domain.Post `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Posts
}

func TestPostLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.do("u1", http.MethodGet, "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"posts": []}`, w.Body.String())

	w = s.do("u1", http.MethodPost, "/api/posts", `{"content": "Launch day!", "topic": "launch"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.PlatformGeneral, created.Platform)
	assert.Equal(t, domain.PostDraft, created.Status)

	w = s.do("u1", http.MethodPatch, "/api/posts/"+created.ID, `{"status": "Scheduled", "scheduledDate": "2026-03-12", "topic": ""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	posts := s.list(t, "u1")
	require.Len(t, posts, 1)
	assert.Equal(t, domain.PostScheduled, posts[0].Status)
	assert.Equal(t, "Launch day!", posts[0].Content)
	require.NotNil(t, posts[0].ScheduledDate)
	assert.Equal(t, "2026-03-12", *posts[0].ScheduledDate)
	assert.Nil(t, posts[0].Topic)

	w = s.do("u1", http.MethodDelete, "/api/posts/"+created.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, s.list(t, "u1"))

	w = s.do("u1", http.MethodDelete, "/api/posts/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "Post not found"}`, w.Body.String())
}

func TestPostValidation(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]string{
		"missing content":  `{"platform": "X"}`,
		"unknown platform": `{"content": "hi", "platform": "MySpace"}`,
		"unknown status":   `{"content": "hi", "status": "Live"}`,
		"malformed":        `{`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := s.do("u1", http.MethodPost, "/api/posts", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	w := s.do("u1", http.MethodPost, "/api/posts", `{"content": "hi"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = s.do("u1", http.MethodPatch, "/api/posts/"+created.ID, `{"content": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do("u1", http.MethodPatch, "/api/posts/"+created.ID, `{"platform": "Friendster"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostsAreOwnerScoped(t *testing.T) {
	s := newTestServer(t)

	w := s.do("u1", http.MethodPost, "/api/posts", `{"content": "private draft"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	assert.Empty(t, s.list(t, "u2"))
	assert.Equal(t, http.StatusNotFound, s.do("u2", http.MethodPatch, "/api/posts/"+created.ID, `{"status": "Posted"}`).Code)
	assert.Equal(t, http.StatusNotFound, s.do("u2", http.MethodDelete, "/api/posts/"+created.ID, "").Code)

	posts := s.list(t, "u1")
	require.Len(t, posts, 1)
	assert.Equal(t, domain.PostDraft, posts[0].Status)
}
