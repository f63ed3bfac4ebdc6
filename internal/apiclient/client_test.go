package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HerbHall/sportdesk/pkg/models"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api/"}, zap.NewNop(), opts...)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestSearch_UsersRequestAndResponse(t *testing.T) {
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/search/users", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "sportdesk/"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"data":       []map[string]any{{"_id": "u1", "firstName": "Jo", "lastName": "March"}},
			"total":      1,
			"perPage":    10,
			"pageNumber": 1,
			"totalPages": 1,
		})
	})

	page, err := c.Search(context.Background(), models.KindUsers, models.SearchRequest{Search: "jo", PageNumber: 1, PerPage: 10})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"search": "jo", "pageNumber": float64(1), "perPage": float64(10)}, gotBody)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "u1", page.Items[0].ID)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, 10, page.PerPage)
}

func TestSearch_OmitsEmptyOptionalFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"mainSport":"s1","pageNumber":2,"perPage":10}`, string(body))
		assert.Equal(t, "/api/search/clubs", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []any{}, "totalPages": 0})
	})

	page, err := c.Search(context.Background(), models.KindClubs, models.SearchRequest{MainSport: "s1", PageNumber: 2, PerPage: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 1, page.TotalPages, "zero totalPages normalizes to 1")
}

func TestSearch_UnknownKind(t *testing.T) {
	var hits int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { atomic.AddInt32(&hits, 1) })

	_, err := c.Search(context.Background(), models.EntityKind("devices"), models.SearchRequest{})
	assert.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestCall_ErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantCode ErrorCode
		wantMsg  string
	}{
		{
			name: "success false",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "search index offline"})
			},
			wantCode: ErrCodeRejected,
			wantMsg:  "search index offline",
		},
		{
			name: "http error with envelope message",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "invalid token"})
			},
			wantCode: ErrCodeStatus,
			wantMsg:  "invalid token",
		},
		{
			name: "http error without body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantCode: ErrCodeStatus,
			wantMsg:  "Bad Gateway",
		},
		{
			name: "not json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("<html>oops</html>"))
			},
			wantCode: ErrCodeMalformed,
		},
		{
			name: "wrong data shape",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"success":true,"data":"nope"}`))
			},
			wantCode: ErrCodeMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Search(context.Background(), models.KindUsers, models.SearchRequest{Search: "jo", PageNumber: 1, PerPage: 10})
			require.Error(t, err)
			assert.True(t, IsCode(err, tt.wantCode), "got %v, want code %s", err, tt.wantCode)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, Message(err))
			}
		})
	}
}

func TestCall_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url}, nil)
	require.NoError(t, err)

	_, err = c.Sports(context.Background(), "")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeNetwork), "got %v", err)
}

func TestCall_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Coach(ctx, "c1")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeTimeout), "got %v", err)
}

func TestCall_CallerCanceled(t *testing.T) {
	started := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := c.Coach(ctx, "c1")
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeCanceled), "got %v", err)
	assert.False(t, IsCode(err, ErrCodeTimeout))
	assert.Equal(t, "request canceled", Message(err))
}

func TestSports_SendsGroupAsSport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reference/sports", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"sport":"g1"}`, string(body))
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"data":    []map[string]any{{"_id": "s1", "name": "Football", "group": "g1", "groupName": "Team sports"}},
		})
	})

	sports, err := c.Sports(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, []models.Sport{{ID: "s1", Name: "Football", Group: "g1", GroupName: "Team sports"}}, sports)
}

func TestCoachAndCreatedBy(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		switch r.URL.Path {
		case "/api/coach/c1":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"_id": "c1", "firstName": "Ana"}})
		case "/api/club/created-by/c1":
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []map[string]any{{"_id": "club1", "name": "Riverside"}}})
		case "/api/group/created-by/c1":
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	coach, err := c.Coach(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", coach.FirstName)

	clubs, err := c.ClubsCreatedBy(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, clubs, 1)
	assert.Equal(t, "Riverside", clubs[0].Name)

	groups, err := c.GroupsCreatedBy(ctx, "c1")
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestCoach_MissingData(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})
	_, err := c.Coach(context.Background(), "c1")
	assert.True(t, IsCode(err, ErrCodeMalformed), "got %v", err)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "admin", "exp": exp.Unix()})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestCall_BearerToken(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	token := signedToken(t, now.Add(time.Hour))

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": []any{}})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: token}, nil, WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	_, err = c.Sports(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+token, gotAuth)
}

func TestCall_ExpiredTokenFailsFast(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { atomic.AddInt32(&hits, 1) }))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Token: signedToken(t, now.Add(-time.Minute))}, nil,
		WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	_, err = c.Sports(context.Background(), "")
	assert.True(t, IsCode(err, ErrCodeTokenExpired), "got %v", err)
	assert.Zero(t, atomic.LoadInt32(&hits), "expired token must not reach the server")
}

func TestTokenExpiry_OpaqueToken(t *testing.T) {
	_, ok := tokenExpiry("not-a-jwt")
	assert.False(t, ok)
	_, ok = tokenExpiry("")
	assert.False(t, ok)
}

func TestMetrics_RecordOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "nope"})
	}, WithMetrics(m))

	_, _ = c.Sports(context.Background(), "")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("reference_sports", string(ErrCodeRejected))))
}
