package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"karyasiddhi-ai/config"
	"karyasiddhi-ai/models"
	"karyasiddhi-ai/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	predictions *services.PredictionGenerator
	anomalies   *services.AnomalyGenerator
	insights    *services.InsightGenerator
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	opts := services.Options{
		ModelPath: t.TempDir(),
		Seed:      42,
		Now:       func() time.Time { return fixedNow },
	}
	return fixture{
		predictions: services.NewPredictionGenerator(opts),
		anomalies:   services.NewAnomalyGenerator(opts),
		insights:    services.NewInsightGenerator(opts),
	}
}

func (f fixture) deps() Deps {
	return Deps{
		Predictions: f.predictions,
		Anomalies:   f.anomalies,
		Insights:    f.insights,
		Trainer:     services.NewTrainer(nil, nil, nil, f.predictions, f.anomalies),
	}
}

func serve(r http.Handler, method, target string, body []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRoot(t *testing.T) {
	r := NewRouter(newFixture(t).deps())

	w := serve(r, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode[map[string]string](t, w)
	assert.Equal(t, "KaryaSiddhi AI Service", body["message"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.Equal(t, "operational", body["status"])
}

func TestHealth(t *testing.T) {
	r := NewRouter(newFixture(t).deps())

	w := serve(r, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status    string            `json:"status"`
		Models    map[string]string `json:"models"`
		Artifacts map[string]string `json:"artifacts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	for _, key := range []string{"prediction", "anomaly_detection", "insight_generation"} {
		assert.Equal(t, "loaded", body.Models[key], key)
	}
	assert.Equal(t, "initialized", body.Artifacts["prediction"])
	assert.Equal(t, "initialized", body.Artifacts["anomaly_detection"])
	assert.Equal(t, "builtin", body.Artifacts["insight_generation"])
}

func TestGetPredictions(t *testing.T) {
	r := NewRouter(newFixture(t).deps())

	t.Run("limit truncates", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/predictions?limit=2", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		got := decode[[]models.PredictionRecord](t, w)
		require.Len(t, got, 2)
		assert.Equal(t, "1", got[0].GoalID)
		assert.Equal(t, models.RiskLow, got[0].RiskLevel)
	})

	t.Run("default limit returns all candidates", func(t *testing.T) {
		w := serve(r, http.MethodGet, "/predictions?user_id=u1&department_id=d2", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode[[]models.PredictionRecord](t, w), 3)
	})

	for _, q := range []string{"limit=0", "limit=101", "limit=abc", "limit=-3"} {
		t.Run("rejects "+q, func(t *testing.T) {
			w := serve(r, http.MethodGet, "/predictions?"+q, nil, nil)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.NotEmpty(t, decode[map[string]string](t, w)["detail"])
		})
	}
}

func TestGetAnomalies(t *testing.T) {
	r := NewRouter(newFixture(t).deps())

	tests := []struct {
		query string
		want  int
	}{
		{"", 4},
		{"?severity=critical", 1},
		{"?severity=high", 1},
		{"?severity=crit", 0},
		{"?severity=unknown", 0},
	}
	for _, tt := range tests {
		w := serve(r, http.MethodGet, "/anomalies"+tt.query, nil, nil)
		require.Equal(t, http.StatusOK, w.Code, tt.query)

		got := decode[[]models.AnomalyRecord](t, w)
		assert.Len(t, got, tt.want, tt.query)
		assert.NotNil(t, got, "empty result must encode as []")
	}

	w := serve(r, http.MethodGet, "/anomalies?severity=critical", nil, nil)
	got := decode[[]models.AnomalyRecord](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, models.AnomalyMissedDeadline, got[0].Type)
	assert.Equal(t, models.SeverityCritical, got[0].Severity)

	w = serve(r, http.MethodGet, "/anomalies?severity=nope", nil, nil)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestGetInsights(t *testing.T) {
	r := NewRouter(newFixture(t).deps())

	w := serve(r, http.MethodGet, "/insights", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]models.InsightRecord](t, w)
	require.Len(t, got, 5)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Confidence, got[i].Confidence)
	}

	w = serve(r, http.MethodGet, "/insights?limit=20", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.InsightRecord](t, w), 8)

	w = serve(r, http.MethodGet, "/insights?limit=21", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestGetProductivityScore(t *testing.T) {
	r := NewRouter(newFixture(t).deps())

	w := serve(r, http.MethodGet, "/productivity-score?user_id=7", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[models.ProductivityScore](t, w)
	assert.Equal(t, 87.5, got.Score)
	assert.Equal(t, 5.2, got.Trend)
	assert.Len(t, got.Factors, 4)
	assert.Len(t, got.Recommendations, 4)
}

func TestTrainModelsDoesNotChangeResponses(t *testing.T) {
	r := NewRouter(newFixture(t).deps())

	before := serve(r, http.MethodGet, "/predictions", nil, nil).Body.String()
	anomaliesBefore := serve(r, http.MethodGet, "/anomalies", nil, nil).Body.String()

	w := serve(r, http.MethodPost, "/train-models", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]string](t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "Models retrained successfully", body["message"])
	assert.NotEmpty(t, body["run_id"])

	assert.JSONEq(t, before, serve(r, http.MethodGet, "/predictions", nil, nil).Body.String())
	assert.JSONEq(t, anomaliesBefore, serve(r, http.MethodGet, "/anomalies", nil, nil).Body.String())
}

type fakeTrainer struct {
	err   error
	calls int
}

func (f *fakeTrainer) Train(context.Context) (models.TrainingRun, error) {
	f.calls++
	return models.TrainingRun{ID: "run-1"}, f.err
}

type failingPredictions struct {
	*services.PredictionGenerator
}

func (failingPredictions) PredictGoalCompletion(context.Context, services.Filter, int) ([]models.PredictionRecord, error) {
	return nil, errors.New("forecast store offline")
}

type panickingInsights struct {
	*services.InsightGenerator
}

func (panickingInsights) GenerateInsights(context.Context, services.Filter, int) ([]models.InsightRecord, error) {
	panic("insight pool corrupted")
}

func TestFailuresReturnDetail(t *testing.T) {
	f := newFixture(t)
	d := f.deps()
	d.Predictions = failingPredictions{f.predictions}
	d.Insights = panickingInsights{f.insights}
	d.Trainer = &fakeTrainer{err: errors.New("disk full")}
	r := NewRouter(d)

	tests := []struct {
		method, path, detail string
	}{
		{http.MethodGet, "/predictions", "forecast store offline"},
		{http.MethodGet, "/insights", "insight pool corrupted"},
		{http.MethodPost, "/train-models", "disk full"},
	}
	for _, tt := range tests {
		w := serve(r, tt.method, tt.path, nil, nil)
		require.Equal(t, http.StatusInternalServerError, w.Code, tt.path)
		assert.Equal(t, tt.detail, decode[map[string]string](t, w)["detail"], tt.path)
	}
}

func TestTrainModelsAuth(t *testing.T) {
	f := newFixture(t)
	auth := services.NewAuthService(config.JWTConfig{Secret: "test-secret", ExpiryHours: 1})
	trainer := &fakeTrainer{}
	d := f.deps()
	d.Trainer = trainer
	d.Auth = auth
	r := NewRouter(d)

	adminToken, err := auth.GenerateToken("u-1", services.RoleAdmin)
	require.NoError(t, err)
	viewerToken, err := auth.GenerateToken("u-2", "viewer")
	require.NoError(t, err)

	bearer := func(tok string) http.Header {
		return http.Header{"Authorization": []string{"Bearer " + tok}}
	}

	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/train-models", nil, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodPost, "/train-models", nil, bearer("garbage")).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/train-models", nil, bearer(viewerToken)).Code)
	assert.Equal(t, 0, trainer.calls)

	w := serve(r, http.MethodPost, "/train-models", nil, bearer(adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "run-1", decode[map[string]string](t, w)["run_id"])
	assert.Equal(t, 1, trainer.calls)

	// Read endpoints stay open.
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/predictions", nil, nil).Code)
}

func TestScoreAnomaly(t *testing.T) {
	f := newFixture(t)
	r := NewRouter(f.deps())

	features := []byte(`{"features":[0.5,0.5,0.5,0.5,0.5,0.5,0.5,0.5]}`)

	w := serve(r, http.MethodPost, "/anomaly-score", features, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code, "untrained model")

	_, err := f.anomalies.Train(context.Background())
	require.NoError(t, err)

	w = serve(r, http.MethodPost, "/anomaly-score", features, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[models.AnomalyScore](t, w)
	assert.GreaterOrEqual(t, got.Score, 0.0)
	assert.LessOrEqual(t, got.Score, 100.0)

	w = serve(r, http.MethodPost, "/anomaly-score", []byte(`{"features":[1,2]}`), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = serve(r, http.MethodPost, "/anomaly-score", []byte(`{"features":`), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = serve(r, http.MethodPost, "/anomaly-score", []byte(`{}`), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

type listStore struct {
	runs []models.TrainingRun
}

func (s *listStore) Record(context.Context, *models.TrainingRun) error { return nil }

func (s *listStore) Recent(_ context.Context, limit int, before *time.Time) ([]models.TrainingRun, error) {
	var out []models.TrainingRun
	for _, run := range s.runs {
		if before != nil && !run.StartedAt.Before(*before) {
			continue
		}
		out = append(out, run)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func TestGetTrainingRuns(t *testing.T) {
	store := &listStore{}
	for i := 0; i < 25; i++ {
		store.runs = append(store.runs, models.TrainingRun{
			ID:        string(rune('a' + i)),
			Status:    models.TrainingSuccess,
			StartedAt: fixedNow.Add(-time.Duration(i) * time.Minute),
		})
	}
	d := newFixture(t).deps()
	d.Runs = store
	r := NewRouter(d)

	w := serve(r, http.MethodGet, "/training-runs", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Data       []models.TrainingRun `json:"data"`
		NextCursor string               `json:"next_cursor"`
		HasMore    bool                 `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Data, DefaultLimit)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)

	w = serve(r, http.MethodGet, "/training-runs?before="+page.NextCursor, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Data, 5)
	assert.False(t, page.HasMore)

	for _, q := range []string{"limit=0", "limit=101", "limit=abc", "before=yesterday"} {
		w := serve(r, http.MethodGet, "/training-runs?"+q, nil, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, q)
		assert.NotEmpty(t, decode[map[string]string](t, w)["detail"], q)
	}

	w = serve(r, http.MethodGet, "/training-runs?limit=100", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Data, 25)
	assert.False(t, page.HasMore)

	empty := NewRouter(newFixture(t).deps())
	w = serve(empty, http.MethodGet, "/training-runs", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"has_more":false}`, w.Body.String())
}

func TestTrainingSocketWithoutRedis(t *testing.T) {
	r := NewRouter(newFixture(t).deps())

	w := serve(r, http.MethodGet, "/ws/training", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := NewRouter(newFixture(t).deps())
	serve(r, http.MethodGet, "/health", nil, nil)

	w := serve(r, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "karyasiddhi_http_requests_total")
}
