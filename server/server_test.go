package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robfig/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/happyplace/dashboard/metrics"
	"github.com/happyplace/dashboard/models"
)

func TestRoutes(t *testing.T) {
	r := NewRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/version", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"version"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/no-such-thing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/dashboard/open-houses", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCronSchedulesParse(t *testing.T) {
	c := cron.New()
	for schedule, job := range cronJobs() {
		assert.NoError(t, c.AddFunc(schedule, job), schedule)
	}
}

func TestStoredFilesAreServedAtTheirURL(t *testing.T) {
	prev, _ := models.GetStorage()
	models.SetStorage(models.NewMemoryStore())
	t.Cleanup(func() { models.SetStorage(prev) })

	key := "flyers/1/hero-abc.jpg"
	_, err := models.StoreObject(context.Background(), key, []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	NewRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, models.ObjectURL(key), nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "immutable")

	w = httptest.NewRecorder()
	NewRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, models.ObjectURL("flyers/1/missing.jpg"), nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestsAreTimedByRouteAndMethod(t *testing.T) {
	before := testutil.CollectAndCount(metrics.RequestDuration)

	w := httptest.NewRecorder()
	NewRouter().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/v1/nonce", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, before+1, testutil.CollectAndCount(metrics.RequestDuration))
}
