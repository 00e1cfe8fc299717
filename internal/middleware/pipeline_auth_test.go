package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"monbudget/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var jobRoutes = []string{
	"/api/v1/jobs/recurrences/execute",
	"/api/v1/jobs/budget-alerts/check",
}

// setupJobsRouter mounts the scheduler routes the way cmd/api does and
// counts how many requests reach a job.
func setupJobsRouter(apiKey string, runs *int) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler())
	jobs := r.Group("/api/v1/jobs", PipelineAuthMiddleware(apiKey))
	run := func(c *gin.Context) {
		*runs++
		c.JSON(http.StatusOK, gin.H{"result": gin.H{"route": c.FullPath()}})
	}
	jobs.POST("/recurrences/execute", run)
	jobs.POST("/budget-alerts/check", run)
	return r
}

func postJob(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response body: %v", err)
	}
	return result
}

func TestPipelineAuthMiddleware(t *testing.T) {
	const key = "scheduler-secret"

	tests := []struct {
		name          string
		configuredKey string
		headers       map[string]string
		wantStatus    int
		wantErrorCode string
	}{
		{
			name:          "valid_api_key_runs_the_job",
			configuredKey: key,
			headers:       map[string]string{APIKeyHeader: key},
			wantStatus:    http.StatusOK,
		},
		{
			name:          "missing_api_key",
			configuredKey: key,
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "wrong_api_key",
			configuredKey: key,
			headers:       map[string]string{APIKeyHeader: "scheduler"},
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "user_bearer_token_is_not_a_job_credential",
			configuredKey: key,
			headers:       map[string]string{"Authorization": "Bearer " + key},
			wantStatus:    http.StatusUnauthorized,
			wantErrorCode: "INVALID_API_KEY",
		},
		{
			name:          "jobs_disabled_without_configured_key",
			configuredKey: "",
			headers:       map[string]string{APIKeyHeader: ""},
			wantStatus:    http.StatusServiceUnavailable,
			wantErrorCode: "PIPELINE_NOT_CONFIGURED",
		},
	}

	for _, tt := range tests {
		for _, path := range jobRoutes {
			t.Run(tt.name+path, func(t *testing.T) {
				runs := 0
				rec := postJob(setupJobsRouter(tt.configuredKey, &runs), path, tt.headers)

				if rec.Code != tt.wantStatus {
					t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
				}
				body := parseBody(t, rec)

				if tt.wantStatus == http.StatusOK {
					if runs != 1 {
						t.Errorf("expected the job to run once, ran %d time(s)", runs)
					}
					result, _ := body["result"].(map[string]interface{})
					if result["route"] != path {
						t.Errorf("expected %s to answer, got %v", path, result["route"])
					}
					return
				}

				if runs != 0 {
					t.Errorf("job must not run when rejected, ran %d time(s)", runs)
				}
				errObj, ok := body["error"].(map[string]interface{})
				if !ok {
					t.Fatal("expected error object in response")
				}
				if code, _ := errObj["code"].(string); code != tt.wantErrorCode {
					t.Errorf("error code = %q, want %q", code, tt.wantErrorCode)
				}
			})
		}
	}
}

func TestPipelineAuthMiddleware_CountsRejections(t *testing.T) {
	counter := metrics.HTTPErrors.WithLabelValues("INVALID_API_KEY")
	before := testutil.ToFloat64(counter)

	runs := 0
	r := setupJobsRouter("scheduler-secret", &runs)
	for _, path := range jobRoutes {
		postJob(r, path, nil)
	}

	if got := testutil.ToFloat64(counter) - before; got != float64(len(jobRoutes)) {
		t.Errorf("expected %d rejections counted, got %v", len(jobRoutes), got)
	}
}
