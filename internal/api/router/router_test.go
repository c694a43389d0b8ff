package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pages-cd/internal/api/handler"
	"pages-cd/internal/core/outcome"
	"pages-cd/internal/model"
	"pages-cd/internal/pkg/config"
	"pages-cd/internal/pkg/git"
	"pages-cd/internal/service"
	pkgErrors "pages-cd/pkg/errors"
	"pages-cd/pkg/responses"
)

type fakeTrigger struct {
	errs      map[string]error
	triggered []string
}

func (f *fakeTrigger) Trigger(_ context.Context, name string) error {
	f.triggered = append(f.triggered, name)
	if err, ok := f.errs[name]; ok {
		return err
	}
	return nil
}

type fakeStatusService struct {
	published []int64
	content   string
	fetchErr  error
}

func (f *fakeStatusService) PublishStatus(_ context.Context, id int64) error {
	if id == 404 {
		return pkgErrors.ErrRecordNotFound
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeStatusService) FetchContent(context.Context, *model.Build, string) (string, error) {
	return f.content, f.fetchErr
}

type fakeBuilds struct{}

func (fakeBuilds) FindByID(id int64) (*model.Build, error) {
	if id == 404 {
		return nil, pkgErrors.ErrRecordNotFound
	}
	build := &model.Build{}
	build.ID = id
	return build, nil
}

func setupTestRouter(trigger *fakeTrigger, status *fakeStatusService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	return Setup(&config.ServerConfig{Mode: "debug"}, Handlers{
		Build: handler.NewBuildHandler(status, fakeBuilds{}, logger),
		Job:   handler.NewJobHandler(trigger, logger),
	}, logger)
}

func doRequest(t *testing.T, r *gin.Engine, method, path string) responses.Response {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp responses.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	r := setupTestRouter(&fakeTrigger{}, &fakeStatusService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRunJob(t *testing.T) {
	aggErr := outcome.Aggregate(
		[]outcome.Outcome[int]{outcome.Fulfilled(1), outcome.Rejected[int](errors.New("because"))},
		[]int{1, 2},
		outcome.Summary{Verb: "Repositories verified"},
	)
	trigger := &fakeTrigger{errs: map[string]error{
		"verify_repositories": aggErr,
		"drop_tables":         pkgErrors.ErrUnknownJob,
	}}
	r := setupTestRouter(trigger, &fakeStatusService{})

	resp := doRequest(t, r, http.MethodPost, "/api/v1/jobs/timeout_stale_builds/run")
	assert.Equal(t, pkgErrors.CodeSuccess, resp.Code)

	resp = doRequest(t, r, http.MethodPost, "/api/v1/jobs/verify_repositories/run")
	assert.Equal(t, pkgErrors.CodeJobFailed, resp.Code)
	assert.Equal(t, "Repositories verified with 1 successes and 1 failures.", resp.Message)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["fulfilled"])
	assert.Equal(t, float64(1), data["rejected"])

	resp = doRequest(t, r, http.MethodPost, "/api/v1/jobs/drop_tables/run")
	assert.Equal(t, pkgErrors.CodeNotFound, resp.Code)

	assert.Equal(t, []string{"timeout_stale_builds", "verify_repositories", "drop_tables"}, trigger.triggered)
}

func TestPublishBuildStatus(t *testing.T) {
	status := &fakeStatusService{}
	r := setupTestRouter(&fakeTrigger{}, status)

	resp := doRequest(t, r, http.MethodPost, "/api/v1/builds/12/status")
	assert.Equal(t, pkgErrors.CodeSuccess, resp.Code)
	assert.Equal(t, []int64{12}, status.published)

	resp = doRequest(t, r, http.MethodPost, "/api/v1/builds/404/status")
	assert.Equal(t, pkgErrors.CodeNotFound, resp.Code)

	resp = doRequest(t, r, http.MethodPost, "/api/v1/builds/abc/status")
	assert.Equal(t, pkgErrors.CodeBadRequest, resp.Code)
}

func TestBuildContent(t *testing.T) {
	status := &fakeStatusService{content: "title: docs"}
	r := setupTestRouter(&fakeTrigger{}, status)

	resp := doRequest(t, r, http.MethodGet, "/api/v1/builds/12/content?path=site.yml")
	assert.Equal(t, pkgErrors.CodeSuccess, resp.Code)
	assert.Equal(t, "title: docs", resp.Data.(map[string]interface{})["content"])

	resp = doRequest(t, r, http.MethodGet, "/api/v1/builds/12/content")
	assert.Equal(t, pkgErrors.CodeBadRequest, resp.Code)

	status.fetchErr = &service.CommitUnavailableError{BuildID: 12, Path: "site.yml"}
	resp = doRequest(t, r, http.MethodGet, "/api/v1/builds/12/content?path=site.yml")
	assert.Equal(t, pkgErrors.CodeBadRequest, resp.Code)
	assert.Equal(t, "Build or commit sha undefined. Unable to fetch site.yml for build@id=12", resp.Detail)

	status.fetchErr = &git.APIError{Platform: git.PlatformGitea, Method: http.MethodGet, Path: "/repos/acme/docs/contents/site.yml", StatusCode: http.StatusNotFound, Message: "not found"}
	resp = doRequest(t, r, http.MethodGet, "/api/v1/builds/12/content?path=site.yml")
	assert.Equal(t, pkgErrors.CodeNotFound, resp.Code)
	assert.Equal(t, "仓库文件不存在", resp.Message)

	status.fetchErr = errors.New("timeout")
	resp = doRequest(t, r, http.MethodGet, "/api/v1/builds/12/content?path=site.yml")
	assert.Equal(t, pkgErrors.CodeExternalError, resp.Code)

	resp = doRequest(t, r, http.MethodGet, "/api/v1/builds/404/content?path=site.yml")
	assert.Equal(t, pkgErrors.CodeNotFound, resp.Code)
}
