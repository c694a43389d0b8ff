package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"pages-cd/internal/core/credential"
	"pages-cd/internal/core/status"
	"pages-cd/internal/model"
	"pages-cd/pkg/constants"
)

func newTestPublisher(resolver CredentialResolver, client RepositoryClient, buildRepo *fakeBuildRepo) (*StatusPublisher, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	links := &status.Links{Hostname: "https://pages.example.com", ProxyDomain: "sites.example.com"}
	mapper := status.NewMapper(links, "production", "pages")
	return NewStatusPublisher(buildRepo, resolver, mapper, client, plainDecoder, zap.New(core)), logs
}

func publishableBuild(state string) *model.Build {
	site := newSite(7, "acme", "docs", credentialedUser(1, "t1"), credentialedUser(2, "t2"))
	build := &model.Build{State: state, Branch: "main", RequestedCommitSHA: "abc", UserID: 1, SiteID: 7, Site: site}
	build.ID = 99
	return build
}

func TestPublishBuildStatus(t *testing.T) {
	resolver := &fakeResolver{result: map[string]*credential.Credential{"acme/docs": {UserID: 2, Token: "t2"}}}
	client := &fakeRepoClient{}
	publisher, logs := newTestPublisher(resolver, client, newFakeBuildRepo())

	publisher.PublishBuildStatus(context.Background(), publishableBuild(constants.BuildStateProcessing))

	require.Len(t, client.statuses, 1)
	call := client.statuses[0]
	assert.Equal(t, "t2", call.token)
	assert.Equal(t, "acme", call.owner)
	assert.Equal(t, "docs", call.repo)
	assert.Equal(t, "abc", call.sha)
	assert.Equal(t, "pending", call.req.State)
	assert.Equal(t, "pages/build", call.req.Context)
	assert.Equal(t, "https://pages.example.com/sites/7/builds/99/logs", call.req.TargetURL)
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())

	require.Len(t, resolver.requests, 1)
	req := resolver.requests[0]
	assert.Equal(t, int64(1), req.OwnerUserID)
	assert.Equal(t, []credential.Candidate{{UserID: 1, Token: "t1"}, {UserID: 2, Token: "t2"}}, req.Candidates)
}

func TestPublishBuildStatusResolverFails(t *testing.T) {
	client := &fakeRepoClient{}
	publisher, logs := newTestPublisher(&fakeResolver{}, client, newFakeBuildRepo())

	assert.NotPanics(t, func() {
		publisher.PublishBuildStatus(context.Background(), publishableBuild(constants.BuildStateSuccess))
	})

	assert.Empty(t, client.statuses)
	errorLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errorLogs, 1)
	assert.Equal(t, int64(99), errorLogs[0].ContextMap()["build_id"])
}

func TestPublishBuildStatusAPIError(t *testing.T) {
	resolver := &fakeResolver{result: map[string]*credential.Credential{"acme/docs": {UserID: 1, Token: "t1"}}}
	client := &fakeRepoClient{statusErr: errors.New("502 bad gateway")}
	publisher, logs := newTestPublisher(resolver, client, newFakeBuildRepo())

	publisher.PublishBuildStatus(context.Background(), publishableBuild(constants.BuildStateError))

	assert.Len(t, client.statuses, 1)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestPublishBuildStatusInvalidState(t *testing.T) {
	resolver := &fakeResolver{result: map[string]*credential.Credential{"acme/docs": {UserID: 1, Token: "t1"}}}
	client := &fakeRepoClient{}
	publisher, logs := newTestPublisher(resolver, client, newFakeBuildRepo())

	publisher.PublishBuildStatus(context.Background(), publishableBuild("exploded"))

	assert.Empty(t, client.statuses)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestPublishBuildStatusNilBuild(t *testing.T) {
	client := &fakeRepoClient{}
	publisher, logs := newTestPublisher(&fakeResolver{}, client, newFakeBuildRepo())

	assert.NotPanics(t, func() {
		publisher.PublishBuildStatus(context.Background(), nil)
	})
	assert.Empty(t, client.statuses)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestPublishStatusLoadsBuild(t *testing.T) {
	resolver := &fakeResolver{result: map[string]*credential.Credential{"acme/docs": {UserID: 1, Token: "t1"}}}
	client := &fakeRepoClient{}
	repo := newFakeBuildRepo()
	build := publishableBuild(constants.BuildStateSuccess)
	repo.builds[build.ID] = build
	publisher, _ := newTestPublisher(resolver, client, repo)

	require.NoError(t, publisher.PublishStatus(context.Background(), build.ID))
	require.Len(t, client.statuses, 1)
	assert.Equal(t, "success", client.statuses[0].req.State)
	assert.Equal(t, "https://bucket.sites.example.com/site/acme/docs/", client.statuses[0].req.TargetURL)

	assert.Error(t, publisher.PublishStatus(context.Background(), 404))
}

func TestPublishBuildStatusWithoutSite(t *testing.T) {
	publisher, logs := newTestPublisher(&fakeResolver{}, &fakeRepoClient{}, newFakeBuildRepo())
	build := &model.Build{State: constants.BuildStateQueued, SiteID: 3}
	build.ID = 5

	publisher.PublishBuildStatus(context.Background(), build)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestFetchContent(t *testing.T) {
	resolver := &fakeResolver{result: map[string]*credential.Credential{"acme/docs": {UserID: 1, Token: "t1"}}}
	client := &fakeRepoClient{content: "title: docs"}
	publisher, _ := newTestPublisher(resolver, client, newFakeBuildRepo())

	build := publishableBuild(constants.BuildStateProcessing)
	_, err := publisher.FetchContent(context.Background(), build, "site.yml")
	require.ErrorIs(t, err, ErrCommitUnavailable)
	assert.EqualError(t, err, "Build or commit sha undefined. Unable to fetch site.yml for build@id=99")

	cloned := "def"
	build.ClonedCommitSHA = &cloned
	content, err := publisher.FetchContent(context.Background(), build, "site.yml")
	require.NoError(t, err)
	assert.Equal(t, "title: docs", content)
	assert.Equal(t, "def", client.ref)
}

func TestCandidatesFromUsers(t *testing.T) {
	placeholder := &model.User{GithubAccessToken: "never-signed-in"}
	placeholder.ID = 3
	revoked := credentialedUser(4, "")
	broken := credentialedUser(5, "bad")

	decode := func(s string) (string, error) {
		if s == "bad" {
			return "", errors.New("cipher: message authentication failed")
		}
		return "plain-" + s, nil
	}

	candidates := candidatesFromUsers(
		[]*model.User{credentialedUser(1, "t1"), nil, placeholder, revoked, broken},
		decode, zap.NewNop())
	assert.Equal(t, []credential.Candidate{{UserID: 1, Token: "plain-t1"}}, candidates)
}
