package service

import (
	"context"
	"sync"
	"time"

	"pages-cd/internal/core/credential"
	"pages-cd/internal/model"
	"pages-cd/internal/pkg/git"
	"pages-cd/internal/repository"
	pkgErrors "pages-cd/pkg/errors"
)

type fakeBuildRepo struct {
	mu         sync.Mutex
	builds     map[int64]*model.Build
	nextID     int64
	stale      []*model.Build
	completed  []int64
	states     map[int64]string
	markErrors map[int64]error
	finished   map[int64]bool
	logsKeys   map[int64]string
	createErr  error
}

func newFakeBuildRepo() *fakeBuildRepo {
	return &fakeBuildRepo{
		builds:     map[int64]*model.Build{},
		nextID:     100,
		states:     map[int64]string{},
		markErrors: map[int64]error{},
		finished:   map[int64]bool{},
		logsKeys:   map[int64]string{},
	}
}

func (r *fakeBuildRepo) Create(build *model.Build) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	build.ID = r.nextID
	r.builds[build.ID] = build
	return nil
}

func (r *fakeBuildRepo) FindByID(id int64) (*model.Build, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	build, ok := r.builds[id]
	if !ok {
		return nil, pkgErrors.ErrRecordNotFound
	}
	return build, nil
}

func (r *fakeBuildRepo) ListUnfinishedCreatedBefore(time.Time) ([]*model.Build, error) {
	return r.stale, nil
}

func (r *fakeBuildRepo) ListIDsCompletedBetween(time.Time, time.Time) ([]int64, error) {
	return r.completed, nil
}

func (r *fakeBuildRepo) UpdateState(id int64, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[id] = state
	return nil
}

func (r *fakeBuildRepo) MarkError(id int64, _ string, _ time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.markErrors[id]; err != nil {
		return false, err
	}
	if r.finished[id] {
		return false, nil
	}
	r.states[id] = "error"
	return true, nil
}

func (r *fakeBuildRepo) UpdateLogsKey(id int64, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logsKeys[id] = key
	return nil
}

var _ repository.BuildRepository = (*fakeBuildRepo)(nil)

type fakeSiteRepo struct {
	mu       sync.Mutex
	sites    []*model.Site
	verified map[int64]time.Time
}

func (r *fakeSiteRepo) FindByID(id int64, _ ...repository.QueryOption) (*model.Site, error) {
	for _, site := range r.sites {
		if site.ID == id {
			return site, nil
		}
	}
	return nil, pkgErrors.ErrRecordNotFound
}

func (r *fakeSiteRepo) List(...repository.QueryOption) ([]*model.Site, error) {
	return r.sites, nil
}

func (r *fakeSiteRepo) UpdateRepoLastVerified(id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.verified == nil {
		r.verified = map[int64]time.Time{}
	}
	r.verified[id] = at
	return nil
}

type fakeUserRepo struct {
	mu        sync.Mutex
	inactive  []*model.User
	cutoff    time.Time
	revoked   []int64
	revokeErr map[int64]error
}

func (r *fakeUserRepo) FindByID(int64) (*model.User, error) {
	return nil, pkgErrors.ErrRecordNotFound
}

func (r *fakeUserRepo) ListInactiveMembers(cutoff time.Time) ([]*model.User, error) {
	r.cutoff = cutoff
	return r.inactive, nil
}

func (r *fakeUserRepo) RevokeMemberships(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.revokeErr[id]; err != nil {
		return err
	}
	r.revoked = append(r.revoked, id)
	return nil
}

type fakeLogRepo struct {
	logs    map[int64][]*model.BuildLog
	deleted []int64
}

func (r *fakeLogRepo) ListByBuildID(buildID int64) ([]*model.BuildLog, error) {
	return r.logs[buildID], nil
}

func (r *fakeLogRepo) DeleteByBuildID(buildID int64) error {
	r.deleted = append(r.deleted, buildID)
	return nil
}

type fakeQueue struct {
	mu        sync.Mutex
	enqueued  []int64
	removed   []int64
	removeErr map[int64]error
}

func (q *fakeQueue) Enqueue(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, id)
	return nil
}

func (q *fakeQueue) Remove(_ context.Context, id int64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.removeErr[id]; err != nil {
		return false, err
	}
	q.removed = append(q.removed, id)
	return true, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	builds []*model.Build
}

func (p *fakePublisher) PublishBuildStatus(_ context.Context, build *model.Build) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.builds = append(p.builds, build)
}

type fakeResolver struct {
	mu       sync.Mutex
	requests []credential.Request
	result   map[string]*credential.Credential
	err      error
}

func (r *fakeResolver) Resolve(_ context.Context, req credential.Request) (*credential.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if cred, ok := r.result[req.Owner+"/"+req.Repository]; ok {
		return cred, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	return nil, credential.ErrNoAuthorizedCredential
}

type statusCall struct {
	token, owner, repo, sha string
	req                     git.StatusRequest
}

type fakeRepoClient struct {
	statuses  []statusCall
	statusErr error
	content   string
	ref       string
}

func (c *fakeRepoClient) SetStatus(_ context.Context, token, owner, repo, sha string, req git.StatusRequest) error {
	c.statuses = append(c.statuses, statusCall{token: token, owner: owner, repo: repo, sha: sha, req: req})
	return c.statusErr
}

func (c *fakeRepoClient) GetContent(_ context.Context, _, _, _, _, ref string) (string, error) {
	c.ref = ref
	return c.content, nil
}

type fakeArchive struct {
	bucket, key string
	body        string
	err         error
}

func (a *fakeArchive) PutLog(_ context.Context, bucket, key string, body []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if bucket == "" {
		bucket = "default"
	}
	a.bucket, a.key, a.body = bucket, key, string(body)
	return bucket, nil
}

func plainDecoder(s string) (string, error) { return s, nil }

func credentialedUser(id int64, token string) *model.User {
	now := time.Now()
	user := &model.User{GithubAccessToken: token, SignedInAt: &now}
	user.ID = id
	return user
}

func newSite(id int64, owner, repo string, users ...*model.User) *model.Site {
	site := &model.Site{Owner: owner, Repository: repo, DefaultBranch: "main", AwsBucketName: "bucket", Users: users}
	site.ID = id
	return site
}
