package git

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// restProvider GitHub 与 Gitea 共用的 REST 实现, 两者仓库/状态/内容接口结构一致
type restProvider struct {
	platform   PlatformType
	apiRoot    string
	httpClient *http.Client
}

func newRESTProvider(platform PlatformType, apiRoot string, httpClient *http.Client) *restProvider {
	return &restProvider{
		platform:   platform,
		apiRoot:    apiRoot,
		httpClient: httpClient,
	}
}

// GetPlatformType 获取平台类型
func (p *restProvider) GetPlatformType() PlatformType {
	return p.platform
}

// GetPermissions 查询令牌在仓库上的权限
func (p *restProvider) GetPermissions(ctx context.Context, token, owner, repo string) (Permissions, error) {
	var repository struct {
		Permissions map[string]bool `json:"permissions"`
	}
	if err := p.do(ctx, token, http.MethodGet, repoPath(owner, repo), nil, &repository); err != nil {
		return Permissions{}, err
	}
	return NormalizePermissions(repository.Permissions), nil
}

// SetStatus 为提交写入状态
func (p *restProvider) SetStatus(ctx context.Context, token, owner, repo, sha string, req StatusRequest) error {
	path := fmt.Sprintf("%s/statuses/%s", repoPath(owner, repo), url.PathEscape(sha))
	return p.do(ctx, token, http.MethodPost, path, req, nil)
}

// GetContent 读取指定提交下的文件内容
func (p *restProvider) GetContent(ctx context.Context, token, owner, repo, path, ref string) (string, error) {
	escaped := make([]string, 0)
	for _, segment := range strings.Split(strings.Trim(path, "/"), "/") {
		escaped = append(escaped, url.PathEscape(segment))
	}
	reqPath := fmt.Sprintf("%s/contents/%s?ref=%s", repoPath(owner, repo), strings.Join(escaped, "/"), url.QueryEscape(ref))

	var file struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := p.do(ctx, token, http.MethodGet, reqPath, nil, &file); err != nil {
		return "", err
	}
	if file.Encoding != "base64" {
		return file.Content, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return "", &APIError{Platform: p.platform, Method: http.MethodGet, Path: reqPath, Err: fmt.Errorf("解码文件内容失败: %w", err)}
	}
	return string(data), nil
}

func (p *restProvider) do(ctx context.Context, token, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.apiRoot+path, reader)
	if err != nil {
		return &APIError{Platform: p.platform, Method: method, Path: path, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.clientFor(ctx, token).Do(req)
	if err != nil {
		return &APIError{Platform: p.platform, Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{
			Platform:   p.platform,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(respBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Platform: p.platform, Method: method, Path: path, StatusCode: resp.StatusCode, Err: fmt.Errorf("解析响应失败: %w", err)}
	}
	return nil
}

// clientFor 每个请求使用调用方给定的令牌
func (p *restProvider) clientFor(ctx context.Context, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "token",
	}))
	client.Timeout = p.httpClient.Timeout
	return client
}

func repoPath(owner, repo string) string {
	return fmt.Sprintf("/repos/%s/%s", url.PathEscape(owner), url.PathEscape(repo))
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
