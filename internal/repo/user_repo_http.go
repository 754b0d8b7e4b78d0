package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go-gin-user-dashboard/internal/domain"
	"go-gin-user-dashboard/internal/feature/user"
)

var (
	ErrUnexpectedStatus = errors.New("unexpected upstream status")
	ErrUpstream         = errors.New("upstream error")
	ErrMalformed        = errors.New("malformed upstream body")
	ErrIncomplete       = errors.New("incomplete upstream listing")
)

const (
	maxBodyBytes = 16 << 20
	// 上游 admin 列表 limit 上限 100
	DefaultPageSize = 100
	maxPages        = 1000
)

// UserRepo 通过 REST 读取上游用户列表
type UserRepo struct {
	baseURL  string
	path     string
	pageSize int
	client   *http.Client
}

func NewUserRepo(baseURL, path string, pageSize int, timeout time.Duration) *UserRepo {
	return NewUserRepoWithClient(baseURL, path, pageSize, &http.Client{Timeout: timeout})
}

func NewUserRepoWithClient(baseURL, path string, pageSize int, c *http.Client) *UserRepo {
	if c == nil {
		c = http.DefaultClient
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &UserRepo{
		baseURL:  strings.TrimRight(baseURL, "/"),
		path:     "/" + strings.TrimLeft(path, "/"),
		pageSize: pageSize,
		client:   c,
	}
}

var _ domain.UserRepository = (*UserRepo)(nil)

// List 拉取完整列表：响应带 total 时按 offset/limit 翻页直到取满，否则只请求一次
func (r *UserRepo) List(ctx context.Context, cred domain.Credential) ([]user.User, error) {
	var all []wireUser
	for n := 0; ; n++ {
		p, err := r.fetchPage(ctx, cred, len(all))
		if err != nil {
			return nil, err
		}
		all = append(all, p.users...)
		if p.total < 0 || len(all) >= p.total {
			break
		}
		if len(p.users) == 0 || n+1 >= maxPages {
			return nil, fmt.Errorf("%w: got %d of %d users", ErrIncomplete, len(all), p.total)
		}
	}
	return toUsers(all), nil
}

func (r *UserRepo) fetchPage(ctx context.Context, cred domain.Credential, offset int) (page, error) {
	u, err := url.Parse(r.baseURL + r.path)
	if err != nil {
		return page{}, fmt.Errorf("build url: %w", err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(r.pageSize))
	q.Set("offset", strconv.Itoa(offset))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if !cred.Empty() {
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return page{}, fmt.Errorf("list users: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, maxBodyBytes))
		return page{}, fmt.Errorf("%w: %d", ErrUnexpectedStatus, res.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return page{}, fmt.Errorf("read body: %w", err)
	}
	return decodePage(b)
}

// wireID 兼容数字 id 与字符串 id（如 "u_01HZX" 或 "42"）
type wireID struct {
	n       int64
	s       string
	numeric bool
}

func (w *wireID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		return nil
	case len(b) > 0 && b[0] == '"':
		if err := json.Unmarshal(b, &w.s); err != nil {
			return err
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(w.s), 10, 64); err == nil {
			w.n, w.numeric = n, true
		}
		return nil
	}
	if err := json.Unmarshal(b, &w.n); err != nil {
		return err
	}
	w.s, w.numeric = strconv.FormatInt(w.n, 10), true
	return nil
}

// wireUser 上游一条记录；name 只在没有 first/last 时使用
type wireUser struct {
	ID        wireID `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Email     string `json:"email"`
	IsActive  bool   `json:"is_active"`
}

// toUsers 映射成领域记录。只要有一个 id 不是数字或有重复，全部改用 1 起的序号，原 id 存 UID
func toUsers(ws []wireUser) []user.User {
	numeric := true
	seen := make(map[int64]struct{}, len(ws))
	for _, w := range ws {
		if _, dup := seen[w.ID.n]; !w.ID.numeric || dup {
			numeric = false
			break
		}
		seen[w.ID.n] = struct{}{}
	}

	out := make([]user.User, 0, len(ws))
	for i, w := range ws {
		u := user.User{
			ID:        w.ID.n,
			FirstName: w.FirstName,
			LastName:  w.LastName,
			Username:  w.Username,
			Role:      w.Role,
			Email:     w.Email,
			IsActive:  w.IsActive,
		}
		if !numeric {
			u.ID, u.UID = int64(i+1), w.ID.s
		}
		if u.FirstName == "" && u.LastName == "" && w.Name != "" {
			first, last, _ := strings.Cut(strings.TrimSpace(w.Name), " ")
			u.FirstName, u.LastName = first, strings.TrimSpace(last)
		}
		if u.Username == "" && w.Email != "" {
			u.Username, _, _ = strings.Cut(w.Email, "@")
		}
		out = append(out, u)
	}
	return out
}

// page 一次响应；total < 0 表示上游没给总数
type page struct {
	users []wireUser
	total int
}

// envelope 兼容 {code,msg,data} 统一响应及其中的 {total,items}、{count,results}
type envelope struct {
	Code    *int            `json:"code"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
	Items   json.RawMessage `json:"items"`
	Results json.RawMessage `json:"results"`
	Total   *int            `json:"total"`
	Count   *int            `json:"count"`
}

// decodePage 支持：裸数组 / {code,msg,data:[...]} / {data:{total,items:[...]}} / {count,results:[...]}
func decodePage(b []byte) (page, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return page{}, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	if b[0] == '[' {
		var ws []wireUser
		if err := json.Unmarshal(b, &ws); err != nil {
			return page{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if ws == nil {
			ws = []wireUser{}
		}
		return page{users: ws, total: -1}, nil
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return page{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.Code != nil && *env.Code != 0 {
		return page{}, fmt.Errorf("%w: code=%d msg=%s", ErrUpstream, *env.Code, env.Msg)
	}
	for _, raw := range []json.RawMessage{env.Data, env.Items, env.Results} {
		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			continue
		}
		p, err := decodePage(raw)
		if err != nil {
			return page{}, err
		}
		if p.total < 0 {
			switch {
			case env.Total != nil:
				p.total = *env.Total
			case env.Count != nil:
				p.total = *env.Count
			}
		}
		return p, nil
	}
	return page{}, fmt.Errorf("%w: no user list in body", ErrMalformed)
}
