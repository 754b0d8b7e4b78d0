package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"go-gin-user-dashboard/internal/core/session"
	"go-gin-user-dashboard/internal/domain"
	"go-gin-user-dashboard/internal/feature/user"
	"go-gin-user-dashboard/internal/feature/usertable"
)

const lockStripes = 64

type Options struct {
	Table        usertable.Options
	FetchTimeout time.Duration
}

// Snapshot 返回给 HTTP 层的视图
type Snapshot struct {
	usertable.View
	Loading bool `json:"loading"`
}

// DashboardService owns the per-session table views and their fetch tasks.
type DashboardService struct {
	log   *zap.Logger
	repo  domain.UserRepository
	store session.Store
	opts  Options
	now   func() time.Time

	sf    singleflight.Group
	locks [lockStripes]sync.Mutex

	mu    sync.Mutex
	tasks map[string]*FetchTask
	wg    sync.WaitGroup

	base context.Context
	stop context.CancelFunc
}

func NewDashboardService(l *zap.Logger, repo domain.UserRepository, store session.Store, opts Options) *DashboardService {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	base, stop := context.WithCancel(context.Background())
	return &DashboardService{
		log:   l,
		repo:  repo,
		store: store,
		opts:  opts,
		now:   time.Now,
		tasks: make(map[string]*FetchTask),
		base:  base,
		stop:  stop,
	}
}

// lock 按会话分段加锁，同一会话的读改写串行
func (s *DashboardService) lock(sid string) func() {
	m := &s.locks[xxhash.Sum64String(sid)%lockStripes]
	m.Lock()
	return m.Unlock
}

// Mount creates the session if needed and starts its fetch. A session fetches at most
// once: a second Mount returns the running task, or a finished one once loaded.
func (s *DashboardService) Mount(ctx context.Context, sid string, cred domain.Credential) (*FetchTask, error) {
	unlock := s.lock(sid)
	defer unlock()

	sess, err := s.store.Get(ctx, sid)
	switch {
	case errors.Is(err, session.ErrNotFound):
		sess = &session.Session{
			ID:        sid,
			State:     usertable.NewState(s.opts.Table),
			Users:     []user.User{},
			CreatedAt: s.now(),
		}
		if err := s.store.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[sid]; ok {
		return t, nil
	}
	if sess.Loaded {
		return finishedTask(), nil
	}

	taskCtx, cancel := context.WithTimeout(s.base, s.opts.FetchTimeout)
	t := newFetchTask(cancel)
	s.tasks[sid] = t
	s.wg.Add(1)
	go s.run(taskCtx, sid, cred, t)
	s.log.Debug("user fetch started", zap.String("session", sid))
	return t, nil
}

func (s *DashboardService) run(ctx context.Context, sid string, cred domain.Credential, t *FetchTask) {
	defer s.wg.Done()

	start := time.Now()
	users, err := s.fetch(ctx, cred)
	observeFetch(err, time.Since(start))

	defer func() {
		s.mu.Lock()
		if s.tasks[sid] == t {
			delete(s.tasks, sid)
		}
		s.mu.Unlock()
		t.finish(err)
	}()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			// 视图已卸载或服务关闭
			s.log.Info("user fetch cancelled", zap.String("session", sid))
			return
		}
		// 失败只记日志，列表保持为空，不重试
		s.log.Error("user fetch failed", zap.String("session", sid), zap.Error(err))
		users = []user.User{}
	}

	unlock := s.lock(sid)
	defer unlock()

	// 任务自身超时不影响写回
	storeCtx, cancel := context.WithTimeout(s.base, 5*time.Second)
	defer cancel()

	sess, gerr := s.store.Get(storeCtx, sid)
	if gerr != nil {
		if !errors.Is(gerr, session.ErrNotFound) {
			s.log.Error("load session after fetch", zap.String("session", sid), zap.Error(gerr))
		}
		return
	}
	c := usertable.NewController(s.opts.Table, sess.State, users)
	sess.State = c.State()
	sess.Users = c.Records()
	sess.Loaded = true
	if serr := s.store.Save(storeCtx, sess); serr != nil {
		s.log.Error("save session after fetch", zap.String("session", sid), zap.Error(serr))
		return
	}
	s.log.Info("user fetch done", zap.String("session", sid), zap.Int("count", len(users)))
}

// fetch 相同凭证的并发请求合并为一次上游调用
func (s *DashboardService) fetch(ctx context.Context, cred domain.Credential) ([]user.User, error) {
	ch := s.sf.DoChan("users:"+cred.Token, func() (any, error) {
		shared, cancel := context.WithTimeout(s.base, s.opts.FetchTimeout)
		defer cancel()
		return s.repo.List(shared, cred)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.([]user.User), nil
	}
}

// View returns the derived view of a mounted session.
func (s *DashboardService) View(ctx context.Context, sid string) (Snapshot, error) {
	unlock := s.lock(sid)
	defer unlock()

	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return Snapshot{}, err
	}
	c := usertable.NewController(s.opts.Table, sess.State, sess.Users)
	return Snapshot{View: c.View(), Loading: !sess.Loaded}, nil
}

// Dispatch applies one action to the session state and returns the recomputed view.
func (s *DashboardService) Dispatch(ctx context.Context, sid string, a usertable.Action) (Snapshot, error) {
	unlock := s.lock(sid)
	defer unlock()

	sess, err := s.store.Get(ctx, sid)
	if err != nil {
		return Snapshot{}, err
	}
	c := usertable.NewController(s.opts.Table, sess.State, sess.Users)
	v, err := c.Dispatch(a)
	if err != nil {
		return Snapshot{View: v, Loading: !sess.Loaded}, err
	}
	sess.State = c.State()
	if err := s.store.Save(ctx, sess); err != nil {
		return Snapshot{}, fmt.Errorf("save session: %w", err)
	}
	return Snapshot{View: v, Loading: !sess.Loaded}, nil
}

// Open mounts the view and waits up to wait for the first fetch before rendering.
func (s *DashboardService) Open(ctx context.Context, sid string, cred domain.Credential, wait time.Duration) (Snapshot, error) {
	t, err := s.Mount(ctx, sid, cred)
	if err != nil {
		return Snapshot{}, err
	}
	if wait > 0 {
		wctx, cancel := context.WithTimeout(ctx, wait)
		_ = t.Wait(wctx)
		cancel()
	}
	return s.View(ctx, sid)
}

// Unmount cancels any running fetch and discards the session.
func (s *DashboardService) Unmount(ctx context.Context, sid string) error {
	s.mu.Lock()
	t, ok := s.tasks[sid]
	delete(s.tasks, sid)
	s.mu.Unlock()
	if ok {
		t.Cancel()
	}

	unlock := s.lock(sid)
	defer unlock()
	return s.store.Delete(ctx, sid)
}

// Close cancels every running fetch and waits for them to return.
func (s *DashboardService) Close() {
	s.stop()
	s.wg.Wait()
}
