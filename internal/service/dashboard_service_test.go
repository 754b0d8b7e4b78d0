package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"go-gin-user-dashboard/internal/core/session"
	"go-gin-user-dashboard/internal/domain"
	"go-gin-user-dashboard/internal/feature/user"
	"go-gin-user-dashboard/internal/feature/usertable"
)

type fakeRepo struct {
	calls   atomic.Int32
	users   []user.User
	err     error
	release chan struct{} // nil 表示立即返回
	gotCred domain.Credential
	mu      sync.Mutex
}

func (f *fakeRepo) List(ctx context.Context, cred domain.Credential) ([]user.User, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.gotCred = cred
	f.mu.Unlock()
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

func twelveUsers() []user.User {
	out := make([]user.User, 0, 12)
	for i := 1; i <= 12; i++ {
		out = append(out, user.User{ID: int64(i), FirstName: "User", LastName: string(rune('a' + i)), Username: "u", Role: "user"})
	}
	return out
}

func newService(t *testing.T, repo domain.UserRepository, timeout time.Duration) (*DashboardService, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	svc := NewDashboardService(zap.New(core), repo, session.NewMemoryStore(time.Hour), Options{
		Table:        usertable.DefaultOptions(),
		FetchTimeout: timeout,
	})
	t.Cleanup(svc.Close)
	return svc, logs
}

func TestMount_FetchesOnceAndStores(t *testing.T) {
	repo := &fakeRepo{users: twelveUsers(), release: make(chan struct{})}
	svc, _ := newService(t, repo, time.Second)
	ctx := context.Background()
	cred := domain.Credential{Token: "abc"}

	t1, err := svc.Mount(ctx, "s1", cred)
	require.NoError(t, err)
	t2, err := svc.Mount(ctx, "s1", cred)
	require.NoError(t, err)
	assert.Same(t, t1, t2, "second mount must reuse the running task")

	snap, err := svc.View(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, snap.Loading)
	assert.True(t, snap.Empty)

	close(repo.release)
	require.NoError(t, t1.Wait(ctx))

	snap, err = svc.View(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, snap.Loading)
	assert.Equal(t, 12, snap.RowCount)
	assert.Len(t, snap.Rows, 5)

	t3, err := svc.Mount(ctx, "s1", cred)
	require.NoError(t, err)
	require.NoError(t, t3.Wait(ctx))
	assert.Equal(t, int32(1), repo.calls.Load())
	assert.Equal(t, "abc", repo.gotCred.Token)
}

func TestMount_FailureLeavesListEmpty(t *testing.T) {
	repo := &fakeRepo{err: errors.New("upstream 500")}
	svc, logs := newService(t, repo, time.Second)
	ctx := context.Background()

	task, err := svc.Mount(ctx, "s1", domain.Credential{})
	require.NoError(t, err)
	require.Error(t, task.Wait(ctx))

	snap, err := svc.View(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, snap.Loading)
	assert.True(t, snap.Empty)
	assert.Equal(t, 1, logs.FilterMessage("user fetch failed").Len())

	// 不重试
	again, err := svc.Mount(ctx, "s1", domain.Credential{})
	require.NoError(t, err)
	require.NoError(t, again.Wait(ctx))
	assert.Equal(t, int32(1), repo.calls.Load())
}

func TestMount_TimeoutCountsAsFailure(t *testing.T) {
	repo := &fakeRepo{release: make(chan struct{})}
	svc, _ := newService(t, repo, 20*time.Millisecond)
	ctx := context.Background()

	task, err := svc.Mount(ctx, "s1", domain.Credential{})
	require.NoError(t, err)
	require.ErrorIs(t, task.Wait(ctx), context.DeadlineExceeded)

	snap, err := svc.View(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, snap.Loading)
	assert.True(t, snap.Empty)
}

func TestUnmount_CancelsFetch(t *testing.T) {
	repo := &fakeRepo{users: twelveUsers(), release: make(chan struct{})}
	svc, _ := newService(t, repo, time.Minute)
	ctx := context.Background()

	task, err := svc.Mount(ctx, "s1", domain.Credential{})
	require.NoError(t, err)
	require.NoError(t, svc.Unmount(ctx, "s1"))

	require.ErrorIs(t, task.Wait(ctx), context.Canceled)
	_, err = svc.View(ctx, "s1")
	require.ErrorIs(t, err, session.ErrNotFound)
	close(repo.release)
}

func TestWait_ContextEndsFirst(t *testing.T) {
	repo := &fakeRepo{release: make(chan struct{})}
	svc, _ := newService(t, repo, time.Minute)

	task, err := svc.Mount(context.Background(), "s1", domain.Credential{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, task.Wait(ctx), context.DeadlineExceeded)
	close(repo.release)
	require.NoError(t, task.Wait(context.Background()))
}

func TestOpenAndDispatch(t *testing.T) {
	repo := &fakeRepo{users: twelveUsers()}
	svc, _ := newService(t, repo, time.Second)
	ctx := context.Background()

	snap, err := svc.Open(ctx, "s1", domain.Credential{Token: "t"}, time.Second)
	require.NoError(t, err)
	require.False(t, snap.Loading)

	snap, err = svc.Dispatch(ctx, "s1", usertable.Action{Type: usertable.ActionSort, Field: "id"})
	require.NoError(t, err)
	snap, err = svc.Dispatch(ctx, "s1", usertable.Action{Type: usertable.ActionPage, Page: 2})
	require.NoError(t, err)
	assert.Len(t, snap.Rows, 2)
	assert.Equal(t, 3, snap.EmptyRows)

	snap, err = svc.Dispatch(ctx, "s1", usertable.Action{Type: usertable.ActionRowsPerPage, RowsPerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, snap.State.Page)

	// 状态已持久化到会话
	snap, err = svc.View(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 10, snap.State.RowsPerPage)
	assert.Equal(t, user.FieldID, snap.State.OrderBy)

	_, err = svc.Dispatch(ctx, "s1", usertable.Action{Type: usertable.ActionRowsPerPage, RowsPerPage: 11})
	require.ErrorIs(t, err, usertable.ErrRowsPerPage)

	_, err = svc.Dispatch(ctx, "missing", usertable.Action{Type: usertable.ActionResetPage})
	require.ErrorIs(t, err, session.ErrNotFound)
}
