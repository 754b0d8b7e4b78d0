package service

import (
	"context"
	"sync"
)

// FetchTask is the single user-list fetch of one mounted view.
type FetchTask struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu  sync.Mutex
	err error
}

func newFetchTask(cancel context.CancelFunc) *FetchTask {
	return &FetchTask{done: make(chan struct{}), cancel: cancel}
}

// finishedTask 已加载过的会话直接返回一个完成态任务
func finishedTask() *FetchTask {
	t := newFetchTask(func() {})
	close(t.done)
	return t
}

func (t *FetchTask) Done() <-chan struct{} { return t.done }

// Wait blocks until the fetch finishes or ctx ends. It returns the fetch error, or
// ctx.Err() when ctx ends first.
func (t *FetchTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *FetchTask) Cancel() { t.cancel() }

func (t *FetchTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *FetchTask) finish(err error) {
	t.mu.Lock()
	t.err = err
	t.mu.Unlock()
	close(t.done)
	t.cancel()
}
