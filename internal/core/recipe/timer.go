package recipe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"plateful/internal/pkg/common"

	"go.uber.org/zap"
)

const timerKeyPrefix = "timer:"

// TimerService 以 Redis 鍵的存活時間表示正在倒數的烹飪計時器
type TimerService struct {
	client redis.Cmdable
}

// NewTimerService 創建計時器服務
func NewTimerService(client redis.Cmdable) *TimerService {
	return &TimerService{client: client}
}

func timerKey(id string) string {
	return timerKeyPrefix + id
}

// Start 開始倒數；同一個 ID 重複啟動會重新計時
func (s *TimerService) Start(ctx context.Context, id string, durationSeconds int) (*RunningTimer, error) {
	if id == "" {
		return nil, common.NewValidationError("timer_id", "is required")
	}
	if durationSeconds <= 0 {
		return nil, common.NewValidationError("duration", fmt.Sprintf("must be greater than 0, got %d", durationSeconds))
	}

	d := time.Duration(durationSeconds) * time.Second
	if err := s.client.Set(ctx, timerKey(id), durationSeconds, d).Err(); err != nil {
		return nil, fmt.Errorf("start timer: %w", err)
	}

	common.LogDebug("計時器已啟動", zap.String("timer_id", id), zap.Int("duration", durationSeconds))
	return &RunningTimer{ID: id, Duration: durationSeconds, Remaining: durationSeconds}, nil
}

// Get 查詢剩餘秒數；鍵已過期或不存在時回傳 ErrTimerNotFound
func (s *TimerService) Get(ctx context.Context, id string) (*RunningTimer, error) {
	key := timerKey(id)
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTimerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get timer: %w", err)
	}

	duration, err := strconv.Atoi(val)
	if err != nil {
		return nil, fmt.Errorf("corrupt timer value %q: %w", val, err)
	}

	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get timer ttl: %w", err)
	}
	// -2 表示鍵在兩次查詢之間過期
	if ttl == -2 {
		return nil, ErrTimerNotFound
	}

	remaining := int(ttl.Round(time.Second) / time.Second)
	if remaining < 0 {
		remaining = 0
	}
	return &RunningTimer{ID: id, Duration: duration, Remaining: remaining}, nil
}
