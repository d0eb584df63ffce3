package usecase

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/route-composer/internal/pkg/clock"
)

// QuotaGuard - бюджет вызовов провайдера на скользящее окно.
// Каждый вызов (успешный или нет) атомарно увеличивает счётчик.
type QuotaGuard struct {
	budget int64
	window time.Duration
	clock  clock.Clock

	mu          sync.Mutex
	windowStart time.Time

	used  atomic.Int64
	total atomic.Int64
}

// NewQuotaGuard создаёт guard; budget <= 0 отключает ограничение
func NewQuotaGuard(budget int64, window time.Duration, clk clock.Clock) *QuotaGuard {
	return &QuotaGuard{
		budget:      budget,
		window:      window,
		clock:       clk,
		windowStart: clk.Now(),
	}
}

// Acquire учитывает вызов и сообщает, укладывается ли он в бюджет окна
func (q *QuotaGuard) Acquire() bool {
	q.rotate()
	q.total.Add(1)
	n := q.used.Add(1)
	return q.budget <= 0 || n <= q.budget
}

// Remaining - остаток бюджета в текущем окне; -1 если ограничения нет
func (q *QuotaGuard) Remaining() int64 {
	if q.budget <= 0 {
		return -1
	}
	q.rotate()
	left := q.budget - q.used.Load()
	if left < 0 {
		return 0
	}
	return left
}

// Total - число вызовов за время жизни процесса
func (q *QuotaGuard) Total() int64 {
	return q.total.Load()
}

func (q *QuotaGuard) rotate() {
	if q.window <= 0 {
		return
	}
	now := q.clock.Now()

	q.mu.Lock()
	defer q.mu.Unlock()
	if now.Sub(q.windowStart) >= q.window {
		q.windowStart = now
		q.used.Store(0)
	}
}
