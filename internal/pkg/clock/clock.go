// Package clock абстрагирует текущее время, чтобы TTL кешей можно было тестировать.
package clock

import (
	"sync"
	"time"
)

// Clock возвращает текущее время
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real - системные часы
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

// Fake - управляемые часы для тестов
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

// NewFake создает часы, остановленные на времени t
func NewFake(t time.Time) *Fake {
	return &Fake{now: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance сдвигает часы вперёд на d
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
