package worker

import "context"

// Worker - фоновая задача под управлением WorkerManager
type Worker interface {
	// Start блокируется до Stop или отмены ctx
	Start(ctx context.Context) error

	// Stop сигнализирует о завершении, не дожидаясь его
	Stop() error

	Name() string
}
