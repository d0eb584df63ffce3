package route

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/domain/repository"
	"github.com/route-composer/internal/pkg/errors"
	"github.com/route-composer/internal/pkg/validator"
	"github.com/route-composer/internal/usecase"
	"github.com/route-composer/internal/usecase/dto"
	"github.com/route-composer/internal/worker"
	"go.uber.org/zap"
)

const (
	emptyQueueSleep = 100 * time.Millisecond // пауза если очередь пуста
	errorSleep      = time.Second
	publishBackoff  = 200 * time.Millisecond

	defaultClaimIdle = time.Minute
	minClaimInterval = time.Second
)

// RouteComputer - расчёт маршрута по выбору (RouteUsecase)
type RouteComputer interface {
	Compute(ctx context.Context, sel usecase.Selection, cfg domain.RouteConfiguration) (*domain.Route, bool, error)
}

// ComputeWorker читает stream:route:compute, считает маршруты и публикует результат в stream:route:done
type ComputeWorker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	routes       RouteComputer
	defaults     domain.RouteConfiguration
	consumerName string
	batchSize    int64
	maxRetries   int
	claimIdle    time.Duration
	lastClaim    time.Time
}

func NewComputeWorker(
	streamRepo repository.StreamRepository,
	routes RouteComputer,
	defaults domain.RouteConfiguration,
	consumerGroup string,
	batchSize int64,
	maxRetries int,
	claimIdle time.Duration,
	logger *zap.Logger,
) *ComputeWorker {
	hostname, _ := os.Hostname()
	if batchSize <= 0 {
		batchSize = 10
	}
	if claimIdle < 0 {
		claimIdle = defaultClaimIdle
	}

	return &ComputeWorker{
		BaseWorker:   worker.NewBaseWorker("route-compute", consumerGroup, logger),
		streamRepo:   streamRepo,
		routes:       routes,
		defaults:     defaults,
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		batchSize:    batchSize,
		maxRetries:   maxRetries,
		claimIdle:    claimIdle,
	}
}

// Start запускает воркер
func (w *ComputeWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting ComputeWorker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Int64("batch_size", w.batchSize))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamRouteCompute, w.ConsumerGroup()); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()
		default:
		}

		if time.Since(w.lastClaim) >= max(w.claimIdle, minClaimInterval) {
			w.lastClaim = time.Now()
			if _, err := w.ReclaimPending(ctx); err != nil {
				logger.Error("Failed to reclaim pending messages", zap.Error(err))
			}
		}

		pause := time.Duration(0)
		processed, err := w.ProcessBatch(ctx)
		switch {
		case err != nil:
			logger.Error("Failed to process batch", zap.Error(err))
			pause = errorSleep
		case processed == 0:
			pause = emptyQueueSleep
		}
		if pause == 0 {
			continue
		}

		select {
		case <-w.StopChan():
		case <-ctx.Done():
		case <-time.After(pause):
		}
	}
}

// ProcessBatch читает одну пачку и обрабатывает её. Возвращает количество прочитанных сообщений.
// Каждое сообщение подтверждается после публикации результата; битые сообщения подтверждаются сразу.
func (w *ComputeWorker) ProcessBatch(ctx context.Context) (int, error) {
	logger := w.Logger()

	messages, err := w.streamRepo.ConsumeBatch(ctx, domain.StreamRouteCompute, w.ConsumerGroup(), w.consumerName, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	logger.Info("Processing batch", zap.Int("message_count", len(messages)))
	w.process(ctx, messages)
	return len(messages), nil
}

// ReclaimPending забирает сообщения, оставшиеся без ACK дольше claimIdle (упавший воркер или
// неудачная публикация результата), и обрабатывает их заново. Возвращает их количество.
func (w *ComputeWorker) ReclaimPending(ctx context.Context) (int, error) {
	messages, err := w.streamRepo.ClaimPending(ctx, domain.StreamRouteCompute, w.ConsumerGroup(), w.consumerName, w.claimIdle, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to claim pending messages: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	w.Logger().Info("Reprocessing pending messages", zap.Int("message_count", len(messages)))
	w.process(ctx, messages)
	return len(messages), nil
}

// process обрабатывает сообщения по одному; ACK - только после публикации результата
func (w *ComputeWorker) process(ctx context.Context, messages []domain.StreamMessage) {
	logger := w.Logger()
	for _, msg := range messages {
		event, err := parseMessage(msg)
		if err != nil {
			logger.Warn("Failed to parse message, skipping",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			w.ack(ctx, msg.ID)
			continue
		}

		done := w.handle(ctx, event)
		if err := w.publish(ctx, done); err != nil {
			// без ACK сообщение останется в pending до ReclaimPending
			logger.Error("Failed to publish done event",
				zap.String("request_id", event.RequestID.String()),
				zap.Error(err))
			continue
		}
		w.ack(ctx, msg.ID)
	}
}

func (w *ComputeWorker) handle(ctx context.Context, event *domain.RouteComputeEvent) *domain.RouteDoneEvent {
	done := &domain.RouteDoneEvent{RequestID: event.RequestID}

	cfg, err := w.configuration(event.Configuration)
	if err != nil {
		return fail(done, err)
	}

	sel := usecase.Selection{
		HubCodes:       event.HubCodes,
		SatelliteCodes: event.SatelliteCodes,
		Airstrips:      event.Airstrips,
		Assignments:    event.Assignments,
	}

	caller := event.Caller
	if caller == "" {
		caller = "stream"
	}
	route, cached, err := w.routes.Compute(usecase.WithCaller(ctx, caller), sel, cfg)
	if err != nil {
		w.Logger().Info("Route request failed",
			zap.String("request_id", event.RequestID.String()),
			zap.Error(err))
		return fail(done, err)
	}

	done.Route = usecase.ExportRoute(route)
	done.Cached = cached
	return done
}

// configuration применяет частичную конфигурацию события к значениям по умолчанию
func (w *ComputeWorker) configuration(raw map[string]interface{}) (domain.RouteConfiguration, error) {
	if len(raw) == 0 {
		return w.defaults.Clone(), nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return domain.RouteConfiguration{}, errors.Wrap(errors.ErrInvalidConfiguration, err)
	}
	var req dto.ConfigurationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.RouteConfiguration{}, errors.Wrap(errors.ErrInvalidConfiguration.WithMessage("invalid configuration: %v", err), err)
	}
	if err := validator.Validate(&req); err != nil {
		return domain.RouteConfiguration{}, err
	}

	patch, err := req.ToPatch()
	if err != nil {
		return domain.RouteConfiguration{}, err
	}
	return patch.Apply(w.defaults)
}

func (w *ComputeWorker) publish(ctx context.Context, done *domain.RouteDoneEvent) error {
	var err error
	for attempt := 0; attempt <= w.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(publishBackoff * time.Duration(attempt)):
			}
		}
		if err = w.streamRepo.PublishToStream(ctx, domain.StreamRouteDone, done); err == nil {
			return nil
		}
	}
	return err
}

func (w *ComputeWorker) ack(ctx context.Context, id string) {
	if err := w.streamRepo.AckMessages(ctx, domain.StreamRouteCompute, w.ConsumerGroup(), id); err != nil {
		w.Logger().Error("Failed to ack message", zap.String("message_id", id), zap.Error(err))
	}
}

func parseMessage(msg domain.StreamMessage) (*domain.RouteComputeEvent, error) {
	var event domain.RouteComputeEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}

func fail(done *domain.RouteDoneEvent, err error) *domain.RouteDoneEvent {
	if appErr, ok := errors.As(err); ok {
		done.ErrorCode = appErr.Code
		done.Error = appErr.Message
		return done
	}
	done.ErrorCode = errors.ErrInternalServer.Code
	done.Error = err.Error()
	return done
}
