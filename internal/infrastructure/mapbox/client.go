package mapbox

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/route-composer/internal/config"
	"github.com/route-composer/internal/domain"
	"github.com/route-composer/internal/domain/repository"
	"github.com/route-composer/internal/pkg/errors"
	"go.uber.org/zap"
)

const (
	maxOptimizationPoints = 12
	maxDirectionsPoints   = 25
)

type client struct {
	httpClient     *http.Client
	baseURL        string
	accessToken    string
	profile        string
	geocodeCountry string
	retryAttempts  int
	retryBackoff   time.Duration
	logger         *zap.Logger
}

// NewMapboxClient создает новый клиент для Mapbox API.
// timeout ограничивает один HTTP-запрос; общий таймаут вызова задаёт шлюз через ctx.
func NewMapboxClient(cfg *config.MapboxConfig, timeout time.Duration, logger *zap.Logger) repository.RoutingProvider {
	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		accessToken:    cfg.AccessToken,
		profile:        cfg.Profile,
		geocodeCountry: cfg.GeocodeCountry,
		retryAttempts:  attempts,
		retryBackoff:   cfg.RetryBackoff,
		logger:         logger,
	}
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("mapbox API error: status %d, body: %s", e.Code, e.Body)
}

func (c *client) newRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("access_token", c.accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}

// doWithRetry повторяет запрос при сетевых ошибках и 502/503/504.
// 429 не повторяется: лимит провайдера должен дойти до вызывающего как QUOTA_EXCEEDED.
func (c *client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := c.retryBackoff
	var lastErr error

	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, err := makeReq()
		if err != nil {
			return nil, err
		}

		resp, err := c.do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		retry := false
		var he *httpStatusError
		if stderrors.As(err, &he) {
			switch he.Code {
			case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
				retry = true
			}
		}
		var netErr net.Error
		if !retry && stderrors.As(err, &netErr) && ctx.Err() == nil {
			retry = true
		}

		if !retry || attempt == c.retryAttempts {
			return nil, lastErr
		}

		c.logger.Debug("Retrying Mapbox request",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}

	return nil, lastErr
}

// classifyError переводит транспортную ошибку в AppError провайдера.
// notFound - код для 404/422 (ROUTE_NOT_FOUND или GEOCODING_FAILED)
func classifyError(err error, notFound *errors.AppError) error {
	var he *httpStatusError
	if stderrors.As(err, &he) {
		switch {
		case he.Code == http.StatusTooManyRequests:
			return errors.Wrap(errors.ErrQuotaExceeded, err)
		case he.Code == http.StatusNotFound || he.Code == http.StatusUnprocessableEntity:
			return errors.Wrap(notFound, err)
		case he.Code == http.StatusUnauthorized || he.Code == http.StatusForbidden:
			return errors.Wrap(errors.ErrProviderUnavailable.WithMessage("routing provider rejected credentials"), err)
		}
	}
	return errors.Wrap(errors.ErrProviderUnavailable, err)
}

// classifyCode переводит поле code ответа Mapbox в AppError
func classifyCode(code, message string) error {
	cause := fmt.Errorf("mapbox API returned code: %s %s", code, message)
	switch code {
	case "NoRoute", "NoSegment", "NoTrips", "NoMatch":
		return errors.Wrap(errors.ErrRouteNotFound, cause)
	case "InvalidInput", "ProfileNotFound":
		return errors.Wrap(errors.ErrRouteNotFound.WithMessage("routing provider rejected the request"), cause)
	default:
		return errors.Wrap(errors.ErrProviderUnavailable, cause)
	}
}

func formatCoordinates(points []domain.Coordinate) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = fmt.Sprintf("%.6f,%.6f", p.Lon, p.Lat)
	}
	return strings.Join(parts, ";")
}
