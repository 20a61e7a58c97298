package roster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gimsr/rotation-scheduler/internal/domain/shared"
	"github.com/gimsr/rotation-scheduler/pkg/circuitbreaker"
	"github.com/gimsr/rotation-scheduler/pkg/logger"
	"github.com/gimsr/rotation-scheduler/pkg/retry"
)

// maxRosterBytes caps the downloaded file. The real export is a few KB.
const maxRosterBytes = 4 << 20

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// HTTPConfig configures the remote roster download.
type HTTPConfig struct {
	// URL of the CSV file, e.g. a raw GitHub link.
	URL string

	// Timeout bounds one HTTP attempt.
	Timeout time.Duration

	// MaxAttempts includes the first attempt.
	MaxAttempts int

	// RetryBaseDelay is the wait before the first retry.
	RetryBaseDelay time.Duration

	// Client overrides the HTTP client (tests).
	Client *http.Client

	// Breaker overrides the circuit breaker. Nil means RosterSourceBreaker.
	Breaker *circuitbreaker.CircuitBreaker

	// Retrier overrides the backoff policy. Nil means RosterFetchRetrier.
	Retrier *retry.Retrier

	Logger *logger.Logger
}

// StatusError is a non-2xx response from the roster host.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("roster host responded %d %s", e.Code, http.StatusText(e.Code))
}

// Temporary reports whether another attempt may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// ══════════════════════════════════════════════════════════════════════════════
// SOURCE
// ══════════════════════════════════════════════════════════════════════════════

// HTTPSource downloads the roster CSV. Each call goes through the circuit
// breaker once; inside it the download is retried with backoff.
type HTTPSource struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
	retrier    *retry.Retrier
	log        *logger.Logger
}

// NewHTTPSource creates a new HTTPSource.
func NewHTTPSource(cfg HTTPConfig) *HTTPSource {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	log := cfg.Logger.With(logger.Component("roster_http"))

	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Breaker == nil {
		cfg.Breaker = circuitbreaker.RosterSourceBreaker(func(t circuitbreaker.Transition) {
			log.Warn("roster download breaker "+t.To.String(),
				logger.String("from", t.From.String()),
				logger.Int("failures", t.Failures),
				logger.Any("retry_at", t.RetryAt),
				logger.Err(t.Cause),
			)
		})
	}
	if cfg.Retrier == nil {
		cfg.Retrier = retry.RosterFetchRetrier(cfg.MaxAttempts, cfg.RetryBaseDelay,
			retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
				log.Warn("roster download failed, retrying",
					logger.Int("attempt", attempt),
					logger.Duration("delay", delay),
					logger.Err(err),
				)
			}),
		)
	}

	return &HTTPSource{
		url:        cfg.URL,
		timeout:    cfg.Timeout,
		httpClient: cfg.Client,
		breaker:    cfg.Breaker,
		retrier:    cfg.Retrier,
		log:        log,
	}
}

var _ Source = (*HTTPSource)(nil)

// Name returns "http".
func (s *HTTPSource) Name() string { return "http" }

// Fetch downloads and parses the roster. Every transport or status failure
// comes back wrapped in shared.ErrRosterUnavailable.
func (s *HTTPSource) Fetch(ctx context.Context) ([]Record, error) {
	if s.url == "" {
		return nil, shared.ErrRosterUnavailable.Wrap(errors.New("roster URL is not configured"))
	}

	var records []Record
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		records, err = retry.DoWithData(ctx, s.retrier, s.fetchOnce)
		return err
	})
	if err != nil {
		if errors.Is(err, shared.ErrRosterMalformed) || errors.Is(err, shared.ErrRosterEmpty) {
			return nil, err
		}
		return nil, shared.ErrRosterUnavailable.Wrap(err)
	}
	return records, nil
}

func (s *HTTPSource) fetchOnce(ctx context.Context) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.1")

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.log.Warn("roster download failed", logger.Err(err))
		return nil, retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{Code: resp.StatusCode}
		s.log.Warn("roster host error", logger.Int("status", resp.StatusCode))
		if statusErr.Temporary() {
			return nil, retry.Retryable(statusErr)
		}
		return nil, retry.Permanent(statusErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRosterBytes))
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	records, err := ParseCSV(bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(err)
	}

	s.log.Debug("roster downloaded",
		logger.Int("bytes", len(body)),
		logger.Int("rows", len(records)),
		logger.Latency(time.Since(start)),
	)
	return records, nil
}
