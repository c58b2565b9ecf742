package agent

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/config"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/monitoring"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/resilience"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/errors"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// Client talks to the native window agent, the OS-side sidecar that owns
// the real window-system calls. It implements winsys.Manager.
type Client struct {
	http    *resty.Client
	breaker *resilience.Breaker
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// New creates an agent client from config. Retries cover connection
// errors only; HTTP error statuses are mapped, not retried.
func New(cfg config.AgentConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Client {
	log := logger.Component("window-agent")

	httpClient := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(50 * time.Millisecond).
		SetRetryMaxWaitTime(500 * time.Millisecond).
		SetHeader("User-Agent", "launcherd/1.0").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil
		})

	breaker := resilience.New("window-agent", resilience.Settings{
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5 ||
				(counts.Requests >= 10 && float64(counts.TotalFailures)/float64(counts.Requests) > 0.5)
		},
		// Stale handles and lookup misses are expected outcomes. Only
		// transport-level failures count against the circuit.
		IsFailure: func(err error) bool {
			return errors.Is(err, errors.ErrTimeout) || errors.Is(err, errors.ErrUnavailable)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			log.Warn("breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		http:    httpClient,
		breaker: breaker,
		metrics: metrics,
		logger:  log,
	}
}

// Ping checks agent reachability
func (c *Client) Ping(ctx context.Context) error {
	return c.get(ctx, "ping", "/v1/health", errors.ErrUnavailable, nil, nil)
}

// BreakerState returns the current circuit state
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}

// EnumerateWindows lists all top-level windows
func (c *Client) EnumerateWindows(ctx context.Context) ([]types.WindowHandle, error) {
	var out []windowPayload
	if err := c.get(ctx, "enumerate_windows", "/v1/windows", errors.ErrNotFound, nil, &out); err != nil {
		return nil, err
	}
	return toHandles(out), nil
}

// EnumerateProcessWindows lists top-level windows owned by pid
func (c *Client) EnumerateProcessWindows(ctx context.Context, pid int32) ([]types.WindowHandle, error) {
	var out []windowPayload
	params := map[string]string{"pid": strconv.FormatInt(int64(pid), 10)}
	if err := c.get(ctx, "enumerate_process_windows", "/v1/windows", errors.ErrNotFound, params, &out); err != nil {
		return nil, err
	}
	return toHandles(out), nil
}

// FindWindowByTitle searches all windows by title
func (c *Client) FindWindowByTitle(ctx context.Context, title string, exact bool) (types.WindowHandle, error) {
	var out windowPayload
	params := map[string]string{
		"title": title,
		"exact": strconv.FormatBool(exact),
	}
	if err := c.get(ctx, "find_window", "/v1/windows/find", errors.ErrNotFound, params, &out); err != nil {
		return types.WindowHandle{}, err
	}
	return out.handle(), nil
}

// GetWindowInfo revalidates a handle and returns its current state
func (c *Client) GetWindowInfo(ctx context.Context, id uint64) (types.WindowHandle, error) {
	var out windowPayload
	if err := c.get(ctx, "window_info", windowPath(id, ""), errors.ErrInvalidHandle, nil, &out); err != nil {
		return types.WindowHandle{}, err
	}
	return out.handle(), nil
}

// IsWindowValid reports whether the handle still names a window
func (c *Client) IsWindowValid(ctx context.Context, id uint64) bool {
	st, err := c.state(ctx, id)
	if err != nil {
		return false
	}
	return st.Valid
}

// IsWindowVisible reports window visibility
func (c *Client) IsWindowVisible(ctx context.Context, id uint64) (bool, error) {
	st, err := c.state(ctx, id)
	if err != nil {
		return false, err
	}
	return st.Visible, nil
}

// IsWindowMinimized reports whether the window is iconified
func (c *Client) IsWindowMinimized(ctx context.Context, id uint64) (bool, error) {
	st, err := c.state(ctx, id)
	if err != nil {
		return false, err
	}
	return st.Minimized, nil
}

// IsWindowForeground reports whether the window has focus
func (c *Client) IsWindowForeground(ctx context.Context, id uint64) (bool, error) {
	st, err := c.state(ctx, id)
	if err != nil {
		return false, err
	}
	return st.Foreground, nil
}

// ActivateWindow brings the window to the foreground
func (c *Client) ActivateWindow(ctx context.Context, id uint64) error {
	return c.post(ctx, "activate_window", windowPath(id, "activate"))
}

// ForceToForeground is the harder fallback when activation is refused
func (c *Client) ForceToForeground(ctx context.Context, id uint64) error {
	return c.post(ctx, "force_foreground", windowPath(id, "foreground"))
}

// MinimizeWindow iconifies the window
func (c *Client) MinimizeWindow(ctx context.Context, id uint64) error {
	return c.post(ctx, "minimize_window", windowPath(id, "minimize"))
}

// MaximizeWindow maximizes the window
func (c *Client) MaximizeWindow(ctx context.Context, id uint64) error {
	return c.post(ctx, "maximize_window", windowPath(id, "maximize"))
}

// RestoreWindow restores the window from minimized or maximized state
func (c *Client) RestoreWindow(ctx context.Context, id uint64) error {
	return c.post(ctx, "restore_window", windowPath(id, "restore"))
}

// CloseWindow asks the window to close politely
func (c *Client) CloseWindow(ctx context.Context, id uint64) error {
	return c.post(ctx, "close_window", windowPath(id, "close"))
}

// ProcessStats returns memory and responsiveness for pid
func (c *Client) ProcessStats(ctx context.Context, pid int32) (types.ProcessStats, error) {
	var out statsPayload
	path := "/v1/processes/" + strconv.FormatInt(int64(pid), 10) + "/stats"
	if err := c.get(ctx, "process_stats", path, errors.ErrNotFound, nil, &out); err != nil {
		return types.ProcessStats{}, err
	}
	return types.ProcessStats{
		PID:        out.PID,
		MemoryMB:   out.MemoryMB,
		Responding: out.Responding,
		Running:    out.Running,
	}, nil
}

// ----------------------------------------------------------------------------
// Wire payloads
// ----------------------------------------------------------------------------

type windowPayload struct {
	ID      uint64 `json:"id"`
	Title   string `json:"title"`
	Class   string `json:"class"`
	PID     int32  `json:"pid"`
	Visible bool   `json:"visible"`
}

func (p windowPayload) handle() types.WindowHandle {
	return types.WindowHandle{
		ID:      p.ID,
		Title:   p.Title,
		Class:   p.Class,
		PID:     p.PID,
		Visible: p.Visible,
	}
}

func toHandles(payloads []windowPayload) []types.WindowHandle {
	handles := make([]types.WindowHandle, 0, len(payloads))
	for _, p := range payloads {
		handles = append(handles, p.handle())
	}
	return handles
}

type statePayload struct {
	Valid      bool `json:"valid"`
	Visible    bool `json:"visible"`
	Minimized  bool `json:"minimized"`
	Foreground bool `json:"foreground"`
}

type statsPayload struct {
	PID        int32   `json:"pid"`
	MemoryMB   float64 `json:"memory_mb"`
	Responding bool    `json:"responding"`
	Running    bool    `json:"running"`
}

// ----------------------------------------------------------------------------
// Transport
// ----------------------------------------------------------------------------

func windowPath(id uint64, action string) string {
	path := "/v1/windows/" + strconv.FormatUint(id, 10)
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) state(ctx context.Context, id uint64) (statePayload, error) {
	var out statePayload
	err := c.get(ctx, "window_state", windowPath(id, "state"), errors.ErrInvalidHandle, nil, &out)
	return out, err
}

func (c *Client) get(ctx context.Context, op, path string, missing error, params map[string]string, out any) error {
	return c.call(ctx, op, missing, func(r *resty.Request) (*resty.Response, error) {
		if params != nil {
			r.SetQueryParams(params)
		}
		if out != nil {
			r.SetResult(out)
		}
		return r.Get(path)
	})
}

func (c *Client) post(ctx context.Context, op, path string) error {
	return c.call(ctx, op, errors.ErrInvalidHandle, func(r *resty.Request) (*resty.Response, error) {
		return r.Post(path)
	})
}

// call runs one agent request through the breaker, records metrics, and
// maps failures to the error taxonomy.
func (c *Client) call(ctx context.Context, op string, missing error, fn func(*resty.Request) (*resty.Response, error)) error {
	timer := monitoring.NewTimer(c.metrics, op)

	err := c.breaker.Do(func() error {
		resp, reqErr := fn(c.http.R().SetContext(ctx))
		return c.mapError(op, missing, resp, reqErr)
	})

	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		err = errors.NewAgentError(op, 0, errors.ErrUnavailable)
	}

	timer.Stop(statusLabel(err))
	return err
}

// mapError converts transport failures and HTTP statuses to sentinels.
// missing names the sentinel a 404 means for this operation: a stale
// handle for window ops, a plain lookup miss for find and stats.
func (c *Client) mapError(op string, missing error, resp *resty.Response, err error) error {
	if err != nil {
		sentinel := errors.ErrUnavailable
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			sentinel = errors.ErrTimeout
		} else if errors.Is(err, context.DeadlineExceeded) {
			sentinel = errors.ErrTimeout
		}
		return errors.NewAgentError(op, 0, fmt.Errorf("%w: %v", sentinel, err))
	}

	status := resp.StatusCode()
	switch {
	case status < 400:
		return nil
	case status == 404:
		return errors.NewAgentError(op, status, missing)
	case status == 403:
		return errors.NewAgentError(op, status, errors.ErrPermissionDenied)
	case status == 408 || status == 504:
		return errors.NewAgentError(op, status, errors.ErrTimeout)
	case status >= 500:
		return errors.NewAgentError(op, status, errors.ErrUnavailable)
	default:
		return errors.NewAgentError(op, status, errors.ErrUnknown)
	}
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errors.ErrInvalidHandle):
		return "invalid_handle"
	case errors.IsNotFound(err):
		return "not_found"
	case errors.Is(err, errors.ErrPermissionDenied):
		return "denied"
	case errors.Is(err, errors.ErrTimeout):
		return "timeout"
	case errors.Is(err, errors.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
