package catalog

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/logging"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/infrastructure/monitoring"
	"github.com/SerVas333/WindowsLauncher-sub007/internal/shared/types"
)

// maxRemoteBody caps the remote catalog payload size.
const maxRemoteBody = 4 << 20

// Remote periodically syncs the catalog from a remote URL. When
// configured, the remote set replaces the disk set.
type Remote struct {
	url     string
	refresh time.Duration
	client  *retryablehttp.Client
	store   *Store
	logger  *logging.Logger
	metrics *monitoring.Metrics
	done    chan struct{}
}

// NewRemote creates a remote syncer. url must be non-empty.
func NewRemote(url string, refresh time.Duration, store *Store, logger *logging.Logger, metrics *monitoring.Metrics) *Remote {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 10 * time.Second
	client.Logger = nil

	return &Remote{
		url:     url,
		refresh: refresh,
		client:  client,
		store:   store,
		logger:  logger.Component("catalog-remote"),
		metrics: metrics,
		done:    make(chan struct{}),
	}
}

// Start fetches once, then refreshes on the configured interval until
// ctx is canceled or Close is called.
func (r *Remote) Start(ctx context.Context) {
	if err := r.Sync(ctx); err != nil {
		r.logger.Warn("initial remote sync failed", zap.Error(err))
	}

	go func() {
		ticker := time.NewTicker(r.refresh)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-r.done:
				return
			case <-ticker.C:
				if err := r.Sync(ctx); err != nil {
					r.logger.Warn("remote sync failed", zap.Error(err))
				}
			}
		}
	}()
}

// Close stops the refresh loop.
func (r *Remote) Close() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

// Sync fetches the remote catalog and swaps it into the store.
func (r *Remote) Sync(ctx context.Context) error {
	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", r.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	var m manifest
	if err := sonic.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	apps := make([]types.Application, 0, len(m.Apps))
	seen := make(map[string]bool, len(m.Apps))
	for _, app := range m.Apps {
		if err := validate(app); err != nil {
			r.logger.Warn("skipping invalid remote record",
				zap.String("app_id", app.ID),
				zap.Error(err),
			)
			continue
		}
		if seen[app.ID] {
			r.logger.Warn("duplicate remote app id, keeping first", zap.String("app_id", app.ID))
			continue
		}
		seen[app.ID] = true
		apps = append(apps, app)
	}

	r.store.Replace(apps)
	r.metrics.SetCatalogApps(r.store.Len())
	r.metrics.IncCatalogReloads()
	r.logger.Info("remote catalog synced", zap.Int("apps", len(apps)))
	return nil
}
