package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/sync/singleflight"

	"github.com/vilaca/branch-dashboard/internal/domain"
	"github.com/vilaca/branch-dashboard/internal/notify"
)

// ErrNoOwner is returned when a workspace is requested without a username.
var ErrNoOwner = errors.New("workspace owner is required")

// Publisher forwards queue events of one owner to its live connections.
type Publisher interface {
	Publish(owner string, ev notify.Event)
}

// Workspace is the private state of one signed-in user: a copy of the branch
// records and a notification queue.
type Workspace struct {
	Owner         string
	Store         *BranchStore
	Notifications *notify.Queue
}

// Refresh runs SimulateRefresh against this workspace's own queue.
func (w *Workspace) Refresh() bool {
	return w.Store.SimulateRefresh(w.Notifications)
}

// Close stops the pending notification timers.
func (w *Workspace) Close() {
	w.Notifications.Close()
}

// WorkspacesConfig holds the settings shared by every workspace.
type WorkspacesConfig struct {
	Records         []domain.Branch
	Sentinel        string
	NotificationTTL time.Duration
	IdleTTL         time.Duration // how long a workspace outlives its creation
	MaxEntries      int64
	Publisher       Publisher // optional
	Logger          *slog.Logger
}

// Workspaces is a bounded registry of per-user workspaces.
// Entries expire after IdleTTL; evicted workspaces are closed.
type Workspaces struct {
	cfg   WorkspacesConfig
	cache *ristretto.Cache[string, *Workspace]
	group singleflight.Group
}

// NewWorkspaces creates the registry.
func NewWorkspaces(cfg WorkspacesConfig) (*Workspaces, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 1000
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 7 * 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *Workspace]{
		NumCounters:        cfg.MaxEntries * 10,
		MaxCost:            cfg.MaxEntries,
		BufferItems:        64,
		IgnoreInternalCost: true,
		OnEvict: func(item *ristretto.Item[*Workspace]) {
			if item.Value != nil {
				item.Value.Close()
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create workspace cache: %w", err)
	}

	return &Workspaces{cfg: cfg, cache: cache}, nil
}

// Get returns the workspace of owner, creating it from the fixture records on first use.
// Concurrent first requests for the same owner share one workspace.
func (ws *Workspaces) Get(owner string) (*Workspace, error) {
	if owner == "" {
		return nil, ErrNoOwner
	}
	if w, ok := ws.cache.Get(owner); ok {
		return w, nil
	}

	v, err, _ := ws.group.Do(owner, func() (any, error) {
		if w, ok := ws.cache.Get(owner); ok {
			return w, nil
		}

		w := ws.newWorkspace(owner)
		if !ws.cache.SetWithTTL(owner, w, 1, ws.cfg.IdleTTL) {
			ws.cfg.Logger.Warn("workspace not admitted to cache", "owner", owner)
		}
		ws.cache.Wait()
		ws.cfg.Logger.Debug("workspace created", "owner", owner)
		return w, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Workspace), nil
}

// Drop discards the workspace of owner, if any.
func (ws *Workspaces) Drop(owner string) {
	if w, ok := ws.cache.Get(owner); ok {
		w.Close()
	}
	ws.cache.Del(owner)
	ws.cache.Wait()
}

// Close releases the cache. Workspaces must not be used afterwards.
func (ws *Workspaces) Close() {
	ws.cache.Clear()
	ws.cache.Close()
}

func (ws *Workspaces) newWorkspace(owner string) *Workspace {
	var opts []notify.Option
	if pub := ws.cfg.Publisher; pub != nil {
		opts = append(opts, notify.WithListener(func(ev notify.Event) {
			pub.Publish(owner, ev)
		}))
	}

	return &Workspace{
		Owner:         owner,
		Store:         NewBranchStore(ws.cfg.Records, ws.cfg.Sentinel),
		Notifications: notify.NewQueue(ws.cfg.NotificationTTL, opts...),
	}
}
