// Package coord runs the background work of a labeling session: polling the
// cluster and index lifecycle and issuing the start/build requests.
package coord

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/forager/internal/backend"
	"github.com/abelbrown/forager/internal/lifecycle"
	"github.com/abelbrown/forager/internal/otel"
	"github.com/abelbrown/forager/internal/store"
	"github.com/abelbrown/forager/internal/ui"
)

// DefaultInterval is the time between poll cycles.
const DefaultInterval = 3 * time.Second

// pollTimeout bounds each individual status request.
const pollTimeout = 10 * time.Second

// maxConcurrentPolls limits parallel status requests.
const maxConcurrentPolls = 4

// lifecycleClient is the subset of backend.Client the poller needs.
type lifecycleClient interface {
	StartCluster(ctx context.Context) (string, error)
	ClusterStatus(ctx context.Context, clusterID string) (backend.ClusterStatus, error)
	CreateIndex(ctx context.Context, dataset, clusterID string) (string, error)
	IndexStatus(ctx context.Context, indexID string) (bool, error)
}

// Sender receives messages for the UI. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// Poller polls the saved cluster and index ids and feeds the results to the
// UI as lifecycle actions. Context cancellation is the ONLY stop mechanism.
type Poller struct {
	client   lifecycleClient
	store    *store.Store
	interval time.Duration
	logger   *otel.Logger
	wg       sync.WaitGroup

	mu    sync.Mutex
	built map[string]bool // index ids already reported built
}

// NewPoller creates a Poller. A non-positive interval uses DefaultInterval.
func NewPoller(client lifecycleClient, s *store.Store, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		client:   client,
		store:    s,
		interval: interval,
		built:    make(map[string]bool),
	}
}

// SetLogger attaches an event logger.
func (p *Poller) SetLogger(l *otel.Logger) { p.logger = l }

// Start begins polling. Polls once immediately, then every interval.
func (p *Poller) Start(ctx context.Context, sender Sender) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		p.pollAll(ctx, sender)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.pollAll(ctx, sender)
			}
		}
	}()
}

// Wait blocks until the polling goroutine exits.
// Call after canceling the context passed to Start.
func (p *Poller) Wait() {
	p.wg.Wait()
}

// pollAll reads the saved ids and polls each one in parallel.
// Messages arrive at the sender in no particular order.
func (p *Poller) pollAll(ctx context.Context, sender Sender) {
	clusterID, err := p.store.ClusterID()
	if err != nil {
		p.logger.Error(otel.KindStoreError, "coord", err)
		return
	}
	indexes, err := p.store.IndexIDs()
	if err != nil {
		p.logger.Error(otel.KindStoreError, "coord", err)
		return
	}

	var g errgroup.Group
	g.SetLimit(maxConcurrentPolls)

	if clusterID != "" {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			p.pollCluster(ctx, clusterID, sender)
			return nil
		})
	}
	for dataset, indexID := range indexes {
		if p.isBuilt(indexID) {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			p.pollIndex(ctx, dataset, indexID, sender)
			return nil
		})
	}

	_ = g.Wait() // never fails: errors are reported per target
}

func (p *Poller) pollCluster(ctx context.Context, clusterID string, sender Sender) {
	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	start := time.Now()
	st, err := p.client.ClusterStatus(pollCtx, clusterID)
	if err != nil {
		p.report(sender, "cluster "+clusterID, err)
		return
	}
	if !st.HasCluster {
		// The server no longer knows this cluster; stop polling it.
		if err := p.store.ClearClusterID(); err != nil {
			p.logger.Error(otel.KindStoreError, "coord", err)
		}
	}

	status := lifecycle.ClusterStatusOf(st.HasCluster, st.Started, st.Ready)
	p.logger.Emit(otel.Event{
		Level: otel.LevelDebug,
		Kind:  otel.KindClusterStatus,
		Comp:  "coord",
		Value: status.String(),
		Dur:   time.Since(start),
	})
	send(sender, ui.LifecycleMsg{Action: lifecycle.SetClusterStatus{
		HasCluster: st.HasCluster,
		Started:    st.Started,
		Ready:      st.Ready,
	}})
}

func (p *Poller) pollIndex(ctx context.Context, dataset, indexID string, sender Sender) {
	pollCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	start := time.Now()
	hasIndex, err := p.client.IndexStatus(pollCtx, indexID)
	if err != nil {
		p.report(sender, "index "+dataset, err)
		return
	}
	if hasIndex {
		p.mu.Lock()
		p.built[indexID] = true
		p.mu.Unlock()
	}

	p.logger.Emit(otel.Event{
		Level:   otel.LevelDebug,
		Kind:    otel.KindIndexStatus,
		Comp:    "coord",
		Dataset: dataset,
		Value:   fmt.Sprintf("has_index=%t", hasIndex),
		Dur:     time.Since(start),
	})
	send(sender, ui.LifecycleMsg{Action: lifecycle.SetIndexStatus{Dataset: dataset, HasIndex: hasIndex}})
}

func (p *Poller) isBuilt(indexID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.built[indexID]
}

func (p *Poller) report(sender Sender, target string, err error) {
	p.logger.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindPollError, Comp: "coord", Value: target, Err: err.Error()})
	send(sender, ui.PollError{Target: target, Err: err})
}

// StartClusterCmd returns a command that starts a cluster and saves its id.
func (p *Poller) StartClusterCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
		defer cancel()

		id, err := p.client.StartCluster(ctx)
		if err != nil {
			return ui.ActionFailed{Op: "start cluster", Err: err}
		}
		if err := p.store.SaveClusterID(id); err != nil {
			p.logger.Error(otel.KindStoreError, "coord", err)
		}
		p.logger.Emit(otel.Event{Kind: otel.KindLifecycleAction, Comp: "coord", Value: lifecycle.TypeSetClusterID})
		return ui.LifecycleMsg{Action: lifecycle.SetClusterID{ClusterID: id}}
	}
}

// BuildIndexCmd returns a command that starts an index build for dataset on
// the saved cluster and saves the index id.
func (p *Poller) BuildIndexCmd(dataset string) tea.Cmd {
	return func() tea.Msg {
		clusterID, err := p.store.ClusterID()
		if err != nil {
			return ui.ActionFailed{Op: "build index", Err: err}
		}
		if clusterID == "" {
			return ui.ActionFailed{Op: "build index", Err: fmt.Errorf("no cluster started")}
		}

		ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
		defer cancel()

		id, err := p.client.CreateIndex(ctx, dataset, clusterID)
		if err != nil {
			return ui.ActionFailed{Op: "build index", Err: err}
		}
		if err := p.store.SaveIndexID(dataset, id); err != nil {
			p.logger.Error(otel.KindStoreError, "coord", err)
		}
		p.logger.Emit(otel.Event{Kind: otel.KindLifecycleAction, Comp: "coord", Dataset: dataset, Value: lifecycle.TypeSetIndexID})
		return ui.LifecycleMsg{Action: lifecycle.SetIndexID{Dataset: dataset, IndexID: id}}
	}
}

// send delivers msg, tolerating a nil sender in tests.
func send(sender Sender, msg tea.Msg) {
	if sender != nil {
		sender.Send(msg)
	}
}
