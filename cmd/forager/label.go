package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/forager/internal/backend"
	"github.com/abelbrown/forager/internal/config"
	"github.com/abelbrown/forager/internal/coord"
	"github.com/abelbrown/forager/internal/engine"
	"github.com/abelbrown/forager/internal/otel"
	"github.com/abelbrown/forager/internal/session"
	"github.com/abelbrown/forager/internal/store"
	"github.com/abelbrown/forager/internal/ui"
)

// requestTimeout bounds each UI-initiated server request.
const requestTimeout = 30 * time.Second

func newLabelCmd() *cobra.Command {
	var caption string

	cmd := &cobra.Command{
		Use:   "label <dataset>",
		Short: "Open the labeling session for a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runLabel(cfg, args[0], caption)
		},
	}

	flags := cmd.Flags()
	addSessionFlags(flags)
	flags.StringVar(&caption, "caption", "", "initial caption search text")
	return cmd
}

func runLabel(cfg config.Config, dataset, caption string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open event log: %w", err)
	}
	defer logFile.Close()

	ring := otel.NewRingBuffer(otel.DefaultRingSize)
	logger := otel.NewLogger(logFile, otel.ParseLevel(cfg.LogLevel))
	logger.SetRingBuffer(ring)
	defer logger.Close()

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	restore, err := st.RestoreActions()
	if err != nil {
		return fmt.Errorf("restore lifecycle: %w", err)
	}

	client := backend.NewClient(cfg.ServerURL, backend.WithRateLimit(cfg.RateLimit))
	poller := coord.NewPoller(client, st, cfg.PollInterval)
	poller.SetLogger(logger)

	eng := engine.NewMemory()
	opts := []session.Option{session.WithLogger(logger)}
	var focus *ui.FocusTracker
	if cfg.FocusGuard {
		focus = &ui.FocusTracker{}
		opts = append(opts, session.WithRouterOptions(session.WithFocusGuard(focus.Focused)))
	}
	ctrl := session.New(eng, opts...)
	if err := ctrl.Start(engine.Canvas{ID: "forager-canvas", Width: 80, Height: 24}); err != nil {
		return err
	}

	logger.Emit(otel.Event{
		Kind:    otel.KindStartup,
		Comp:    "main",
		Dataset: dataset,
		Value:   cfg.ServerURL,
		Count:   len(restore),
	})

	app := ui.NewApp(ui.AppConfig{
		Dataset:           dataset,
		View:              cfg.View,
		ImageHeight:       cfg.ImageHeight,
		GridCellWidth:     cfg.GridCellWidth,
		Controller:        ctrl,
		Renderer:          eng,
		Ring:              ring,
		Logger:            logger,
		Restore:           restore,
		Caption:           caption,
		Focus:             focus,
		FetchStack:        fetchStackCmd(client),
		FetchResults:      fetchResultsCmd(client),
		StartCluster:      poller.StartClusterCmd,
		BuildIndex:        poller.BuildIndexCmd,
		GenerateEmbedding: generateEmbeddingCmd(client),
	})

	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())
	poller.Start(ctx, program)

	// Run UI (blocks until quit)
	_, runErr := program.Run()

	// Graceful shutdown
	cancel()
	poller.Wait()
	logger.Emit(otel.Event{Kind: otel.KindShutdown, Comp: "main", Dataset: dataset})
	return runErr
}

// datasetClient is the subset of backend.Client the UI fetches use.
type datasetClient interface {
	DatasetInfo(ctx context.Context, name string) (backend.Dataset, error)
	Results(ctx context.Context, name string) ([]backend.ImageEntry, error)
	GenerateTextEmbedding(ctx context.Context, text string) (string, error)
}

func fetchStackCmd(c datasetClient) func(dataset string, gen uint64) tea.Cmd {
	return func(dataset string, gen uint64) tea.Cmd {
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			ds, err := c.DatasetInfo(ctx, dataset)
			return ui.StackFetched{Dataset: dataset, Gen: gen, Paths: ds.Paths, Err: err}
		}
	}
}

func fetchResultsCmd(c datasetClient) func(dataset string, gen uint64) tea.Cmd {
	return func(dataset string, gen uint64) tea.Cmd {
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			entries, err := c.Results(ctx, dataset)
			return ui.ResultsFetched{Dataset: dataset, Gen: gen, Entries: entries, Err: err}
		}
	}
}

func generateEmbeddingCmd(c datasetClient) func(text string) tea.Cmd {
	return func(text string) tea.Cmd {
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			emb, err := c.GenerateTextEmbedding(ctx, text)
			return ui.EmbeddingFetched{Text: text, Embedding: emb, Err: err}
		}
	}
}
