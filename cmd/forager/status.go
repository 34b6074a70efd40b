package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/forager/internal/backend"
	"github.com/abelbrown/forager/internal/lifecycle"
	"github.com/abelbrown/forager/internal/store"
)

func newStatusCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print cluster and index status",
		Long:  "Print the saved cluster and index ids, then poll the server once for their status.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			st, err := store.Open(cfg.DBPath())
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer st.Close()

			var client statusClient
			if !offline {
				client = backend.NewClient(cfg.ServerURL, backend.WithRateLimit(cfg.RateLimit))
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			return printStatus(ctx, cmd.OutOrStdout(), st, client)
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "only print saved ids, do not contact the server")
	return cmd
}

// statusClient is the subset of backend.Client the status command polls.
type statusClient interface {
	ClusterStatus(ctx context.Context, clusterID string) (backend.ClusterStatus, error)
	IndexStatus(ctx context.Context, indexID string) (bool, error)
}

// printStatus folds the saved ids and, when client is set, one round of
// status responses through the lifecycle reducer and prints the result.
func printStatus(ctx context.Context, w io.Writer, st *store.Store, client statusClient) error {
	actions, err := st.RestoreActions()
	if err != nil {
		return err
	}
	state := lifecycle.ApplyAll(lifecycle.Initial(), actions...)

	var pollErrs []string
	if client != nil {
		if state.Cluster.ID != "" {
			cs, err := client.ClusterStatus(ctx, state.Cluster.ID)
			if err != nil {
				pollErrs = append(pollErrs, fmt.Sprintf("cluster %s: %v", state.Cluster.ID, err))
			} else {
				state = lifecycle.Apply(state, lifecycle.SetClusterStatus{HasCluster: cs.HasCluster, Started: cs.Started, Ready: cs.Ready})
			}
		}
		for _, ds := range state.Datasets() {
			idx, _ := state.Index(ds)
			built, err := client.IndexStatus(ctx, idx.ID)
			if err != nil {
				pollErrs = append(pollErrs, fmt.Sprintf("index %s: %v", ds, err))
				continue
			}
			state = lifecycle.Apply(state, lifecycle.SetIndexStatus{Dataset: ds, HasIndex: built})
		}
	}

	clusterID := state.Cluster.ID
	if clusterID == "" {
		clusterID = "-"
	}
	fmt.Fprintf(w, "Cluster:  %-20s %s\n", clusterID, state.Cluster.Status)
	if len(state.Indexes) == 0 {
		fmt.Fprintln(w, "Indexes:  none")
	} else {
		fmt.Fprintln(w, "Indexes:")
		for _, ds := range state.Datasets() {
			idx, _ := state.Index(ds)
			fmt.Fprintf(w, "  %-20s %-20s %s\n", ds, idx.ID, idx.Status)
		}
	}
	for _, e := range pollErrs {
		fmt.Fprintf(w, "poll error: %s\n", e)
	}
	return nil
}
