// Package lifecycle tracks the compute cluster and per-dataset search index
// status reported by the forager server.
//
// State only changes through Apply. Apply is a pure function: it never
// mutates the State it is given, so a caller holding an older State keeps a
// consistent snapshot.
package lifecycle

import "sort"

// ClusterStatus is the derived lifecycle phase of the compute cluster.
type ClusterStatus int

const (
	ClusterNotStarted ClusterStatus = iota
	ClusterStarting
	ClusterPreparing
	ClusterStarted
)

func (s ClusterStatus) String() string {
	switch s {
	case ClusterNotStarted:
		return "CLUSTER_NOT_STARTED"
	case ClusterStarting:
		return "CLUSTER_STARTING"
	case ClusterPreparing:
		return "CLUSTER_PREPARING"
	case ClusterStarted:
		return "CLUSTER_STARTED"
	default:
		return "CLUSTER_UNKNOWN"
	}
}

// IndexStatus is the build phase of a dataset's search index.
type IndexStatus int

const (
	IndexNotBuilt IndexStatus = iota
	IndexBuilding
	IndexBuilt
)

func (s IndexStatus) String() string {
	switch s {
	case IndexNotBuilt:
		return "INDEX_NOT_BUILT"
	case IndexBuilding:
		return "INDEX_BUILDING"
	case IndexBuilt:
		return "INDEX_BUILT"
	default:
		return "INDEX_UNKNOWN"
	}
}

// ClusterState is the session's view of the compute cluster.
// ID is empty until the server has assigned one.
type ClusterState struct {
	ID     string
	Status ClusterStatus
}

// IndexState is the session's view of one dataset's index.
type IndexState struct {
	ID     string
	Status IndexStatus
}

// State is the process-wide lifecycle state.
// Indexes is keyed by dataset name; an entry exists only after SetIndexID.
type State struct {
	Cluster ClusterState
	Indexes map[string]IndexState
}

// Initial returns the state a session starts with.
func Initial() State {
	return State{
		Cluster: ClusterState{Status: ClusterNotStarted},
		Indexes: map[string]IndexState{},
	}
}

// Index returns the index state for dataset, if one was registered.
func (s State) Index(dataset string) (IndexState, bool) {
	idx, ok := s.Indexes[dataset]
	return idx, ok
}

// Datasets returns the registered dataset names in sorted order.
func (s State) Datasets() []string {
	names := make([]string, 0, len(s.Indexes))
	for name := range s.Indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
