package lifecycle

// Action is a fact dispatched into the reducer. The set is open: an Action
// type the reducer does not know is returned unchanged by Apply.
type Action interface {
	ActionType() string
}

// Action type names, matching the server-side vocabulary.
const (
	TypeSetClusterID     = "SET_CLUSTER_ID"
	TypeSetClusterStatus = "SET_CLUSTER_STATUS"
	TypeSetIndexID       = "SET_INDEX_ID"
	TypeSetIndexStatus   = "SET_INDEX_STATUS"
)

// SetClusterID records the id of the cluster assigned by the server.
type SetClusterID struct {
	ClusterID string
}

// SetClusterStatus carries the raw status booleans for the cluster.
type SetClusterStatus struct {
	HasCluster bool
	Started    bool
	Ready      bool
}

// SetIndexID registers (or re-registers) a dataset's index.
type SetIndexID struct {
	Dataset string
	IndexID string
}

// SetIndexStatus reports whether a registered dataset's index is built.
type SetIndexStatus struct {
	Dataset  string
	HasIndex bool
}

func (SetClusterID) ActionType() string     { return TypeSetClusterID }
func (SetClusterStatus) ActionType() string { return TypeSetClusterStatus }
func (SetIndexID) ActionType() string       { return TypeSetIndexID }
func (SetIndexStatus) ActionType() string   { return TypeSetIndexStatus }

// Apply returns the state that results from applying action to state.
// The input state is never modified. When an action has no effect the
// returned State shares the input's Indexes map.
func Apply(state State, action Action) State {
	switch a := action.(type) {
	case SetClusterID:
		state.Cluster.ID = a.ClusterID
		return state

	case SetClusterStatus:
		state.Cluster.Status = ClusterStatusOf(a.HasCluster, a.Started, a.Ready)
		return state

	case SetIndexID:
		indexes := cloneIndexes(state.Indexes)
		indexes[a.Dataset] = IndexState{ID: a.IndexID, Status: IndexNotBuilt}
		state.Indexes = indexes
		return state

	case SetIndexStatus:
		prev, ok := state.Indexes[a.Dataset]
		if !ok {
			return state
		}
		status := IndexBuilding
		if a.HasIndex {
			status = IndexBuilt
		}
		if prev.Status == status {
			return state
		}
		indexes := cloneIndexes(state.Indexes)
		indexes[a.Dataset] = IndexState{ID: prev.ID, Status: status}
		state.Indexes = indexes
		return state
	}

	return state
}

// ApplyAll folds actions over state in order.
func ApplyAll(state State, actions ...Action) State {
	for _, a := range actions {
		state = Apply(state, a)
	}
	return state
}

// ClusterStatusOf derives the cluster status from the raw server booleans.
// Precedence matters: a cluster that exists but has not started is STARTING,
// one that started but is not ready is PREPARING.
func ClusterStatusOf(hasCluster, started, ready bool) ClusterStatus {
	switch {
	case !hasCluster:
		return ClusterNotStarted
	case !started:
		return ClusterStarting
	case !ready:
		return ClusterPreparing
	default:
		return ClusterStarted
	}
}

func cloneIndexes(src map[string]IndexState) map[string]IndexState {
	dst := make(map[string]IndexState, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
