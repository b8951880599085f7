package engine

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/quarrydata/quarry/errors"
	"github.com/quarrydata/quarry/graphql"
)

// CheckpointStatus represents the phase of a dependent execution's checkpoint
type CheckpointStatus string

const (
	CheckpointStatusPending    CheckpointStatus = "pending"
	CheckpointStatusInProgress CheckpointStatus = "in_progress"
	CheckpointStatusCompleted  CheckpointStatus = "completed"
	CheckpointStatusFailed     CheckpointStatus = "failed"
)

// Checkpoint is the resumable progress of a two-phase dependent execution,
// keyed by dataset id. The processed set only grows and the cursor only
// advances while the checkpoint is in progress.
type Checkpoint struct {
	DatasetID    string
	Status       CheckpointStatus
	Cursor       string
	Processed    map[string]struct{}
	HasNextPage  bool
	ErrorMessage string
	UpdatedAt    time.Time
}

// NewCheckpoint creates a fresh checkpoint for a dataset's first run.
func NewCheckpoint(datasetID string) *Checkpoint {
	return &Checkpoint{
		DatasetID:   datasetID,
		Status:      CheckpointStatusPending,
		Processed:   make(map[string]struct{}),
		HasNextPage: true,
		UpdatedAt:   time.Now(),
	}
}

// MarkProcessed records an id as done. Ids are never removed.
func (c *Checkpoint) MarkProcessed(id string) {
	if c.Processed == nil {
		c.Processed = make(map[string]struct{})
	}
	c.Processed[id] = struct{}{}
}

// IsProcessed reports whether an id has already had its secondary query run.
func (c *Checkpoint) IsProcessed(id string) bool {
	_, ok := c.Processed[id]
	return ok
}

// ProcessedList returns the processed set in sorted order for stable
// persistence and logging.
func (c *Checkpoint) ProcessedList() []string {
	ids := make([]string, 0, len(c.Processed))
	for id := range c.Processed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// MarshalProcessed encodes the processed set as the stored JSON array.
func MarshalProcessed(c *Checkpoint) (string, error) {
	data, err := json.Marshal(c.ProcessedList())
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal processed ids")
	}
	return string(data), nil
}

// UnmarshalProcessed decodes a stored JSON array into a processed set.
func UnmarshalProcessed(data string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	if data == "" {
		return set, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal processed ids")
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// PageActions is what one primary-query page asks the orchestrator to do:
// which ids still need their secondary query, where the cursor moves next,
// and whether this page ends the walk.
type PageActions struct {
	NewIDs      []string
	NextCursor  string
	HasNextPage bool
}

// Advance computes the transition for one fetched primary page against the
// current checkpoint. It is pure: no I/O, no mutation of the input. Ids
// already in the processed set are dropped, which is what makes a resumed
// run skip work it has already done.
func Advance(checkpoint *Checkpoint, page *graphql.Page, idPath string) PageActions {
	pageIDs := graphql.ExtractIDs(page.Raw, idPath)

	actions := PageActions{
		NextCursor:  page.EndCursor,
		HasNextPage: page.HasNextPage && page.EndCursor != "",
	}
	for _, id := range pageIDs {
		if !checkpoint.IsProcessed(id) {
			actions.NewIDs = append(actions.NewIDs, id)
		}
	}
	return actions
}
