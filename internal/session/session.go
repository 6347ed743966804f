// Package session holds the datasets one analyst is working with. Uploads
// replace a dataset wholesale; a failed upload leaves the previous one in place.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/samreport-cli/internal/dataset"
	"github.com/KaramelBytes/samreport-cli/internal/logging"
)

// State is the lifecycle stage of the primary dataset.
type State string

const (
	StateEmpty    State = "empty"
	StateLoaded   State = "loaded"
	StateReplaced State = "replaced"
)

// ErrNoData is returned when a feature runs before any question data was loaded.
var ErrNoData = errors.New("no question data loaded")

// Session is safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.RWMutex
	state     State
	primary   *dataset.Dataset
	companion *dataset.Companion
	log       *zap.Logger
}

// New returns an empty session.
func New(log *zap.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		ID:        id,
		CreatedAt: time.Now(),
		state:     StateEmpty,
		log:       logging.OrNop(log).With(zap.String("session", id)),
	}
}

// Snapshot is a consistent view of the session at one point in time.
// Datasets are never mutated after load, so holders can read them freely.
type Snapshot struct {
	ID        string
	State     State
	Primary   *dataset.Dataset
	Companion *dataset.Companion
}

// Info is the JSON-friendly description of a snapshot.
type Info struct {
	ID        string       `json:"id"`
	State     State        `json:"state"`
	Primary   *DatasetInfo `json:"primary,omitempty"`
	Companion *DatasetInfo `json:"companion,omitempty"`
}

// DatasetInfo describes a loaded file.
type DatasetInfo struct {
	Name     string   `json:"name"`
	Rows     int      `json:"rows"`
	Missing  []string `json:"missing_columns,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Snapshot returns the current datasets.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{ID: s.ID, State: s.state, Primary: s.primary, Companion: s.companion}
}

// Info describes the snapshot.
func (sn Snapshot) Info() Info {
	in := Info{ID: sn.ID, State: sn.State}
	if sn.Primary != nil {
		in.Primary = &DatasetInfo{Name: sn.Primary.Name, Rows: sn.Primary.Len(), Missing: sn.Primary.Missing, Warnings: sn.Primary.Warnings}
	}
	if sn.Companion != nil {
		in.Companion = &DatasetInfo{Name: sn.Companion.Name, Rows: sn.Companion.Len(), Missing: sn.Companion.Missing, Warnings: sn.Companion.Warnings}
	}
	return in
}

// RequirePrimary returns the primary dataset or ErrNoData.
func (sn Snapshot) RequirePrimary() (*dataset.Dataset, error) {
	if sn.Primary == nil {
		return nil, ErrNoData
	}
	return sn.Primary, nil
}

// SetPrimary installs an already-built dataset.
func (s *Session) SetPrimary(ds *dataset.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.primary == nil {
		s.state = StateLoaded
	} else {
		s.state = StateReplaced
	}
	s.primary = ds
	s.log.Info("question data loaded",
		zap.String("file", ds.Name),
		zap.Int("rows", ds.Len()),
		zap.Int("warnings", len(ds.Warnings)),
		zap.String("state", string(s.state)))
}

// SetCompanion installs an already-built learning-history dataset.
func (s *Session) SetCompanion(c *dataset.Companion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.companion = c
	s.log.Info("learning history loaded", zap.String("file", c.Name), zap.Int("rows", c.Len()))
}

// LoadPrimary parses data and replaces the primary dataset. On error the
// session is unchanged.
func (s *Session) LoadPrimary(name string, data []byte, opt dataset.ReadOptions) (*dataset.Dataset, error) {
	tb, err := dataset.ReadBytes(name, data, opt)
	if err != nil {
		s.log.Warn("question upload rejected", zap.String("file", name), zap.Error(err))
		return nil, err
	}
	ds := dataset.FromTable(tb)
	s.SetPrimary(ds)
	return ds, nil
}

// LoadCompanion parses data and replaces the learning-history dataset. On
// error the session is unchanged.
func (s *Session) LoadCompanion(name string, data []byte, opt dataset.ReadOptions) (*dataset.Companion, error) {
	tb, err := dataset.ReadBytes(name, data, opt)
	if err != nil {
		s.log.Warn("learning upload rejected", zap.String("file", name), zap.Error(err))
		return nil, err
	}
	c := dataset.CompanionFromTable(tb)
	s.SetCompanion(c)
	return c, nil
}

// ClearCompanion drops the learning-history dataset.
func (s *Session) ClearCompanion() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.companion != nil {
		s.log.Info("learning history cleared", zap.String("file", s.companion.Name))
	}
	s.companion = nil
}
