// Package coach assembles the coach detail view from three independent
// API lookups.
package coach

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HerbHall/sportdesk/internal/apiclient"
	"github.com/HerbHall/sportdesk/pkg/models"
)

// Section names a secondary part of a Detail.
type Section string

const (
	SectionClubs  Section = "clubs"
	SectionGroups Section = "groups"
)

// Source performs the remote lookups. *apiclient.Client satisfies it.
type Source interface {
	Coach(ctx context.Context, id string) (*models.CoachDetail, error)
	ClubsCreatedBy(ctx context.Context, coachID string) ([]models.Entity, error)
	GroupsCreatedBy(ctx context.Context, coachID string) ([]models.Entity, error)
}

// Compile-time interface guard.
var _ Source = (*apiclient.Client)(nil)

// Detail is a coach with the clubs and groups they created. A failed
// secondary lookup leaves its slice nil and is listed in Omitted.
type Detail struct {
	Coach   *models.CoachDetail `json:"coach" yaml:"coach"`
	Clubs   []models.Entity     `json:"clubs,omitempty" yaml:"clubs,omitempty"`
	Groups  []models.Entity     `json:"groups,omitempty" yaml:"groups,omitempty"`
	Omitted []Section           `json:"omitted,omitempty" yaml:"omitted,omitempty"`
}

// Loader runs the lookups concurrently.
type Loader struct {
	src      Source
	logger   *zap.Logger
	inFlight atomic.Int64
}

// NewLoader returns a Loader reading from src.
func NewLoader(src Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{src: src, logger: logger}
}

// Loading reports whether any Load is outstanding.
func (l *Loader) Loading() bool {
	return l.inFlight.Load() > 0
}

// Load fetches the coach, their clubs and their groups concurrently and
// returns once all three have settled. A failed coach lookup fails the
// whole load and discards the secondary results; failed secondary
// lookups are logged and omitted.
func (l *Loader) Load(ctx context.Context, id string) (*Detail, error) {
	l.inFlight.Add(1)
	defer l.inFlight.Add(-1)

	var (
		coach             *models.CoachDetail
		clubs, groups     []models.Entity
		clubsErr, grpsErr error
	)

	// A plain Group: a failed lookup must not cancel its siblings.
	var g errgroup.Group
	g.Go(func() error {
		var err error
		coach, err = l.src.Coach(ctx, id)
		return err
	})
	g.Go(func() error {
		clubs, clubsErr = l.src.ClubsCreatedBy(ctx, id)
		return nil
	})
	g.Go(func() error {
		groups, grpsErr = l.src.GroupsCreatedBy(ctx, id)
		return nil
	})
	if err := g.Wait(); err != nil {
		l.logger.Warn("coach lookup failed", zap.String("coach_id", id), zap.Error(err))
		return nil, fmt.Errorf("load coach %s: %w", id, err)
	}

	d := &Detail{Coach: coach}
	if clubsErr != nil {
		d.Omitted = append(d.Omitted, SectionClubs)
		l.logger.Debug("omitting clubs", zap.String("coach_id", id), zap.Error(clubsErr))
	} else {
		d.Clubs = clubs
	}
	if grpsErr != nil {
		d.Omitted = append(d.Omitted, SectionGroups)
		l.logger.Debug("omitting groups", zap.String("coach_id", id), zap.Error(grpsErr))
	} else {
		d.Groups = groups
	}
	return d, nil
}
