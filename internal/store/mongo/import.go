package mongo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/djlord-it/careerhub/internal/domain"
)

// ReplaceAll loads both collections into uniquely named staging collections
// and renames each over its live counterpart, industries first. Each rename
// is atomic, so readers see either the old or the new jobs collection, never
// a partial one. The pair is not swapped atomically: if the jobs rename fails
// after industries were promoted, the live collections come from different
// imports until the next successful run, and an error is logged.
func (s *Store) ReplaceAll(ctx context.Context, jobs []domain.Job, industries []domain.Industry) error {
	suffix := stagingSuffix()

	jobDocs := make([]any, len(jobs))
	for i, j := range jobs {
		jobDocs[i] = normalize(j)
	}
	industryDocs := make([]any, len(industries))
	for i, ind := range industries {
		industryDocs[i] = ind
	}

	stagedJobs, err := s.stage(ctx, JobsCollection+suffix, jobDocs, true)
	if err != nil {
		return err
	}
	stagedIndustries, err := s.stage(ctx, IndustriesCollection+suffix, industryDocs, false)
	if err != nil {
		_ = s.db.Collection(stagedJobs).Drop(context.Background())
		return err
	}

	steps := []stagedCollection{
		{staged: stagedIndustries, live: IndustriesCollection},
		{staged: stagedJobs, live: JobsCollection},
	}
	return promote(ctx, steps, s.rename, func(name string) {
		_ = s.db.Collection(name).Drop(context.Background())
	})
}

type stagedCollection struct {
	staged string
	live   string
}

// promote renames each staged collection over its live one in order. On
// failure the remaining staged collections are dropped.
func promote(ctx context.Context, steps []stagedCollection, rename func(ctx context.Context, from, to string) error, drop func(name string)) error {
	for i, st := range steps {
		if err := rename(ctx, st.staged, st.live); err != nil {
			for _, rest := range steps[i:] {
				drop(rest.staged)
			}
			if i > 0 {
				log.Error().Err(err).
					Str("promoted", steps[i-1].live).
					Str("stale", st.live).
					Msg("import: collections out of step, rerun the import")
			}
			return err
		}
	}
	return nil
}

func (s *Store) stage(ctx context.Context, name string, docs []any, indexJobID bool) (string, error) {
	if err := s.db.CreateCollection(ctx, name); err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	c := s.db.Collection(name)
	if len(docs) > 0 {
		if _, err := c.InsertMany(ctx, docs); err != nil {
			_ = c.Drop(context.Background())
			return "", fmt.Errorf("load %s: %w", name, err)
		}
	}
	if indexJobID {
		if err := ensureJobIndexes(ctx, c); err != nil {
			_ = c.Drop(context.Background())
			return "", fmt.Errorf("index %s: %w", name, err)
		}
	}
	return name, nil
}

func (s *Store) rename(ctx context.Context, from, to string) error {
	db := s.db.Name()
	cmd := bson.D{
		{Key: "renameCollection", Value: db + "." + from},
		{Key: "to", Value: db + "." + to},
		{Key: "dropTarget", Value: true},
	}
	if err := s.db.Client().Database("admin").RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("rename %s to %s: %w", from, to, err)
	}
	return nil
}

func stagingSuffix() string {
	return "_import_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
