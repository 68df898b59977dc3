// Package mongo implements catalog.Store on a MongoDB collection of job
// documents.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/djlord-it/careerhub/internal/catalog"
	"github.com/djlord-it/careerhub/internal/domain"
)

// Collection names.
const (
	JobsCollection       = "jobs"
	IndustriesCollection = "industries"
)

// maxInsertAttempts bounds InsertNext retries when a concurrent creator
// takes the same job_id first.
const maxInsertAttempts = 5

type Store struct {
	db   *mongo.Database
	jobs *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{db: db, jobs: db.Collection(JobsCollection)}
}

// Connect dials uri and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client.Database(database)), nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// EnsureIndexes creates the unique job_id index InsertNext relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return ensureJobIndexes(ctx, s.jobs)
}

func ensureJobIndexes(ctx context.Context, c *mongo.Collection) error {
	_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "job_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("job_id_unique"),
	})
	return err
}

func (s *Store) Get(ctx context.Context, jobID int64) (domain.Job, error) {
	var job domain.Job
	err := s.jobs.FindOne(ctx, byJobID(jobID)).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Job{}, catalog.ErrNotFound
	}
	if err != nil {
		return domain.Job{}, err
	}
	return normalize(job), nil
}

func (s *Store) FindEqualFold(ctx context.Context, field catalog.Field, values ...string) ([]domain.Job, error) {
	filter, err := equalFoldFilter(field, values)
	if err != nil {
		return nil, err
	}
	return s.find(ctx, filter, sortByJobID())
}

func (s *Store) FindSalaryRange(ctx context.Context, min, max int64) ([]domain.Job, error) {
	return s.find(ctx, salaryFilter(min, max), sortByJobID())
}

func (s *Store) All(ctx context.Context) ([]domain.Job, error) {
	return s.find(ctx, bson.D{}, sortByJobID())
}

func (s *Store) CountByIndustry(ctx context.Context) ([]catalog.IndustryCount, error) {
	cur, err := s.jobs.Aggregate(ctx, countByIndustryPipeline)
	if err != nil {
		return nil, err
	}
	var out []catalog.IndustryCount
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) TopBySalary(ctx context.Context, n int) ([]domain.Job, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "average_salary", Value: -1}, {Key: "job_id", Value: 1}}).
		SetLimit(int64(n))
	return s.find(ctx, bson.D{}, opts)
}

func (s *Store) DistinctCompanies(ctx context.Context) ([]string, error) {
	vals, err := s.jobs.Distinct(ctx, "company.name", bson.D{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(vals))
	for _, v := range vals {
		if name, ok := v.(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// InsertNext reads the current maximum and inserts max+1. The unique index
// on job_id rejects a concurrent creator that read the same maximum; the
// loser re-reads and retries.
func (s *Store) InsertNext(ctx context.Context, job domain.Job) (int64, error) {
	if job.Skills == nil {
		job.Skills = []string{}
	}
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		next, err := s.nextJobID(ctx)
		if err != nil {
			return 0, err
		}
		job.JobID = next
		_, err = s.jobs.InsertOne(ctx, job)
		if err == nil {
			return next, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return 0, err
		}
	}
	return 0, fmt.Errorf("insert job: job_id contention after %d attempts", maxInsertAttempts)
}

func (s *Store) nextJobID(ctx context.Context) (int64, error) {
	var top struct {
		JobID int64 `bson:"job_id"`
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "job_id", Value: -1}}).
		SetProjection(bson.D{{Key: "job_id", Value: 1}})
	err := s.jobs.FindOne(ctx, bson.D{}, opts).Decode(&top)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return top.JobID + 1, nil
}

func (s *Store) Update(ctx context.Context, jobID int64, patch domain.Patch) (catalog.UpdateResult, error) {
	res, err := s.jobs.UpdateOne(ctx, byJobID(jobID), bson.D{{Key: "$set", Value: setDocument(patch)}})
	if err != nil {
		return catalog.UpdateResult{}, err
	}
	return catalog.UpdateResult{Matched: res.MatchedCount, Modified: res.ModifiedCount}, nil
}

func (s *Store) Delete(ctx context.Context, jobID int64) (int64, error) {
	res, err := s.jobs.DeleteOne(ctx, byJobID(jobID))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *Store) find(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]domain.Job, error) {
	cur, err := s.jobs.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var jobs []domain.Job
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, err
	}
	for i := range jobs {
		jobs[i] = normalize(jobs[i])
	}
	return jobs, nil
}

func sortByJobID() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "job_id", Value: 1}})
}

// normalize gives documents loaded with a null skills array an empty one.
func normalize(j domain.Job) domain.Job {
	if j.Skills == nil {
		j.Skills = []string{}
	}
	return j
}
