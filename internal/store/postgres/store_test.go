package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lib/pq"

	"github.com/djlord-it/careerhub/internal/catalog"
)

func TestEqualFoldQuery_EveryField(t *testing.T) {
	for _, f := range catalog.Fields {
		q, err := equalFoldQuery(f)
		if err != nil {
			t.Fatalf("field %s: %v", f, err)
		}
		if !strings.Contains(q, "= ANY($1)") {
			t.Errorf("field %s: query does not bind values as a parameter:\n%s", f, q)
		}
		if strings.Contains(q, "%s") {
			t.Errorf("field %s: unfilled placeholder in query", f)
		}
	}
}

func TestEqualFoldQuery_Location(t *testing.T) {
	q, err := equalFoldQuery(catalog.FieldLocation)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(q, "lower(doc->'company'->>'headquarters') = ANY($1)") {
		t.Errorf("unexpected predicate:\n%s", q)
	}
}

func TestEqualFoldQuery_UnknownField(t *testing.T) {
	if _, err := equalFoldQuery(catalog.Field("title")); err == nil {
		t.Error("expected error for unsupported field")
	}
}

type fakeRow struct {
	id  int64
	doc string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*int64) = r.id
	*dest[1].(*[]byte) = []byte(r.doc)
	return nil
}

func TestScanJob(t *testing.T) {
	job, err := scanJob(fakeRow{id: 7, doc: `{"job_id": 1, "title": "Analyst", "skills": null, "closing_date": null}`})
	if err != nil {
		t.Fatalf("scanJob: %v", err)
	}
	if job.JobID != 7 {
		t.Errorf("JobID = %d, want 7 (primary key wins)", job.JobID)
	}
	if job.Title != "Analyst" {
		t.Errorf("Title = %q", job.Title)
	}
	if job.Skills == nil {
		t.Error("Skills should be non-nil")
	}
	if job.ClosingDate != nil {
		t.Errorf("ClosingDate = %v, want nil", *job.ClosingDate)
	}
}

func TestScanJob_BadDocument(t *testing.T) {
	if _, err := scanJob(fakeRow{id: 1, doc: `{`}); err == nil {
		t.Error("expected decode error")
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unique violation", &pq.Error{Code: "23505"}, true},
		{"wrapped", fmt.Errorf("insert: %w", &pq.Error{Code: "23505"}), true},
		{"other pq error", &pq.Error{Code: "23503"}, false},
		{"plain error", errors.New("duplicate key"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateKeyError(tt.err); got != tt.want {
				t.Errorf("isDuplicateKeyError() = %v, want %v", got, tt.want)
			}
		})
	}
}
