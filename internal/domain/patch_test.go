package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatch_SetUnknownField(t *testing.T) {
	var p Patch
	err := p.Set("salary_range", json.RawMessage(`"100k"`))
	require.ErrorIs(t, err, ErrUnknownField)
	assert.True(t, p.Empty())
}

func TestPatch_JobIDNotUpdatable(t *testing.T) {
	assert.False(t, IsUpdatable("job_id"))
	var p Patch
	require.ErrorIs(t, p.Set("job_id", json.RawMessage(`7`)), ErrUnknownField)
}

func TestPatch_TypeMismatch(t *testing.T) {
	var p Patch
	err := p.Set("average_salary", json.RawMessage(`"lots"`))
	require.Error(t, err)
	assert.False(t, p.Has("average_salary"))
}

func TestPatch_NestedUnknownKey(t *testing.T) {
	tests := []struct {
		field string
		raw   string
	}{
		{"company", `{"name": "A", "industry_name": "B", "salary_range": 5}`},
		{"education", `{"level": "Bachelor", "field": "CS", "gpa": 3.9}`},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			var p Patch
			err := p.Set(tt.field, json.RawMessage(tt.raw))
			require.Error(t, err)
			assert.False(t, p.Has(tt.field))
		})
	}
}

func TestPatch_FieldsInWhitelistOrder(t *testing.T) {
	var p Patch
	require.NoError(t, p.Set("remote", json.RawMessage(`true`)))
	require.NoError(t, p.Set("title", json.RawMessage(`"Go Developer"`)))
	require.NoError(t, p.Set("average_salary", json.RawMessage(`95000`)))
	require.NoError(t, p.Set("title", json.RawMessage(`"Senior Go Developer"`)))

	assert.Equal(t, []string{"title", "average_salary", "remote"}, p.Fields())
}

func TestPatch_ApplyLeavesUnsetFields(t *testing.T) {
	posted := "2025-01-02"
	job := Job{
		JobID:         4,
		Title:         "Analyst",
		AverageSalary: 50000,
		Skills:        []string{"Excel"},
		PostingDate:   &posted,
	}

	var p Patch
	require.NoError(t, p.Set("average_salary", json.RawMessage(`60000`)))
	require.NoError(t, p.Set("posting_date", json.RawMessage(`null`)))

	got := p.Apply(job)
	assert.Equal(t, int64(4), got.JobID)
	assert.Equal(t, "Analyst", got.Title)
	assert.Equal(t, int64(60000), got.AverageSalary)
	assert.Nil(t, got.PostingDate)
	assert.Equal(t, []string{"Excel"}, got.Skills)

	// original untouched
	assert.Equal(t, int64(50000), job.AverageSalary)
}

func TestPatch_Values(t *testing.T) {
	var p Patch
	require.NoError(t, p.Set("skills", json.RawMessage(`null`)))
	require.NoError(t, p.Set("company", json.RawMessage(`{"name":"Acme","industry_name":"Retail"}`)))

	v := p.Values()
	assert.Equal(t, []string{}, v["skills"])
	c, ok := p.Company()
	require.True(t, ok)
	assert.Equal(t, "Acme", c.Name)
	assert.Equal(t, c, v["company"])
}

func TestSameText(t *testing.T) {
	assert.True(t, SameText("New York", "new york"))
	assert.False(t, SameText("New York", "new yor"))
}

func TestJob_HasSkill(t *testing.T) {
	j := Job{Skills: []string{"Python", "Machine Learning"}}
	assert.True(t, j.HasSkill("machine learning"))
	assert.False(t, j.HasSkill("machine"))
}
