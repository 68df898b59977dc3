package mongo

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/djlord-it/careerhub/internal/catalog"
	"github.com/djlord-it/careerhub/internal/domain"
)

var matchable = map[catalog.Field]bool{
	catalog.FieldIndustry: true,
	catalog.FieldLocation: true,
	catalog.FieldCompany:  true,
	catalog.FieldDegree:   true,
	catalog.FieldSkills:   true,
}

// equalFold returns an anchored, case-insensitive regex that matches value
// literally and nothing else.
func equalFold(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

// equalFoldFilter matches documents whose field equals any of values,
// ignoring case. On an array field any element may match.
func equalFoldFilter(field catalog.Field, values []string) (bson.D, error) {
	if !matchable[field] {
		return nil, fmt.Errorf("mongo: unsupported field %q", field)
	}
	patterns := make(bson.A, len(values))
	for i, v := range values {
		patterns[i] = equalFold(v)
	}
	return bson.D{{Key: string(field), Value: bson.D{{Key: "$in", Value: patterns}}}}, nil
}

func salaryFilter(min, max int64) bson.D {
	return bson.D{{Key: "average_salary", Value: bson.D{
		{Key: "$gte", Value: min},
		{Key: "$lte", Value: max},
	}}}
}

func byJobID(jobID int64) bson.D {
	return bson.D{{Key: "job_id", Value: jobID}}
}

// setDocument builds the $set operand for a patch, in whitelist order.
func setDocument(p domain.Patch) bson.D {
	values := p.Values()
	set := make(bson.D, 0, len(values))
	for _, f := range p.Fields() {
		set = append(set, bson.E{Key: f, Value: values[f]})
	}
	return set
}

// countByIndustryPipeline groups by industry name, count descending.
var countByIndustryPipeline = bson.A{
	bson.D{{Key: "$group", Value: bson.D{
		{Key: "_id", Value: "$company.industry_name"},
		{Key: "job_count", Value: bson.D{{Key: "$sum", Value: 1}}},
	}}},
	bson.D{{Key: "$sort", Value: bson.D{{Key: "job_count", Value: -1}}}},
}
