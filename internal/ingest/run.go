package ingest

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Options configures one batch run.
type Options struct {
	DataDir string // directory holding the six CSV sources
	OutDir  string // directory receiving jobs.json and industries.json
}

// Summary describes a completed run, as verified by reading the output back.
type Summary struct {
	Jobs              int
	Industries        int
	MissingIndustries int
	FirstJobTitle     string
	FirstJobCompany   string
	FirstIndustry     string
}

// Run executes the whole pipeline: load, index, assemble, write, verify.
// It is single pass and not resumable; any error leaves the output
// directory as it was.
func Run(opts Options, log zerolog.Logger) (Summary, error) {
	log.Info().Str("dir", opts.DataDir).Msg("[1/5] loading CSV files")
	src, err := LoadSources(opts.DataDir)
	if err != nil {
		return Summary{}, err
	}

	log.Info().Msg("[2/5] building lookups")
	lk, err := BuildLookups(src, log)
	if err != nil {
		return Summary{}, err
	}

	log.Info().Msg("[3/5] assembling job documents")
	jobs, missing, err := NewAssembler(log).Assemble(src, lk)
	if err != nil {
		return Summary{}, err
	}

	log.Info().Msg("[4/5] transforming industries")
	industries, err := TransformIndustries(src.Industries)
	if err != nil {
		return Summary{}, err
	}
	log.Info().Int("industries", len(industries)).Msg("industries transformed")

	log.Info().Str("dir", opts.OutDir).Msg("[5/5] writing output")
	if err := WriteOutput(opts.OutDir, jobs, industries); err != nil {
		return Summary{}, err
	}

	sum, err := Verify(opts.OutDir)
	if err != nil {
		return Summary{}, fmt.Errorf("verify output: %w", err)
	}
	sum.MissingIndustries = len(missing)
	return sum, nil
}

// Verify re-reads the written collections and summarises them.
func Verify(dir string) (Summary, error) {
	jobs, industries, err := ReadOutput(dir)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Jobs: len(jobs), Industries: len(industries)}
	if len(jobs) > 0 {
		sum.FirstJobTitle = jobs[0].Title
		sum.FirstJobCompany = jobs[0].Company.Name
	}
	if len(industries) > 0 {
		sum.FirstIndustry = industries[0].IndustryName
	}
	return sum, nil
}
