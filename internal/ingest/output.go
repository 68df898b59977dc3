package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/djlord-it/careerhub/internal/domain"
)

// Output file names, ready for bulk loading.
const (
	OutputJobs       = "jobs.json"
	OutputIndustries = "industries.json"
)

// WriteOutput serializes both collections into dir. Each file is first
// written to a temporary name; the final names appear only after both
// temporaries are complete, so a failed run leaves no partial output.
func WriteOutput(dir string, jobs []domain.Job, industries []domain.Industry) error {
	if jobs == nil {
		jobs = []domain.Job{}
	}
	if industries == nil {
		industries = []domain.Industry{}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	jobsTmp, err := writeTemp(dir, OutputJobs, jobs)
	if err != nil {
		return err
	}
	industriesTmp, err := writeTemp(dir, OutputIndustries, industries)
	if err != nil {
		os.Remove(jobsTmp)
		return err
	}

	if err := os.Rename(jobsTmp, filepath.Join(dir, OutputJobs)); err != nil {
		os.Remove(jobsTmp)
		os.Remove(industriesTmp)
		return fmt.Errorf("commit %s: %w", OutputJobs, err)
	}
	if err := os.Rename(industriesTmp, filepath.Join(dir, OutputIndustries)); err != nil {
		os.Remove(industriesTmp)
		return fmt.Errorf("commit %s: %w", OutputIndustries, err)
	}
	return nil
}

func writeTemp(dir, name string, v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("encode %s: %w", name, err)
	}

	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return f.Name(), nil
}

// ReadOutput loads both collections back from dir.
func ReadOutput(dir string) ([]domain.Job, []domain.Industry, error) {
	var jobs []domain.Job
	if err := readJSON(filepath.Join(dir, OutputJobs), &jobs); err != nil {
		return nil, nil, err
	}
	var industries []domain.Industry
	if err := readJSON(filepath.Join(dir, OutputIndustries), &industries); err != nil {
		return nil, nil, err
	}
	return jobs, industries, nil
}

// ReadJobs loads a jobs.json file.
func ReadJobs(path string) ([]domain.Job, error) {
	var jobs []domain.Job
	if err := readJSON(path, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}
