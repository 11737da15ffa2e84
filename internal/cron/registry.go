package cron

import (
	"context"
	"fmt"
)

// Job is one scheduled task of the cron worker. Names are unique and
// double as the metrics label and the -job flag value.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds the jobs in the order they run each cycle.
type Registry struct {
	jobs   []Job
	byName map[string]Job
}

// NewRegistry skips nil jobs and rejects duplicate names.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{byName: make(map[string]Job, len(jobs))}
	for _, job := range jobs {
		if job == nil {
			continue
		}
		name := job.Name()
		if name == "" {
			return nil, fmt.Errorf("cron job without a name")
		}
		if _, dup := registry.byName[name]; dup {
			return nil, fmt.Errorf("cron job %q registered twice", name)
		}
		registry.byName[name] = job
		registry.jobs = append(registry.jobs, job)
	}
	return registry, nil
}

// Jobs returns a copy of the registered jobs in run order.
func (r *Registry) Jobs() []Job {
	if r == nil {
		return nil
	}
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Select resolves names to jobs, keeping registry order. No names selects
// every job.
func (r *Registry) Select(names ...string) ([]Job, error) {
	if len(names) == 0 {
		return r.Jobs(), nil
	}
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := r.byName[name]; !ok {
			return nil, fmt.Errorf("unknown cron job %q", name)
		}
		wanted[name] = struct{}{}
	}
	selected := make([]Job, 0, len(wanted))
	for _, job := range r.jobs {
		if _, ok := wanted[job.Name()]; ok {
			selected = append(selected, job)
		}
	}
	return selected, nil
}
