package cron

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"
)

const defaultJobBatch = 200

// Job is one unit of periodic work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Registry keeps jobs in the order they were added, unique by name.
type Registry struct {
	ordered []Job
}

// NewRegistry registers jobs in order, skipping nils and repeated names.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{}
	for _, job := range jobs {
		_ = r.Register(job)
	}
	return r
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if _, dup := r.Lookup(job.Name()); dup {
		return fmt.Errorf("cron job %q already registered", job.Name())
	}
	r.ordered = append(r.ordered, job)
	return nil
}

func (r *Registry) Lookup(name string) (Job, bool) {
	i := slices.IndexFunc(r.ordered, func(j Job) bool { return j.Name() == name })
	if i < 0 {
		return nil, false
	}
	return r.ordered[i], true
}

func (r *Registry) Names() []string {
	names := make([]string, len(r.ordered))
	for i, job := range r.ordered {
		names[i] = job.Name()
	}
	return names
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	return slices.Clone(r.ordered)
}
