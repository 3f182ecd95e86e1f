package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	registry := NewRegistry(jobA, nil, jobB)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, jobA, jobs[0])
	assert.Same(t, jobB, jobs[1])
	assert.Equal(t, []string{"a", "b"}, registry.Names())

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "a"})

	err := registry.Register(&stubJob{name: "a"})
	require.Error(t, err)
	assert.Len(t, registry.Jobs(), 1)
}

func TestRegistryLookup(t *testing.T) {
	job := &stubJob{name: "ledger-reconcile"}
	registry := NewRegistry(job)

	got, ok := registry.Lookup("ledger-reconcile")
	require.True(t, ok)
	assert.Same(t, job, got)

	_, ok = registry.Lookup("missing")
	assert.False(t, ok)
}
