package main

import (
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/icypaw-project/icypaw-core/pkg/icpw/endpoint"
	"github.com/icypaw-project/icypaw-core/pkg/log"
)

// startMaintenanceScheduler wires github.com/go-co-op/gocron/v2 for
// coarse-grained housekeeping jobs that sit outside the engine's
// single-threaded event loop, following the teacher's
// internal/taskManager pattern of independent gocron.DurationJob
// workers (RegisterFootprintWorker, RegisterUpdateDurationWorker).
//
// Unlike the engine's own scheduled events (node.RunIn/RunAt, drained
// through the priority queue with publishMetricUpdates ordering
// guarantees), a maintenance job only ever calls node.Rebirth, which
// itself just enqueues a NodeRebirth queue item for the engine to
// process in order. The scheduler never touches engine state
// directly.
//
// Returns nil if interval is empty (maintenance rebirth disabled).
func startMaintenanceScheduler(node *endpoint.Node, interval string) (gocron.Scheduler, error) {
	if interval == "" {
		return nil, nil
	}

	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, err
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	if _, err := s.NewJob(gocron.DurationJob(d), gocron.NewTask(func() {
		log.Infof("icpw-node: maintenance rebirth (%s/%s)", node.GroupID(), node.EdgeNodeID())
		node.Rebirth()
	})); err != nil {
		return nil, err
	}

	s.Start()
	return s, nil
}
