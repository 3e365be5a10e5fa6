// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scheduler runs periodic backup snapshots.
package scheduler

import (
	"log"
	"time"

	"github.com/engramhq/engram-mcp/internal/backup"
)

// Scheduler triggers backup snapshots on a fixed interval
type Scheduler struct {
	manager  *backup.Manager
	interval time.Duration
	stopChan chan bool
}

// NewScheduler creates a new scheduler
func NewScheduler(manager *backup.Manager, intervalMinutes int) *Scheduler {
	return &Scheduler{
		manager:  manager,
		interval: time.Duration(intervalMinutes) * time.Minute,
		stopChan: make(chan bool),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() {
	ticker := time.NewTicker(s.interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				s.snapshot()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.stopChan <- true
}

// snapshot takes one backup snapshot
func (s *Scheduler) snapshot() {
	manifest, err := s.manager.Snapshot()
	if err != nil {
		log.Printf("Backup snapshot failed: %v", err)
		return
	}
	if manifest == nil {
		return
	}
	log.Printf("Backup snapshot %s committed (%d memories)", manifest.SnapshotID, manifest.MemoryCount)
}
