package notify

import (
	"github.com/sirupsen/logrus"
)

// AllGroups is the reserved target that signals every known group.
const AllGroups = "all"

// StatusGroup is the reserved group signaled on server state transitions.
// It is also the default group for single-group subscriptions.
const StatusGroup = "default"

// Dispatcher is the write side of the notification engine.
type Dispatcher struct {
	reg *Registry
	log logrus.FieldLogger
}

// NotifyResult describes what a Notify call touched.
type NotifyResult struct {
	Groups  []string // Groups that were signaled
	Version uint64   // New version, single-group notifies only
	All     bool     // Target was AllGroups
}

// NewDispatcher creates a dispatcher writing to reg.
func NewDispatcher(reg *Registry, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{reg: reg, log: log.WithField("component", "dispatcher")}
}

// Notify signals target, or every known group when target is AllGroups.
// A single unknown group is created by the signal.
func (d *Dispatcher) Notify(target string) NotifyResult {
	if target == AllGroups {
		names := d.reg.SignalAll()
		d.log.WithField("groups", len(names)).Info("notified all groups")
		return NotifyResult{Groups: names, All: true}
	}

	version := d.reg.Signal(target)
	d.log.WithFields(logrus.Fields{
		"group":   target,
		"version": version,
	}).Debug("notified group")
	return NotifyResult{Groups: []string{target}, Version: version}
}

// Signal satisfies the failover package's signaler contract.
func (d *Dispatcher) Signal(name string) {
	d.Notify(name)
}
