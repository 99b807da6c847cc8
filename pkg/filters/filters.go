package filters

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/boingbasti/docker-update-commander/pkg/types"
)

// NoFilter allows all records through.
func NoFilter(types.Record) bool {
	return true
}

// ExcludeSelf removes the orchestrator's own container. This is a hard
// invariant enforced at the dispatch boundary: updating the own running
// process would terminate the orchestrator mid-operation and leave the
// in-flight job corrupted.
//
// Parameters:
//   - baseFilter: Base filter to chain.
//
// Returns:
//   - types.Filter: Filter rejecting self records before applying the base.
func ExcludeSelf(baseFilter types.Filter) types.Filter {
	return func(record types.Record) bool {
		if record.IsSelf {
			logrus.WithField("container", record.Name).
				Debug("Excluded own container from target set")

			return false
		}

		return baseFilter(record)
	}
}

// ExcludeUpdater removes containers running the delegated updater image.
// One-off updater containers are transient and must never be tracked or
// targeted themselves.
func ExcludeUpdater(baseFilter types.Filter) types.Filter {
	return func(record types.Record) bool {
		if record.IsUpdater {
			logrus.WithField("container", record.Name).
				Debug("Excluded delegated updater container from target set")

			return false
		}

		return baseFilter(record)
	}
}

// ExcludeLocalOnly removes records whose image has no remote registry
// source; the delegated updater has nothing to pull for them.
func ExcludeLocalOnly(baseFilter types.Filter) types.Filter {
	return func(record types.Record) bool {
		if record.LocalOnly {
			logrus.WithField("container", record.Name).
				Debug("Excluded local-only container from target set")

			return false
		}

		return baseFilter(record)
	}
}

// FilterByNames selects records whose name or ID matches one of the
// given values. An empty list selects everything.
//
// Parameters:
//   - names: Container names or IDs to match.
//   - baseFilter: Base filter to chain.
func FilterByNames(names []string, baseFilter types.Filter) types.Filter {
	if len(names) == 0 {
		return baseFilter
	}

	return func(record types.Record) bool {
		for _, name := range names {
			trimmed := strings.TrimPrefix(name, "/")
			if trimmed == record.Name || name == string(record.ID) {
				return baseFilter(record)
			}
		}

		return false
	}
}

// BuildTargetFilter composes the target selection filter for an update
// request. Name selection applies innermost; the local-only, updater, and
// self exclusions wrap it so they cannot be bypassed by any selection.
//
// Parameters:
//   - names: Requested container names, empty for all.
//
// Returns:
//   - types.Filter: Combined filter.
//   - string: Human-readable description for logging.
func BuildTargetFilter(names []string) (types.Filter, string) {
	filter := NoFilter
	filter = FilterByNames(names, filter)
	filter = ExcludeLocalOnly(filter)
	filter = ExcludeUpdater(filter)
	filter = ExcludeSelf(filter)

	desc := "all updatable containers"
	if len(names) > 0 {
		desc = "containers named " + strings.Join(names, ", ")
	}

	return filter, desc
}

// SafeTargets applies a filter to an inventory and returns the eligible
// records, preserving inventory order.
func SafeTargets(records []types.Record, filter types.Filter) []types.Record {
	var targets []types.Record

	for _, record := range records {
		if filter(record) {
			targets = append(targets, record)
		}
	}

	logrus.WithFields(logrus.Fields{
		"candidates": len(records),
		"eligible":   len(targets),
	}).Debug("Computed safe target set")

	return targets
}
