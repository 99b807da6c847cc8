package filters

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boingbasti/docker-update-commander/pkg/types"
)

func TestExcludeSelf(t *testing.T) {
	t.Parallel()

	filter := ExcludeSelf(NoFilter)
	assert.False(t, filter(types.Record{Name: "commander", IsSelf: true}))
	assert.True(t, filter(types.Record{Name: "web"}))
}

func TestExcludeUpdater(t *testing.T) {
	t.Parallel()

	filter := ExcludeUpdater(NoFilter)
	assert.False(t, filter(types.Record{Name: "updater-run", IsUpdater: true}))
	assert.True(t, filter(types.Record{Name: "web"}))
}

func TestExcludeLocalOnly(t *testing.T) {
	t.Parallel()

	filter := ExcludeLocalOnly(NoFilter)
	assert.False(t, filter(types.Record{Name: "built", LocalOnly: true}))
	assert.True(t, filter(types.Record{Name: "web"}))
}

func TestFilterByNames(t *testing.T) {
	t.Parallel()

	assert.True(t, FilterByNames(nil, NoFilter)(types.Record{Name: "anything"}))

	filter := FilterByNames([]string{"web", "db-id-1234"}, NoFilter)
	assert.True(t, filter(types.Record{Name: "web"}))
	assert.True(t, filter(types.Record{ID: "db-id-1234", Name: "db"}))
	assert.False(t, filter(types.Record{Name: "cache"}))

	// Leading slashes from the Docker API are tolerated in selections.
	filter = FilterByNames([]string{"/web"}, NoFilter)
	assert.True(t, filter(types.Record{Name: "web"}))
}

func TestBuildTargetFilterScenario(t *testing.T) {
	t.Parallel()

	// Inventory: A updatable, B is self, C local-only.
	records := []types.Record{
		{ID: "a", Name: "app-a"},
		{ID: "b", Name: "app-b", IsSelf: true},
		{ID: "c", Name: "app-c", LocalOnly: true},
	}

	filter, desc := BuildTargetFilter(nil)
	targets := SafeTargets(records, filter)

	assert.Equal(t, "all updatable containers", desc)
	assert.Len(t, targets, 1)
	assert.Equal(t, types.ContainerID("a"), targets[0].ID)
}

func TestSelfNeverSelectedEvenWhenRequested(t *testing.T) {
	t.Parallel()

	records := []types.Record{
		{ID: "self", Name: "commander", IsSelf: true},
		{ID: "a", Name: "app-a"},
	}

	// Explicitly requesting the own container must not bypass the filter.
	filter, _ := BuildTargetFilter([]string{"commander", "app-a"})
	targets := SafeTargets(records, filter)

	assert.Len(t, targets, 1)
	assert.Equal(t, types.ContainerID("a"), targets[0].ID)
}

// Randomized selections, including ones that name the self container,
// must never yield a target set containing self or the updater.
func TestSelfProtectionUnderRandomizedSelection(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))

	for range 200 {
		var (
			records []types.Record
			names   []string
		)

		for i := range 8 {
			record := types.Record{
				ID:        types.ContainerID(fmt.Sprintf("id-%d", i)),
				Name:      fmt.Sprintf("app-%d", i),
				IsSelf:    rng.Intn(4) == 0,
				IsUpdater: rng.Intn(6) == 0,
				LocalOnly: rng.Intn(4) == 0,
			}
			records = append(records, record)

			// Half the time, select this container by name, self included.
			if rng.Intn(2) == 0 {
				names = append(names, record.Name)
			}
		}

		filter, _ := BuildTargetFilter(names)
		for _, target := range SafeTargets(records, filter) {
			assert.False(t, target.IsSelf, "self container leaked into target set")
			assert.False(t, target.IsUpdater, "updater container leaked into target set")
			assert.False(t, target.LocalOnly, "local-only container leaked into target set")
		}
	}
}
