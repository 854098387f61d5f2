package l3filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harrison-Oatman/EventCamProcessing/internal/config"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/evcam/l1events"
	"github.com/Harrison-Oatman/EventCamProcessing/internal/testutil"
)

func TestChain_EmptyPassesThrough(t *testing.T) {
	evs := testutil.ArrayEvents([4]int64{1, 1, 0, 1}, [4]int64{2, 2, 5, -1})
	out, stats := Chain(nil).Apply(evs)
	assert.Equal(t, evs, out)
	assert.Empty(t, stats)
}

func TestChain_StatsInOrder(t *testing.T) {
	evs := append(
		testutil.PixelTrain(5, 5, 0, 1000, 10, l1events.PolarityOn),
		testutil.PixelTrain(6, 6, 0, 50, 20, l1events.PolarityOn)...,
	)
	chain := Chain{
		HotPixel{MinDuration: 8000},
		LowPass{MinDt: 300, MinCount: 5},
	}

	out, stats := chain.Apply(evs)

	assert.Empty(t, out)
	require.Len(t, stats, 2)
	assert.Equal(t, FilterStat{Name: NameHotPixel, In: 30, Out: 20}, stats[0])
	assert.Equal(t, FilterStat{Name: NameLowPass, In: 20, Out: 0}, stats[1])
	assert.Equal(t, 20, stats[1].Removed())
	assert.Equal(t, []string{NameHotPixel, NameLowPass}, chain.Names())
}

func TestChainFromTuning(t *testing.T) {
	index := "grid"
	cfg := &config.TuningConfig{
		Filters:        []string{"opposite_polarity", "isolated", "low_pass", "hot_pixel"},
		NeighbourIndex: &index,
	}

	chain, err := ChainFromTuning(cfg)
	require.NoError(t, err)
	require.Len(t, chain, 4)
	assert.Equal(t, []string{NameOppositePolarity, NameIsolated, NameLowPass, NameHotPixel}, chain.Names())

	iso, ok := chain[1].(Isolated)
	require.True(t, ok)
	assert.Equal(t, Isolated{
		SpatialRadius: cfg.GetIsolatedSpatialRadius(),
		TimeWindow:    cfg.GetIsolatedTimeWindowUs(),
		MinNeighbors:  cfg.GetIsolatedMinNeighbors(),
		Index:         IndexGrid,
	}, iso)
	assert.Equal(t, HotPixel{MinDuration: cfg.GetHotPixelMinDurationUs()}, chain[3])
}

func TestChainFromTuning_Defaults(t *testing.T) {
	chain, err := ChainFromTuning(config.MustLoadDefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, chain)
}

func TestChainFromTuning_Errors(t *testing.T) {
	_, err := ChainFromTuning(&config.TuningConfig{Filters: []string{"median"}})
	assert.Error(t, err)

	zero := 0.0
	_, err = ChainFromTuning(&config.TuningConfig{
		Filters:               []string{"isolated"},
		IsolatedSpatialRadius: &zero,
	})
	assert.Error(t, err)
}
