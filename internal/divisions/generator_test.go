package divisions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"sar_command/internal/geomath"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) FetchBuildings(ctx context.Context, box BoundingBox) ([]Building, error) {
	args := m.Called(ctx, box)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Building), args.Error(1)
}

func (m *mockProvider) FetchRoads(ctx context.Context, box BoundingBox) ([]RoadSegment, error) {
	args := m.Called(ctx, box)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]RoadSegment), args.Error(1)
}

type fakeStore struct {
	replaced map[uint][]Division
	fail     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{replaced: make(map[uint][]Division)}
}

func (s *fakeStore) ReplaceDivisions(ctx context.Context, incidentID uint, divs []Division) error {
	if s.fail {
		return errors.New("store unavailable")
	}
	s.replaced[incidentID] = divs
	return nil
}

func (s *fakeStore) LoadDivisions(ctx context.Context, incidentID uint) ([]Division, error) {
	return s.replaced[incidentID], nil
}

func (s *fakeStore) DeleteDivisions(ctx context.Context, incidentID uint) error {
	delete(s.replaced, incidentID)
	return nil
}

var testRing = []geom.Coord{{0, 0}, {0.01, 0}, {0.01, 0.01}, {0, 0.01}}

func TestGeneratePreviewInvalidSearchArea(t *testing.T) {
	gen := NewGenerator(new(mockProvider), nil, Config{})

	cases := [][]geom.Coord{
		nil,
		{{0, 0}, {1, 1}},
		{{0, 0}, {0, 0}, {0, 0}, {0, 0}},
		// Self-intersecting bowtie: not a simple polygon.
		{{0, 0}, {0.01, 0.01}, {0.01, 0}, {0, 0.01}},
	}
	for i, ring := range cases {
		_, err := gen.GeneratePreview(context.Background(), ring, 0, nil)
		assert.ErrorIs(t, err, ErrInvalidSearchArea, "case %d", i)
	}
}

func TestGeneratePreviewWalkable(t *testing.T) {
	provider := new(mockProvider)
	provider.On("FetchRoads", mock.Anything, mock.Anything).Return([]RoadSegment{
		{Line: line(t, geom.Coord{0.001, 0.005}, geom.Coord{0.009, 0.005})},
	}, nil)
	provider.On("FetchBuildings", mock.Anything, mock.Anything).Return([]Building{
		buildingAt(t, 0.003, 0.0054, 1, "house"),
		buildingAt(t, 0.007, 0.0054, 1, "house"),
	}, nil)

	gen := NewGenerator(provider, nil, Config{})
	divs, err := gen.GeneratePreview(context.Background(), testRing, 0, geom.Coord{0.001, 0.005})
	require.NoError(t, err)
	require.NotEmpty(t, divs)

	for _, d := range divs {
		assert.Equal(t, SearchTypeWalkable, d.SearchType)
		assert.Equal(t, StatusUnassigned, d.Status)
	}
	provider.AssertExpectations(t)
}

func TestGeneratePreviewProviderFailureFallsBackToGrid(t *testing.T) {
	provider := new(mockProvider)
	provider.On("FetchRoads", mock.Anything, mock.Anything).Return(nil, errors.New("overpass timeout"))

	boundary := geomath.PolygonFromRing(testRing)
	target := geomath.AreaM2(boundary) / 4.5

	gen := NewGenerator(provider, nil, Config{})
	divs, err := gen.GeneratePreview(context.Background(), testRing, target, geom.Coord{0.005, 0.005})
	require.NoError(t, err, "provider failure must never be fatal")

	// The result must match a direct grid partition of the same inputs.
	var want []Division
	for _, cell := range GridPartition(boundary, TargetDivisionCount(geomath.AreaM2(boundary), target)) {
		d := AssembleGrid(len(want), cell, geom.Coord{0.005, 0.005})
		require.NotNil(t, d)
		want = append(want, *d)
	}
	require.Equal(t, len(want), len(divs))
	for i := range want {
		assert.Equal(t, want[i].Code, divs[i].Code)
		assert.Equal(t, want[i].SearchType, divs[i].SearchType)
		assert.Equal(t, want[i].Priority, divs[i].Priority)
		assert.InDelta(t, want[i].AreaM2, divs[i].AreaM2, 1e-6)
	}
}

func TestGeneratePreviewEmptyDataFallsBackToGrid(t *testing.T) {
	provider := new(mockProvider)
	provider.On("FetchRoads", mock.Anything, mock.Anything).Return([]RoadSegment{}, nil)
	provider.On("FetchBuildings", mock.Anything, mock.Anything).Return([]Building{}, nil)

	gen := NewGenerator(provider, nil, Config{})
	divs, err := gen.GeneratePreview(context.Background(), testRing, 0, geom.Coord{0.005, 0.005})
	require.NoError(t, err)
	require.NotEmpty(t, divs)
	for _, d := range divs {
		assert.Equal(t, SearchTypePrimary, d.SearchType)
	}
}

func TestGeneratePreviewNoIncidentUsesGrid(t *testing.T) {
	// Without an incident point the provider must not even be consulted.
	provider := new(mockProvider)
	gen := NewGenerator(provider, nil, Config{})

	divs, err := gen.GeneratePreview(context.Background(), testRing, 0, nil)
	require.NoError(t, err)
	require.NotEmpty(t, divs)
	for _, d := range divs {
		assert.Equal(t, SearchTypePrimary, d.SearchType)
		assert.Equal(t, PriorityLow, d.Priority)
	}
	provider.AssertNotCalled(t, "FetchRoads", mock.Anything, mock.Anything)
}

func TestGenerateAndSaveReplaces(t *testing.T) {
	provider := new(mockProvider)
	provider.On("FetchRoads", mock.Anything, mock.Anything).Return([]RoadSegment{}, nil)
	provider.On("FetchBuildings", mock.Anything, mock.Anything).Return([]Building{}, nil)

	store := newFakeStore()
	gen := NewGenerator(provider, store, Config{})

	divs, err := gen.GenerateAndSave(context.Background(), 42, testRing, 0, geom.Coord{0.005, 0.005})
	require.NoError(t, err)
	assert.Equal(t, divs, store.replaced[42])

	// A second run replaces, never merges.
	again, err := gen.GenerateAndSave(context.Background(), 42, testRing, 0, geom.Coord{0.005, 0.005})
	require.NoError(t, err)
	assert.Equal(t, again, store.replaced[42])
	assert.Len(t, store.replaced, 1)
}

func TestGenerateAndSavePropagatesStoreFailure(t *testing.T) {
	provider := new(mockProvider)
	provider.On("FetchRoads", mock.Anything, mock.Anything).Return([]RoadSegment{}, nil)
	provider.On("FetchBuildings", mock.Anything, mock.Anything).Return([]Building{}, nil)

	store := newFakeStore()
	store.fail = true
	gen := NewGenerator(provider, store, Config{})

	_, err := gen.GenerateAndSave(context.Background(), 7, testRing, 0, geom.Coord{0.005, 0.005})
	assert.Error(t, err)
}

func TestGeneratorRespectsExpansionMode(t *testing.T) {
	roads := []RoadSegment{
		{Line: line(t, geom.Coord{0.001, 0.005}, geom.Coord{0.004, 0.005})},
		{Line: line(t, geom.Coord{0.004, 0.005}, geom.Coord{0.007, 0.005})},
		{Line: line(t, geom.Coord{0.007, 0.005}, geom.Coord{0.0095, 0.005})},
	}
	buildings := []Building{
		buildingAt(t, 0.0025, 0.0054, 1, "house"),
		buildingAt(t, 0.0055, 0.0054, 1, "house"),
		buildingAt(t, 0.0085, 0.0054, 1, "house"),
	}

	run := func(mode ExpansionMode) []Division {
		provider := new(mockProvider)
		provider.On("FetchRoads", mock.Anything, mock.Anything).Return(roads, nil)
		provider.On("FetchBuildings", mock.Anything, mock.Anything).Return(buildings, nil)
		gen := NewGenerator(provider, nil, Config{TargetAreaM2: 1, Mode: mode})
		divs, err := gen.GeneratePreview(context.Background(), testRing, 0, geom.Coord{0.001, 0.005})
		require.NoError(t, err)
		return divs
	}

	assert.Len(t, run(SealOnAreaTarget), 3)
	assert.Len(t, run(SealPerComponent), 1)
}
