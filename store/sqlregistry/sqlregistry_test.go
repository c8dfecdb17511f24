package sqlregistry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/errors"
	"github.com/c360studio/semcat/hdf"
	"github.com/c360studio/semcat/query"
	"github.com/c360studio/semcat/store"
)

// writeSampleFile creates an HDF5 file with two annotated datasets and one
// without attributes.
func writeSampleFile(t *testing.T, path string) {
	t.Helper()
	b, err := hdf.Create(path, nil, nil)
	require.NoError(t, err)
	_, err = b.CreateDataset("/u", []float64{1, 2, 3}, map[string]any{
		"standard_name": "x_velocity",
		"units":         "m/s",
		"long_name":     "streamwise velocity",
	})
	require.NoError(t, err)
	_, err = b.CreateDataset("/grp/p", []float64{101325}, map[string]any{
		"standard_name": "static_pressure",
		"units":         "Pa",
	})
	require.NoError(t, err)
	_, err = b.CreateDataset("/raw", []float64{0}, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close())
}

func openRegistry(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterAndFind(t *testing.T) {
	dir := t.TempDir()
	h5 := filepath.Join(dir, "run1.h5")
	writeSampleFile(t, h5)

	s := openRegistry(t)
	assert.Equal(t, store.KindSQL, s.Kind())

	n, err := s.RegisterFile(context.Background(), "dist-1", h5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records, err := s.FindByStandardName(context.Background(), "x_velocity")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "dist-1", records[0].DistributionID)
	assert.Equal(t, h5, records[0].FilePath)
	assert.Equal(t, "/u", records[0].DatasetPath)
	assert.Equal(t, "m/s", records[0].Units)
	assert.Equal(t, "streamwise velocity", records[0].LongName)
	assert.Equal(t, []uint64{3}, records[0].Shape)

	none, err := s.FindByStandardName(context.Background(), "z_velocity")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRegisterIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	h5 := filepath.Join(dir, "run1.h5")
	writeSampleFile(t, h5)

	s := openRegistry(t)
	_, err := s.RegisterFile(context.Background(), "dist-1", h5)
	require.NoError(t, err)
	n, err := s.RegisterFile(context.Background(), "dist-1", h5)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records, err := s.GetDistribution(context.Background(), "dist-1")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestGetDistributionUnknown(t *testing.T) {
	s := openRegistry(t)
	_, err := s.GetDistribution(context.Background(), "nope")
	assert.ErrorIs(t, err, errors.ErrDistributionNotFound)
}

func TestRegisterMissingFile(t *testing.T) {
	s := openRegistry(t)
	_, err := s.RegisterFile(context.Background(), "dist-1", filepath.Join(t.TempDir(), "absent.h5"))
	assert.Error(t, err)
}

func TestQuerySQL(t *testing.T) {
	dir := t.TempDir()
	h5 := filepath.Join(dir, "run1.h5")
	writeSampleFile(t, h5)

	s := openRegistry(t)
	_, err := s.RegisterFile(context.Background(), "dist-1", h5)
	require.NoError(t, err)

	result, err := s.Query(context.Background(), query.NewSQLQuery(
		`SELECT standard_name, units FROM datasets
		 WHERE standard_name != '' ORDER BY standard_name`))
	require.NoError(t, err)
	assert.Equal(t, []string{"standard_name", "units"}, result.Columns)
	require.Equal(t, 2, result.Len())
	assert.Equal(t, "static_pressure", result.Rows[0][0])
	assert.Equal(t, "Pa", result.Rows[0][1])

	_, err = s.Query(context.Background(), query.NewSQLQuery("SELECT nope FROM nothing"))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
