package snt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semcat/errors"
)

const pivYAML = `
name: piv
version: v1.2.0
institution: Institute of Fluid Mechanics
contact: piv@example.org
last_modified: "2024-03-01"
reference_frames: [rotating_frame]
standard_names:
  x_velocity:
    units: m/s
    description: Velocity component in x direction.
    vector: true
  time:
    units: s
    description: Time since start of recording.
aliases:
  u: x_velocity
`

const cfXML = `<?xml version="1.0"?>
<standard_name_table>
  <version_number>79</version_number>
  <institution>Program for Climate Model Diagnosis</institution>
  <contact>support@example.org</contact>
  <last_modified>2022-03-19</last_modified>
  <entry id="air_temperature">
    <canonical_units>K</canonical_units>
    <description>Air temperature.</description>
  </entry>
  <entry id="air_pressure">
    <canonical_units>Pa</canonical_units>
    <description>Air pressure.</description>
  </entry>
  <alias id="pressure">
    <entry_id>air_pressure</entry_id>
  </alias>
</standard_name_table>`

func TestLoadYAML(t *testing.T) {
	tbl, err := LoadYAML(strings.NewReader(pivYAML))
	require.NoError(t, err)

	assert.Equal(t, "piv", tbl.Name)
	assert.Equal(t, "v1.2.0", tbl.Version.String())
	assert.Equal(t, "Institute of Fluid Mechanics", tbl.Institution)
	assert.Equal(t, []string{"rotating_frame"}, tbl.Frames())
	assert.Equal(t, 2, tbl.Len())

	sn, ok := tbl.Lookup("x_velocity")
	require.True(t, ok)
	assert.True(t, sn.Vector)

	require.NoError(t, tbl.Check("u", "mm/s"))
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	_, err := LoadYAML(strings.NewReader("name: x\nversion: v1.0.0\nbogus: true\n"))
	assert.Error(t, err)
}

func TestLoadXML(t *testing.T) {
	tbl, err := LoadXML(strings.NewReader(cfXML))
	require.NoError(t, err)

	assert.Equal(t, "v79.0.0", tbl.Version.String())
	assert.Equal(t, 2, tbl.Len())

	require.NoError(t, tbl.Check("air_temperature", "degC"))
	require.NoError(t, tbl.Verify("pressure"))
}

func TestSaveYAMLRoundTrip(t *testing.T) {
	tbl, err := LoadYAML(strings.NewReader(pivYAML))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, tbl.SaveYAML(&buf))

	again, err := LoadYAML(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, tbl.Names(), again.Names())
	assert.Equal(t, tbl.Aliases(), again.Aliases())
	assert.Equal(t, tbl.Version, again.Version)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "piv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pivYAML), 0o644))

	tbl, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "piv", tbl.Name)

	_, err = LoadFile(filepath.Join(dir, "piv.json"))
	assert.Error(t, err)
}

func TestFetchYAMLAndCacheFallback(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits > 1 {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(pivYAML))
	}))
	defer srv.Close()

	f := &Fetcher{CacheDir: t.TempDir()}
	tbl, err := f.Fetch(context.Background(), srv.URL+"/piv.yaml")
	require.NoError(t, err)
	assert.Equal(t, "piv", tbl.Name)

	// Server now fails; the cached copy answers.
	cached, err := f.Fetch(context.Background(), srv.URL+"/piv.yaml")
	require.NoError(t, err)
	assert.Equal(t, tbl.Names(), cached.Names())
}

func TestFetchSniffsXML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(cfXML))
	}))
	defer srv.Close()

	f := &Fetcher{}
	tbl, err := f.Fetch(context.Background(), srv.URL+"/table")
	require.NoError(t, err)
	assert.Equal(t, "v79.0.0", tbl.Version.String())
}

func TestFetchErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := &Fetcher{}
	_, err := f.Fetch(context.Background(), srv.URL+"/missing.yaml")
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}
