package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photokey/floorplan/internal/config"
	"github.com/photokey/floorplan/internal/export"
	"github.com/photokey/floorplan/internal/geo"
	"github.com/photokey/floorplan/internal/logging"
)

const testManifest = `{
	"id": "site-visit",
	"floors": [
		{ "id": "1", "floorplan": "plan.png",
		  "frame": { "center": { "latitude": 40, "longitude": -74 }, "scale": 0.01 } },
		{ "id": "2" }
	],
	"items": [
		{ "id": "a", "floorId": "2", "latitude": 40.001, "latitudeRef": "N", "longitude": 74, "longitudeRef": "W" },
		{ "id": "b", "floorId": "1", "latitude": 40, "latitudeRef": "N", "longitude": 74, "longitudeRef": "W", "heading": 90 },
		{ "id": "c", "floorId": "1", "latitude": 40.005, "latitudeRef": "N", "longitude": 74, "longitudeRef": "W" },
		{ "id": "d" },
		{ "id": "bad", "latitude": 95, "longitude": 0 }
	]
}`

func setupTest(t *testing.T, storeType string) (dir, manifestPath string) {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir = t.TempDir()

	config.SetDefaults()
	viper.Set("storage.type", storeType)
	viper.Set("storage.sqlite.path", filepath.Join(dir, "frames.db"))
	viper.Set("capture.settleDelay", "0s")

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(io.Discard, "debug", nil)
	Logger = SlogManager.Logger()
	DBLogger = zerolog.Nop()

	img := image.NewNRGBA(image.Rect(0, 0, 200, 150))
	rand.New(rand.NewSource(3)).Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	require.NoError(t, imaging.Save(img, filepath.Join(dir, "plan.png")))

	manifestPath = filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(manifestPath, []byte(testManifest), 0644))
	return dir, manifestPath
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), &out, args)
	return out.String(), err
}

func numbersByItem(t *testing.T, output string) map[string][]string {
	t.Helper()
	rows := map[string][]string{}
	for _, line := range strings.Split(strings.TrimSpace(output), "\n")[1:] {
		fields := strings.Fields(line)
		require.Len(t, fields, 4, line)
		rows[fields[1]] = fields
	}
	return rows
}

func TestRun_Usage(t *testing.T) {
	setupTest(t, "memory")

	_, err := runCmd(t)
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "numbers")
	assert.ErrorIs(t, err, errUsage)

	_, err = runCmd(t, "frobnicate")
	assert.ErrorContains(t, err, `unknown command "frobnicate"`)
}

func TestRun_Numbers(t *testing.T) {
	_, manifest := setupTest(t, "memory")

	out, err := runCmd(t, "numbers", manifest)
	require.NoError(t, err)

	rows := numbersByItem(t, out)
	assert.Equal(t, []string{"1", "b", "1", "50.0,50.0"}, rows["b"])
	assert.Equal(t, []string{"2", "c", "1", "50.0,0.0"}, rows["c"])
	assert.Equal(t, []string{"3", "a", "2", "-"}, rows["a"])
	assert.Equal(t, []string{"4", "d", "unassigned", "-"}, rows["d"])
	assert.NotContains(t, rows, "bad")
}

func TestRun_AlignZeroNetKeepsFrame(t *testing.T) {
	_, manifest := setupTest(t, "sqlite")

	out, err := runCmd(t, "align", manifest, "1", "n", "e", "+", "cw", "ccw", "-", "w", "s")
	require.NoError(t, err)

	var frame geo.ReferenceFrame
	require.NoError(t, json.Unmarshal([]byte(out), &frame))
	assert.Equal(t, 40.0, frame.Center.Latitude)
	assert.Equal(t, -74.0, frame.Center.Longitude)
	assert.Equal(t, 0.01, frame.Scale)
	assert.Equal(t, 0.0, frame.BearingDegrees)
}

func TestRun_AlignPersists(t *testing.T) {
	_, manifest := setupTest(t, "sqlite")

	out, err := runCmd(t, "align", manifest, "1", "e", "e", "cw")
	require.NoError(t, err)
	var moved geo.ReferenceFrame
	require.NoError(t, json.Unmarshal([]byte(out), &moved))
	assert.Greater(t, moved.Center.Longitude, -74.0)
	assert.Equal(t, 5.0, moved.BearingDegrees)

	out, err = runCmd(t, "align", manifest, "1")
	require.NoError(t, err)
	var again geo.ReferenceFrame
	require.NoError(t, json.Unmarshal([]byte(out), &again))
	assert.Equal(t, moved, again, "the stored frame is restored over the manifest frame")

	out, err = runCmd(t, "numbers", manifest)
	require.NoError(t, err)
	assert.NotEqual(t, "50.0,50.0", numbersByItem(t, out)["b"][3])
}

func TestRun_AlignErrors(t *testing.T) {
	_, manifest := setupTest(t, "memory")

	_, err := runCmd(t, "align", manifest, "2")
	assert.ErrorContains(t, err, "floor has no floorplan")

	_, err = runCmd(t, "align", manifest, "9")
	assert.ErrorContains(t, err, "unknown floor")

	_, err = runCmd(t, "align", manifest, "1", "up")
	assert.ErrorContains(t, err, `unknown alignment step "up"`)
}

func TestRun_AlignView(t *testing.T) {
	_, manifest := setupTest(t, "memory")

	out, err := runCmd(t, "align-view", manifest, "1", "40.001,-74.002", "0.02", "0.03")
	require.NoError(t, err)

	var frame geo.ReferenceFrame
	require.NoError(t, json.Unmarshal([]byte(out), &frame))
	assert.Equal(t, 40.001, frame.Center.Latitude)
	assert.Equal(t, 0.02, frame.Scale)
	assert.Equal(t, 0.03, frame.SecondarySpan)

	_, err = runCmd(t, "align-view", manifest, "1", "40,-74", "0", "0.03")
	assert.ErrorContains(t, err, "extent")

	_, err = runCmd(t, "align-view", manifest, "1", "95,-74", "0.02", "0.03")
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinates)

	_, err = runCmd(t, "align-view", manifest, "1", "40", "-74", "0.02", "0.03")
	assert.ErrorIs(t, err, errUsage)
}

func TestRun_Export(t *testing.T) {
	dir, manifest := setupTest(t, "memory")
	outDir := filepath.Join(dir, "out")

	out, err := runCmd(t, "export", manifest, outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 1 floors, 2 close-ups, 3 markers")

	assert.FileExists(t, filepath.Join(outDir, "floors", "1.png"))
	assert.FileExists(t, filepath.Join(outDir, "items", "b.png"))
	assert.FileExists(t, filepath.Join(outDir, "items", "c.png"))

	data, err := os.ReadFile(filepath.Join(outDir, "bundle.json"))
	require.NoError(t, err)
	var bundle export.Bundle
	require.NoError(t, json.Unmarshal(data, &bundle))
	require.Len(t, bundle.Markers, 3)
	assert.Equal(t, "b", bundle.Markers[0].ItemID)
	assert.True(t, bundle.Floors["1"].OK)
}

func TestRun_ExportKeepsFilesInsideOutDir(t *testing.T) {
	dir, _ := setupTest(t, "memory")
	outDir := filepath.Join(dir, "nested", "out")

	escaping := filepath.Join(dir, "escaping.json")
	require.NoError(t, os.WriteFile(escaping, []byte(`{
		"id": "p",
		"floors": [ { "id": "1", "floorplan": "plan.png",
			"frame": { "center": { "latitude": 40, "longitude": -74 }, "scale": 0.01 } } ],
		"items": [
			{ "id": "../../x", "floorId": "1", "latitude": 40, "latitudeRef": "N", "longitude": 74, "longitudeRef": "W" },
			{ "id": "ok", "floorId": "1", "latitude": 40, "latitudeRef": "N", "longitude": 74, "longitudeRef": "W" }
		]
	}`), 0644))

	out, err := runCmd(t, "export", escaping, outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "1 close-ups")
	assert.FileExists(t, filepath.Join(outDir, "items", "ok.png"))
	assert.NoFileExists(t, filepath.Join(dir, "nested", "x.png"))

	badFloor := filepath.Join(dir, "bad-floor.json")
	require.NoError(t, os.WriteFile(badFloor, []byte(`{
		"id": "p",
		"floors": [ { "id": "../../plan", "floorplan": "plan.png" } ]
	}`), 0644))
	_, err = runCmd(t, "export", badFloor, outDir)
	assert.ErrorContains(t, err, "floor id")
	assert.NoFileExists(t, filepath.Join(dir, "plan.png.png"))
}

func TestRun_ExportWithConfiguredGlyph(t *testing.T) {
	dir, manifest := setupTest(t, "memory")

	pin := filepath.Join(dir, "pin.png")
	require.NoError(t, imaging.Save(imaging.New(40, 40, image.Black), pin))
	viper.Set("capture.glyph", pin)
	out, err := runCmd(t, "export", manifest, filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Contains(t, out, "exported 1 floors")

	viper.Set("capture.glyph", filepath.Join(dir, "missing.png"))
	_, err = runCmd(t, "export", manifest, filepath.Join(dir, "out2"))
	assert.ErrorContains(t, err, "loading marker glyph")
}

func TestRun_Backup(t *testing.T) {
	dir, manifest := setupTest(t, "sqlite")

	_, err := runCmd(t, "align", manifest, "1", "n")
	require.NoError(t, err)

	path := filepath.Join(dir, "backup.db")
	out, err := runCmd(t, "backup", path)
	require.NoError(t, err)
	assert.Contains(t, out, "backed up frame store")
	assert.FileExists(t, path)

	viper.Set("storage.type", "memory")
	_, err = runCmd(t, "backup", path)
	assert.Error(t, err)
}

func TestCreateStore_Unknown(t *testing.T) {
	setupTest(t, "memory")
	_, _, err := createStore(config.StorageConfig{Type: "websocket"})
	assert.ErrorContains(t, err, `unknown storage type "websocket"`)
}

func TestRun_LogsCarryRunContext(t *testing.T) {
	_, manifest := setupTest(t, "memory")

	var logs bytes.Buffer
	SlogManager.Context = RunContext.Attrs
	SlogManager.Setup(&logs, "info", nil)
	Logger = SlogManager.Logger()

	_, err := runCmd(t, "numbers", manifest)
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "command=numbers")
	assert.Contains(t, logs.String(), "project=site-visit")
}

func TestRun_ExportUploads(t *testing.T) {
	dir, manifest := setupTest(t, "memory")

	var uploads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/reports/site-visit/images" {
			uploads.Add(1)
			io.Copy(io.Discard, r.Body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	viper.Set("api.serverUrl", server.URL)

	out, err := runCmd(t, "export", manifest, filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Contains(t, out, "uploaded to "+server.URL)
	assert.Equal(t, int32(1), uploads.Load())
}
