package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/software"
)

const patchFeed = `[
	{"Name":"Server Security Patch","Products":"ArcGIS Server","Critical":"security","ReleaseDate":"2024-02-13",
	 "url":"https://support.esri.com/server-security-patch",
	 "PatchFiles":["https://gisupdates.esri.com/QFE/S-112-P-1/ArcGIS-112-S-SEC-Patch.zip"],
	 "version":"11.2"},
	{"Name":"Portal Fix","Products":"Portal for ArcGIS","ReleaseDate":"2024-01-09","version":"11.2"},
	{"Name":"Legacy Fix","Products":"ArcGIS Server","ReleaseDate":"2020-05-01"}
]`

const softwareCSV = "Folder Path,Filename,Size (GB),Direct Download,Web View\n" +
	"Enterprise/11.3,ArcGIS_Server_Linux_113_190000.tar.gz,1.5,https://dl.example/server,\n" +
	"Enterprise/11.3,Portal_for_ArcGIS_Linux_113_190001.tar.gz,2.0,https://dl.example/portal,\n"

// setup isolates config discovery and writes both feeds to disk.
func setup(t *testing.T) (patchesPath, softwarePath string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "PATCHBROWSER_") {
			t.Setenv(strings.SplitN(kv, "=", 2)[0], "")
		}
	}
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	patchesPath = filepath.Join(dir, "patches.json")
	softwarePath = filepath.Join(dir, "installers.csv")
	require.NoError(t, os.WriteFile(patchesPath, []byte(patchFeed), 0644))
	require.NoError(t, os.WriteFile(softwarePath, []byte(softwareCSV), 0644))

	t.Cleanup(func() {
		configPath, logLevel, patchesFeed, softwareFeed = "", "", "", ""
	})
	return patchesPath, softwarePath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSheetKey(t *testing.T) {
	tests := map[string]string{
		"":               patch.AllSheet,
		"all":            patch.AllSheet,
		"All_Enterprise": patch.AllSheet,
		"11.2":           "v11_2",
		"v11_2":          "v11_2",
		" 10.9.1 ":       "v10_9_1",
	}
	for in, want := range tests {
		assert.Equal(t, want, sheetKey(in), "input %q", in)
	}
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{formatTable, formatJSON, formatYAML} {
		assert.NoError(t, validateFormat(f))
	}
	assert.EqualError(t, validateFormat("csv"), `unknown format "csv": use table, json or yaml`)
}

func TestWriteRows(t *testing.T) {
	rows := []software.Row{{Version: "11.3", Component: "Portal", Filename: "Portal.tar.gz"}}

	var js bytes.Buffer
	require.NoError(t, writeRows(&js, formatJSON, rows, nil))
	assert.Contains(t, js.String(), `"filename": "Portal.tar.gz"`)

	var ym bytes.Buffer
	require.NoError(t, writeRows(&ym, formatYAML, rows, nil))
	assert.Contains(t, ym.String(), "filename: Portal.tar.gz")

	var tbl bytes.Buffer
	require.NoError(t, writeRows(&tbl, formatTable, rows, softwareTable(rows)))
	assert.Contains(t, tbl.String(), "Portal.tar.gz")

	assert.Error(t, writeRows(&tbl, "xml", rows, nil))
}

func TestPatchOutputs(t *testing.T) {
	rows := patchOutputs([]patch.PatchRow{{
		Released:   "2024-02-13",
		Component:  "ArcGIS Server",
		Security:   true,
		PatchName:  "Server Patch",
		PatchFiles: []string{"https://gisupdates.esri.com/QFE/S-112-P-1/ArcGIS-112-S-Patch.zip"},
	}}, "v11_2")

	require.Len(t, rows, 1)
	assert.Equal(t, "Y", rows[0].Security)
	assert.Equal(t, "https://gisupdates.esri.com/QFE/S-112-P-1/ArcGIS-112-S-Patch.zip", rows[0].DownloadURL)

	table := patchTable(rows)
	require.Len(t, table, 2)
	assert.Equal(t, "Patch Name", table[0][3])
}

func TestPatchesCommand_JSON(t *testing.T) {
	patches, sw := setup(t)

	out, err := run(t, "patches", "--patches-feed", patches, "--software-feed", sw,
		"--sheet", "11.2", "--security", "Y", "--format", "json")
	require.NoError(t, err)

	var rows []patchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "Server Security Patch", rows[0].PatchName)
	assert.Equal(t, "https://support.esri.com/server-security-patch", rows[0].SupportURL)
}

func TestPatchesCommand_RenderLimitFromConfig(t *testing.T) {
	patches, sw := setup(t)
	t.Setenv("PATCHBROWSER_DISPLAY_RENDER_LIMIT", "1")

	out, err := run(t, "patches", "--patches-feed", patches, "--software-feed", sw,
		"--sheet", "11.2", "--format", "json")
	require.NoError(t, err)
	var rows []patchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 1)

	out, err = run(t, "patches", "--patches-feed", patches, "--software-feed", sw,
		"--sheet", "11.2", "--format", "json", "--limit", "-1")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	assert.Len(t, rows, 2, "--limit overrides the config")
}

func TestPatchesCommand_ListSheets(t *testing.T) {
	patches, sw := setup(t)

	out, err := run(t, "patches", "--patches-feed", patches, "--software-feed", sw, "--sheets")
	require.NoError(t, err)
	assert.Contains(t, out, patch.AllSheet)
	assert.Contains(t, out, "v11.2")
}

func TestPatchesCommand_MissingFeed(t *testing.T) {
	_, sw := setup(t)

	_, err := run(t, "patches", "--patches-feed", "missing.json", "--software-feed", sw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patches feed file not found")
}

func TestPatchesCommand_BadFormat(t *testing.T) {
	patches, sw := setup(t)

	_, err := run(t, "patches", "--patches-feed", patches, "--software-feed", sw, "--format", "csv")
	assert.EqualError(t, err, `unknown format "csv": use table, json or yaml`)
}

func TestSoftwareCommand_YAML(t *testing.T) {
	patches, sw := setup(t)

	out, err := run(t, "software", "--patches-feed", patches, "--software-feed", sw,
		"--component", "Portal", "--format", "yaml")
	require.NoError(t, err)

	var rows []software.Row
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "11.3", rows[0].Version)
	assert.Equal(t, "https://dl.example/portal", rows[0].DirectURL)
}

func TestSoftwareCommand_Options(t *testing.T) {
	patches, sw := setup(t)

	out, err := run(t, "software", "--patches-feed", patches, "--software-feed", sw, "--options")
	require.NoError(t, err)
	assert.Contains(t, out, "Versions:   11.3")
}

func TestExportCommand(t *testing.T) {
	patches, sw := setup(t)
	dir := filepath.Join(t.TempDir(), "site")

	_, err := run(t, "export", "--patches-feed", patches, "--software-feed", sw, "--out", dir, "--sheet", "11.2")
	require.NoError(t, err)

	for _, name := range []string{"index.html", "patches.html", "software.html"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	html, err := os.ReadFile(filepath.Join(dir, "patches.html"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "Version: 11.2")
}

func TestConfigInitAndShow(t *testing.T) {
	setup(t)

	_, err := run(t, "config", "init")
	require.NoError(t, err)
	assert.FileExists(t, ".patchbrowser.yaml")

	_, err = run(t, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "config", "init", "--force")
	require.NoError(t, err)

	out, err := run(t, "config", "show", "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")
	assert.Contains(t, out, "timeout: 30s")
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "patchbrowser dev"))
}
