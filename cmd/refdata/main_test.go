package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insighted/schoolprofile/internal/models"
)

const datasetCSV = `School ID,School Name,Region,Province,Municipality,Barangay,Division,District,Legislative District
100001.0,Example ES,Region I,Ilocos Norte,Laoag City,Barangay 1,Ilocos Norte,Laoag I,1st District
100002,Batac Central ES,Region I,Ilocos Norte,Batac City,Quiling Sur,Ilocos Norte,Batac,2nd District
300001,Angeles ES,Region III,Pampanga,Angeles City,Balibago,Angeles City,Angeles North,1st District
`

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schools.csv")
	require.NoError(t, os.WriteFile(path, []byte(datasetCSV), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range newRootCmd().Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"inspect", "resolve", "options", "normalize"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestInspect(t *testing.T) {
	out, err := run(t, "inspect", "--source", writeDataset(t))
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Status.Loaded)
	assert.Equal(t, 3, report.Status.Rows)
	assert.Equal(t, []string{"Region I", "Region III"}, report.Regions)
}

func TestResolve(t *testing.T) {
	source := writeDataset(t)

	out, err := run(t, "resolve", "--source", source, "--id", "100001")
	require.NoError(t, err)
	var candidate models.ResolvedCandidate
	require.NoError(t, json.Unmarshal([]byte(out), &candidate))
	assert.Equal(t, "100001", candidate.SchoolID)
	assert.Equal(t, "Example ES", candidate.SchoolName)

	out, err = run(t, "resolve", "--source", source, "--name", "ANGELES es")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &candidate))
	assert.Equal(t, "300001", candidate.SchoolID)

	_, err = run(t, "resolve", "--source", source, "--id", "999999")
	assert.Error(t, err)

	_, err = run(t, "resolve", "--source", source)
	assert.Error(t, err)
}

func TestOptions(t *testing.T) {
	source := writeDataset(t)

	out, err := run(t, "options", "--source", source, "--level", "municipality",
		"--region", "region i", "--province", "Ilocos Norte")
	require.NoError(t, err)
	var options []string
	require.NoError(t, json.Unmarshal([]byte(out), &options))
	assert.Equal(t, []string{"Batac City", "Laoag City"}, options)

	_, err = run(t, "options", "--source", source, "--level", "planet")
	assert.Error(t, err)

	_, err = run(t, "options", "--source", source)
	assert.Error(t, err, "--level is required")
}

func TestNormalize(t *testing.T) {
	out, err := run(t, "normalize", "--source", writeDataset(t),
		"--region", "REGION III", "--province", "pampanga", "--municipality", "Nowhere")
	require.NoError(t, err)

	var h models.Hierarchy
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, "Region III", h.Region)
	assert.Equal(t, "Pampanga", h.Province)
	assert.Equal(t, "Nowhere", h.Municipality)
}

func TestMissingSource(t *testing.T) {
	t.Setenv("REFERENCE_SOURCE", "")
	_, err := run(t, "inspect")
	assert.Error(t, err)
}
