package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintech_reviews/internal/app"
	"fintech_reviews/internal/domain"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := newApp()
	a.Writer = &out
	a.ErrWriter = &out
	err := a.Run(append([]string{"reviewctl"}, args...))
	return out.String(), err
}

func TestReviewctl_LoadReportVerify(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	dir := t.TempDir()
	db := filepath.Join(dir, "reviews.db")
	input := filepath.Join(dir, "reviews.jsonl")
	require.NoError(t, os.WriteFile(input, []byte(
		`{"review":"fast and reliable","rating":5,"date":"2024-05-01","bank":"CBE"}
{"review":"","rating":3,"bank":"BOA"}
{"review":"login keeps failing","rating":1,"date":"2024-05-02","bank":"Bank of Abyssinia"}
`), 0o600))

	out, err := run(t, "--driver", "sqlite", "--dsn", db, "schema")
	require.NoError(t, err)
	assert.Contains(t, out, "schema ok")

	out, err = run(t, "--driver", "sqlite", "--dsn", db, "load", "--file", input)
	require.NoError(t, err)
	var reps []app.RunReport
	require.NoError(t, json.Unmarshal([]byte(out), &reps))
	require.Len(t, reps, 2)
	assert.Equal(t, 1, reps[0].Loaded)
	assert.Equal(t, "BOA", reps[1].Source)
	assert.Equal(t, 1, reps[1].Rejected)
	assert.Equal(t, 1, reps[1].Loaded)

	out, err = run(t, "--driver", "sqlite", "--dsn", db, "verify")
	require.NoError(t, err)
	var totals []domain.SourceTotals
	require.NoError(t, json.Unmarshal([]byte(out), &totals))
	require.Len(t, totals, 2)

	out, err = run(t, "--driver", "sqlite", "--dsn", db, "report", "--source", "cbe")
	require.NoError(t, err)
	var rep domain.SourceReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "CBE", rep.Source)
	assert.Equal(t, 1, rep.Sentiment.Positive)
}

func TestReviewctl_LoadRequiresFile(t *testing.T) {
	_, err := run(t, "--driver", "sqlite", "--dsn", filepath.Join(t.TempDir(), "x.db"), "load")
	require.Error(t, err)
}

func TestReviewctl_UnknownDriver(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	_, err := run(t, "--driver", "oracle", "--dsn", "x", "verify")
	require.Error(t, err)
}
