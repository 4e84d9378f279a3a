package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	config "interview-analyzer-api/configs"
	"interview-analyzer-api/pkg/dynamics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInput = `{
	"transcript": {"text": "Good morning. I have five years of backend experience and enjoy solving hard problems."},
	"video_features": {"duration": 65, "eye_contact_percentage": 72, "gesture_frequency": 11},
	"audio_features": {"speech_rate": 150, "speech_clarity": 7.5},
	"candidate": {"id": "cli-1", "name": "CLI Candidate"}
}`

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunAnalysis_Offline(t *testing.T) {
	dir := t.TempDir()
	opts := runOptions{
		input:   writeInput(t, sampleInput),
		output:  filepath.Join(dir, "out.json"),
		xlsx:    filepath.Join(dir, "out.xlsx"),
		offline: true,
	}

	var stdout bytes.Buffer
	require.NoError(t, runAnalysis(context.Background(), opts, &config.Config{}, &stdout))
	assert.Empty(t, stdout.String(), "--output 指定時は標準出力に書かない")

	data, err := os.ReadFile(opts.output)
	require.NoError(t, err)
	var got dynamics.FinalAnalysis
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got.Segments, 3)
	assert.Equal(t, "cli-1", got.CandidateID)
	assert.Equal(t, dynamics.SourceFallback, got.Quality.AssessmentSource)

	_, err = os.Stat(opts.xlsx)
	assert.NoError(t, err)
}

func TestRunAnalysis_Stdout(t *testing.T) {
	var stdout bytes.Buffer
	opts := runOptions{input: writeInput(t, sampleInput), offline: true}

	require.NoError(t, runAnalysis(context.Background(), opts, &config.Config{}, &stdout))
	assert.Contains(t, stdout.String(), `"candidate_id": "cli-1"`)
}

func TestRunAnalysis_Errors(t *testing.T) {
	cfg := &config.Config{}

	err := runAnalysis(context.Background(), runOptions{input: filepath.Join(t.TempDir(), "missing.json"), offline: true}, cfg, &bytes.Buffer{})
	assert.Error(t, err)

	err = runAnalysis(context.Background(), runOptions{input: writeInput(t, "{"), offline: true}, cfg, &bytes.Buffer{})
	assert.Error(t, err)

	err = runAnalysis(context.Background(), runOptions{input: writeInput(t, `{"video_features":{"duration":-3}}`), offline: true}, cfg, &bytes.Buffer{})
	assert.ErrorIs(t, err, dynamics.ErrMalformedInput)
}

func TestNewEngine_UnconfiguredAzureFallsBack(t *testing.T) {
	engine, err := newEngine(&config.Config{}, false)
	require.NoError(t, err)

	a, err := engine.Analyze(context.Background(), dynamics.Input{Video: dynamics.VideoFeatures{Duration: 30}})
	require.NoError(t, err)
	assert.Equal(t, dynamics.SourceFallback, a.Quality.ClassificationSource)
}

func TestCriteriaCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"criteria"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Communication skills")
	assert.Contains(t, out.String(), dynamics.ModelVersion)
}

func TestRunCommand_RequiresInput(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"run", "--offline"})

	assert.Error(t, cmd.Execute())
}
