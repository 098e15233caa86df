package stt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-voice/callcore/resilience"
)

type stubVendor struct {
	result BatchResult
	err    error
}

func (s *stubVendor) Name() string { return "stub" }
func (s *stubVendor) TranscribeRich(_ context.Context, _ []byte, _ TranscriptionConfig) (BatchResult, error) {
	return s.result, s.err
}

func fastResilienceConfig() resilience.Config {
	cfg := resilience.DefaultConfig()
	cfg.MaxAttempts = 1
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	return cfg
}

func TestFacade_TranscribeBatch_RejectsEmptyAudio(t *testing.T) {
	f := NewFacade(&stubVendor{}, resilience.NewClient("stt-test", fastResilienceConfig()), nil)

	_, err := f.TranscribeBatch(context.Background(), nil, DefaultTranscriptionConfig())

	require.Error(t, err)
	var invalid *InvalidAudioError
	assert.ErrorAs(t, err, &invalid)
}

func TestFacade_TranscribeBatch_Success(t *testing.T) {
	vendor := &stubVendor{result: BatchResult{Text: "hello world", Confidence: 0.95}}
	f := NewFacade(vendor, resilience.NewClient("stt-test", fastResilienceConfig()), nil)

	result, err := f.TranscribeBatch(context.Background(), []byte("audio-bytes"), DefaultTranscriptionConfig())

	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
	assert.Equal(t, 0.95, result.Confidence)
}

func TestFacade_TranscribeBatch_VendorFailurePropagates(t *testing.T) {
	vendor := &stubVendor{err: errors.New("upstream down")}
	f := NewFacade(vendor, resilience.NewClient("stt-test", fastResilienceConfig()), nil)

	_, err := f.TranscribeBatch(context.Background(), []byte("audio"), DefaultTranscriptionConfig())

	require.Error(t, err)
}

func TestFacade_TranscribeStream_ErrorsWithoutVendor(t *testing.T) {
	f := NewFacade(&stubVendor{}, resilience.NewClient("stt-test", fastResilienceConfig()), nil)

	_, err := f.TranscribeStream(context.Background(), "conn-1")

	require.Error(t, err)
}

func TestFacade_HealthCheck_ReflectsClientHealth(t *testing.T) {
	client := resilience.NewClient("stt-test", fastResilienceConfig())
	f := NewFacade(&stubVendor{}, client, nil)

	assert.NoError(t, f.HealthCheck(context.Background()))
}

func TestAdaptService_WrapsPlainTextService(t *testing.T) {
	vendor := AdaptService(&fakeService{text: "adapted text"})

	result, err := vendor.TranscribeRich(context.Background(), []byte("audio"), DefaultTranscriptionConfig())

	require.NoError(t, err)
	assert.Equal(t, "adapted text", result.Text)
	assert.Equal(t, 1.0, result.Confidence)
}

type fakeService struct {
	text string
}

func (f *fakeService) Name() string { return "fake" }
func (f *fakeService) Transcribe(_ context.Context, _ []byte, _ TranscriptionConfig) (string, error) {
	return f.text, nil
}
func (f *fakeService) SupportedFormats() []string { return []string{FormatPCM} }
