package tts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-voice/callcore/resilience"
)

type stubBatchVendor struct {
	result BatchResult
	err    error
}

func (s *stubBatchVendor) Name() string { return "stub" }
func (s *stubBatchVendor) SynthesizeBatch(_ context.Context, text string, _ VoiceSpec, _ FormatSpec) (BatchResult, error) {
	if s.err != nil {
		return BatchResult{}, s.err
	}
	return BatchResult{Audio: []byte(text), CharactersProcessed: len(text)}, nil
}

type stubStreamVendor struct {
	fail bool
}

func (s *stubStreamVendor) Name() string { return "stub-stream" }
func (s *stubStreamVendor) SynthesizeStream(_ context.Context, text string, _ VoiceSpec, _ FormatSpec) (<-chan AudioChunk, error) {
	out := make(chan AudioChunk, 2)
	go func() {
		defer close(out)
		if s.fail {
			out <- AudioChunk{Error: errors.New("mid-stream failure")}
			return
		}
		out <- AudioChunk{Data: []byte(text), Index: 0}
		out <- AudioChunk{Index: 1, Final: true}
	}()
	return out, nil
}

func fastResilienceConfig() resilience.Config {
	cfg := resilience.DefaultConfig()
	cfg.MaxAttempts = 1
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = time.Millisecond
	return cfg
}

func TestPreprocessText_ExpandsAbbreviationsAndCurrency(t *testing.T) {
	out := PreprocessText("Dr. Smith charged $5 for a 10% discount")
	assert.Contains(t, out, "Doctor Smith")
	assert.Contains(t, out, "5 dollars")
	assert.Contains(t, out, "10 percent")
	assert.True(t, out[len(out)-1] == '.')
}

func TestPreprocessText_CollapsesRepeatedPunctuation(t *testing.T) {
	out := PreprocessText("Wait...!!! really???")
	assert.NotContains(t, out, "...")
	assert.NotContains(t, out, "!!!")
	assert.NotContains(t, out, "???")
}

func TestPreprocessText_EmptyInputYieldsEmpty(t *testing.T) {
	assert.Equal(t, "", PreprocessText("   "))
}

func TestValidateText_RejectsEmpty(t *testing.T) {
	err := ValidateText("   ")
	require.Error(t, err)
}

func TestValidateText_AcceptsNormalText(t *testing.T) {
	assert.NoError(t, ValidateText("Hello there."))
}

func TestVoiceSpec_ClampsSpeed(t *testing.T) {
	assert.Equal(t, 0.5, NewVoiceSpec("v1", 0.1, "en", "").Speed)
	assert.Equal(t, 2.0, NewVoiceSpec("v1", 5.0, "en", "").Speed)
	assert.Equal(t, 1.5, NewVoiceSpec("v1", 1.5, "en", "").Speed)
}

func TestFacade_SynthesizeBatch_RejectsEmptyText(t *testing.T) {
	f := NewFacade(&stubBatchVendor{}, nil, resilience.NewClient("tts-test", fastResilienceConfig()))

	_, err := f.SynthesizeBatch(context.Background(), "", VoiceSpec{}, FormatSpec{})
	require.Error(t, err)
}

func TestFacade_SynthesizeBatch_Success(t *testing.T) {
	f := NewFacade(&stubBatchVendor{}, nil, resilience.NewClient("tts-test", fastResilienceConfig()))

	result, err := f.SynthesizeBatch(context.Background(), "hello", VoiceSpec{}, FormatSpec{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Audio)
}

func TestFacade_SynthesizeStream_FallsBackToBatchWithoutStreamVendor(t *testing.T) {
	f := NewFacade(&stubBatchVendor{}, nil, resilience.NewClient("tts-test", fastResilienceConfig()))

	ch, err := f.SynthesizeStream(context.Background(), "hello", VoiceSpec{}, FormatSpec{})
	require.NoError(t, err)

	var chunks []AudioChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Final)
}

func TestFacade_SynthesizeStream_MidStreamFailureEmitsSilence(t *testing.T) {
	f := NewFacade(&stubBatchVendor{}, &stubStreamVendor{fail: true}, resilience.NewClient("tts-test", fastResilienceConfig()))

	ch, err := f.SynthesizeStream(context.Background(), "hello", VoiceSpec{}, FormatSpec{SampleRate: 8000})
	require.NoError(t, err)

	var chunks []AudioChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Final)
	assert.NotEmpty(t, chunks[0].Data)
}

func TestFacade_SynthesizeStream_HappyPath(t *testing.T) {
	f := NewFacade(&stubBatchVendor{}, &stubStreamVendor{}, resilience.NewClient("tts-test", fastResilienceConfig()))

	ch, err := f.SynthesizeStream(context.Background(), "hello", VoiceSpec{}, FormatSpec{})
	require.NoError(t, err)

	var chunks []AudioChunk
	for c := range ch {
		chunks = append(chunks, c)
	}
	require.Len(t, chunks, 2)
	assert.True(t, chunks[1].Final)
}

func TestTelephonyFormat_Is8kHzMono16Bit(t *testing.T) {
	f := TelephonyFormat()
	assert.Equal(t, 8000, f.SampleRate)
}
