package audio

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeWAVHeader(t *testing.T) {
	pcm := make([]byte, 3200)
	wav, err := EncodeWAV(pcm, 16000)
	require.NoError(t, err)
	require.Len(t, wav, 44+len(pcm))
	require.Equal(t, "RIFF", string(wav[0:4]))
	require.Equal(t, "WAVE", string(wav[8:12]))
	require.Equal(t, "data", string(wav[36:40]))

	rate, size, err := ReadWAVInfo(bytes.NewReader(wav))
	require.NoError(t, err)
	require.Equal(t, 16000, rate)
	require.Equal(t, len(pcm), size)
}

func TestEncodeWAVDefaultsSampleRate(t *testing.T) {
	wav, err := EncodeWAV(nil, 0)
	require.NoError(t, err)
	rate, _, err := ReadWAVInfo(bytes.NewReader(wav))
	require.NoError(t, err)
	require.Equal(t, DefaultSampleRate, rate)
}

func TestReadWAVInfoRejectsGarbage(t *testing.T) {
	_, _, err := ReadWAVInfo(bytes.NewReader(make([]byte, 44)))
	require.Error(t, err)
}

func TestScratchPathsAndRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "audio")
	s, err := NewScratch(dir)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.Equal(t, filepath.Join(dir, "response_1700000000.wav"), s.ResponsePath())
	require.Equal(t, filepath.Join(dir, "final_response.wav"), s.FinalPath())

	path := s.ResponsePath()
	require.NoError(t, WriteWAVFile(path, make([]byte, 10), 16000))
	require.NoError(t, Remove(path))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	require.NoError(t, Remove(path))
}
