package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("job-1", "reports/file.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	jobID, path, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "reports/file.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerReportDownloadToken(t *testing.T) {
	// Report results live under a date directory and embed the job UUID
	// in the filename; both survive the round trip untouched.
	signer := NewSignedURLSigner("download-secret", time.Hour)
	const jobID = "5f0c0c9e-9d3a-4a61-9a0e-2f3b6d7c8e91"
	const relPath = "2026-03-02/attendance-" + jobID + ".pdf"

	token, _, err := signer.Generate(jobID, relPath)
	require.NoError(t, err)

	gotJob, gotPath, _, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, jobID, gotJob)
	require.Equal(t, relPath, gotPath)

	// A token signed under another secret must not validate.
	other := NewSignedURLSigner("rotated-secret", time.Hour)
	_, _, _, err = other.Parse(token, false)
	require.Error(t, err)

	// Tampering with the embedded path invalidates the signature.
	tampered, _, err := signer.Generate(jobID, "2026-03-02/summary-"+jobID+".pdf")
	require.NoError(t, err)
	require.NotEqual(t, token, tampered)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Millisecond*10)
	token, _, err := signer.Generate("job-1", "reports/file.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Parse(token, false)
	require.Error(t, err)

	jobID, path, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "job-1", jobID)
	require.Equal(t, "reports/file.csv", path)
}
