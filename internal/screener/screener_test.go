package screener

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/profile-screener/internal/profile"
	"github.com/JakeFAU/profile-screener/internal/scoring"
)

type fakeAcquirer struct {
	rec   profile.Record
	err   error
	url   string
	creds *profile.Credentials
	calls int
}

func (f *fakeAcquirer) Acquire(_ context.Context, url string, creds *profile.Credentials) (profile.Record, error) {
	f.calls++
	f.url = url
	f.creds = creds
	return f.rec, f.err
}

func sparseRecord() profile.Record {
	rec, _ := profile.Normalize(profile.Record{Name: "Jane Doe", Headline: "Engineer"})
	return rec
}

func TestNewRequiresAcquirer(t *testing.T) {
	t.Parallel()

	_, err := New(nil, zap.NewNop())
	require.Error(t, err)
}

func TestScreenScoresRecord(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{rec: sparseRecord()}
	svc, err := New(acq, nil)
	require.NoError(t, err)

	got, err := svc.Screen(context.Background(), "https://www.linkedin.com/in/jane/")
	require.NoError(t, err)

	want := scoring.Score(acq.rec)
	require.Equal(t, acq.rec, got.Record)
	require.Equal(t, want, got.ScoreResult)
	require.Equal(t, "https://www.linkedin.com/in/jane/", acq.url)
	require.Nil(t, acq.creds)
}

func TestScreenWithCredentialsPassesCredentials(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{rec: sparseRecord()}
	svc, err := New(acq, zap.NewNop())
	require.NoError(t, err)

	_, err = svc.ScreenWithCredentials(context.Background(), "https://www.linkedin.com/in/jane/",
		profile.Credentials{Email: "jane@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotNil(t, acq.creds)
	require.Equal(t, "jane@example.com", acq.creds.Email)
}

func TestScreenPropagatesClassifiedErrors(t *testing.T) {
	t.Parallel()

	acq := &fakeAcquirer{err: profile.NewError(profile.KindSecurityChallenge, "blocked", nil)}
	svc, err := New(acq, zap.NewNop())
	require.NoError(t, err)

	got, err := svc.Screen(context.Background(), "https://www.linkedin.com/in/jane/")
	require.Error(t, err)
	require.True(t, profile.IsKind(err, profile.KindSecurityChallenge))
	require.Equal(t, profile.Result{}, got)
	require.Equal(t, 1, acq.calls)
}
