package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingServer tracks how many requests ever reached the transport
type countingServer struct {
	*httptest.Server
	calls int
}

func newTokenServer(t *testing.T) *countingServer {
	t.Helper()
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.calls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.Form.Get("grant_type"))
		assert.NotEmpty(t, r.Form.Get("assertion"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "test-token",
			"expires_in":   3600,
		})
	}))
	return cs
}

func testServiceAccount(t *testing.T) ServiceAccount {
	t.Helper()
	return ServiceAccount{
		ClientEmail: "svc@project.iam.gserviceaccount.com",
		PrivateKey:  testPEMKey(t),
		ProjectID:   "test-project",
	}
}

func TestTTSClientMissingCredentialsFailsBeforeNetwork(t *testing.T) {
	tokenServer := newTokenServer(t)
	defer tokenServer.Close()

	ttsCalls := 0
	ttsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ttsCalls++
	}))
	defer ttsServer.Close()

	complete := testServiceAccount(t)
	cases := []ServiceAccount{
		{PrivateKey: complete.PrivateKey, ProjectID: complete.ProjectID},
		{ClientEmail: complete.ClientEmail, ProjectID: complete.ProjectID},
		{ClientEmail: complete.ClientEmail, PrivateKey: complete.PrivateKey},
	}

	for i, sa := range cases {
		_, err := NewTTSClient(sa)
		var configErr *ConfigurationError
		assert.ErrorAs(t, err, &configErr, "case %d", i)
	}

	// Construction failed before any network attempt was possible
	assert.Equal(t, 0, tokenServer.calls)
	assert.Equal(t, 0, ttsCalls)
}

func TestTTSSynthesizeSuccess(t *testing.T) {
	tokenServer := newTokenServer(t)
	defer tokenServer.Close()

	audio := []byte("mp3-bytes")
	ttsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hello there", req.Input.Text)
		assert.Equal(t, "en-US", req.Voice.LanguageCode)
		assert.Equal(t, "NEUTRAL", req.Voice.SSMLGender)
		assert.Equal(t, "MP3", req.AudioConfig.AudioEncoding)
		assert.Equal(t, 24000, req.AudioConfig.SampleRateHertz)
		assert.Equal(t, []string{"small-bluetooth-speaker-class-device"}, req.AudioConfig.EffectsProfileID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString(audio),
		})
	}))
	defer ttsServer.Close()

	client, err := NewTTSClient(testServiceAccount(t),
		WithTTSEndpoint(ttsServer.URL),
		WithTokenURL(tokenServer.URL),
	)
	require.NoError(t, err)

	got, err := client.Synthesize(context.Background(), "Hello there")
	require.NoError(t, err)
	assert.Equal(t, audio, got)
}

func TestTTSSynthesizeReusesToken(t *testing.T) {
	tokenServer := newTokenServer(t)
	defer tokenServer.Close()

	ttsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"audioContent": base64.StdEncoding.EncodeToString([]byte("x")),
		})
	}))
	defer ttsServer.Close()

	client, err := NewTTSClient(testServiceAccount(t),
		WithTTSEndpoint(ttsServer.URL),
		WithTokenURL(tokenServer.URL),
	)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := client.Synthesize(context.Background(), "hello")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, tokenServer.calls)
}

func TestTTSSynthesizeEmptyAudio(t *testing.T) {
	tokenServer := newTokenServer(t)
	defer tokenServer.Close()

	ttsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"audioContent":""}`))
	}))
	defer ttsServer.Close()

	client, err := NewTTSClient(testServiceAccount(t),
		WithTTSEndpoint(ttsServer.URL),
		WithTokenURL(tokenServer.URL),
	)
	require.NoError(t, err)

	_, err = client.Synthesize(context.Background(), "hello")

	var emptyErr *EmptyAudioError
	assert.ErrorAs(t, err, &emptyErr)
}

func TestTTSSynthesizeUpstreamError(t *testing.T) {
	tokenServer := newTokenServer(t)
	defer tokenServer.Close()

	ttsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"permission denied"}`))
	}))
	defer ttsServer.Close()

	client, err := NewTTSClient(testServiceAccount(t),
		WithTTSEndpoint(ttsServer.URL),
		WithTokenURL(tokenServer.URL),
	)
	require.NoError(t, err)

	_, err = client.Synthesize(context.Background(), "hello")

	var upstreamErr *UpstreamError
	require.ErrorAs(t, err, &upstreamErr)
	assert.Equal(t, http.StatusForbidden, upstreamErr.Status)
}

func TestTTSSynthesizeEmptyText(t *testing.T) {
	client, err := NewTTSClient(testServiceAccount(t))
	require.NoError(t, err)

	_, err = client.Synthesize(context.Background(), "")

	var configErr *ConfigurationError
	assert.ErrorAs(t, err, &configErr)
}
