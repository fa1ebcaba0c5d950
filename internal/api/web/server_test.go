package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/akarpushin/remote-alarm/internal/domain/alarm"
	alarmsvc "github.com/akarpushin/remote-alarm/internal/service/alarm"
)

// stubService is a minimal Service implementation recording the calls the
// handlers make.
type stubService struct {
	// info is returned from GetInfo.
	info *domain.Info
	// err is returned from every operation when set.
	err error
	// lastHours records the duration passed to PlayLoop.
	lastHours float64
	// lastDelay records the delay passed to StopDelayed.
	lastDelay time.Duration
	// lastPercent records the raw percent passed to SetVolume.
	lastPercent int
}

func (s *stubService) GetInfo(context.Context) *domain.Info {
	if s.info != nil {
		return s.info
	}

	return &domain.Info{Status: domain.StatusIdle, VolumePercent: 100}
}

func (s *stubService) PlayOnce(context.Context) (string, error) {
	return "Playing alarm once", s.err
}

func (s *stubService) PlayLoop(_ context.Context, hours float64) (string, error) {
	s.lastHours = hours

	return "Looping", s.err
}

func (s *stubService) StopAll(context.Context) (string, error) {
	return "Stopped", s.err
}

func (s *stubService) StopDelayed(_ context.Context, delay time.Duration) (string, error) {
	s.lastDelay = delay

	return "Stopping soon", s.err
}

func (s *stubService) SetVolume(_ context.Context, percent int) (int, string, error) {
	s.lastPercent = percent
	clamped := min(100, max(0, percent))

	return clamped, "Volume set", s.err
}

func newTestServer(svc *stubService, authEnabled bool) *httptest.Server {
	srv := NewServer(svc, Options{
		AuthEnabled:      authEnabled,
		Username:         "admin",
		Password:         "secret",
		DefaultLoopHours: 6,
		DefaultStopDelay: 10 * time.Second,
	})

	return httptest.NewServer(srv.Handler())
}

func do(t *testing.T, method, url, body string, auth bool) *http.Response {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, reader)
	require.NoError(t, err)

	if auth {
		req.SetBasicAuth("admin", "secret")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// TestBasicAuth_Required verifies unauthenticated requests are rejected with
// a challenge and correct credentials pass through.
func TestBasicAuth_Required(t *testing.T) {
	t.Parallel()

	ts := newTestServer(new(stubService), true)
	defer ts.Close()

	resp := do(t, http.MethodGet, ts.URL+"/api/status", "", false)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Contains(t, resp.Header.Get("WWW-Authenticate"), "Basic")

	resp = do(t, http.MethodGet, ts.URL+"/api/status", "", true)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestBasicAuth_Disabled verifies routes are open when auth is off.
func TestBasicAuth_Disabled(t *testing.T) {
	t.Parallel()

	ts := newTestServer(new(stubService), false)
	defer ts.Close()

	resp := do(t, http.MethodGet, ts.URL+"/api/status", "", false)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestStatus_ReportsLoopRemaining verifies the status payload shape.
func TestStatus_ReportsLoopRemaining(t *testing.T) {
	t.Parallel()

	svc := &stubService{
		info: &domain.Info{
			Status:        domain.StatusLooping,
			VolumePercent: 70,
			Remaining:     "1h 2m 3s",
		},
	}

	ts := newTestServer(svc, false)
	defer ts.Close()

	resp := do(t, http.MethodGet, ts.URL+"/api/status", "", false)

	var body statusResponse

	decodeBody(t, resp, &body)
	require.Equal(t, "looping", body.Status)
	require.Equal(t, 70, body.Volume)
	require.Equal(t, "1h 2m 3s", body.Remaining)
}

// TestLoop_DefaultAndExplicitHours verifies the default duration is used for
// empty bodies and explicit values are passed through.
func TestLoop_DefaultAndExplicitHours(t *testing.T) {
	t.Parallel()

	svc := new(stubService)

	ts := newTestServer(svc, false)
	defer ts.Close()

	resp := do(t, http.MethodPost, ts.URL+"/api/loop", "", false)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.InEpsilon(t, 6.0, svc.lastHours, 0.0001)

	resp = do(t, http.MethodPost, ts.URL+"/api/loop", `{"hours": 2.5}`, false)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.InEpsilon(t, 2.5, svc.lastHours, 0.0001)
}

// TestStopDelayed_DefaultAndExplicitDelay mirrors the loop duration handling.
func TestStopDelayed_DefaultAndExplicitDelay(t *testing.T) {
	t.Parallel()

	svc := new(stubService)

	ts := newTestServer(svc, false)
	defer ts.Close()

	resp := do(t, http.MethodPost, ts.URL+"/api/stop-delayed", "", false)
	_ = resp.Body.Close()
	require.Equal(t, 10*time.Second, svc.lastDelay)

	resp = do(t, http.MethodPost, ts.URL+"/api/stop-delayed", `{"delay_seconds": 30}`, false)
	_ = resp.Body.Close()
	require.Equal(t, 30*time.Second, svc.lastDelay)
}

// TestVolume_EchoesClampedValue verifies the applied volume is echoed back.
func TestVolume_EchoesClampedValue(t *testing.T) {
	t.Parallel()

	svc := new(stubService)

	ts := newTestServer(svc, false)
	defer ts.Close()

	resp := do(t, http.MethodPost, ts.URL+"/api/volume", `{"volume": 150}`, false)

	var body volumeResponse

	decodeBody(t, resp, &body)
	require.True(t, body.Success)
	require.Equal(t, 100, body.Volume)
	require.Equal(t, 150, svc.lastPercent)
}

// TestErrorMapping verifies domain errors turn into the right HTTP codes.
func TestErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		url  string
		want int
	}{
		{name: "resource unavailable", err: alarmsvc.ErrResourceUnavailable, url: "/api/play", want: http.StatusNotFound},
		{name: "nothing to stop", err: alarmsvc.ErrNothingToStop, url: "/api/stop-delayed", want: http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(&stubService{err: tc.err}, false)
			defer ts.Close()

			resp := do(t, http.MethodPost, ts.URL+tc.url, "", false)

			var body actionResponse

			decodeBody(t, resp, &body)
			require.Equal(t, tc.want, resp.StatusCode)
			require.False(t, body.Success)
			require.NotEmpty(t, body.Message)
		})
	}
}

// TestIndex_ServesControlPage verifies the embedded page is returned at the root.
func TestIndex_ServesControlPage(t *testing.T) {
	t.Parallel()

	ts := newTestServer(new(stubService), false)
	defer ts.Close()

	resp := do(t, http.MethodGet, ts.URL+"/", "", false)

	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

// TestMethodNotAllowed verifies control routes reject GET.
func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	ts := newTestServer(new(stubService), false)
	defer ts.Close()

	resp := do(t, http.MethodGet, ts.URL+"/api/play", "", false)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
