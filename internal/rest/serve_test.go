// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mlnoga/rainbow/internal/bands"
	"github.com/mlnoga/rainbow/internal/batch"
	"github.com/mlnoga/rainbow/internal/lightcurve"
	"github.com/mlnoga/rainbow/internal/rainbow"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var truth = []float64{60000, 1, 4, 25, 6000, 14000, 5}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) (*Server, *rainbow.Fitter) {
	t.Helper()
	set, err := bands.Preset("ztf")
	require.NoError(t, err)
	f, err := rainbow.New(rainbow.DefaultConfig(set))
	require.NoError(t, err)
	return New(f, nil, 2, NewMetrics(), zaptest.NewLogger(t)), f
}

func simulated(t *testing.T, f *rainbow.Fitter, id string, seed uint64) LightCurveArgs {
	t.Helper()
	lc, err := lightcurve.Simulate(f.Model, truth, lightcurve.SimulateOptions{
		ID:    id,
		N:     300,
		TMin:  truth[0] - 20,
		TMax:  truth[0] + 80,
		Bands: f.Bands().Names(),
		SNR:   10,
		Seed:  seed,
	})
	require.NoError(t, err)
	return LightCurveArgs{ID: lc.ID, T: lc.T, Flux: lc.Flux, Sigma: lc.Sigma, Band: lc.Band}
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPing(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodGet, "/api/v1/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestIndex(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "/api/v1/peak")
}

func TestGetParameters(t *testing.T) {
	s, f := newTestServer(t)
	w := do(t, s.Router(), http.MethodGet, "/api/v1/parameters", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp parametersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, f.Names(), resp.Names)
	assert.Equal(t, f.Size(), resp.Size)
	assert.Equal(t, []string{"g", "r", "i"}, resp.Bands)
	assert.Equal(t, "bazin", resp.Bolometric)
	assert.Equal(t, "logistic", resp.Temperature)
	assert.Equal(t, []string{"reference_time"}, resp.Common)
}

func TestPostFit(t *testing.T) {
	s, f := newTestServer(t)
	r := s.Router()
	w := do(t, r, http.MethodPost, "/api/v1/fit", postFitArgs{LightCurveArgs: simulated(t, f, "sn1", 7)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out batch.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "sn1", out.ID)
	assert.Equal(t, 300, out.N)
	require.NotNil(t, out.Result)
	assert.Equal(t, f.ParameterNames(), out.Result.Names)
	assert.InDelta(t, truth[0], out.Result.Params[0], 2)
	require.NotNil(t, out.Peak)
	assert.Regexp(t, `^#[0-9a-f]{6}$`, out.Color)

	metrics := do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `rainbow_fits_total{outcome="ok"} 1`)
	assert.Contains(t, metrics.Body.String(), `rainbow_http_requests_total{code="200",route="/api/v1/fit"} 1`)
}

func TestPostFitValidation(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodPost, "/api/v1/fit", map[string]any{
		"flux":  []float64{1},
		"sigma": []float64{1},
		"band":  []string{"g"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Errors []ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "ERR_REQUIRED", resp.Errors[0].Code)
	assert.True(t, strings.HasSuffix(resp.Errors[0].Field, ".T"), resp.Errors[0].Field)
}

func TestPostFitMalformedJSON(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fit", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_UNKNOWN")
}

func TestPostFitInvalidData(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodPost, "/api/v1/fit", postFitArgs{LightCurveArgs: LightCurveArgs{
		T:     []float64{1, 2, 3},
		Flux:  []float64{1, 2},
		Sigma: []float64{1, 1, 1},
		Band:  []string{"g", "r", "i"},
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostFitDegenerate(t *testing.T) {
	s, _ := newTestServer(t)
	args := LightCurveArgs{ID: "flat"}
	for i := 0; i < 20; i++ {
		args.T = append(args.T, 5)
		args.Flux = append(args.Flux, 1)
		args.Sigma = append(args.Sigma, 0.1)
		args.Band = append(args.Band, "r")
	}
	r := s.Router()
	w := do(t, r, http.MethodPost, "/api/v1/fit", postFitArgs{LightCurveArgs: args})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "error")

	metrics := do(t, r, http.MethodGet, "/metrics", nil)
	assert.Contains(t, metrics.Body.String(), `rainbow_fits_total{outcome="failed"} 1`)
}

func TestPostFitDegenerateWithFillValue(t *testing.T) {
	set, err := bands.Preset("ztf")
	require.NoError(t, err)
	f, err := rainbow.New(rainbow.DefaultConfig(set))
	require.NoError(t, err)
	fill := -1.0
	s := New(f, &rainbow.FitOptions{FillValue: &fill}, 2, NewMetrics(), zaptest.NewLogger(t))

	args := LightCurveArgs{ID: "flat"}
	for i := 0; i < 20; i++ {
		args.T = append(args.T, 5)
		args.Flux = append(args.Flux, 1)
		args.Sigma = append(args.Sigma, 0.1)
		args.Band = append(args.Band, "g")
	}
	r := s.Router()
	w := do(t, r, http.MethodPost, "/api/v1/fit", postFitArgs{LightCurveArgs: args})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out batch.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.True(t, out.Filled)
	assert.Contains(t, out.Error, "degenerate")
	require.NotNil(t, out.Result)
	assert.Equal(t, []float64{-1, -1, -1, -1, -1, -1, -1}, out.Result.Params)
	assert.Equal(t, -1.0, out.Result.ReducedChi2)
	assert.Nil(t, out.Peak)

	metrics := do(t, r, http.MethodGet, "/metrics", nil)
	assert.Contains(t, metrics.Body.String(), `rainbow_fits_total{outcome="filled"} 1`)
}

func TestPostBatch(t *testing.T) {
	s, f := newTestServer(t)
	args := postBatchArgs{LightCurves: []LightCurveArgs{
		simulated(t, f, "a", 1),
		simulated(t, f, "b", 2),
	}}
	w := do(t, s.Router(), http.MethodPost, "/api/v1/batch", args)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Outcomes []batch.Outcome `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Outcomes, 2)
	assert.Equal(t, "a", resp.Outcomes[0].ID)
	assert.Equal(t, "b", resp.Outcomes[1].ID)
	for _, out := range resp.Outcomes {
		assert.Empty(t, out.Error)
		assert.NotNil(t, out.Result)
	}
}

func TestPostBatchValidation(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodPost, "/api/v1/batch", map[string]any{"lightcurves": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s.Router(), http.MethodPost, "/api/v1/batch", map[string]any{
		"lightcurves": []any{map[string]any{"t": []float64{1}}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostModel(t *testing.T) {
	s, f := newTestServer(t)
	ts := []float64{59990, 60000, 60010, 60050}
	bs := []string{"g", "r", "i", "g"}
	w := do(t, s.Router(), http.MethodPost, "/api/v1/model", postModelArgs{T: ts, Band: bs, Params: truth})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Flux []float64 `json:"flux"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	want, err := f.Model(ts, bs, truth)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want, resp.Flux, 1e-12)
}

func TestPostModelUnknownBand(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodPost, "/api/v1/model", postModelArgs{
		T: []float64{1}, Band: []string{"K"}, Params: truth,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostPeak(t *testing.T) {
	s, f := newTestServer(t)
	w := do(t, s.Router(), http.MethodPost, "/api/v1/peak", postPeakArgs{Params: truth})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Time        float64 `json:"time"`
		Temperature float64 `json:"temperature"`
		Color       string  `json:"color"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	want, err := f.PeakTime(truth)
	require.NoError(t, err)
	assert.InDelta(t, want, resp.Time, 1e-9)
	assert.Greater(t, resp.Temperature, truth[4])
	assert.Regexp(t, `^#[0-9a-f]{6}$`, resp.Color)
}

func TestPostPeakWrongLength(t *testing.T) {
	s, _ := newTestServer(t)
	w := do(t, s.Router(), http.MethodPost, "/api/v1/peak", postPeakArgs{Params: []float64{1, 2}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusOf(eris.Wrap(rainbow.ErrInvalidData, "x")))
	assert.Equal(t, http.StatusBadRequest, statusOf(eris.Wrap(rainbow.ErrConfig, "x")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(eris.Wrap(rainbow.ErrNoConvergence, "x")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusOf(rainbow.ErrNotEnoughObservations))
	assert.Equal(t, http.StatusInternalServerError, statusOf(eris.New("boom")))
}

func TestRouterWithoutMetrics(t *testing.T) {
	_, f := newTestServer(t)
	s := New(f, nil, 0, nil, nil)
	w := do(t, s.Router(), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = do(t, s.Router(), http.MethodPost, "/api/v1/peak", postPeakArgs{Params: truth})
	assert.Equal(t, http.StatusOK, w.Code)
}
