// server_test.go - HTTP-level tests for the gateway routes.

package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poolgate/internal/verifier"
)

// testRoot is pre-appended to the accepted root history of every test server.
const testRoot = "789012"

func newTestServerWith(t *testing.T, vcfg *verifier.Config) (*Server, *gin.Engine) {
	t.Helper()

	engine, err := verifier.NewEngine(vcfg, verifier.ChecksumPredicate{}, zerolog.Nop())
	require.NoError(t, err)

	roots, err := verifier.NewRootHistory(4)
	require.NoError(t, err)

	guard, err := verifier.NewWithdrawalGuard(engine, roots, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, guard.AppendRoot(mustBig(t, testRoot)))

	ext, err := verifier.NewExtendedVerifier(engine, verifier.ExtensionConfig{
		AppKey:              7,
		ActivationThreshold: 1,
	}, zerolog.Nop())
	require.NoError(t, err)

	srv, err := NewServer(&Config{
		ListenAddr: "127.0.0.1:0",
		AdminToken: "sekrit",
		CacheSize:  16,
	}, engine, guard, ext, zerolog.Nop())
	require.NoError(t, err)

	return srv, srv.Router()
}

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	return newTestServerWith(t, verifier.DefaultConfig())
}

func mustBig(t *testing.T, v string) *big.Int {
	t.Helper()
	n, err := parseField("test", v)
	require.NoError(t, err)
	return n
}

func perform(router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func proofBody(coords ...string) map[string]any {
	return map[string]any{
		"a": map[string]any{"x": coords[0], "y": coords[1]},
		"b": map[string]any{"x0": coords[2], "x1": coords[3], "y0": coords[4], "y1": coords[5]},
		"c": map[string]any{"x": coords[6], "y": coords[7]},
	}
}

// acceptedProofBody sums to 36036 over its coordinates; combined with the
// standard inputs below the checksum is not a modulus multiple.
func acceptedProofBody() map[string]any {
	return proofBody("1001", "2002", "3003", "4004", "5005", "6006", "7007", "8008")
}

// rejectedProofBody sums to exactly one modulus with no inputs.
func rejectedProofBody() map[string]any {
	return proofBody("1234560", "1", "1", "1", "1", "1", "1", "1")
}

func standardInputs() []string {
	return []string{"123456", "789012", "345678"}
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t)
	rec := perform(router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestVerifyEndpoint(t *testing.T) {
	t.Run("accepted proof", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := perform(router, http.MethodPost, "/verify", map[string]any{
			"proof":  acceptedProofBody(),
			"inputs": standardInputs(),
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(11), body["cost_used"])
		assert.Equal(t, verifier.FormatChecksum, body["proof_format"])
		assert.Nil(t, body["cached"])
	})

	t.Run("rejected proof", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := perform(router, http.MethodPost, "/verify", map[string]any{
			"proof":  rejectedProofBody(),
			"inputs": []string{},
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec)["success"])
	})

	t.Run("repeated request is served from cache", func(t *testing.T) {
		_, router := newTestServer(t)
		req := map[string]any{"proof": acceptedProofBody(), "inputs": standardInputs()}

		first := perform(router, http.MethodPost, "/verify", req, nil)
		require.Equal(t, http.StatusOK, first.Code)
		assert.Nil(t, decodeBody(t, first)["cached"])

		second := perform(router, http.MethodPost, "/verify", req, nil)
		require.Equal(t, http.StatusOK, second.Code)
		body := decodeBody(t, second)
		assert.Equal(t, true, body["cached"])
		assert.Equal(t, true, body["success"])
		assert.Equal(t, verifier.FormatChecksum, body["proof_format"])
	})

	t.Run("cached replies do not advance the counters", func(t *testing.T) {
		srv, router := newTestServer(t)
		req := map[string]any{"proof": acceptedProofBody(), "inputs": standardInputs()}
		perform(router, http.MethodPost, "/verify", req, nil)
		perform(router, http.MethodPost, "/verify", req, nil)
		perform(router, http.MethodPost, "/verify", req, nil)
		assert.Equal(t, uint64(1), srv.engine.Stats().Total)
	})

	t.Run("non-decimal coordinate", func(t *testing.T) {
		_, router := newTestServer(t)
		proof := acceptedProofBody()
		proof["a"].(map[string]any)["x"] = "0xdeadbeef"
		rec := perform(router, http.MethodPost, "/verify", map[string]any{
			"proof":  proof,
			"inputs": standardInputs(),
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("zero coordinate is a structural failure", func(t *testing.T) {
		_, router := newTestServer(t)
		proof := acceptedProofBody()
		proof["c"].(map[string]any)["y"] = "0"
		rec := perform(router, http.MethodPost, "/verify", map[string]any{
			"proof":  proof,
			"inputs": standardInputs(),
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, router := newTestServer(t)
		req := httptest.NewRequest(http.MethodPost, "/verify", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized proof", func(t *testing.T) {
		cfg := verifier.DefaultConfig()
		cfg.MaxProofSize = 16
		_, router := newTestServerWith(t, cfg)
		rec := perform(router, http.MethodPost, "/verify", map[string]any{
			"proof":  acceptedProofBody(),
			"inputs": standardInputs(),
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing timestamp when required", func(t *testing.T) {
		cfg := verifier.DefaultConfig()
		cfg.RequireTimestamp = true
		_, router := newTestServerWith(t, cfg)

		rec := perform(router, http.MethodPost, "/verify", map[string]any{
			"proof":  acceptedProofBody(),
			"inputs": standardInputs(),
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = perform(router, http.MethodPost, "/verify", map[string]any{
			"proof":     acceptedProofBody(),
			"inputs":    standardInputs(),
			"timestamp": 1700000000,
		}, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestVerifyBatchEndpoint(t *testing.T) {
	t.Run("length mismatch rejects the whole batch", func(t *testing.T) {
		srv, router := newTestServer(t)
		rec := perform(router, http.MethodPost, "/verify/batch", map[string]any{
			"proofs": []any{acceptedProofBody(), acceptedProofBody()},
			"inputs": [][]string{standardInputs()},
		}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, uint64(0), srv.engine.Stats().Total)
	})

	t.Run("items evaluate independently", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := perform(router, http.MethodPost, "/verify/batch", map[string]any{
			"proofs": []any{acceptedProofBody(), rejectedProofBody()},
			"inputs": [][]string{standardInputs(), {}},
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Results []resultJSON `json:"results"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Results, 2)
		assert.True(t, body.Results[0].Success)
		assert.False(t, body.Results[1].Success)
	})
}

func TestWithdrawEndpoint(t *testing.T) {
	withdrawal := func(nullifier string) map[string]any {
		return map[string]any{
			"proof":          acceptedProofBody(),
			"nullifier":      nullifier,
			"root":           testRoot,
			"recipient_hash": "222",
		}
	}

	t.Run("successful withdrawal consumes the nullifier", func(t *testing.T) {
		srv, router := newTestServer(t)
		rec := perform(router, http.MethodPost, "/withdraw", withdrawal("111"), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["success"])
		assert.Equal(t, 1, srv.guard.SpentCount())
	})

	t.Run("replayed nullifier", func(t *testing.T) {
		_, router := newTestServer(t)
		require.Equal(t, http.StatusOK, perform(router, http.MethodPost, "/withdraw", withdrawal("111"), nil).Code)
		rec := perform(router, http.MethodPost, "/withdraw", withdrawal("111"), nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown root", func(t *testing.T) {
		_, router := newTestServer(t)
		body := withdrawal("111")
		body["root"] = "424242"
		rec := perform(router, http.MethodPost, "/withdraw", body, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestExtensionEndpoint(t *testing.T) {
	warmup := func(t *testing.T, router *gin.Engine) {
		t.Helper()
		rec := perform(router, http.MethodPost, "/verify", map[string]any{
			"proof":  acceptedProofBody(),
			"inputs": standardInputs(),
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	t.Run("below the activation threshold", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := perform(router, http.MethodPost, "/extension/verify", map[string]any{
			"proof":    acceptedProofBody(),
			"inputs":   standardInputs(),
			"app_data": 14,
		}, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("application data accepted", func(t *testing.T) {
		_, router := newTestServer(t)
		warmup(t, router)
		rec := perform(router, http.MethodPost, "/extension/verify", map[string]any{
			"proof":    acceptedProofBody(),
			"inputs":   standardInputs(),
			"app_data": 14,
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["success"])
	})

	t.Run("application data rejected", func(t *testing.T) {
		_, router := newTestServer(t)
		warmup(t, router)
		rec := perform(router, http.MethodPost, "/extension/verify", map[string]any{
			"proof":    acceptedProofBody(),
			"inputs":   standardInputs(),
			"app_data": 15,
		}, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec)["success"])
	})

	t.Run("failing base proof", func(t *testing.T) {
		_, router := newTestServer(t)
		warmup(t, router)
		rec := perform(router, http.MethodPost, "/extension/verify", map[string]any{
			"proof":    rejectedProofBody(),
			"inputs":   []string{},
			"app_data": 14,
		}, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestAdminRoots(t *testing.T) {
	auth := map[string]string{"X-Admin-Token": "sekrit"}

	t.Run("missing token", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := perform(router, http.MethodPost, "/admin/roots", map[string]any{"root": "555"}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := perform(router, http.MethodPost, "/admin/roots", map[string]any{"root": "555"},
			map[string]string{"X-Admin-Token": "nope"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("append and list", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := perform(router, http.MethodPost, "/admin/roots", map[string]any{"root": "555"}, auth)
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = perform(router, http.MethodGet, "/admin/roots", nil, auth)
		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			Roots []string `json:"roots"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []string{testRoot, "555"}, body.Roots)
	})

	t.Run("public root lookup", func(t *testing.T) {
		_, router := newTestServer(t)
		rec := perform(router, http.MethodGet, fmt.Sprintf("/roots/%s", testRoot), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, decodeBody(t, rec)["known"])

		rec = perform(router, http.MethodGet, "/roots/999999", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, false, decodeBody(t, rec)["known"])
	})
}

func TestStatsEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	perform(router, http.MethodPost, "/verify", map[string]any{
		"proof":  acceptedProofBody(),
		"inputs": standardInputs(),
	}, nil)

	rec := perform(router, http.MethodGet, "/stats", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total"])
	assert.Equal(t, float64(1), body["successful"])
	assert.Equal(t, float64(0), body["failed"])
	assert.Equal(t, float64(11), body["average_cost"])
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestServer(t)
	rec := perform(router, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "poolgate_")
}
