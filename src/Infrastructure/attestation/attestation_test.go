package attestation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
)

const testHash = "0x9b0f3fe07e15a6a50b6e1b8ac78cf06e0f0ebc7bdd9c4a8d0d4b3a5e8b6f1c2d"

func TestAttestationComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/attestations/"+testHash, r.URL.Path)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "complete",
			"attestation": "0xdeadbeef",
			"message": "0x0102"
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	att, err := c.Attestation(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, domain.AttestationComplete, att.Status)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, att.Attestation)
	assert.Equal(t, []byte{0x01, 0x02}, att.Message)
}

func TestAttestationPendingStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "pending_confirmations"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	att, err := c.Attestation(context.Background(), testHash)
	require.NoError(t, err)
	assert.Equal(t, domain.AttestationPending, att.Status)
	assert.Empty(t, att.Attestation)
}

func TestAttestationUnknownHashIsPending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	att, err := c.Attestation(context.Background(), testHash)
	require.NoError(t, err, "an unknown hash means the burn is not observed yet")
	assert.Equal(t, domain.AttestationPending, att.Status)
}

func TestAttestationServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Attestation(context.Background(), testHash)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "http error 500")
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("")
	assert.Error(t, err)
}
