package registry_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/mdfe-builder/internal/model"
	"github.com/rezonia/mdfe-builder/internal/registry"
)

func newRegistryServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	payload, err := os.ReadFile("testdata/cnpj_12345678000190.json")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		switch r.URL.Path {
		case "/cnpj/v1/12345678000190":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(payload)
		case "/cnpj/v1/99999999000199":
			http.Error(w, `{"message":"CNPJ 99999999000199 não encontrado."}`, http.StatusNotFound)
		default:
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Find(t *testing.T) {
	srv := newRegistryServer(t, nil)
	client := registry.NewClient(srv.URL + "/")

	entity, err := client.Find(context.Background(), "12.345.678/0001-90")
	require.NoError(t, err)

	assert.Equal(t, &model.LegalEntity{
		CNPJ:      "12345678000190",
		LegalName: "TRANSPORTES EXEMPLO LTDA",
		TradeName: "EXEMPLO",
		Phone:     "1933334444",
		Address:   model.Address{
			Street:           "RUA DAS FLORES",
			Number:           "100",
			Complement:       "SALA 2",
			District:         "CENTRO",
			MunicipalityCode: "3509502",
			Municipality:     "CAMPINAS",
			PostalCode:       "13010000",
			State:            "SP",
		},
	}, entity)
	assert.True(t, entity.Complete())
}

func TestClient_FindErrors(t *testing.T) {
	srv := newRegistryServer(t, nil)
	client := registry.NewClient(srv.URL, registry.WithTimeout(2*time.Second))

	tests := []struct {
		name    string
		cnpj    string
		wantIs  error
		wantMsg string
	}{
		{name: "not found", cnpj: "99.999.999/0001-99", wantIs: registry.ErrNotFound},
		{name: "short key", cnpj: "1234", wantIs: registry.ErrInvalidCNPJ},
		{name: "upstream failure", cnpj: "11222333000181", wantMsg: "status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entity, err := client.Find(context.Background(), tt.cnpj)
			require.Error(t, err)
			assert.Nil(t, entity)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestClient_FindCapsResponseBody(t *testing.T) {
	huge := bytes.Repeat([]byte("x"), registry.MaxResponseBytes+1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cnpj/v1/12345678000190":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"cnpj":"12345678000190","razao_social":"`))
			_, _ = w.Write(huge)
			_, _ = w.Write([]byte(`"}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write(huge)
		}
	}))
	t.Cleanup(srv.Close)
	client := registry.NewClient(srv.URL)

	t.Run("oversized payload", func(t *testing.T) {
		entity, err := client.Find(context.Background(), "12345678000190")
		assert.Nil(t, entity)
		assert.ErrorIs(t, err, registry.ErrResponseTooLarge)
	})

	t.Run("oversized error page", func(t *testing.T) {
		_, err := client.Find(context.Background(), "11222333000181")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 502")
		assert.Less(t, len(err.Error()), 512)
	})
}

func TestClient_FindHonorsContext(t *testing.T) {
	srv := newRegistryServer(t, nil)
	client := registry.NewClient(srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Find(ctx, "12345678000190")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestCache_Find(t *testing.T) {
	var hits atomic.Int32
	srv := newRegistryServer(t, &hits)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cache := registry.NewCache(registry.NewClient(srv.URL), time.Hour,
		registry.WithCacheClock(func() time.Time { return now }))

	first, err := cache.Find(context.Background(), "12345678000190")
	require.NoError(t, err)
	second, err := cache.Find(context.Background(), "12.345.678/0001-90")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, cache.Size())

	second.LegalName = "CHANGED"
	third, err := cache.Find(context.Background(), "12345678000190")
	require.NoError(t, err)
	assert.Equal(t, "TRANSPORTES EXEMPLO LTDA", third.LegalName)

	now = now.Add(2 * time.Hour)
	_, err = cache.Find(context.Background(), "12345678000190")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())

	cache.Clear()
	assert.Zero(t, cache.Size())
}

func TestCache_DoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	srv := newRegistryServer(t, &hits)
	cache := registry.NewCache(registry.NewClient(srv.URL), 0)

	for range 2 {
		_, err := cache.Find(context.Background(), "99999999000199")
		assert.ErrorIs(t, err, registry.ErrNotFound)
	}
	assert.Equal(t, int32(2), hits.Load())
	assert.Zero(t, cache.Size())
}
