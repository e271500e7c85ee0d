package forex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Latest(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		wantRates map[string]string
	}{
		{
			name:      "ok",
			status:    http.StatusOK,
			body:      `{"base":"USD","rates":{"NGN":1600.5,"eur":0.92,"BAD":0}}`,
			wantRates: map[string]string{"NGN": "1600.5", "EUR": "0.92"},
		},
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, wantErr: true},
		{name: "malformed json", status: http.StatusOK, body: `{"rates":`, wantErr: true},
		{name: "empty rates", status: http.StatusOK, body: `{"rates":{}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/latest", r.URL.Path)
				assert.Equal(t, "USD", r.URL.Query().Get("base"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			rates, err := NewClient(srv.URL+"/", time.Second).Latest(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, rates)
				return
			}
			require.NoError(t, err)
			require.Len(t, rates.Rates, len(tt.wantRates))
			for code, want := range tt.wantRates {
				assert.Equal(t, want, rates.Rates[code].String())
			}
		})
	}
}

func TestClient_LatestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 20*time.Millisecond).Latest(context.Background())
	require.Error(t, err)
}
