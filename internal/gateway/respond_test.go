package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/simbroker/internal/domain"
)

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrap: %w", domain.ErrForbidden), http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrInvalidRequest, http.StatusBadRequest},
		{domain.ErrNoPriceAvailable, http.StatusBadRequest},
		{domain.ErrInvalidState, http.StatusConflict},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		respondError(rec, logger, tc.err)

		assert.Equal(t, tc.code, rec.Code, "error %v", tc.err)

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body["error"])
	}

	// Internal detail must not leak to the caller.
	rec := httptest.NewRecorder()
	respondError(rec, logger, fmt.Errorf("pq: password authentication failed"))
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestTimeParam(t *testing.T) {
	req := func(query string) *http.Request {
		return &http.Request{URL: &url.URL{RawQuery: query}}
	}

	v, ok := timeParam(req(""), "start")
	assert.True(t, ok)
	assert.Nil(t, v)

	v, ok = timeParam(req("start=2026-08-28"), "start")
	require.True(t, ok)
	require.NotNil(t, v)
	assert.Equal(t, "2026-08-28T00:00:00Z", *v)

	v, ok = timeParam(req("start=2026-08-28T10:30:00Z"), "start")
	require.True(t, ok)
	assert.Equal(t, "2026-08-28T10:30:00Z", *v)

	_, ok = timeParam(req("start=yesterday"), "start")
	assert.False(t, ok)
}

func TestJSONOptionalDistinguishesNullFromAbsent(t *testing.T) {
	var req riskLimitsRequest
	require.NoError(t, json.Unmarshal([]byte(`{"max_order_notional": null, "earnings_lockout": true}`), &req))

	assert.True(t, req.MaxOrderNotional.Present)
	assert.Nil(t, req.MaxOrderNotional.Value)

	assert.True(t, req.EarningsLockout.Present)
	require.NotNil(t, req.EarningsLockout.Value)
	assert.True(t, *req.EarningsLockout.Value)

	assert.False(t, req.MaxPositionAbsQty.Present, "absent field stays untouched")
}
