package currency

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDefaultIsSymbolPrefixedWithoutCode(t *testing.T) {
	got := Format(100, USD)
	assert.Equal(t, "$100.00", got)
	assert.False(t, strings.Contains(got, "USD"), "code suffix only on request")
}

func TestFormatWithCodeSuffix(t *testing.T) {
	assert.Equal(t, "$100.00 USD", Format(100, USD, FormatOptions{WithCode: true}))
}

func TestFormatGroupsThousands(t *testing.T) {
	assert.Equal(t, "GH₵1,250,000.50", Format(1250000.50, GHS))
	assert.Equal(t, "£999.00", Format(999, GBP))
	assert.Equal(t, "₦1,650", Format(1650, NGN, FormatOptions{NoDecimal: true}))
}

func TestFormatUnknownCodeFallsBack(t *testing.T) {
	got := Format(10, Code("XXX"))
	assert.True(t, strings.HasPrefix(got, Symbol(DefaultCode)))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, USD, Normalize("usd"))
	assert.Equal(t, GHS, Normalize(" ghs "))
	assert.Equal(t, DefaultCode, Normalize("doubloons"))
	assert.Equal(t, DefaultCode, Normalize(""))
}

func TestConvertRoundTrips(t *testing.T) {
	table := NewTable("", nil)

	usd := 100.0
	ghs := table.Convert(usd, USD, GHS)
	assert.InDelta(t, usd, table.Convert(ghs, GHS, USD), 1e-9)
	assert.InDelta(t, usd, table.Convert(usd, USD, USD), 1e-9)
}

func TestSnapshotStartsOnDefaults(t *testing.T) {
	table := NewTable("", nil)

	rates, source, refreshed := table.Snapshot()
	assert.Equal(t, "default", source)
	assert.True(t, refreshed.IsZero())
	assert.Equal(t, 1.0, rates[USD])
}

func TestRefreshAppliesRemoteRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"GHS":16.0,"EUR":0.95,"GBP":0.80,"NGN":1700,"USD":1}}`))
	}))
	defer srv.Close()

	table := NewTable(srv.URL, nil)
	require.NoError(t, table.Refresh(context.Background()))

	rates, source, _ := table.Snapshot()
	assert.Equal(t, "remote", source)
	assert.Equal(t, 16.0, rates[GHS])
}

func TestRefreshKeepsDefaultsOnPartialFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rates":{"GHS":16.0}}`))
	}))
	defer srv.Close()

	table := NewTable(srv.URL, nil)
	require.NoError(t, table.Refresh(context.Background()))

	assert.Equal(t, 16.0, table.Rate(GHS))
	assert.Equal(t, defaultRates[EUR], table.Rate(EUR), "missing currencies keep defaults")
}

func TestRefreshFailureLeavesTableUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	table := NewTable(srv.URL, nil)
	require.Error(t, table.Refresh(context.Background()))

	_, source, _ := table.Snapshot()
	assert.Equal(t, "default", source)
	assert.Equal(t, defaultRates[GHS], table.Rate(GHS))
}

func TestRefreshWithoutSourceIsNoOp(t *testing.T) {
	table := NewTable("", nil)
	assert.NoError(t, table.Refresh(context.Background()))
}
