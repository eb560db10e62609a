package api

import (
	"context"
	"net"
	"testing"
	"time"

	"aram-scrim/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *RankClient {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go srv.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { ln.Close() })

	return newRankClient("http://rank.test", "secret", 6000, &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	})
}

func TestRankClient_GetRank(t *testing.T) {
	var gotToken, gotPath string
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		gotToken = string(ctx.Request.Header.Peek("X-Riot-Token"))
		gotPath = string(ctx.Path())
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`[
			{"queueType":"RANKED_FLEX_SR","tier":"DIAMOND","rank":"I"},
			{"queueType":"RANKED_SOLO_5x5","tier":"GOLD","rank":"II","leaguePoints":40}
		]`)
	})

	label, err := c.GetRank(context.Background(), "puuid-1")
	require.NoError(t, err)
	assert.Equal(t, "GOLD II", label)
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, "/lol/league/v4/entries/by-puuid/puuid-1", gotPath)
}

func TestRankClient_Unranked(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString(`[]`)
	})
	label, err := c.GetRank(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, label)
}

func TestRankClient_GetAccount(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/riot/account/v1/accounts/by-riot-id/Someone/BR1" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		ctx.SetBodyString(`{"puuid":"abc","gameName":"Someone","tagLine":"BR1"}`)
	})

	acc, err := c.GetAccount(context.Background(), "Someone#BR1")
	require.NoError(t, err)
	assert.Equal(t, "abc", acc.Puuid)

	_, err = c.GetAccount(context.Background(), "Missing#BR1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.GetAccount(context.Background(), "no-tag")
	assert.Error(t, err)
}

func TestRankClient_RateLimited(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("Retry-After", "7")
		ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
	})

	_, err := c.GetRank(context.Background(), "p")
	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Equal(t, 7*time.Second, limited.RetryAfter)
	assert.False(t, c.LastRateLimited().IsZero())
}

func TestRankClient_Disabled(t *testing.T) {
	c := newRankClient("", "", 60, &fasthttp.Client{})
	assert.False(t, c.Enabled())
	_, err := c.GetRank(context.Background(), "p")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestLeagueEntry_Label(t *testing.T) {
	tests := []struct {
		entry LeagueEntry
		want  string
	}{
		{LeagueEntry{Tier: "SILVER", Rank: "IV"}, "SILVER IV"},
		{LeagueEntry{Tier: "MASTER", Rank: "I"}, "MASTER"},
		{LeagueEntry{Tier: "CHALLENGER", Rank: "I"}, "CHALLENGER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.entry.Label())
	}
}
