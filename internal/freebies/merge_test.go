package freebies

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/executor"
	"github.com/Xushengqwer/game_offers/internal/models"
	"github.com/Xushengqwer/game_offers/internal/query"
)

func offer(id, namespace string, platforms ...string) models.GiveawayOffer {
	releases := make([]models.ReleaseInfo, 0, len(platforms))
	for _, p := range platforms {
		releases = append(releases, models.ReleaseInfo{Platform: p})
	}
	return models.GiveawayOffer{Offer: models.Offer{
		ID:        id,
		Namespace: namespace,
		Title:     "title-" + id,
		Items:     []models.Item{{ID: "item-" + id, Namespace: namespace, ReleaseInfo: releases}},
	}}
}

func TestMergeEmpty(t *testing.T) {
	out := Merge(nil)
	require.NotNil(t, out)
	assert.Empty(t, out)

	out = Merge([]models.GiveawayOffer{})
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestMergeCollapsesSharedNamespace(t *testing.T) {
	win := offer("a", "celeste", "Windows")
	mac := offer("b", "celeste", "Mac")

	out := Merge([]models.GiveawayOffer{win, mac})
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Platforms, "Windows")
	assert.Contains(t, out[0].Platforms, "Mac")
	assert.Equal(t, "a", out[0].ID, "first-seen offer is the template")
	assert.Equal(t, []models.GiveawayOffer{win, mac}, out[0].Offers)
}

func TestMergeStableGrouping(t *testing.T) {
	input := []models.GiveawayOffer{
		offer("1", "x", "Windows"),
		offer("2", "y", "Mac"),
		offer("3", "x", "Windows", "Mac"),
		offer("4", "z"),
		offer("5", "y", "Windows"),
	}

	out := Merge(input)
	require.Len(t, out, 3)

	assert.Equal(t, "x", out[0].Namespace)
	assert.Equal(t, "y", out[1].Namespace)
	assert.Equal(t, "z", out[2].Namespace)

	// 重复平台保留，顺序与发现顺序一致。
	assert.Equal(t, []string{"Windows", "Windows", "Mac"}, out[0].Platforms)
	assert.Equal(t, []string{"Mac", "Windows"}, out[1].Platforms)
	assert.Equal(t, []string{}, out[2].Platforms)

	assert.Equal(t, []models.GiveawayOffer{input[0], input[2]}, out[0].Offers)
	assert.Equal(t, []models.GiveawayOffer{input[1], input[4]}, out[1].Offers)
	assert.Equal(t, []models.GiveawayOffer{input[3]}, out[2].Offers)
}

func TestMergeEmptyItemsStillGrouped(t *testing.T) {
	bare := models.GiveawayOffer{Offer: models.Offer{ID: "bare", Namespace: "x"}}
	noRelease := models.GiveawayOffer{Offer: models.Offer{ID: "nr", Namespace: "x", Items: []models.Item{{ID: "i"}}}}

	out := Merge([]models.GiveawayOffer{bare, noRelease, offer("w", "x", "Windows")})
	require.Len(t, out, 1)
	assert.Len(t, out[0].Offers, 3)
	assert.Equal(t, []string{"Windows"}, out[0].Platforms)
}

func TestMergeCardinality(t *testing.T) {
	cases := [][]models.GiveawayOffer{
		{offer("1", "a"), offer("2", "b"), offer("3", "c")},
		{offer("1", "a"), offer("2", "a"), offer("3", "a")},
		{offer("1", "a"), offer("2", "b"), offer("3", "a"), offer("4", "")},
	}
	for _, input := range cases {
		distinct := map[string]struct{}{}
		for _, o := range input {
			distinct[o.Namespace] = struct{}{}
		}
		out := Merge(input)
		assert.Len(t, out, len(distinct))
		assert.LessOrEqual(t, len(out), len(input))
		assert.Equal(t, len(distinct) == len(input), len(out) == len(input))

		total := 0
		for _, m := range out {
			total += len(m.Offers)
		}
		assert.Equal(t, len(input), total)
	}
}

type stubGetter struct {
	body   string
	err    error
	path   string
	params url.Values
}

func (s *stubGetter) Get(_ context.Context, path string, params url.Values, out any) error {
	s.path, s.params = path, params
	if s.err != nil {
		return s.err
	}
	return json.Unmarshal([]byte(s.body), out)
}

func TestServiceListMerges(t *testing.T) {
	getter := &stubGetter{body: `{"total":3,"page":1,"limit":25,"offers":[
		{"id":"a","namespace":"ns1","title":"Game","items":[{"id":"i1","namespace":"ns1","releaseInfo":[{"platform":"Windows"}]}]},
		{"id":"b","namespace":"ns1","title":"Game","items":[{"id":"i2","namespace":"ns1","releaseInfo":[{"platform":"Mac"}]}]},
		{"id":"c","namespace":"ns2","title":"Other","items":[]}
	]}`}
	svc := NewService(getter, zap.NewNop(), "")

	year := 2024
	q := query.Default()
	q.Year = &year
	q.Query = "ignored"
	q.SortDir = query.SortDesc

	res, err := svc.List(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, DefaultPath, getter.path)
	assert.Equal(t, url.Values{"year": {"2024"}, "sortDir": {"desc"}}, getter.params)
	assert.EqualValues(t, 3, res.Total)
	require.Len(t, res.Freebies, 2)
	assert.Equal(t, []string{"Windows", "Mac"}, res.Freebies[0].Platforms)
}

func TestServiceListFailure(t *testing.T) {
	svc := NewService(&stubGetter{err: errors.New("timeout")}, zap.NewNop(), "/giveaways")
	_, err := svc.List(context.Background(), query.Default())
	assert.ErrorIs(t, err, executor.ErrQueryExecution)

	cases := []struct {
		name string
		body string
	}{
		{"negative total", `{"total":-5,"page":4,"limit":25,"offers":[]}`},
		{"missing page and limit", `{"total":5,"offers":[]}`},
		{"zero limit", `{"total":5,"page":1,"limit":0,"offers":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&stubGetter{body: tc.body}, zap.NewNop(), "")
			res, err := svc.List(context.Background(), query.Default().WithPage(4))
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, executor.ErrQueryExecution)

			var execErr *executor.ExecutionError
			require.ErrorAs(t, err, &execErr)
			assert.Equal(t, "verify", execErr.Op)
		})
	}
}
