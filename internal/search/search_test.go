package search

import (
	"context"
	"io"
	"math"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/hat_shop/internal/config"
	"github.com/Skotchmaster/hat_shop/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	bodies   map[string]string
	search   string
	bulk     string
	infoCode int
}

func (f *fakeES) RoundTrip(req *http.Request) (*http.Response, error) {
	var body string
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		body = string(raw)
	}
	f.mu.Lock()
	if f.bodies == nil {
		f.bodies = map[string]string{}
	}
	f.bodies[req.URL.Path] = body
	f.mu.Unlock()

	code, payload := http.StatusOK, `{"version":{"number":"9.0.0"},"tagline":"You Know, for Search"}`
	switch {
	case strings.HasSuffix(req.URL.Path, "/_search"):
		payload = f.search
	case strings.HasSuffix(req.URL.Path, "/_bulk"):
		payload = f.bulk
	case f.infoCode != 0:
		code = f.infoCode
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(payload)),
		Request:    req,
	}, nil
}

func (f *fakeES) body(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[path]
}

func newElastic(t *testing.T, fake *fakeES) *Elastic {
	t.Helper()
	client, err := NewClient(context.Background(), config.ESConfig{URL: "http://es.local:9200", Index: "products"}, fake)
	require.NoError(t, err)
	return &Elastic{Client: client, Index: "products"}
}

func TestNewClient_InfoError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), config.ESConfig{URL: "http://es.local:9200"}, &fakeES{infoCode: http.StatusUnauthorized})
	require.Error(t, err)
}

func TestElastic_Search(t *testing.T) {
	t.Parallel()

	fake := &fakeES{search: `{"hits":{"total":{"value":2},"hits":[
		{"_id":"hat-001","_source":{"id":"hat-001","slug":"classic-wool-fedora","name":"Classic Wool Fedora","price":"89.00"}},
		{"_id":"hat-002","_source":{"id":"hat-002","slug":"panama-straw-fedora","name":"Panama Straw Fedora","price":"120.00","sale_price":"96.00"}}
	]}}`}
	es := newElastic(t, fake)

	res, err := es.Search(context.Background(), "fedora", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	require.Len(t, res.Products, 2)
	assert.Equal(t, "hat-001", res.Products[0].ID)
	assert.True(t, res.Products[1].OnSale())
	assert.True(t, res.Products[1].EffectivePrice().Equal(decimal.RequireFromString("96")))

	sent := fake.body("/products/_search")
	assert.Contains(t, sent, `"fuzziness":"AUTO"`)
	assert.Contains(t, sent, `"name^2"`)
	assert.Contains(t, sent, `"query":"fedora"`)
}

func TestElastic_SearchPastResultWindow(t *testing.T) {
	t.Parallel()

	fake := &fakeES{search: `{"hits":{"total":{"value":2},"hits":[]}}`}
	es := newElastic(t, fake)

	res, err := es.Search(context.Background(), "fedora", math.MaxInt, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
	assert.Empty(t, res.Products)

	sent := fake.body("/products/_search")
	assert.Contains(t, sent, `"from":0`)
	assert.Contains(t, sent, `"size":0`)
}

func TestElastic_IndexProducts(t *testing.T) {
	t.Parallel()

	fake := &fakeES{bulk: `{"errors":false,"items":[{"index":{"_id":"hat-001","status":201}}]}`}
	es := newElastic(t, fake)

	require.NoError(t, es.IndexProducts(context.Background(), nil))
	require.NoError(t, es.IndexProducts(context.Background(), []models.Product{{ID: "hat-001", Name: "Classic Wool Fedora"}}))

	sent := fake.body("/products/_bulk")
	assert.Contains(t, sent, `"_id":"hat-001"`)
	assert.Contains(t, sent, `"name":"Classic Wool Fedora"`)
}

func TestElastic_IndexProductsReportsItemErrors(t *testing.T) {
	t.Parallel()

	fake := &fakeES{bulk: `{"errors":true,"items":[{"index":{"_id":"hat-001","error":{"reason":"mapper_parsing_exception"}}}]}`}
	es := newElastic(t, fake)

	err := es.IndexProducts(context.Background(), []models.Product{{ID: "hat-001"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

type staticCatalog []models.Product

func (c staticCatalog) Products(context.Context) ([]models.Product, error) {
	return c, nil
}

func TestLocal_Search(t *testing.T) {
	t.Parallel()

	cat := staticCatalog{
		{ID: "1", Name: "Classic Wool Fedora", Collection: "fedoras"},
		{ID: "2", Name: "Merino Beanie", Description: "Soft wool knit", Collection: "beanies"},
		{ID: "3", Name: "Trucker Cap", Collection: "caps", Category: "unisex"},
	}
	s := &Local{Catalog: cat}
	ctx := context.Background()

	tests := []struct {
		query      string
		from, size int
		want       []string
		total      int64
	}{
		{"wool", 0, 10, []string{"1", "2"}, 2},
		{"WOOL fedora", 0, 10, []string{"1"}, 1},
		{"unisex", 0, 10, []string{"3"}, 1},
		{"wool", 1, 10, []string{"2"}, 2},
		{"wool", 0, 1, []string{"1"}, 2},
		{"wool", 5, 10, []string{}, 2},
		{"wool", -1, 10, []string{}, 2},
		{"wool", math.MaxInt, 10, []string{}, 2},
		{"wool", 1, math.MaxInt, []string{"2"}, 2},
		{"   ", 0, 10, []string{}, 0},
	}
	for _, tt := range tests {
		res, err := s.Search(ctx, tt.query, tt.from, tt.size)
		require.NoError(t, err)
		got := make([]string, 0, len(res.Products))
		for _, p := range res.Products {
			got = append(got, p.ID)
		}
		assert.Equal(t, tt.want, got, tt.query)
		assert.Equal(t, tt.total, res.Total, tt.query)
	}
}
