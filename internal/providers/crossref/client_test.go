package crossref

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emrah1982/yayinpinari/internal/domain"
	"github.com/emrah1982/yayinpinari/internal/providers"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:   baseURL,
		RateLimit: 1000,
		Enabled:   true,
	}, nil)
}

func TestClient_Search(t *testing.T) {
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/works", r.URL.Path)
		gotQuery = r.URL.Query()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "ok",
			"message": {
				"total-results": 215,
				"items": [
					{
						"DOI": "10.1021/JA00001A001",
						"title": ["Catalytic Hydrogenation"],
						"author": [
							{"given": "Paul", "family": "Sabatier"},
							{"name": "Chemistry Consortium"}
						],
						"abstract": "<jats:p>Reduction of <jats:italic>alkenes</jats:italic>.</jats:p>",
						"issued": {"date-parts": [[1912, 5, 14]]},
						"URL": "https://doi.org/10.1021/ja00001a001",
						"subject": ["Catalysis"]
					},
					{
						"title": [],
						"issued": {"date-parts": [[2001]]}
					}
				]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.Search(context.Background(), providers.SearchParams{
		Query:    "hydrogenation",
		Page:     2,
		PageSize: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"hydrogenation"}, gotQuery["query"])
	assert.Equal(t, []string{"20"}, gotQuery["rows"])
	assert.Equal(t, []string{"20"}, gotQuery["offset"])

	assert.Equal(t, 215, result.TotalResults)
	assert.Equal(t, ProviderID, result.Provider)
	require.Len(t, result.Records, 2)

	first := result.Records[0]
	assert.Equal(t, "10.1021/ja00001a001", first.ID, "normalized DOI doubles as record ID")
	assert.Equal(t, "10.1021/ja00001a001", first.DOI)
	assert.Equal(t, "Catalytic Hydrogenation", first.Title)
	assert.Equal(t, []string{"Paul Sabatier", "Chemistry Consortium"}, first.Authors)
	assert.Equal(t, "Reduction of alkenes .", first.Abstract, "JATS markup stripped")
	assert.Equal(t, "1912-05-14", first.PublishedDate)
	assert.Equal(t, []string{"Catalysis"}, first.SubjectTerms)
	assert.Equal(t, ProviderID, first.SourceProvider)

	second := result.Records[1]
	assert.Equal(t, "unknown", second.Title)
	assert.NotEmpty(t, second.ID, "works without a DOI get a generated ID")
	assert.Equal(t, "2001", second.PublishedDate)
}

func TestClient_SearchHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Search(context.Background(), providers.SearchParams{Query: "x"})
	require.Error(t, err)

	var provErr *domain.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, ProviderID, provErr.Provider)
	assert.Equal(t, domain.ErrorKindNotFound, provErr.Kind)
	assert.Equal(t, http.StatusNotFound, provErr.StatusCode)
}

func TestClient_SearchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := newTestClient(server.URL)
	_, err := client.Search(ctx, providers.SearchParams{Query: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatIssued(t *testing.T) {
	tests := []struct {
		name string
		in   DateParts
		want string
	}{
		{"year only", DateParts{DateParts: [][]int{{1998}}}, "1998"},
		{"year and month", DateParts{DateParts: [][]int{{1998, 3}}}, "1998-03"},
		{"full date", DateParts{DateParts: [][]int{{1998, 3, 9}}}, "1998-03-09"},
		{"empty", DateParts{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatIssued(tt.in))
		})
	}
}

func TestStripJATS(t *testing.T) {
	assert.Equal(t, "Plain text.", stripJATS("Plain text."))
	assert.Equal(t, "", stripJATS(""))
	assert.Equal(t, "Nested markup here", stripJATS("<jats:p>Nested <jats:bold>markup</jats:bold> here</jats:p>"))
}
