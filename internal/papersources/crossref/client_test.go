package crossref

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/helixir/literature-search-service/internal/domain"
	"github.com/helixir/literature-search-service/internal/papersources"
)

const worksResponseJSON = `{
  "status": "ok",
  "message-type": "work-list",
  "message": {
    "total-results": 2,
    "items": [
      {
        "DOI": "10.1001/jamaophthalmol.2024.0001",
        "URL": "https://doi.org/10.1001/jamaophthalmol.2024.0001",
        "title": ["Anti-VEGF <i>treatment</i> outcomes"],
        "author": [
          {"given": "Maria", "family": "Garcia", "affiliation": [{"name": "Bascom Palmer Eye Institute"}]},
          {"given": "", "family": "Chen", "affiliation": [{"name": "Bascom Palmer Eye Institute"}, {"name": "Duke University"}]},
          {"name": "EyeCare Consortium"}
        ],
        "container-title": ["JAMA Ophthalmology"],
        "published": {"date-parts": [[2024, 3, 7]]},
        "issued": {"date-parts": [[2024, 2]]},
        "abstract": "<jats:title>Abstract</jats:title><jats:p>Importance: treatment burden.</jats:p><jats:p>Conclusions: durable.</jats:p>",
        "is-referenced-by-count": 17,
        "references-count": 35,
        "license": [
          {"URL": "https://creativecommons.org/licenses/by/4.0/", "content-version": "vor"}
        ],
        "subject": ["Ophthalmology", " "],
        "type": "journal-article"
      },
      {
        "DOI": "10.5555/book.chapter",
        "title": ["Retina atlas"],
        "issued": {"date-parts": [[2018]]},
        "is-referenced-by-count": -3,
        "license": [{"URL": "https://www.elsevier.com/tdm/userlicense/1.0/"}],
        "type": "book-chapter"
      },
      {"title": ["no doi here"]},
      "not an object",
      {"DOI": "10.1/untitled", "title": []}
    ]
  }
}`

func createTestClient(serverURL string, enabled bool) *Client {
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   5 * time.Second,
		RateLimit: 100,
		BurstSize: 10,
	})
	return NewWithHTTPClient(Config{BaseURL: serverURL, Email: "team@example.org", Enabled: enabled}, httpClient)
}

func TestNew(t *testing.T) {
	client := New(Config{Enabled: true})

	require.NotNil(t, client)
	assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
	assert.Equal(t, DefaultTimeout, client.config.Timeout)
	assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
	assert.Equal(t, domain.ProviderTypeCrossref, client.Type())
	assert.Equal(t, "Crossref", client.Name())
	assert.True(t, client.IsEnabled())
}

func TestBuildFilter(t *testing.T) {
	now := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)

	assert.Empty(t, BuildFilter(papersources.Query{Text: "amd"}))
	assert.Equal(t, "has-abstract:true", BuildFilter(papersources.Query{IncludeAbstracts: true}))
	assert.Equal(t,
		"has-abstract:true,has-license:true,from-pub-date:2021-04-10",
		BuildFilter(papersources.Query{IncludeAbstracts: true, OpenAccessOnly: true, RecentOnly: true, Now: now}),
	)
}

func TestClient_RequestParams(t *testing.T) {
	client := NewWithHTTPClient(Config{Email: "team@example.org"}, nil)

	params := client.RequestParams(papersources.Query{Text: " glaucoma ", Limit: 20, IncludeAbstracts: true})
	assert.Equal(t, "glaucoma", params.Get("query"))
	assert.Equal(t, "20", params.Get("rows"))
	assert.Equal(t, "has-abstract:true", params.Get("filter"))
	assert.Equal(t, "team@example.org", params.Get("mailto"))

	plain := NewWithHTTPClient(Config{}, nil).RequestParams(papersources.Query{Text: "glaucoma"})
	assert.Equal(t, "10", plain.Get("rows"))
	_, hasFilter := plain["filter"]
	assert.False(t, hasFilter)
	_, hasMailto := plain["mailto"]
	assert.False(t, hasMailto)
}

func TestClient_Search(t *testing.T) {
	t.Run("parses works and skips malformed items", func(t *testing.T) {
		var received url.Values
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/works", r.URL.Path)
			received = r.URL.Query()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(worksResponseJSON))
		}))
		defer server.Close()

		records, err := createTestClient(server.URL, true).Search(context.Background(), papersources.Query{Text: "anti-vegf", Limit: 5})
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "5", received.Get("rows"))
		assert.Equal(t, "team@example.org", received.Get("mailto"))

		first := records[0]
		assert.Equal(t, "crossref-10.1001/jamaophthalmol.2024.0001", first.ID)
		assert.Equal(t, domain.ProviderTypeCrossref, first.ProviderType)
		assert.Equal(t, "Anti-VEGF treatment outcomes", first.Title)
		assert.Equal(t, []string{"Maria Garcia", "Chen", "EyeCare Consortium"}, first.Authors)
		assert.Equal(t, "JAMA Ophthalmology", first.Journal)
		assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), first.PublicationDate)
		assert.Equal(t, "Importance: treatment burden. Conclusions: durable.", first.Abstract)
		assert.Equal(t, 17, first.CitationCount)
		assert.True(t, first.IsOpenAccess)
		assert.True(t, first.Signals.HasLicense)
		assert.Equal(t, 35, first.Signals.ReferenceCount)
		assert.Equal(t, []string{"Ophthalmology"}, first.Keywords)
		assert.Equal(t, []string{"Bascom Palmer Eye Institute", "Duke University"}, first.Affiliations)
		assert.Equal(t, []string{"journal-article"}, first.PublicationType)
		assert.Empty(t, first.PMID)

		second := records[1]
		assert.Equal(t, "https://doi.org/10.5555/book.chapter", second.URL)
		assert.Equal(t, time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC), second.PublicationDate)
		assert.Equal(t, 0, second.CitationCount)
		assert.False(t, second.IsOpenAccess, "a non Creative Commons license is not open access")
		assert.True(t, second.Signals.HasLicense)
		assert.NotNil(t, second.Authors)
	})

	t.Run("non-ok status in body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"failed","message":"query too long"}`))
		}))
		defer server.Close()

		_, err := createTestClient(server.URL, true).Search(context.Background(), papersources.Query{Text: "amd"})
		var apiErr *domain.ExternalAPIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, "query too long", apiErr.Message)
	})

	t.Run("rate limited", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := createTestClient(server.URL, true).Search(context.Background(), papersources.Query{Text: "amd"})
		assert.True(t, errors.Is(err, domain.ErrRateLimited))
	})

	t.Run("invalid JSON", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"message": {"items": [`))
		}))
		defer server.Close()

		_, err := createTestClient(server.URL, true).Search(context.Background(), papersources.Query{Text: "amd"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parsing response")
	})

	t.Run("disabled", func(t *testing.T) {
		_, err := createTestClient("http://127.0.0.1:1", false).Search(context.Background(), papersources.Query{Text: "amd"})
		assert.True(t, errors.Is(err, domain.ErrProviderDisabled))
	})
}

func TestExtractDate(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected time.Time
	}{
		{name: "published wins", json: `{"published":{"date-parts":[[2020,5,6]]},"issued":{"date-parts":[[2019]]}}`, expected: time.Date(2020, 5, 6, 0, 0, 0, 0, time.UTC)},
		{name: "issued fallback", json: `{"issued":{"date-parts":[[2019,11]]}}`, expected: time.Date(2019, 11, 1, 0, 0, 0, 0, time.UTC)},
		{name: "null parts", json: `{"issued":{"date-parts":[[null]]}}`, expected: time.Time{}},
		{name: "no dates", json: `{}`, expected: time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractDate(gjson.Parse(tt.json)))
		})
	}
}
