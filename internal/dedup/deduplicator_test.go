package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/literature-search-service/internal/domain"
)

func source(id string, pt domain.ProviderType, doi, pmid, title string) *domain.UnifiedSource {
	return &domain.UnifiedSource{ID: id, ProviderType: pt, DOI: doi, PMID: pmid, Title: title}
}

func ids(records []*domain.UnifiedSource) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestDeduplicate_DOICaseInsensitive(t *testing.T) {
	t.Parallel()

	d := New(DefaultConfig())
	res := d.Deduplicate([]*domain.UnifiedSource{
		source("pubmed-1", domain.ProviderTypePubMed, "10.1001/X", "", "First title"),
		source("crossref-1", domain.ProviderTypeCrossref, "10.1001/x", "", "Different title"),
	})

	assert.Equal(t, []string{"pubmed-1"}, ids(res.Sources))
	assert.Equal(t, 1, res.Removed)
}

func TestDeduplicate_PMID(t *testing.T) {
	t.Parallel()

	res := New(DefaultConfig()).Deduplicate([]*domain.UnifiedSource{
		source("pubmed-1", domain.ProviderTypePubMed, "", "123", "Alpha"),
		source("europepmc-1", domain.ProviderTypeEuropePMC, "", " 123", "Beta"),
	})

	assert.Equal(t, []string{"pubmed-1"}, ids(res.Sources))
	assert.Equal(t, 1, res.Removed)
}

func TestDeduplicate_TitlePrefix(t *testing.T) {
	t.Parallel()

	prefix := "Complement inhibition for geographic atrophy in age"
	res := New(DefaultConfig()).Deduplicate([]*domain.UnifiedSource{
		source("web_search-a", domain.ProviderTypeWebSearch, "", "", prefix+" related macular degeneration"),
		source("web_search-b", domain.ProviderTypeWebSearch, "", "", prefix+"-related disease: results"),
	})

	assert.Equal(t, []string{"web_search-a"}, ids(res.Sources))
	assert.Equal(t, 1, res.Removed)
}

func TestDeduplicate_TitleKeyLengthConfigurable(t *testing.T) {
	t.Parallel()

	records := []*domain.UnifiedSource{
		source("a", domain.ProviderTypeWebSearch, "", "", "Retinal imaging in children"),
		source("b", domain.ProviderTypeWebSearch, "", "", "Retinal imaging in adults"),
	}

	short := New(Config{TitleKeyLength: 10}).Deduplicate(records)
	assert.Equal(t, 1, short.Removed)

	whole := New(Config{TitleKeyLength: 0}).Deduplicate(records)
	assert.Equal(t, 0, whole.Removed)
}

func TestDeduplicate_KeptRecordClaimsAllKeys(t *testing.T) {
	t.Parallel()

	// The first record claims both its DOI and its title, so the third record
	// is dropped on the title even though its DOI differs.
	res := New(DefaultConfig()).Deduplicate([]*domain.UnifiedSource{
		source("pubmed-1", domain.ProviderTypePubMed, "10.1/a", "", "Shared title"),
		source("crossref-2", domain.ProviderTypeCrossref, "10.1/b", "", "Other title"),
		source("semantic_scholar-3", domain.ProviderTypeSemanticScholar, "10.1/c", "", "Shared Title!"),
	})

	assert.Equal(t, []string{"pubmed-1", "crossref-2"}, ids(res.Sources))
	assert.Equal(t, 1, res.Removed)
}

func TestDeduplicate_DroppedRecordClaimsNothing(t *testing.T) {
	t.Parallel()

	// The second record is dropped by DOI; its PMID is not claimed, so the
	// third record survives.
	res := New(DefaultConfig()).Deduplicate([]*domain.UnifiedSource{
		source("a", domain.ProviderTypePubMed, "10.1/a", "", "One"),
		source("b", domain.ProviderTypeEuropePMC, "10.1/A", "555", "Two"),
		source("c", domain.ProviderTypeCrossref, "", "555", "Three"),
	})

	assert.Equal(t, []string{"a", "c"}, ids(res.Sources))
	assert.Equal(t, 1, res.Removed)
}

func TestDeduplicate_WorkedExample(t *testing.T) {
	t.Parallel()

	var records []*domain.UnifiedSource
	for i, title := range []string{"Alpha study", "Beta trial", "Gamma cohort", "Delta review", "Epsilon report"} {
		doi := ""
		if i == 0 {
			doi = "10.1001/X"
		}
		records = append(records, source("pubmed-"+title, domain.ProviderTypePubMed, doi, "", title))
	}
	for i, title := range []string{"Zeta study", "Eta trial", "Theta cohort", "Iota review", "Kappa report"} {
		doi := ""
		if i == 0 {
			doi = "10.1001/x"
		}
		records = append(records, source("crossref-"+title, domain.ProviderTypeCrossref, doi, "", title))
	}

	res := New(DefaultConfig()).Deduplicate(records)
	require.Len(t, res.Sources, 9)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, "pubmed-Alpha study", res.Sources[0].ID)
}

func TestDeduplicate_SkipsNilAndEmpty(t *testing.T) {
	t.Parallel()

	res := New(DefaultConfig()).Deduplicate([]*domain.UnifiedSource{nil, {ID: "blank"}, {ID: "blank2"}})
	assert.Equal(t, []string{"blank", "blank2"}, ids(res.Sources), "records without keys are never duplicates")
	assert.Equal(t, 0, res.Removed)

	empty := New(DefaultConfig()).Deduplicate(nil)
	assert.Empty(t, empty.Sources)
	assert.Equal(t, 0, empty.Removed)
}
