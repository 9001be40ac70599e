package scoring

import (
	"net/url"
	"strings"
)

// Domain bonus tiers.
const (
	TierPublicHealth   = 30
	TierMajorJournal   = 25
	TierMedicalPublish = 20
	LowTrustPenalty    = -10
)

// DomainTable maps a registrable domain to its score adjustment.
type DomainTable map[string]float64

// DefaultDomains returns the recognized medical authority domains and the
// lower-trust domains.
func DefaultDomains() DomainTable {
	return DomainTable{
		// Public health agencies, government and evidence synthesis.
		"who.int":             TierPublicHealth,
		"nih.gov":             TierPublicHealth,
		"cdc.gov":             TierPublicHealth,
		"fda.gov":             TierPublicHealth,
		"ema.europa.eu":       TierPublicHealth,
		"nice.org.uk":         TierPublicHealth,
		"nhs.uk":              TierPublicHealth,
		"cochrane.org":        TierPublicHealth,
		"cochranelibrary.com": TierPublicHealth,

		// Major journals.
		"nejm.org":        TierMajorJournal,
		"thelancet.com":   TierMajorJournal,
		"jamanetwork.com": TierMajorJournal,
		"bmj.com":         TierMajorJournal,
		"nature.com":      TierMajorJournal,
		"science.org":     TierMajorJournal,
		"cell.com":        TierMajorJournal,
		"annals.org":      TierMajorJournal,
		"plos.org":        TierMajorJournal,
		"aaojournal.org":  TierMajorJournal,

		// Other recognized medical publishers and societies.
		"aao.org":             TierMedicalPublish,
		"mayoclinic.org":      TierMedicalPublish,
		"clevelandclinic.org": TierMedicalPublish,
		"hopkinsmedicine.org": TierMedicalPublish,
		"medlineplus.gov":     TierMedicalPublish,
		"springer.com":        TierMedicalPublish,
		"wiley.com":           TierMedicalPublish,
		"sciencedirect.com":   TierMedicalPublish,
		"frontiersin.org":     TierMedicalPublish,
		"mdpi.com":            TierMedicalPublish,
		"medscape.com":        TierMedicalPublish,

		// Lower-trust sources.
		"wikipedia.org": LowTrustPenalty,
		"reddit.com":    LowTrustPenalty,
		"quora.com":     LowTrustPenalty,
		"facebook.com":  LowTrustPenalty,
		"youtube.com":   LowTrustPenalty,
		"pinterest.com": LowTrustPenalty,
		"medium.com":    LowTrustPenalty,
		"blogspot.com":  LowTrustPenalty,
	}
}

// Bonus returns the adjustment for rawURL. A host matches a domain when it
// equals the domain or ends with "." followed by the domain; the longest
// matching domain wins. Unparseable or unmatched URLs return 0.
func (t DomainTable) Bonus(rawURL string) float64 {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return 0
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return 0
	}

	best, bestLen := 0.0, 0
	for d, bonus := range t {
		if MatchesDomain(host, d) && len(d) > bestLen {
			best, bestLen = bonus, len(d)
		}
	}
	return best
}

// MatchesDomain reports whether host is d or a subdomain of d.
func MatchesDomain(host, d string) bool {
	return host == d || strings.HasSuffix(host, "."+d)
}
