package refdata

import (
	"net/url"
	"strings"
)

// Tier ranks how authoritative a reference source is
type Tier int

const (
	TierOfficial Tier = iota + 1
	TierSecondary
	TierUnofficial
)

func (t Tier) String() string {
	switch t {
	case TierOfficial:
		return "official"
	case TierSecondary:
		return "secondary"
	default:
		return "unofficial"
	}
}

// DefaultOfficialDomains publish the CFOP table itself
var DefaultOfficialDomains = []string{
	"confaz.fazenda.gov.br",
	"fazenda.gov.br",
	"nfe.fazenda.gov.br",
}

// DefaultSecondaryDomains republish it (state tax portals, SPED)
var DefaultSecondaryDomains = []string{
	"sped.rfb.gov.br",
	"portalfiscal.sefaz.gov.br",
}

// AuthorityClassifier classifies reference sources into tiers
type AuthorityClassifier struct {
	officialMap  map[string]bool
	secondaryMap map[string]bool
}

// NewAuthorityClassifier creates a classifier; nil lists use the defaults
func NewAuthorityClassifier(official, secondary []string) *AuthorityClassifier {
	if official == nil {
		official = DefaultOfficialDomains
	}
	if secondary == nil {
		secondary = DefaultSecondaryDomains
	}

	classifier := &AuthorityClassifier{
		officialMap:  make(map[string]bool, len(official)),
		secondaryMap: make(map[string]bool, len(secondary)),
	}
	for _, domain := range official {
		classifier.officialMap[strings.ToLower(domain)] = true
	}
	for _, domain := range secondary {
		classifier.secondaryMap[strings.ToLower(domain)] = true
	}

	return classifier
}

// Classify classifies a URL into a tier
func (a *AuthorityClassifier) Classify(rawURL string) Tier {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return TierUnofficial
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return TierUnofficial
	}

	if matchesDomain(host, a.officialMap) {
		return TierOfficial
	}
	if matchesDomain(host, a.secondaryMap) {
		return TierSecondary
	}

	// State finance secretariats (sefaz.sp.gov.br, fazenda.rj.gov.br)
	if strings.HasSuffix(host, ".gov.br") &&
		(strings.Contains(host, "sefaz") || strings.Contains(host, "fazenda")) {
		return TierSecondary
	}

	return TierUnofficial
}

// SourceLabel is the "fonte" value for entries parsed from rawURL:
// SourceName for official sources, the host name otherwise
func (a *AuthorityClassifier) SourceLabel(rawURL string) string {
	if a.Classify(rawURL) == TierOfficial {
		return SourceName
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return rawURL
	}
	return strings.ToLower(parsed.Hostname())
}

// matchesDomain reports whether host is a domain in set or a subdomain of one
func matchesDomain(host string, set map[string]bool) bool {
	if set[host] {
		return true
	}
	for domain := range set {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
