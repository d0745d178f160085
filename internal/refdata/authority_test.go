package refdata

import (
	"testing"
)

func TestAuthorityClassifier_Defaults(t *testing.T) {
	classifier := NewAuthorityClassifier(nil, nil)

	tests := []struct {
		url      string
		expected Tier
		desc     string
	}{
		{
			url:      "https://www.confaz.fazenda.gov.br/legislacao/ajustes/sinief/cfop_cvsn_70_vigente",
			expected: TierOfficial,
			desc:     "CONFAZ with subdomain",
		},
		{
			url:      "http://CONFAZ.FAZENDA.GOV.BR:80/cfop",
			expected: TierOfficial,
			desc:     "Host is case-insensitive and the port is ignored",
		},
		{
			url:      "https://sped.rfb.gov.br/pasta/show/1",
			expected: TierSecondary,
			desc:     "SPED portal",
		},
		{
			url:      "https://portal.fazenda.sp.gov.br/servicos/nfe",
			expected: TierSecondary,
			desc:     "State finance secretariat",
		},
		{
			url:      "https://www.sefaz.rs.gov.br/cfop",
			expected: TierSecondary,
			desc:     "State sefaz",
		},
		{
			url:      "https://www.planalto.gov.br/ccivil_03",
			expected: TierUnofficial,
			desc:     "Government site outside the tax administration",
		},
		{
			url:      "https://blog.example.com/tabela-cfop",
			expected: TierUnofficial,
			desc:     "Third-party site",
		},
		{
			url:      "https://notconfaz.fazenda.gov.br.example.com/",
			expected: TierUnofficial,
			desc:     "Suffix spoofing",
		},
		{
			url:      "://bad",
			expected: TierUnofficial,
			desc:     "Unparseable URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			result := classifier.Classify(tt.url)
			if result != tt.expected {
				t.Errorf("Expected %v for %s, got %v", tt.expected, tt.url, result)
			}
		})
	}
}

func TestAuthorityClassifier_CustomDomains(t *testing.T) {
	classifier := NewAuthorityClassifier([]string{"mirror.example.org"}, []string{})

	if got := classifier.Classify("https://mirror.example.org/cfop"); got != TierOfficial {
		t.Errorf("Expected official for configured domain, got %v", got)
	}
	if got := classifier.Classify("https://www.confaz.fazenda.gov.br/"); got != TierSecondary {
		t.Errorf("Expected secondary via the fazenda rule, got %v", got)
	}
	if got := classifier.Classify("https://sped.rfb.gov.br/"); got != TierUnofficial {
		t.Errorf("Expected unofficial with empty secondary list, got %v", got)
	}
}

func TestAuthorityClassifier_SourceLabel(t *testing.T) {
	classifier := NewAuthorityClassifier(nil, nil)

	tests := []struct {
		url  string
		want string
	}{
		{"https://www.confaz.fazenda.gov.br/cfop", SourceName},
		{"http://127.0.0.1:8080/cfop", "127.0.0.1"},
		{"https://Blog.Example.com/x", "blog.example.com"},
		{"relative/path", "relative/path"},
	}
	for _, tt := range tests {
		if got := classifier.SourceLabel(tt.url); got != tt.want {
			t.Errorf("SourceLabel(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestTier_String(t *testing.T) {
	if TierOfficial.String() != "official" || TierSecondary.String() != "secondary" || TierUnofficial.String() != "unofficial" {
		t.Error("unexpected tier names")
	}
	if Tier(0).String() != "unofficial" {
		t.Error("zero tier should read as unofficial")
	}
}
