package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/fiscalia/internal/model"
)

func TestNewSet_NormalizesCodes(t *testing.T) {
	set := NewSet(
		[]SectorEntry{{Key: "agronegocio", Config: model.SectorConfig{
			CommonInboundCodes:  []string{"1101"},
			CommonOutboundCodes: []string{"51.01", " 6101 "},
		}}},
		map[string]model.CostCenterConfig{
			"vendas": {Name: "Vendas", AssociatedCodes: []string{"5101"}},
		},
		nil,
	)

	cfg, ok := set.Sector("agronegocio")
	require.True(t, ok)
	assert.Equal(t, []string{"1.101"}, cfg.CommonInboundCodes)
	assert.Equal(t, []string{"5.101", "6.101"}, cfg.CommonOutboundCodes)
	assert.True(t, cfg.HasCode("5.101"))

	cc, ok := set.CostCenter("vendas")
	require.True(t, ok)
	assert.True(t, cc.HasCode("5.101"))
}

func TestNewSet_DoesNotAliasInput(t *testing.T) {
	inbound := []string{"1.101"}
	set := NewSet([]SectorEntry{{Key: "a", Config: model.SectorConfig{CommonInboundCodes: inbound}}}, nil, nil)

	inbound[0] = "9.999"
	cfg, _ := set.Sector("a")
	assert.Equal(t, "1.101", cfg.CommonInboundCodes[0])

	sectors := set.Sectors()
	sectors[0].Key = "changed"
	assert.Equal(t, "a", set.Sectors()[0].Key)
}

func TestSet_Industry(t *testing.T) {
	set := NewSet(nil, nil, map[string]string{"01": "agronegocio", "default": "servicos"})

	key, ok := set.SectorForIndustry("01")
	assert.True(t, ok)
	assert.Equal(t, "agronegocio", key)

	_, ok = set.SectorForIndustry("99")
	assert.False(t, ok)

	_, ok = set.SectorForIndustry("default")
	assert.False(t, ok)

	assert.Equal(t, "servicos", set.DefaultSector())
	assert.Equal(t, model.DefaultSectorKey, NewSet(nil, nil, nil).DefaultSector())
}

func TestSet_Counts(t *testing.T) {
	set := NewSet(
		[]SectorEntry{{Key: "a"}, {Key: "b"}},
		map[string]model.CostCenterConfig{"x": {}},
		map[string]string{"01": "a", "default": "b"},
	)
	sectors, centers, prefixes := set.Counts()
	assert.Equal(t, 2, sectors)
	assert.Equal(t, 1, centers)
	assert.Equal(t, 1, prefixes)
}

func TestSet_Nil(t *testing.T) {
	var set *Set
	_, ok := set.Sector("a")
	assert.False(t, ok)
	assert.Nil(t, set.Sectors())
	assert.Equal(t, model.DefaultSectorKey, set.DefaultSector())
}
