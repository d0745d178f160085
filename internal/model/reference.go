package model

// ReferenceEntry is one row of the CFOP reference table
type ReferenceEntry struct {
	Code          string `json:"cfop"`                    // Normalized D.DDD
	Description   string `json:"descricao"`               // Official description
	OperationType string `json:"tipo_operacao,omitempty"` // Entrada, Saída, Outro
	Source        string `json:"fonte,omitempty"`         // e.g. "CONFAZ"
	ExtractedAt   string `json:"data_extracao,omitempty"` // Timestamp written by the fetcher
}

// Direction classifies a CFOP by its leading digit
type Direction string

const (
	DirectionInbound       Direction = "inbound"        // 1, 2, 3
	DirectionOutbound      Direction = "outbound"       // 5, 6, 7
	DirectionNonCommercial Direction = "non_commercial" // anything else
)

// OperationType returns the reference-table label for the direction
func (d Direction) OperationType() string {
	switch d {
	case DirectionInbound:
		return "Entrada"
	case DirectionOutbound:
		return "Saída"
	default:
		return "Outro"
	}
}
