package model

import (
	"fmt"
	"strings"
	"time"
)

// ResourceKind enumerates the relief supplies tracked by the ledger.
type ResourceKind string

const (
	Food      ResourceKind = "FOOD"
	Water     ResourceKind = "WATER"
	Medicine  ResourceKind = "MEDICINE"
	Fuel      ResourceKind = "FUEL"
	Equipment ResourceKind = "EQUIPMENT"
	Blankets  ResourceKind = "BLANKETS"
)

var kindAliases = map[string]ResourceKind{
	"FOOD":        Food,
	"ALIMENTO":    Food,
	"WATER":       Water,
	"AGUA":        Water,
	"MEDICINE":    Medicine,
	"MEDICINA":    Medicine,
	"FUEL":        Fuel,
	"COMBUSTIBLE": Fuel,
	"EQUIPMENT":   Equipment,
	"EQUIPO":      Equipment,
	"BLANKETS":    Blankets,
	"MANTAS":      Blankets,
}

// Kinds lists the known resource kinds in display order.
func Kinds() []ResourceKind {
	return []ResourceKind{Food, Water, Medicine, Fuel, Equipment, Blankets}
}

// ParseKind resolves a case-insensitive kind name or alias.
func ParseKind(s string) (ResourceKind, error) {
	k, ok := kindAliases[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownResourceKind, s)
	}
	return k, nil
}

// StockEntry is one (key, kind) cell of the ledger.
type StockEntry struct {
	Key      string       `json:"key" db:"location"`
	Kind     ResourceKind `json:"kind" db:"kind"`
	Quantity int64        `json:"quantity" db:"quantity"`
}

// Transfer records a completed movement of stock between two keys.
type Transfer struct {
	ID       string       `json:"id"`
	Source   string       `json:"source"`
	Dest     string       `json:"destination"`
	Kind     ResourceKind `json:"kind"`
	Quantity int64        `json:"quantity"`
	At       time.Time    `json:"at"`
	// Levels of the kind at both ends right after the transfer.
	SourceLevel int64 `json:"source_level"`
	DestLevel   int64 `json:"destination_level"`
}
