// internal/palette/palette.go
//
// Provides the tile symbol palette for the game engine.
//
// Responsibilities:
//   - Load the ordered symbol list from PALETTE_FILE or fall back to the embedded default.
//   - Validate it (ids present and unique, enough symbols for the largest board).
//   - Supply IDs for board construction and Lookup for labels/icons.
//
// File format (YAML):
//
//	symbols:
//	  - { id: hearts, label: Hearts, icon: GiHearts }
//
// Boards deal the first N symbols in file order, so order matters.
// Initialization is run once (sync.Once).

package palette

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"

	"github.com/robalobadob/memory/server/assets"
)

// MinSymbols is the number of symbols needed by a 6x6 board.
const MinSymbols = 18

// Symbol is one palette entry.
type Symbol struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Icon  string `yaml:"icon" json:"icon"`
}

type file struct {
	Symbols []Symbol `yaml:"symbols"`
}

var (
	initOnce   sync.Once
	symbols    []Symbol
	ids        []string
	byID       map[string]Symbol
	initialErr error
)

// Init loads the palette exactly once.
func Init() error {
	initOnce.Do(func() {
		var (
			raw []byte
			err error
		)
		if path := os.Getenv("PALETTE_FILE"); path != "" {
			raw, err = os.ReadFile(path)
		} else {
			raw, err = assets.Palette()
		}
		if err != nil {
			initialErr = fmt.Errorf("palette: read: %w", err)
			return
		}
		list, err := Parse(raw)
		if err != nil {
			initialErr = err
			return
		}
		set(list)
	})
	return initialErr
}

// Parse decodes and validates a palette document.
func Parse(raw []byte) ([]Symbol, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("palette: parse: %w", err)
	}
	if err := validate(f.Symbols); err != nil {
		return nil, err
	}
	return f.Symbols, nil
}

func validate(list []Symbol) error {
	if len(list) < MinSymbols {
		return fmt.Errorf("palette: %d symbols, need at least %d", len(list), MinSymbols)
	}
	seen := make(map[string]struct{}, len(list))
	for i, s := range list {
		id := strings.TrimSpace(s.ID)
		if id == "" {
			return fmt.Errorf("palette: symbol %d has no id", i)
		}
		if _, dup := seen[id]; dup {
			return errors.New("palette: duplicate id " + id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func set(list []Symbol) {
	symbols = list
	ids = make([]string, len(list))
	byID = make(map[string]Symbol, len(list))
	for i, s := range list {
		ids[i] = s.ID
		byID[s.ID] = s
	}
}

// IDs returns the symbol ids in deal order. It loads the palette on first use;
// an empty result means Init failed.
func IDs() []string {
	_ = Init()
	return append([]string(nil), ids...)
}

// Symbols returns the full palette in deal order.
func Symbols() []Symbol {
	_ = Init()
	return append([]Symbol(nil), symbols...)
}

// Lookup finds a symbol by id.
func Lookup(id string) (Symbol, bool) {
	_ = Init()
	s, ok := byID[id]
	return s, ok
}

// Stats returns the number of loaded symbols.
func Stats() int { return len(symbols) }
