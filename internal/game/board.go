package game

import (
	"fmt"
	"math/rand"
)

// buildBoard takes the first tileCount/2 palette entries, doubles them and
// shuffles the result. Every tile starts hidden and never revealed.
func buildBoard(palette []string, tileCount int, rng *rand.Rand) []Tile {
	if tileCount%2 != 0 {
		panic(fmt.Sprintf("game: the number of tiles must be even, got %d", tileCount))
	}
	pairCount := tileCount / 2
	if len(palette) < pairCount {
		panic(fmt.Sprintf("game: palette has %d symbols, need %d", len(palette), pairCount))
	}

	used := palette[:pairCount]
	tiles := make([]Tile, 0, tileCount)
	for _, c := range used {
		tiles = append(tiles, Tile{Content: c, State: TileHidden})
	}
	for _, c := range used {
		tiles = append(tiles, Tile{Content: c, State: TileHidden})
	}

	rng.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})
	return tiles
}

// allMatched reports whether no tile is left to match.
func allMatched(tiles []Tile) bool {
	for _, t := range tiles {
		if t.State != TileMatched {
			return false
		}
	}
	return true
}

// countUnmatched returns the number of tiles whose state is not matched.
func countUnmatched(tiles []Tile) int {
	n := 0
	for _, t := range tiles {
		if t.State != TileMatched {
			n++
		}
	}
	return n
}

// revealedIndices lists the indices of currently revealed tiles.
func revealedIndices(tiles []Tile) []int {
	var out []int
	for i, t := range tiles {
		if t.State == TileRevealed {
			out = append(out, i)
		}
	}
	return out
}
