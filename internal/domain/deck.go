package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const DeckSize = 8

// DeckHash returns the canonical identifier of a deck: the hex sha256 of the
// sorted card ids joined by commas. Identical card sets map to the same hash
// regardless of the order cards appear in a battle record.
func DeckHash(cardIDs []int) (string, error) {
	if len(cardIDs) != DeckSize {
		return "", fmt.Errorf("deck must have %d cards, got %d", DeckSize, len(cardIDs))
	}
	sorted := make([]int, len(cardIDs))
	copy(sorted, cardIDs)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.Itoa(id)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, ",")))
	return hex.EncodeToString(sum[:]), nil
}

// BattleIDLen is the truncated hex length of a battle identifier.
const BattleIDLen = 32

// BattleID derives a content identifier for a battle from its raw timestamp
// and the two participant tags. Tags are sorted first so the same battle seen
// from either player's battle log resolves to the same id.
func BattleID(battleTime, tagA, tagB string) string {
	if tagB < tagA {
		tagA, tagB = tagB, tagA
	}
	sum := sha256.Sum256([]byte(battleTime + "_" + tagA + "_" + tagB))
	return hex.EncodeToString(sum[:])[:BattleIDLen]
}

// NormalizeTag upper-cases a player tag and guarantees the leading '#'.
func NormalizeTag(tag string) string {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	if tag == "" {
		return tag
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return tag
}
