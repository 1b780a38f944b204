// Package category assigns inventory items to a fixed set of display
// categories. Classification is keyword based and checked in priority
// order, most specific label first.
package category

import "strings"

const (
	Knives   = "Knives"
	Gloves   = "Gloves"
	Cases    = "Cases"
	Stickers = "Stickers"
	Agents   = "Agents"
	Music    = "Music"
	Graffiti = "Graffiti"
	Weapons  = "Weapons"
	Other    = "Other"
)

var knifeWords = []string{"knife", "karambit", "bayonet", "daggers", "falchion", "kukri", "navaja", "stiletto", "ursus", "talon"}

// Classify maps an item's market name and type hint to a category. It is
// total and deterministic: any input yields exactly one label.
func Classify(name, typeHint string) string {
	n := strings.ToLower(name)
	t := strings.ToLower(typeHint)

	switch {
	case strings.Contains(n, "gloves") || strings.Contains(n, "hand wraps"):
		return Gloves
	case strings.HasPrefix(name, "★") || containsAny(n, knifeWords) || strings.Contains(t, "knife"):
		return Knives
	case strings.Contains(n, "case") || strings.Contains(n, "capsule"):
		return Cases
	case strings.Contains(n, "sticker"):
		return Stickers
	case strings.Contains(n, "agent") || strings.Contains(t, "agent"):
		return Agents
	case strings.Contains(n, "music kit"):
		return Music
	case strings.Contains(n, "graffiti"):
		return Graffiti
	case strings.Contains(name, " | "):
		// The " | " separator appears in every weapon skin name.
		return Weapons
	default:
		return Other
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
