package knowledge

import (
	"fmt"
	"strings"

	"chronicle/internal/store"
)

// DescribeEntity is the text embedded for an entity. It must be recomputed
// whenever the name or description changes.
func DescribeEntity(kind store.Kind, name, description string) string {
	subject := "It"
	if kind == store.KindCharacter || kind == store.KindPlayer {
		subject = "They"
	}
	return fmt.Sprintf("There is a %s called %s. %s can be described as: %s", kind, name, subject, description)
}

func DescribeEvent(locationNames []string, description string) string {
	place := "the world"
	if len(locationNames) > 0 {
		place = strings.Join(locationNames, ", ")
	}
	return fmt.Sprintf("In %s, %s", place, description)
}

func DescribeWorld(name, description string) string {
	return fmt.Sprintf("The world of %s. %s", name, description)
}

func entityImagePrompt(world *store.World, e *store.Entity) string {
	switch e.Kind {
	case store.KindPlayer:
		return fmt.Sprintf("%s is a player in the world of %s. %s. Here is a description of the player: %s. Generate them an avatar image that looks like them.",
			e.Name, world.Name, world.Description, e.Description)
	case store.KindCharacter:
		return fmt.Sprintf("%s is a character in the world of %s. They can be described as: %s", e.Name, world.Name, e.Description)
	default:
		return fmt.Sprintf("A %s called %s in the world of %s. It can be described as: %s", e.Kind, e.Name, world.Name, e.Description)
	}
}

func worldImagePrompt(w *store.World) string {
	return fmt.Sprintf("%s is a world with the following description: %s. Generate a beautiful, atmospheric image that represents this world setting.",
		w.Name, w.Description)
}

// Slugify derives a URL slug from a world name.
func Slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
