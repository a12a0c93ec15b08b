package zone

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/Micah-S/gw2pao/internal/domain"
)

// Zone is one playable map of the world.
type Zone struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// Catalog resolves map IDs and names for core Tyria.
type Catalog struct {
	byID  map[int]Zone
	zones []Zone
}

// NewCatalog returns the built-in catalog.
func NewCatalog() *Catalog {
	zones := coreTyria()
	byID := make(map[int]Zone, len(zones))
	for _, z := range zones {
		byID[z.ID] = z
	}
	return &Catalog{byID: byID, zones: zones}
}

// Lookup resolves a map ID.
func (c *Catalog) Lookup(id int) (Zone, bool) {
	z, ok := c.byID[id]
	return z, ok
}

// ByID resolves a map ID, failing with domain.ErrZoneNotFound for maps the
// catalog does not know.
func (c *Catalog) ByID(id int) (Zone, error) {
	z, ok := c.byID[id]
	if !ok {
		return Zone{}, fmt.Errorf("%w: id %d", domain.ErrZoneNotFound, id)
	}
	return z, nil
}

// All returns every zone in catalog order.
func (c *Catalog) All() []Zone {
	out := make([]Zone, len(c.zones))
	copy(out, c.zones)
	return out
}

// Search returns zones matching the query: substring matches first, then
// near-misses by normalized edit distance.
func (c *Catalog) Search(query string) []Zone {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var direct, fuzzy []Zone
	for _, z := range c.zones {
		name := strings.ToLower(z.Name)
		switch {
		case strings.Contains(name, q):
			direct = append(direct, z)
		case fuzzyMatch(name, q):
			fuzzy = append(fuzzy, z)
		}
	}
	return append(direct, fuzzy...)
}

func fuzzyMatch(name, query string) bool {
	dist := levenshtein.ComputeDistance(name, query)
	maxLen := max(len(name), len(query))
	if maxLen == 0 {
		return false
	}
	return float64(dist)/float64(maxLen) < 0.4
}

func coreTyria() []Zone {
	return []Zone{
		{ID: 15, Name: "Queensdale", Region: "Kryta"},
		{ID: 17, Name: "Harathi Hinterlands", Region: "Kryta"},
		{ID: 18, Name: "Divinity's Reach", Region: "Kryta"},
		{ID: 19, Name: "Plains of Ashford", Region: "Ascalon"},
		{ID: 20, Name: "Blazeridge Steppes", Region: "Ascalon"},
		{ID: 21, Name: "Fields of Ruin", Region: "Ascalon"},
		{ID: 22, Name: "Fireheart Rise", Region: "Ascalon"},
		{ID: 23, Name: "Kessex Hills", Region: "Kryta"},
		{ID: 24, Name: "Gendarran Fields", Region: "Kryta"},
		{ID: 25, Name: "Iron Marches", Region: "Ascalon"},
		{ID: 26, Name: "Dredgehaunt Cliffs", Region: "Shiverpeak Mountains"},
		{ID: 27, Name: "Lornar's Pass", Region: "Shiverpeak Mountains"},
		{ID: 28, Name: "Wayfarer Foothills", Region: "Shiverpeak Mountains"},
		{ID: 29, Name: "Timberline Falls", Region: "Shiverpeak Mountains"},
		{ID: 30, Name: "Frostgorge Sound", Region: "Shiverpeak Mountains"},
		{ID: 31, Name: "Snowden Drifts", Region: "Shiverpeak Mountains"},
		{ID: 32, Name: "Diessa Plateau", Region: "Ascalon"},
		{ID: 34, Name: "Caledon Forest", Region: "Maguuma Jungle"},
		{ID: 35, Name: "Metrica Province", Region: "Maguuma Jungle"},
		{ID: 39, Name: "Mount Maelstrom", Region: "Maguuma Jungle"},
		{ID: 50, Name: "Lion's Arch", Region: "Kryta"},
		{ID: 51, Name: "Straits of Devastation", Region: "Ruins of Orr"},
		{ID: 53, Name: "Sparkfly Fen", Region: "Maguuma Jungle"},
		{ID: 54, Name: "Brisban Wildlands", Region: "Maguuma Jungle"},
		{ID: 62, Name: "Cursed Shore", Region: "Ruins of Orr"},
		{ID: 65, Name: "Malchor's Leap", Region: "Ruins of Orr"},
		{ID: 73, Name: "Bloodtide Coast", Region: "Kryta"},
		{ID: 91, Name: "The Grove", Region: "Maguuma Jungle"},
		{ID: 139, Name: "Rata Sum", Region: "Maguuma Jungle"},
		{ID: 218, Name: "Black Citadel", Region: "Ascalon"},
		{ID: 326, Name: "Hoelbrak", Region: "Shiverpeak Mountains"},
		{ID: 873, Name: "Southsun Cove", Region: "Sea of Sorrows"},
		{ID: 988, Name: "Dry Top", Region: "Maguuma Wastes"},
		{ID: 1015, Name: "The Silverwastes", Region: "Maguuma Wastes"},
	}
}
