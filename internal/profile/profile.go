// Package profile generates mock user identities for sessions that have no
// real identity system wired in.
package profile

import "math/rand/v2"

// Profile is a transient mock identity. Email is empty when profile emails
// are disabled; it is never persisted beyond the tracker slots it is
// written into.
type Profile struct {
	Name  string
	Email string
	Site  string
}

// Slot names the profile is written under.
const (
	SlotName  = "profile_name"
	SlotEmail = "email"
	SlotSite  = "profile_site"
)

type identity struct {
	name  string
	email string
}

var identities = []identity{
	{"Abel", "abel.tuter@example.com"},
	{"Abraham", "abraham.lincoln@example.com"},
	{"Adela", "adela.cervantsz@example.com"},
	{"Aileen", "aileen.mottern@example.com"},
	{"Allyson", "allyson.gillispie@example.com"},
	{"Alva", "alva.pennigton@example.com"},
	{"Amos", "amos.linnan@example.com"},
}

var sites = []string{
	"Berlin",
	"San Francisco",
	"Seattle",
	"London",
	"Austin",
	"Dallas",
	"New York",
	"Zürich",
}

// Generate returns a uniformly random mock profile. The email is included
// only when withEmail is set.
func Generate(withEmail bool) Profile {
	id := identities[rand.IntN(len(identities))]
	p := Profile{
		Name: id.name,
		Site: sites[rand.IntN(len(sites))],
	}
	if withEmail {
		p.Email = id.email
	}
	return p
}
