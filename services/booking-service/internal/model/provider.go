package model

// Provider is a staff member customers book with.
type Provider struct {
	ID        string
	Name      string
	Specialty string
	AvatarURL string
	Bio       string
}

// DefaultProviders seeds an empty roster.
func DefaultProviders() []Provider {
	return []Provider{
		{ID: "b1", Name: `Alex "The Fade" Miller`, Specialty: "Fades & modern cuts", AvatarURL: "https://picsum.photos/100/100?random=1", Bio: "Skin fades and texture work."},
		{ID: "b2", Name: "Sarah Scissors", Specialty: "Long hair & styling", AvatarURL: "https://picsum.photos/100/100?random=2", Bio: "Ten years of complex layered cuts."},
		{ID: "b3", Name: "Davide Classic", Specialty: "Beards & classic cuts", AvatarURL: "https://picsum.photos/100/100?random=3", Bio: "Old-school technique with a modern finish."},
	}
}
