package domain

// Film is the catalog record the streaming core consumes. Only ID and
// MagnetLink matter here; the remaining fields ride along so /api/films can
// return the catalog unmodified.
type Film struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	PosterURL   string   `json:"posterUrl,omitempty"`
	PosterHint  string   `json:"posterHint,omitempty"`
	ReleaseYear int      `json:"releaseYear,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Rating      float64  `json:"rating,omitempty"`
	Actors      []string `json:"actors,omitempty"`
	MagnetLink  string   `json:"magnetLink"`
	Featured    bool     `json:"featured,omitempty"`
}
