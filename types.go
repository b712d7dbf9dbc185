package vaultsync

import "time"

// BlogPost is a post as persisted in the blog_posts table.
type BlogPost struct {
	Name        string
	Description string
	Text        string
	Released    bool
	ReleaseDate *time.Time
	LastUpdated *time.Time
	ContentHash string
}

// Link is the public path of the post page.
func (p BlogPost) Link() string {
	return "/blog/" + PathEscape(p.Name) + "/"
}

// Image is an image as persisted in the images table. Data is only
// populated by GetImage; listings leave it nil and fill Size instead.
type Image struct {
	Name        string
	Data        []byte
	Size        int
	Released    bool
	ContentHash string
}

// Link is the public path of the image.
func (i Image) Link() string {
	return "/images/" + PathEscape(i.Name)
}

// PostJSON is the wire shape of a post in the JSON API. Dates use the
// "2006-01-02 15:04" layout and are null until set by the store.
type PostJSON struct {
	Name        string  `json:"post_name"`
	Description string  `json:"description"`
	Text        string  `json:"text"`
	HTML        string  `json:"html,omitempty"`
	Released    bool    `json:"released"`
	ReleaseDate *string `json:"release_date"`
	LastUpdated *string `json:"last_updated"`
}

// ToJSON converts p to its API representation.
func (p BlogPost) ToJSON() PostJSON {
	return PostJSON{
		Name:        p.Name,
		Description: p.Description,
		Text:        p.Text,
		Released:    p.Released,
		ReleaseDate: formatDisplayTime(p.ReleaseDate),
		LastUpdated: formatDisplayTime(p.LastUpdated),
	}
}

// SyncResult summarizes one vault sync.
type SyncResult struct {
	NewPosts      []string  `json:"new_posts"`
	NewImages     []string  `json:"new_images"`
	UpdatedPosts  []string  `json:"updated_posts"`
	UpdatedImages []string  `json:"updated_images"`
	ScannedAt     time.Time `json:"scanned_at"`
}

// Changed reports whether the sync wrote anything.
func (r SyncResult) Changed() bool {
	return len(r.NewPosts)+len(r.NewImages)+len(r.UpdatedPosts)+len(r.UpdatedImages) > 0
}
