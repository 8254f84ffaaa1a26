package model

import "time"

// Post is a blog entry.
//
// OwnerID is set from the session at creation time and never changes
// afterwards. Owner (the username) is filled in by the repository on reads
// so templates can show "by alice" without a second lookup.
type Post struct {
	ID        string    `json:"id"        db:"id"`
	Title     string    `json:"title"     db:"title"`
	Slug      string    `json:"slug"      db:"slug"`
	Body      string    `json:"body"      db:"body"`
	OwnerID   string    `json:"ownerId"   db:"owner_id"`
	Owner     string    `json:"owner"     db:"-"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
	Tags      []Tag     `json:"tags"      db:"-"`
}

// IsOwnedBy reports whether userID owns the post.
// Both the update and the delete handler go through this one check.
func (p *Post) IsOwnedBy(userID string) bool {
	return userID != "" && p.OwnerID == userID
}

// TagNames returns the names of the post's tags, in order.
func (p *Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

// Tag is a free-form label. Posts and tags are many-to-many.
type Tag struct {
	ID   string `json:"id"   db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Comment is a reader comment on a post. Comments are public: the author is
// identified by the name/email typed into the form, not by an account.
type Comment struct {
	ID        string    `json:"id"        db:"id"`
	PostID    string    `json:"postId"    db:"post_id"`
	Name      string    `json:"name"      db:"name"`
	Email     string    `json:"email"     db:"email"`
	Body      string    `json:"body"      db:"body"`
	Active    bool      `json:"active"    db:"active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
