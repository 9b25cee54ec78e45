package model

// Profile is the one-per-user public page. Posts and Stories reference the
// user's content, most recent first.
type Profile struct {
	ID      string   `json:"_id"     bson:"_id"`
	UserID  string   `json:"user"    bson:"user"`
	Bio     string   `json:"bio"     bson:"bio"`
	Skills  []string `json:"skills"  bson:"skills"`
	Posts   []string `json:"posts"   bson:"posts"`
	Stories []string `json:"stories" bson:"stories"`
}

// NewProfile returns the empty profile created alongside every new user.
func NewProfile(userID string) *Profile {
	return &Profile{
		UserID:  userID,
		Skills:  []string{},
		Posts:   []string{},
		Stories: []string{},
	}
}

// Refs returns the reference list holding content of the given kind.
func (p *Profile) Refs(kind ContentKind) []string {
	if kind == KindStory {
		return p.Stories
	}
	return p.Posts
}
