package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/sakif/storyline/internal/apperror"
	"github.com/sakif/storyline/internal/model"
)

func (db *DB) CreateProfile(ctx context.Context, profile *model.Profile) error {
	profile.ID = xid.New().String()
	normalizeProfile(profile)

	doc, err := encodeDoc(profile)
	if err != nil {
		return err
	}

	_, err = db.q.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, doc) VALUES (?, ?, ?)`,
		profile.ID, profile.UserID, doc,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("Profile already exists")
		}
		return fmt.Errorf("sqlite: creating profile: %w", err)
	}
	return nil
}

func (db *DB) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	return getDoc[model.Profile](ctx, db.q, "Profile", id,
		`SELECT doc FROM profiles WHERE id = ?`, id)
}

func (db *DB) GetProfileByUser(ctx context.Context, userID string) (*model.Profile, error) {
	return getDoc[model.Profile](ctx, db.q, "Profile", userID,
		`SELECT doc FROM profiles WHERE user_id = ?`, userID)
}

func (db *DB) ListProfiles(ctx context.Context) ([]model.Profile, error) {
	return listDocs[model.Profile](ctx, db.q, `SELECT doc FROM profiles ORDER BY id`)
}

// UpdateProfile writes bio and skills, keeping the stored reference lists.
func (db *DB) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	return db.mutateProfile(ctx, profile.UserID, func(stored *model.Profile) {
		stored.Bio = profile.Bio
		stored.Skills = profile.Skills
		*profile = *stored
	})
}

func (db *DB) PushProfileRef(ctx context.Context, userID string, kind model.ContentKind, contentID string) error {
	return db.mutateProfile(ctx, userID, func(p *model.Profile) {
		setRefs(p, kind, pushRef(p.Refs(kind), contentID))
	})
}

func (db *DB) PullProfileRef(ctx context.Context, userID string, kind model.ContentKind, contentID string) error {
	return ignoreNotFound(db.mutateProfile(ctx, userID, func(p *model.Profile) {
		setRefs(p, kind, pullRef(p.Refs(kind), contentID))
	}))
}

func (db *DB) DeleteProfileByUser(ctx context.Context, userID string) error {
	if _, err := db.q.ExecContext(ctx, `DELETE FROM profiles WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: deleting profile of user %s: %w", userID, err)
	}
	return nil
}

// mutateProfile is a transactional read-modify-write of one profile document.
func (db *DB) mutateProfile(ctx context.Context, userID string, fn func(*model.Profile)) error {
	return db.withTx(ctx, func(tx *DB) error {
		p, err := tx.GetProfileByUser(ctx, userID)
		if err != nil {
			return err
		}
		fn(p)
		normalizeProfile(p)
		return tx.writeDoc(ctx, "profiles", p.ID, p)
	})
}

func setRefs(p *model.Profile, kind model.ContentKind, refs []string) {
	if kind == model.KindStory {
		p.Stories = refs
		return
	}
	p.Posts = refs
}

func normalizeProfile(p *model.Profile) {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Posts == nil {
		p.Posts = []string{}
	}
	if p.Stories == nil {
		p.Stories = []string{}
	}
}
