// Command seeder fills a development database with fake users, profiles,
// posts of every category, stories, comments and reactions.
//
//	go run ./cmd/seeder -users 20 -posts 5
//
// It uses the same configuration as the server (MONGODB_URI or DB_PATH) and
// goes through the service layer, so every record obeys the same rules as
// one created over HTTP. All accounts share the password given by -password.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/sakif/storyline/internal/auth"
	"github.com/sakif/storyline/internal/config"
	"github.com/sakif/storyline/internal/model"
	"github.com/sakif/storyline/internal/repository"
	"github.com/sakif/storyline/internal/repository/mongodb"
	"github.com/sakif/storyline/internal/repository/sqlite"
	"github.com/sakif/storyline/internal/service"
)

type seeder struct {
	fake      *gofakeit.Faker
	logger    *slog.Logger
	accounts  *service.AuthService
	profiles  *service.ProfileService
	posts     *service.PostService
	stories   *service.StoryService
	comments  *service.CommentService
	reactions *service.ReactionService
}

// content is one created post or story that can be commented on.
type content struct {
	kind model.ContentKind
	id   string
}

func main() {
	users := flag.Int("users", 10, "number of users to create")
	posts := flag.Int("posts", 3, "posts per user")
	password := flag.String("password", "secret123", "password of every seeded account")
	seed := flag.Int64("seed", 0, "random seed (0 picks one)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	if err := run(context.Background(), cfg, logger, *users, *posts, *password, *seed); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, users, posts int, password string, seed int64) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	d := service.Deps{
		Store:     store,
		Tokens:    tokens,
		Passwords: auth.NewPasswordService(cfg.BcryptCost),
		Logger:    logger,
	}
	s := &seeder{
		fake:      gofakeit.New(seed),
		logger:    logger,
		accounts:  service.NewAuthService(d),
		profiles:  service.NewProfileService(d),
		posts:     service.NewPostService(d),
		stories:   service.NewStoryService(d),
		comments:  service.NewCommentService(d),
		reactions: service.NewReactionService(d),
	}

	return s.seed(ctx, users, posts, password)
}

func (s *seeder) seed(ctx context.Context, users, postsPerUser int, password string) error {
	var userIDs []string
	for range users {
		id, err := s.user(ctx, password)
		if err != nil {
			return err
		}
		userIDs = append(userIDs, id)
	}

	var items []content
	for _, userID := range userIDs {
		for range postsPerUser {
			id, err := s.post(ctx, userID)
			if err != nil {
				return err
			}
			items = append(items, content{kind: model.KindPost, id: id})
		}

		story, err := s.stories.Create(ctx, userID, service.StoryInput{
			Title: s.fake.Sentence(4),
			Text:  s.fake.Paragraph(2, 3, 12, " "),
		})
		if err != nil {
			return fmt.Errorf("creating story: %w", err)
		}
		items = append(items, content{kind: model.KindStory, id: story.ID})
	}

	if len(userIDs) == 0 {
		return nil
	}

	var comments int
	for _, item := range items {
		for range s.fake.Number(0, 3) {
			author := userIDs[s.fake.Number(0, len(userIDs)-1)]
			parent := model.ParentRef{Kind: item.kind, ID: item.id}
			if _, err := s.comments.Create(ctx, author, parent, s.fake.Sentence(8)); err != nil {
				return fmt.Errorf("creating comment: %w", err)
			}
			comments++
		}

		for _, userID := range userIDs {
			if s.fake.Number(0, 2) > 0 {
				continue
			}
			reaction := model.Like
			if s.fake.Bool() {
				reaction = model.Dislike
			}
			if _, err := s.reactions.Toggle(ctx, userID, item.kind, item.id, reaction); err != nil {
				return fmt.Errorf("toggling reaction: %w", err)
			}
		}
	}

	s.logger.Info("seeding complete",
		slog.Int("users", len(userIDs)),
		slog.Int("content", len(items)),
		slog.Int("comments", comments),
	)
	return nil
}

func (s *seeder) user(ctx context.Context, password string) (string, error) {
	res, err := s.accounts.Register(ctx, service.RegisterInput{
		Name:     s.fake.Name(),
		Email:    s.fake.Email(),
		Password: password,
	})
	if err != nil {
		return "", fmt.Errorf("registering user: %w", err)
	}

	bio := s.fake.JobTitle() + ". " + s.fake.HackerPhrase()
	skills := []string{s.fake.ProgrammingLanguage(), s.fake.ProgrammingLanguage(), s.fake.HackerNoun()}
	if _, err := s.profiles.Upsert(ctx, res.User.ID, service.ProfileInput{Bio: &bio, Skills: &skills}); err != nil {
		return "", fmt.Errorf("updating profile: %w", err)
	}

	s.logger.Debug("seeded user", slog.String("email", res.User.Email))
	return res.User.ID, nil
}

// post creates a post of a random category.
func (s *seeder) post(ctx context.Context, userID string) (string, error) {
	category := model.Categories[s.fake.Number(0, len(model.Categories)-1)]

	in := service.PostInput{Title: s.fake.Sentence(5)}
	if category.IsMedia() {
		in.URL = s.fake.URL()
		in.Description = s.fake.Sentence(10)
	} else {
		in.Text = s.fake.Paragraph(1, 4, 10, " ")
	}

	post, err := s.posts.Create(ctx, userID, string(category), in)
	if err != nil {
		return "", fmt.Errorf("creating %s post: %w", category, err)
	}
	return post.ID, nil
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	if cfg.MongoURI != "" {
		return mongodb.Connect(ctx, mongodb.Options{
			URI:          cfg.MongoURI,
			Database:     cfg.MongoDatabase,
			Transactions: cfg.MongoTransactions,
		})
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, err
	}
	return sqlite.New(cfg.DBPath)
}
