package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"helpdesk-be/internal/config"
	"helpdesk-be/internal/docstore"
	"helpdesk-be/internal/dto"
	"helpdesk-be/internal/pkg/logger"
	"helpdesk-be/internal/repository/unitofwork"
	"helpdesk-be/internal/service"
	"helpdesk-be/pkg/apperr"
	"helpdesk-be/pkg/changefeed"
	"helpdesk-be/pkg/database"
	"helpdesk-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// seedNode has both tag sets: it is read from YAML and handed to the content
// service in the stored JSON shape.
type seedNode struct {
	ID          string            `yaml:"id" json:"id"`
	Name        map[string]string `yaml:"name" json:"name"`
	Icon        string            `yaml:"icon" json:"icon,omitempty"`
	Answer      map[string]string `yaml:"answer" json:"answer,omitempty"`
	LeadsToChat bool              `yaml:"leadsToChat" json:"leadsToChat,omitempty"`
	Children    []seedNode        `yaml:"children" json:"children,omitempty"`
}

type seedFile struct {
	Branding struct {
		OrganizationName string `yaml:"organizationName"`
		WelcomeMessage   string `yaml:"welcomeMessage"`
		LogoUrl          string `yaml:"logoUrl"`
	} `yaml:"branding"`
	Operators []struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"operators"`
	Tree []seedNode `yaml:"tree"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func main() {
	path := flag.String("file", "cmd/seed/seed.yaml", "seed file")
	flag.Parse()

	cfg := config.Load()
	if cfg.Database.Connection == "" {
		color.Red("DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		color.Red("Failed to read %s: %v", *path, err)
		os.Exit(1)
	}
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		color.Red("Failed to parse %s: %v", *path, err)
		os.Exit(1)
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection, true)
	if err != nil {
		color.Red("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	log := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	defer log.Sync()

	// Running servers learn about the seeded content through Redis.
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		if opt, err := redis.ParseURL(cfg.App.RedisURL); err == nil {
			rdb = redis.NewClient(opt)
			defer rdb.Close()
		}
	}
	feed := changefeed.NewFeed(gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{}), rdb, "seed", log)
	defer feed.Close()

	st := docstore.NewStore(unitofwork.NewRepositoryFactory(db), feed, log)
	publisher := events.NewPublisher(nil, log)
	content := service.NewContentService(st, cfg.Content, publisher, log)
	auth := service.NewAuthService(st, cfg.Content.OperatorCollection, cfg.Auth, log)
	ctx := context.Background()

	color.Cyan("Seeding help desk content from %s", *path)

	color.Yellow("\n1. Knowledge tree")
	treeDoc, err := json.Marshal(map[string]any{"tree": seed.Tree})
	if err != nil {
		color.Red("Failed to encode tree: %v", err)
		os.Exit(1)
	}
	res, err := content.ReplaceTree(ctx, "seed", treeDoc)
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Stored %d nodes", res.NodeCount)

	color.Yellow("\n2. Branding")
	b := seed.Branding
	branding, err := content.UpdateBranding(ctx, "seed", &dto.UpdateBrandingRequest{
		OrganizationName: optional(b.OrganizationName),
		WelcomeMessage:   optional(b.WelcomeMessage),
		LogoUrl:          optional(b.LogoUrl),
	})
	if err != nil {
		color.Red("Failed: %v", err)
		os.Exit(1)
	}
	color.Green("Branding: %s", branding.OrganizationName)

	color.Yellow("\n3. Operators")
	for _, op := range seed.Operators {
		created, err := auth.CreateOperator(ctx, &dto.CreateOperatorRequest{Name: op.Name, Email: op.Email, Password: op.Password})
		if apperr.IsWriteFailure(err) {
			color.Yellow("Operator %s already exists, skipping...", op.Email)
			continue
		}
		if err != nil {
			color.Red("Failed to create operator %s: %v", op.Email, err)
			continue
		}
		color.Green("Created operator: %s", created.Email)
	}

	color.Cyan("\nSeeding completed!")
}
