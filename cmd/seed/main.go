package main

import (
	"context"
	"log"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/joho/godotenv"

	"github.com/xokuso/peluquerias-app-sub003/internal/config"
	"github.com/xokuso/peluquerias-app-sub003/internal/db"
	"github.com/xokuso/peluquerias-app-sub003/internal/model"
	"github.com/xokuso/peluquerias-app-sub003/internal/repository"
)

// catalog is the initial template lineup. Prices are in euros.
var catalog = []model.Template{
	{
		Name:     "Básica",
		Slug:     "basic",
		Category: "salon",
		Price:    decimal.NewFromInt(299),
		Features: `["one-page design","contact form","map","gallery"]`,
		Active:   true,
	},
	{
		Name:     "Premium",
		Slug:     "premium",
		Category: "salon",
		Price:    decimal.NewFromInt(499),
		Features: `["multi-page design","online booking","gallery","blog"]`,
		Active:   true,
	},
	{
		Name:     "Deluxe",
		Slug:     "deluxe",
		Category: "barbershop",
		Price:    decimal.NewFromInt(799),
		Features: `["multi-page design","online booking","store","custom branding"]`,
		Active:   true,
	},
}

func main() {
	log.Println("Starting seed script...")

	_ = godotenv.Load()
	cfg := config.Load()

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	if err := gormDB.AutoMigrate(&model.User{}, &model.Template{}); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	ctx := context.Background()
	templateRepo := repository.NewTemplateRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)

	seeded := 0
	for _, t := range catalog {
		if _, err := templateRepo.FindBySlug(ctx, t.Slug); err == nil {
			continue
		} else if err != gorm.ErrRecordNotFound {
			log.Fatalf("Failed to check template %s: %v", t.Slug, err)
		}
		template := t
		if err := templateRepo.Create(ctx, &template); err != nil {
			log.Fatalf("Failed to seed template %s: %v", t.Slug, err)
		}
		seeded++
	}
	log.Printf("Seeded %d templates (%d already present)", seeded, len(catalog)-seeded)

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Println("ADMIN_EMAIL / ADMIN_PASSWORD not set, skipping admin user")
		return
	}

	if _, err := userRepo.FindByEmail(ctx, adminEmail); err == nil {
		log.Printf("Admin user %s already exists", adminEmail)
		return
	} else if err != gorm.ErrRecordNotFound {
		log.Fatalf("Failed to check admin user: %v", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), 10)
	if err != nil {
		log.Fatalf("Failed to hash admin password: %v", err)
	}
	admin := &model.User{
		Email:                  adminEmail,
		Name:                   "Admin",
		PasswordHash:           string(hashed),
		Role:                   model.RoleAdmin,
		IsActive:               true,
		HasCompletedOnboarding: true,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		log.Fatalf("Failed to create admin user: %v", err)
	}
	log.Printf("Created admin user %s", adminEmail)
}
