package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/frahmantamala/lead-management/internal"
	"github.com/frahmantamala/lead-management/internal/auth"
	authPostgres "github.com/frahmantamala/lead-management/internal/auth/postgres"
	"github.com/frahmantamala/lead-management/internal/core/events"
	"github.com/frahmantamala/lead-management/internal/lead"
	leadPostgres "github.com/frahmantamala/lead-management/internal/lead/postgres"
	"github.com/frahmantamala/lead-management/internal/source"
	sourcePostgres "github.com/frahmantamala/lead-management/internal/source/postgres"
	userPostgres "github.com/frahmantamala/lead-management/internal/user/postgres"
	"github.com/frahmantamala/lead-management/pkg/logger"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample users, lead sources and leads for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, gdb, err := initStores(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if err := runSeed(context.Background(), gdb, cfg.Leads.DefaultPhoneRegion); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	},
}

// seedTables are cleared children first.
var seedTables = []string{"notifications", "activities", "lead_history", "leads", "lead_sources", "users"}

type seedUser struct {
	Name  string
	Email string
	Role  auth.Role
}

var seedUsers = []seedUser{
	{"Ada Admin", "admin@leads.local", auth.RoleAdmin},
	{"Mona Manager", "manager@leads.local", auth.RoleManager},
	{"Sam Sales", "sam@leads.local", auth.RoleSales},
	{"Sara Sales", "sara@leads.local", auth.RoleSales},
}

func runSeed(ctx context.Context, gdb *gorm.DB, phoneRegion string) error {
	lg := logger.LoggerWrapper()

	if clearData {
		for _, table := range seedTables {
			if err := gdb.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		fmt.Println("Cleared existing data")
	}

	password := "password123"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	accounts := authPostgres.NewRepository(gdb)
	seeded := make(map[auth.Role][]*auth.Account)
	for _, u := range seedUsers {
		account, err := accounts.GetByEmail(ctx, u.Email)
		if errors.Is(err, internal.ErrUserNotFound) {
			account = &auth.Account{
				Name:         u.Name,
				Email:        u.Email,
				PasswordHash: string(hash),
				Role:         u.Role,
				IsActive:     true,
			}
			if err := accounts.Create(ctx, account); err != nil {
				return fmt.Errorf("insert user %s: %w", u.Email, err)
			}
			fmt.Printf("Seeded %s user: %s\n", u.Role, u.Email)
		} else if err != nil {
			return fmt.Errorf("lookup user %s: %w", u.Email, err)
		} else {
			fmt.Printf("%s already exists\n", u.Email)
		}
		seeded[u.Role] = append(seeded[u.Role], account)
	}
	fmt.Println("Seeded users share the password:", password)

	n, err := source.NewService(sourcePostgres.NewSourceRepository(gdb), lg).EnsureDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed lead sources: %w", err)
	}
	fmt.Printf("Seeded %d lead sources\n", n)

	var leadCount int64
	if err := gdb.WithContext(ctx).Table("leads").Count(&leadCount).Error; err != nil {
		return fmt.Errorf("count leads: %w", err)
	}
	if leadCount > 0 {
		fmt.Println("Leads already present, skipping sample leads")
		return nil
	}

	admin := seeded[auth.RoleAdmin][0]
	actor := &auth.Principal{ID: admin.ID, Name: admin.Name, Email: admin.Email, Role: admin.Role}
	leads := lead.NewService(leadPostgres.NewLeadRepository(gdb), userPostgres.NewUserRepository(gdb), events.NewEventBus(lg), phoneRegion, lg)

	samples := []lead.CreateLeadDTO{
		{FirstName: "Jane", LastName: "Doe", Email: "jane@acme.test", Company: "Acme", Source: "WEBSITE"},
		{FirstName: "John", LastName: "Roe", Phone: "(201) 555-0123", Company: "Globex", Source: "REFERRAL", Status: "CONTACTED"},
		{FirstName: "Ivy", LastName: "Lane", Email: "ivy@initech.test", Company: "Initech", Source: "COLD_CALL", Status: "QUALIFIED"},
		{FirstName: "Max", LastName: "Hill", Email: "max@umbrella.test", Company: "Umbrella", Source: "EVENT", Status: "WON"},
		{FirstName: "Zoe", LastName: "Park", Email: "zoe@hooli.test", Company: "Hooli", Source: "SOCIAL", Status: "LOST"},
	}
	reps := seeded[auth.RoleSales]
	for i, dto := range samples {
		owner := reps[i%len(reps)].ID
		dto.OwnerID = &owner
		l, err := leads.CreateLead(ctx, actor, dto)
		if err != nil {
			return fmt.Errorf("insert lead %s: %w", dto.FirstName, err)
		}
		fmt.Printf("Seeded lead #%d %s owned by user %d\n", l.ID, l.FullName(), l.OwnerID)
	}

	fmt.Println("Sample data seeded successfully")
	return nil
}
