package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/perejack/globalvisaapplication/internal/application"
	applicationpostgres "github.com/perejack/globalvisaapplication/internal/application/postgres"
	"github.com/perejack/globalvisaapplication/internal/auth"
	applicationdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/application"
	bookingdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/booking"
	paymentdatamodel "github.com/perejack/globalvisaapplication/internal/core/datamodel/payment"
	"github.com/perejack/globalvisaapplication/pkg/logger"
)

var (
	clearData bool
	seedUser  string
	seedEmail string
	seedRole  string
	tokenTTL  time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Insert a demo visa application for a user and print a development access token for them.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		gormDB, err := initGorm(db)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if seedUser == "" {
			seedUser = uuid.NewString()
		} else if _, err := uuid.Parse(seedUser); err != nil {
			log.Fatalf("--user must be a uuid: %v", err)
		}

		if clearData {
			if err := gormDB.Where("user_id = ?", seedUser).Delete(&paymentdatamodel.PaymentSession{}).Error; err != nil {
				log.Fatalf("failed to clear payment sessions: %v", err)
			}
			if err := gormDB.Where("user_id = ?", seedUser).Delete(&bookingdatamodel.InterviewBooking{}).Error; err != nil {
				log.Fatalf("failed to clear interview bookings: %v", err)
			}
			if err := gormDB.Where("user_id = ?", seedUser).Delete(&applicationdatamodel.Application{}).Error; err != nil {
				log.Fatalf("failed to clear applications: %v", err)
			}
			fmt.Println("Cleared existing data for user:", seedUser)
		}

		service := application.NewService(applicationpostgres.NewApplicationRepository(gormDB), logger.LoggerWrapper())
		app, err := service.Submit(cmd.Context(), seedUser, &application.SubmitApplicationRequest{
			FirstName:      "Amina",
			LastName:       "Otieno",
			Email:          seedEmail,
			Phone:          "0712345678",
			DateOfBirth:    "1994-03-18",
			Nationality:    "Kenyan",
			VisaType:       "Work Permit",
			PurposeOfVisit: "Employment",
		})
		if err != nil {
			log.Fatalf("failed to seed application: %v", err)
		}
		fmt.Printf("Seeded application %s (card %s, expires %s)\n", app.ID, app.CardNumber, app.ExpiryDate)

		token, err := auth.IssueTokenWithRole(cfg.Auth.JWTSecret, cfg.Auth.Audience, seedUser, seedEmail, seedRole, tokenTTL)
		if err != nil {
			log.Fatalf("failed to issue token: %v", err)
		}
		fmt.Println("User:", seedUser)
		fmt.Println("Role:", seedRole)
		fmt.Println("Token:", token)
	},
}

func init() {
	seedCmd.Flags().BoolVar(&clearData, "clear", false, "Clear existing data for the user before seeding")
	seedCmd.Flags().StringVar(&seedUser, "user", "", "user id (uuid) to own the demo application; random when empty")
	seedCmd.Flags().StringVar(&seedEmail, "email", "amina.otieno@example.com", "email placed in the application and token")
	seedCmd.Flags().StringVar(&seedRole, "role", auth.DefaultAudience, `token role; "admin" opens the back-office endpoints`)
	seedCmd.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed development token")
}
