package seed

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	appModels "github.com/deniz/labstock/internal/app/models"
	appRepos "github.com/deniz/labstock/internal/app/repositories"
	"github.com/deniz/labstock/internal/pkg/auth"
)

// CreateDefaultData creates a default mentor account and a small starter
// catalog so a fresh deployment is usable immediately.
func CreateDefaultData(ctx context.Context, dbPool *pgxpool.Pool, lgr zerolog.Logger) error {
	userRepo := appRepos.NewUserRepository(dbPool)
	componentRepo := appRepos.NewComponentRepository(dbPool)

	lgr.Info().Msg("Checking/Creating default data...")
	var finalErr error

	// --- Default mentor account --- //
	const mentorEmail = "mentor@labstock.app"
	exists, err := userRepo.EmailExists(ctx, mentorEmail)
	if err != nil {
		lgr.Error().Err(err).Msg("Error checking if default mentor exists")
		finalErr = errors.Join(finalErr, err)
	} else if !exists {
		lgr.Info().Msg("Creating default mentor account...")

		hashedPassword, err := auth.HashPassword("Mentor123!")
		if err != nil {
			lgr.Error().Err(err).Msg("Error hashing default mentor password")
			finalErr = errors.Join(finalErr, err)
		} else {
			mentor := &appModels.User{
				Email:    mentorEmail,
				Password: hashedPassword,
				Name:     "Lab Mentor",
				RoleType: appModels.RoleMentor,
			}
			if _, err := userRepo.CreateUser(ctx, mentor); err != nil {
				lgr.Error().Err(err).Msg("Error creating default mentor")
				finalErr = errors.Join(finalErr, err)
			} else {
				lgr.Info().Str("email", mentorEmail).Msg("Default mentor created")
			}
		}
	}

	// --- Starter catalog --- //
	components, err := componentRepo.GetAllComponents(ctx)
	if err != nil {
		lgr.Error().Err(err).Msg("Error checking component catalog")
		return errors.Join(finalErr, err)
	}

	if len(components) == 0 {
		lgr.Info().Msg("Seeding starter component catalog...")

		starters := []*appModels.Component{
			{Name: "Arduino Uno R3", Description: "Microcontroller board, 5V logic", TotalQuantity: 10, AvailableQuantity: 10},
			{Name: "Raspberry Pi 4 Model B", Description: "Single board computer, 4GB RAM", TotalQuantity: 5, AvailableQuantity: 5},
			{Name: "HC-SR04 Ultrasonic Sensor", Description: "Distance sensor, 2cm-400cm range", TotalQuantity: 20, AvailableQuantity: 20},
		}
		for _, component := range starters {
			if _, err := componentRepo.CreateComponent(ctx, component); err != nil {
				lgr.Error().Err(err).Str("name", component.Name).Msg("Error seeding component")
				finalErr = errors.Join(finalErr, err)
			}
		}
	}

	return finalErr
}
