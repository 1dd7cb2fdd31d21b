package main

import (
	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/repository"
)

// Repositories holds the pool-backed repositories. Services that need a
// transaction build short-lived ones over the tx querier instead.
type Repositories struct {
	User        repository.UserRepository
	ResetToken  repository.PasswordResetRepository
	Server      repository.ServerRepository
	Owner       repository.OwnerRepository
	Measurement repository.MeasurementRepository
	Prediction  repository.PredictionRepository
	Claim       repository.ClaimRepository
	Featured    repository.FeaturedRepository
}

// initRepositories shares db.Query between all repositories; it is the
// connection pool wrapped with slow-query logging.
func initRepositories(db *database.DB) *Repositories {
	q := db.Query
	return &Repositories{
		User:        repository.NewSQLiteUserRepo(q),
		ResetToken:  repository.NewSQLiteResetTokenRepo(q),
		Server:      repository.NewSQLiteServerRepo(q),
		Owner:       repository.NewSQLiteOwnerRepo(q),
		Measurement: repository.NewSQLiteMeasurementRepo(q),
		Prediction:  repository.NewSQLitePredictionRepo(q),
		Claim:       repository.NewSQLiteClaimRepo(q),
		Featured:    repository.NewSQLiteFeaturedRepo(q),
	}
}
