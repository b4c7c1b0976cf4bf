package repository

import (
	"context"
	"errors"
	"fmt"

	"astra/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrProfileNotFound is returned when no profile row exists for a user.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileRepository loads the astrological profile of a user.
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
}

type profileRepo struct {
	pool *pgxpool.Pool
}

// NewProfileRepo creates a new ProfileRepository.
func NewProfileRepo(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepo{pool: pool}
}

func (r *profileRepo) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	const q = `
        SELECT id,
               COALESCE(first_name, ''),
               COALESCE(sun_sign, ''),
               COALESCE(moon_sign, ''),
               COALESCE(ascendant_sign, ''),
               COALESCE(energy_fire, 0),
               COALESCE(energy_earth, 0),
               COALESCE(energy_air, 0),
               COALESCE(energy_water, 0),
               COALESCE(bio, '')
        FROM profiles
        WHERE id = $1
    `
	var p model.Profile
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&p.UserID,
		&p.FirstName,
		&p.SunSign,
		&p.MoonSign,
		&p.AscendantSign,
		&p.Energies.Fire,
		&p.Energies.Earth,
		&p.Energies.Air,
		&p.Energies.Water,
		&p.Bio,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("fetch profile for user %s: %w", userID, err)
	}
	return &p, nil
}
