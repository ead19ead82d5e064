package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProfileNotFound = errors.New("profile not found")

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

type ViewerContext struct {
	UserID                 int64
	Gender                 string
	InterestedIn           string
	IsActive               bool
	IsDiscoverable         bool
	GlobalDiscoveryEnabled bool
	AgeMin                 int
	AgeMax                 int
	MaxDistanceKM          int
	LastLat                *float64
	LastLon                *float64
	NotificationsEnabled   bool
	LastActiveAt           time.Time
}

type ViewerPreferences struct {
	Heritage        []string
	Religion        []string
	Languages       []string
	HeightMinCM     int
	HeightMaxCM     int
	Education       []string
	Children        []string
	FamilyPlans     []string
	Drugs           []string
	Smoking         []string
	Marijuana       []string
	Drinking        []string
	SpokenLanguages []string
}

type CandidateRecord struct {
	UserID       int64
	DisplayName  string
	Age          int
	Heritage     []string
	Religion     []string
	Languages    []string
	HeightCM     int
	Education    string
	Children     string
	FamilyPlans  string
	Drugs        string
	Smoking      string
	Marijuana    string
	Drinking     string
	PrimaryPhoto string
	DistanceKM   *float64
	LastActiveAt time.Time
}

type CandidateQuery struct {
	ViewerUserID  int64
	ViewerGender  string
	InterestedIn  string
	AgeMin        int
	AgeMax        int
	ViewerLat     *float64
	ViewerLon     *float64
	MaxDistanceKM int
	Limit         int
	Now           time.Time
}

func (r *ProfileRepo) GetViewerContext(ctx context.Context, userID int64) (ViewerContext, error) {
	if userID <= 0 {
		return ViewerContext{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return ViewerContext{}, ErrProfileNotFound
	}

	var viewer ViewerContext
	err := r.pool.QueryRow(ctx, `
SELECT
	user_id,
	COALESCE(gender, ''),
	COALESCE(interested_in, ''),
	is_active,
	is_discoverable,
	global_discovery_enabled,
	age_min,
	age_max,
	max_distance_km,
	last_lat,
	last_lon,
	notifications_enabled,
	last_active_at
FROM profiles
WHERE user_id = $1
LIMIT 1
`, userID).Scan(
		&viewer.UserID,
		&viewer.Gender,
		&viewer.InterestedIn,
		&viewer.IsActive,
		&viewer.IsDiscoverable,
		&viewer.GlobalDiscoveryEnabled,
		&viewer.AgeMin,
		&viewer.AgeMax,
		&viewer.MaxDistanceKM,
		&viewer.LastLat,
		&viewer.LastLon,
		&viewer.NotificationsEnabled,
		&viewer.LastActiveAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ViewerContext{}, ErrProfileNotFound
		}
		return ViewerContext{}, fmt.Errorf("get viewer context: %w", err)
	}

	return viewer, nil
}

func (r *ProfileRepo) GetViewerPreferences(ctx context.Context, userID int64) (ViewerPreferences, error) {
	if userID <= 0 {
		return ViewerPreferences{}, fmt.Errorf("invalid user id")
	}
	if r.pool == nil {
		return ViewerPreferences{}, nil
	}

	var prefs ViewerPreferences
	err := r.pool.QueryRow(ctx, `
SELECT
	COALESCE(heritage, '{}'),
	COALESCE(religion, '{}'),
	COALESCE(languages, '{}'),
	COALESCE(height_min_cm, 0),
	COALESCE(height_max_cm, 0),
	COALESCE(education, '{}'),
	COALESCE(children, '{}'),
	COALESCE(family_plans, '{}'),
	COALESCE(drugs, '{}'),
	COALESCE(smoking, '{}'),
	COALESCE(marijuana, '{}'),
	COALESCE(drinking, '{}'),
	COALESCE(spoken_languages, '{}')
FROM preferences
WHERE user_id = $1
LIMIT 1
`, userID).Scan(
		&prefs.Heritage,
		&prefs.Religion,
		&prefs.Languages,
		&prefs.HeightMinCM,
		&prefs.HeightMaxCM,
		&prefs.Education,
		&prefs.Children,
		&prefs.FamilyPlans,
		&prefs.Drugs,
		&prefs.Smoking,
		&prefs.Marijuana,
		&prefs.Drinking,
		&prefs.SpokenLanguages,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ViewerPreferences{}, nil
		}
		return ViewerPreferences{}, fmt.Errorf("get viewer preferences: %w", err)
	}

	return prefs, nil
}

const candidateColumns = `
	p.user_id,
	COALESCE(p.display_name, ''),
	DATE_PART('year', AGE($2::timestamptz, p.birthdate::timestamp))::int AS age,
	COALESCE(p.heritage, '{}'),
	COALESCE(p.religion, '{}'),
	COALESCE(p.languages, '{}'),
	COALESCE(p.height_cm, 0),
	COALESCE(p.education, ''),
	COALESCE(p.children, ''),
	COALESCE(p.family_plans, ''),
	COALESCE(p.drugs, ''),
	COALESCE(p.smoking, ''),
	COALESCE(p.marijuana, ''),
	COALESCE(p.drinking, ''),
	COALESCE(p.primary_photo_key, '')`

const candidateBasePredicates = `
	p.is_active = TRUE
	AND p.is_discoverable = TRUE
	AND p.user_id <> $1
	AND p.birthdate IS NOT NULL
	AND (
		LOWER($3) IN ('', 'all', 'any')
		OR LOWER(p.gender) = LOWER($3)
	)
	AND (
		LOWER(COALESCE(p.interested_in, '')) IN ('', 'all', 'any')
		OR LOWER(p.interested_in) = LOWER($4)
	)
	AND DATE_PART('year', AGE($2::timestamptz, p.birthdate::timestamp))::int BETWEEN $5 AND $6
	AND NOT EXISTS (
		SELECT 1
		FROM swipes s
		WHERE s.viewer_id = $1 AND s.target_id = p.user_id
	)
	AND NOT EXISTS (
		SELECT 1
		FROM swipes s
		WHERE s.viewer_id = p.user_id
			AND s.target_id = $1
			AND s.kind = 'UNMATCHED'
	)
	AND NOT EXISTS (
		SELECT 1
		FROM blocks b
		WHERE (b.actor_user_id = $1 AND b.target_user_id = p.user_id)
			OR (b.actor_user_id = p.user_id AND b.target_user_id = $1)
	)
	AND NOT EXISTS (
		SELECT 1
		FROM reports rp
		WHERE (rp.reporter_user_id = $1 AND rp.target_user_id = p.user_id)
			OR (rp.reporter_user_id = p.user_id AND rp.target_user_id = $1)
	)`

// ListLocalCandidates returns distance-bounded candidates ordered by the
// least recently active first, so long-unseen profiles surface again.
func (r *ProfileRepo) ListLocalCandidates(ctx context.Context, q CandidateQuery) ([]CandidateRecord, error) {
	if q.ViewerUserID <= 0 {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if q.ViewerLat == nil || q.ViewerLon == nil {
		return nil, fmt.Errorf("viewer location is required for local discovery")
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}
	if r.pool == nil {
		return []CandidateRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+candidateColumns+`,
	6371.0 * ACOS(LEAST(1.0, GREATEST(-1.0,
		COS(RADIANS($7::float8)) * COS(RADIANS(p.last_lat)) * COS(RADIANS(p.last_lon) - RADIANS($8::float8))
		+ SIN(RADIANS($7::float8)) * SIN(RADIANS(p.last_lat))
	))) AS distance_km,
	p.last_active_at
FROM profiles p
WHERE`+candidateBasePredicates+`
	AND p.last_lat IS NOT NULL
	AND p.last_lon IS NOT NULL
	AND (
		6371.0 * ACOS(LEAST(1.0, GREATEST(-1.0,
			COS(RADIANS($7::float8)) * COS(RADIANS(p.last_lat)) * COS(RADIANS(p.last_lon) - RADIANS($8::float8))
			+ SIN(RADIANS($7::float8)) * SIN(RADIANS(p.last_lat))
		)))
	) <= $9::float8
ORDER BY p.last_active_at ASC, p.user_id ASC
LIMIT $10
`,
		q.ViewerUserID,          // $1
		q.Now.UTC(),             // $2
		q.InterestedIn,          // $3
		q.ViewerGender,          // $4
		q.AgeMin,                // $5
		q.AgeMax,                // $6
		*q.ViewerLat,            // $7
		*q.ViewerLon,            // $8
		float64(q.MaxDistanceKM), // $9
		q.Limit,                 // $10
	)
	if err != nil {
		return nil, fmt.Errorf("list local candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, q.Limit, true)
}

// ListGlobalCandidates returns globally discoverable candidates with no
// distance bound, most recently active first.
func (r *ProfileRepo) ListGlobalCandidates(ctx context.Context, q CandidateQuery) ([]CandidateRecord, error) {
	if q.ViewerUserID <= 0 {
		return nil, fmt.Errorf("invalid viewer id")
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}
	if r.pool == nil {
		return []CandidateRecord{}, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT`+candidateColumns+`,
	NULL::float8 AS distance_km,
	p.last_active_at
FROM profiles p
WHERE`+candidateBasePredicates+`
	AND p.is_globally_discoverable = TRUE
ORDER BY p.last_active_at DESC, p.user_id DESC
LIMIT $7
`,
		q.ViewerUserID, // $1
		q.Now.UTC(),    // $2
		q.InterestedIn, // $3
		q.ViewerGender, // $4
		q.AgeMin,       // $5
		q.AgeMax,       // $6
		q.Limit,        // $7
	)
	if err != nil {
		return nil, fmt.Errorf("list global candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows, q.Limit, false)
}

func scanCandidates(rows pgx.Rows, limit int, withDistance bool) ([]CandidateRecord, error) {
	items := make([]CandidateRecord, 0, limit)
	for rows.Next() {
		var item CandidateRecord
		if err := rows.Scan(
			&item.UserID,
			&item.DisplayName,
			&item.Age,
			&item.Heritage,
			&item.Religion,
			&item.Languages,
			&item.HeightCM,
			&item.Education,
			&item.Children,
			&item.FamilyPlans,
			&item.Drugs,
			&item.Smoking,
			&item.Marijuana,
			&item.Drinking,
			&item.PrimaryPhoto,
			&item.DistanceKM,
			&item.LastActiveAt,
		); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if !withDistance {
			item.DistanceKM = nil
		}
		items = append(items, item)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate candidates: %w", rows.Err())
	}

	return items, nil
}
