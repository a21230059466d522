package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/stockpilot/stockpilot-go/internal/model"
)

var (
	ErrProfileNotFound   = errors.New("profile not found")
	ErrDuplicateUsername = errors.New("username already exists")
)

const profileColumns = `id, user_id, username, avatar_url, address, country, phone_number`

// ProfileRepository handles advanced user profile persistence.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID retrieves the profile owned by userID.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID int64) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE user_id = ?`
	return scanProfile(r.db.QueryRowContext(ctx, query, userID))
}

// UsernameTaken reports whether username belongs to a user other than userID.
func (r *ProfileRepository) UsernameTaken(ctx context.Context, username string, userID int64) (bool, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_profiles WHERE username = ? AND user_id <> ?)`,
		username, userID,
	).Scan(&taken)
	return taken, err
}

// ApplyPatch creates the profile if it does not exist yet and then updates
// only the supplied fields, all in one transaction.
func (r *ProfileRepository) ApplyPatch(ctx context.Context, userID int64, patch model.ProfilePatch) (*model.Profile, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT IGNORE INTO user_profiles (user_id) VALUES (?)`, userID); err != nil {
		return nil, err
	}

	sets, args := profileAssignments(patch)
	if len(sets) > 0 {
		query := `UPDATE user_profiles SET ` + strings.Join(sets, ", ") + ` WHERE user_id = ?`
		if _, err := tx.ExecContext(ctx, query, append(args, userID)...); err != nil {
			if isDuplicateEntryError(err) {
				return nil, ErrDuplicateUsername
			}
			return nil, err
		}
	}

	profile, err := scanProfile(tx.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM user_profiles WHERE user_id = ?`, userID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return profile, nil
}

func profileAssignments(p model.ProfilePatch) ([]string, []any) {
	var sets []string
	var args []any
	if p.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, nullString(*p.Username))
	}
	if p.AvatarURL != nil {
		sets = append(sets, "avatar_url = ?")
		args = append(args, nullString(*p.AvatarURL))
	}
	if p.Address != nil {
		sets = append(sets, "address = ?")
		args = append(args, nullString(*p.Address))
	}
	if p.Country != nil {
		sets = append(sets, "country = ?")
		args = append(args, nullString(*p.Country))
	}
	if p.PhoneNumber != nil {
		sets = append(sets, "phone_number = ?")
		args = append(args, nullString(*p.PhoneNumber))
	}
	return sets, args
}

func scanProfile(row *sql.Row) (*model.Profile, error) {
	p := &model.Profile{}
	var username, avatar, address, country, phone sql.NullString
	if err := row.Scan(&p.ID, &p.UserID, &username, &avatar, &address, &country, &phone); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	p.Username = stringPtr(username)
	p.AvatarURL = stringPtr(avatar)
	p.Address = stringPtr(address)
	p.Country = stringPtr(country)
	p.PhoneNumber = stringPtr(phone)
	return p, nil
}

// nullString stores blank strings as NULL.
func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
