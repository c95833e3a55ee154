// Package gormstore is a relational IdentityStore/ProfileStore adapter
// over GORM. The shipped Open helper uses SQLite; any GORM dialect works
// through New.
package gormstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	authcore "github.com/medisync/authcore"
)

type userRecord struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string
	ProviderType string `gorm:"size:32;not null;index:idx_provider_identity"`
	ProviderID   string `gorm:"size:255;index:idx_provider_identity"`
	Roles        string `gorm:"size:255"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRecord) TableName() string { return "users" }

type profileRecord struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	UserID    int64 `gorm:"index"`
	Username  string
	Name      string
	CreatedAt time.Time
}

func (profileRecord) TableName() string { return "patient_profiles" }

// Store adapts a *gorm.DB to the engine's store interfaces.
type Store struct {
	db *gorm.DB
}

// New wraps an already opened GORM handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&userRecord{}, &profileRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Open opens (or creates) a SQLite database at path and wraps it.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return New(db)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*authcore.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toUser(&rec), nil
}

func (s *Store) FindByProviderIdentity(ctx context.Context, providerID string, providerType authcore.ProviderType) (*authcore.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).
		Where("provider_id = ? AND provider_type = ?", providerID, string(providerType)).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toUser(&rec), nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*authcore.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toUser(&rec), nil
}

func (s *Store) Save(ctx context.Context, user *authcore.User) (*authcore.User, error) {
	rec := toRecord(user)
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, err
	}

	out := *user
	out.ID = rec.ID
	return &out, nil
}

func (s *Store) CreatePatientProfile(ctx context.Context, user *authcore.User, name string) error {
	rec := profileRecord{
		UserID:   user.ID,
		Username: user.Username,
		Name:     name,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func toRecord(u *authcore.User) *userRecord {
	return &userRecord{
		ID:           u.ID,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		ProviderType: string(u.ProviderType),
		ProviderID:   u.ProviderID,
		Roles:        strings.Join(roleStrings(u.Roles), ","),
	}
}

func toUser(rec *userRecord) *authcore.User {
	u := &authcore.User{
		ID:           rec.ID,
		Username:     rec.Username,
		PasswordHash: rec.PasswordHash,
		ProviderType: authcore.ProviderType(rec.ProviderType),
		ProviderID:   rec.ProviderID,
		Roles:        authcore.NewRoleSet(),
	}
	if rec.Roles != "" {
		for _, r := range strings.Split(rec.Roles, ",") {
			u.Roles.Add(authcore.RoleType(r))
		}
	}
	return u
}

func roleStrings(roles authcore.RoleSet) []string {
	tags := roles.Slice()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
