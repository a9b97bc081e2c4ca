package repositories

import (
	"errors"
	"fmt"
	"strings"

	"reviewflow/internal/models"

	"gorm.io/gorm"
)

var (
	ErrUnknownCollection = errors.New("unknown collection")
	ErrFieldNotQueryable = errors.New("field is not queryable")
	ErrRecordNotFound    = errors.New("record not found")
)

// queryable whitelists the columns FindOneBy may filter on.
var queryable = map[string]map[string]bool{
	"clients": {"id": true, "slug": true, "email": true, "seller_id": true},
	"sellers": {"id": true, "slug": true, "email": true},
	"admins":  {"id": true, "email": true},
}

// Actor is whichever account owns an email.
type Actor struct {
	Role   models.ActorRole
	Admin  *models.Admin
	Seller *models.Seller
	Client *models.Client
}

type LookupRepository interface {
	// FindOneBy loads a single record of collection where field = value into dest.
	FindOneBy(db *gorm.DB, collection, field, value string, dest any) error
	// SlugInUse checks clients and sellers; exceptID skips the record being updated.
	SlugInUse(db *gorm.DB, slug, exceptID string) (bool, error)
	// EmailInUse checks admins, sellers and clients.
	EmailInUse(db *gorm.DB, email, exceptID string) (bool, error)
	// FindActorByEmail searches admins, then sellers, then clients.
	FindActorByEmail(db *gorm.DB, email string) (*Actor, error)
}

type LookupRepositoryImpl struct{}

func NewLookupRepository() LookupRepository {
	return &LookupRepositoryImpl{}
}

func (r *LookupRepositoryImpl) FindOneBy(db *gorm.DB, collection, field, value string, dest any) error {
	fields, ok := queryable[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if !fields[field] {
		return fmt.Errorf("%w: %s.%s", ErrFieldNotQueryable, collection, field)
	}
	if field == "email" {
		value = strings.ToLower(value)
	}

	err := db.Table(collection).Where(field+" = ?", value).Limit(1).Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

func (r *LookupRepositoryImpl) SlugInUse(db *gorm.DB, slug, exceptID string) (bool, error) {
	for _, table := range []string{"clients", "sellers"} {
		taken, err := exists(db, table, "slug", slug, exceptID)
		if err != nil || taken {
			return taken, err
		}
	}
	return false, nil
}

func (r *LookupRepositoryImpl) EmailInUse(db *gorm.DB, email, exceptID string) (bool, error) {
	email = strings.ToLower(email)
	for _, table := range []string{"admins", "sellers", "clients"} {
		taken, err := exists(db, table, "email", email, exceptID)
		if err != nil || taken {
			return taken, err
		}
	}
	return false, nil
}

func (r *LookupRepositoryImpl) FindActorByEmail(db *gorm.DB, email string) (*Actor, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var admin models.Admin
	if err := r.FindOneBy(db, "admins", "email", email, &admin); err == nil {
		return &Actor{Role: models.ActorRoleAdmin, Admin: &admin}, nil
	} else if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	var seller models.Seller
	if err := r.FindOneBy(db, "sellers", "email", email, &seller); err == nil {
		return &Actor{Role: models.ActorRoleSeller, Seller: &seller}, nil
	} else if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	var client models.Client
	if err := r.FindOneBy(db, "clients", "email", email, &client); err == nil {
		return &Actor{Role: models.ActorRoleClient, Client: &client}, nil
	} else if !errors.Is(err, ErrRecordNotFound) {
		return nil, err
	}

	return nil, ErrRecordNotFound
}

func exists(db *gorm.DB, table, field, value, exceptID string) (bool, error) {
	var count int64
	q := db.Table(table).Where(field+" = ?", value)
	if exceptID != "" {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
