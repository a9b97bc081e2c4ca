package repositories

import (
	"errors"

	"reviewflow/internal/models"

	"gorm.io/gorm"
)

var (
	ErrClientNotFound = errors.New("client not found")
	ErrSellerNotFound = errors.New("seller not found")
	ErrAdminNotFound  = errors.New("admin not found")
	ErrDuplicateKey   = errors.New("unique constraint violated")
)

type ClientRepository interface {
	CreateClient(db *gorm.DB, client *models.Client) error
	FindClientByID(db *gorm.DB, id string) (*models.Client, error)
	FindClientBySlug(db *gorm.DB, slug string) (*models.Client, error)
	FindClientsBySeller(db *gorm.DB, sellerID string) ([]models.Client, error)
	UpdateClient(db *gorm.DB, client *models.Client) error
	DeleteClient(db *gorm.DB, id string) error
	DeleteClientsBySeller(db *gorm.DB, sellerID string) error
}

type SellerRepository interface {
	CreateSeller(db *gorm.DB, seller *models.Seller) error
	FindSellerByID(db *gorm.DB, id string) (*models.Seller, error)
	FindSellerBySlug(db *gorm.DB, slug string) (*models.Seller, error)
	FindAllSellers(db *gorm.DB) ([]models.Seller, error)
	UpdateSeller(db *gorm.DB, seller *models.Seller) error
	DeleteSeller(db *gorm.DB, id string) error
}

type AdminRepository interface {
	CreateAdmin(db *gorm.DB, admin *models.Admin) error
	FindAdminByID(db *gorm.DB, id string) (*models.Admin, error)
	CountAdmins(db *gorm.DB) (int64, error)
	UpdateAdmin(db *gorm.DB, admin *models.Admin) error
}

type ClientRepositoryImpl struct{}
type SellerRepositoryImpl struct{}
type AdminRepositoryImpl struct{}

func NewClientRepository() ClientRepository { return &ClientRepositoryImpl{} }
func NewSellerRepository() SellerRepository { return &SellerRepositoryImpl{} }
func NewAdminRepository() AdminRepository   { return &AdminRepositoryImpl{} }

// --- Clients ---

func (r *ClientRepositoryImpl) CreateClient(db *gorm.DB, client *models.Client) error {
	return translate(db.Create(client).Error)
}

func (r *ClientRepositoryImpl) FindClientByID(db *gorm.DB, id string) (*models.Client, error) {
	return first[models.Client](db.Where("id = ?", id), ErrClientNotFound)
}

// FindClientBySlug is an exact, case-sensitive match.
func (r *ClientRepositoryImpl) FindClientBySlug(db *gorm.DB, slug string) (*models.Client, error) {
	return first[models.Client](db.Where("slug = ?", slug), ErrClientNotFound)
}

func (r *ClientRepositoryImpl) FindClientsBySeller(db *gorm.DB, sellerID string) ([]models.Client, error) {
	var clients []models.Client
	err := db.Where("seller_id = ?", sellerID).Order("created_at DESC").Find(&clients).Error
	return clients, err
}

// UpdateClient saves every column; last write wins.
func (r *ClientRepositoryImpl) UpdateClient(db *gorm.DB, client *models.Client) error {
	return translate(db.Save(client).Error)
}

func (r *ClientRepositoryImpl) DeleteClient(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.Client{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (r *ClientRepositoryImpl) DeleteClientsBySeller(db *gorm.DB, sellerID string) error {
	return db.Where("seller_id = ?", sellerID).Delete(&models.Client{}).Error
}

// --- Sellers ---

func (r *SellerRepositoryImpl) CreateSeller(db *gorm.DB, seller *models.Seller) error {
	return translate(db.Create(seller).Error)
}

func (r *SellerRepositoryImpl) FindSellerByID(db *gorm.DB, id string) (*models.Seller, error) {
	return first[models.Seller](db.Where("id = ?", id), ErrSellerNotFound)
}

func (r *SellerRepositoryImpl) FindSellerBySlug(db *gorm.DB, slug string) (*models.Seller, error) {
	return first[models.Seller](db.Where("slug = ?", slug), ErrSellerNotFound)
}

// FindAllSellers preloads clients for the admin list.
func (r *SellerRepositoryImpl) FindAllSellers(db *gorm.DB) ([]models.Seller, error) {
	var sellers []models.Seller
	err := db.Preload("Clients").Order("created_at DESC").Find(&sellers).Error
	return sellers, err
}

func (r *SellerRepositoryImpl) UpdateSeller(db *gorm.DB, seller *models.Seller) error {
	// Omit associations: Save would upsert a loaded Clients slice.
	return translate(db.Omit("Clients").Save(seller).Error)
}

func (r *SellerRepositoryImpl) DeleteSeller(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&models.Seller{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSellerNotFound
	}
	return nil
}

// --- Admins ---

func (r *AdminRepositoryImpl) CreateAdmin(db *gorm.DB, admin *models.Admin) error {
	return translate(db.Create(admin).Error)
}

func (r *AdminRepositoryImpl) FindAdminByID(db *gorm.DB, id string) (*models.Admin, error) {
	return first[models.Admin](db.Where("id = ?", id), ErrAdminNotFound)
}

func (r *AdminRepositoryImpl) CountAdmins(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&models.Admin{}).Count(&count).Error
	return count, err
}

func (r *AdminRepositoryImpl) UpdateAdmin(db *gorm.DB, admin *models.Admin) error {
	return translate(db.Save(admin).Error)
}

func first[T any](q *gorm.DB, notFound error) (*T, error) {
	var out T
	if err := q.First(&out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound
		}
		return nil, err
	}
	return &out, nil
}

// translate maps driver unique violations (TranslateError is on) to ErrDuplicateKey.
func translate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateKey
	}
	return err
}
