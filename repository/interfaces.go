package repository

import (
	"github.com/talkdigital/courtshoesbackend/analytics"
	"github.com/talkdigital/courtshoesbackend/importer"
	"github.com/talkdigital/courtshoesbackend/models"
)

// MarathonRepositoryInterface defines the methods for marathon data operations
type MarathonRepositoryInterface interface {
	Create(marathon *models.Marathon) error
	GetByID(id uint) (*models.Marathon, error)
	GetByName(name string) (*models.Marathon, error)
	ListAll() ([]models.Marathon, error)
	Update(marathon *models.Marathon) error
	MarkImportProcessing(marathonID uint) error
	SetImportResult(marathonID uint, taskErr error) error
	Delete(id uint) error
}

// DetectionRepositoryInterface defines the raw detection store: batched
// inserts on the import path and the two flat tabular views consumed by the
// aggregator on the read path.
type DetectionRepositoryInterface interface {
	InsertParsedRecords(marathonID uint, records []importer.ImageRecord, batchSize int) (int, error)
	DetailRows(marathonIDs []uint) ([]analytics.DetailRow, error)
	PresenceRows(marathonIDs []uint) ([]analytics.PresenceRow, error)
	ListImagesByMarathon(marathonID uint, sortOrder string) ([]models.Image, error)
}

// MetricRepositoryInterface defines the pre-computed metrics cache: a full
// row replacement per marathon on write, bulk reads joined with the marathon
// name on the report path.
type MetricRepositoryInterface interface {
	Store(marathonID uint, bundle analytics.Bundle) error
	GetByMarathonIDs(marathonIDs []uint) ([]CachedMetric, error)
	DeleteByMarathonID(marathonID uint) error
}

// UserRepositoryInterface defines the methods for user data operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	ListAll() ([]models.User, error)
}

// InviteCodeRepositoryInterface defines the methods for invite code data operations
type InviteCodeRepositoryInterface interface {
	Create(inviteCode *models.InviteCode) error
	GetByCode(code string) (*models.InviteCode, error)
	GetByID(id uint) (*models.InviteCode, error)
	Update(inviteCode *models.InviteCode) error
	IncrementUses(id uint) error
	ListAll() ([]models.InviteCode, error)
	Delete(id uint) error
}
