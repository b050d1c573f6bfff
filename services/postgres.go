package services

import (
	"fmt"
	"os"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ezyba/payment_api/model"
)

// PostgresService persists the payment attempt audit trail. Only payment
// outcomes survive a restart; session and rate-limit state does not.
type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	database string
}

const POSTGRES_SVC = "postgres_svc"

func (ds PostgresService) Id() string {
	return POSTGRES_SVC
}

func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	ds.database = os.Getenv("DATABASE_URL")
	if ds.database == "" {
		host := os.Getenv("DB_HOST")
		if host == "" {
			host = "localhost"
		}
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "payment_api"
		}
		sslmode := os.Getenv("DB_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}

		ds.database = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			host, user, password, dbname, port, sslmode)
	}

	return ds.DefaultService.Configure(ctx)
}

func (ds *PostgresService) Start() (err error) {
	maxRetries := 10
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("Attempting to connect to database (attempt %d/%d)...", attempt, maxRetries)

		ds.db, err = gorm.Open(postgres.Open(ds.database), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})

		if err == nil {
			sqlDB, dbErr := ds.db.DB()
			if dbErr == nil {
				if pingErr := sqlDB.Ping(); pingErr == nil {
					log.Println("Successfully connected to database")
					break
				} else {
					err = pingErr
				}
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
			return err
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	return ds.db.AutoMigrate(&model.PaymentRecord{})
}

func (ds *PostgresService) Shutdown() {
	if ds.db != nil {
		if sqlDB, err := ds.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func (ds *PostgresService) CreatePaymentRecord(record *model.PaymentRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now()
	record.CreatedAt = now
	record.UpdatedAt = now

	return ds.db.Create(record).Error
}

func (ds *PostgresService) UpdatePaymentOutcome(id, outcome, providerID, subscriptionID, failureReason string) error {
	updates := map[string]interface{}{
		"outcome":    outcome,
		"updated_at": time.Now(),
	}
	if providerID != "" {
		updates["provider_id"] = providerID
	}
	if subscriptionID != "" {
		updates["subscription_id"] = subscriptionID
	}
	if failureReason != "" {
		updates["failure_reason"] = failureReason
	}

	return ds.db.Model(&model.PaymentRecord{}).Where("id = ?", id).Updates(updates).Error
}

func (ds *PostgresService) GetPaymentsByEmail(email string, limit int) ([]model.PaymentRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var records []model.PaymentRecord
	err := ds.db.Where("email = ?", email).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error

	return records, err
}
