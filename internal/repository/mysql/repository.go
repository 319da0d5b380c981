package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BarkinBalci/attribution-relay/internal/domain"
	"github.com/BarkinBalci/attribution-relay/internal/repository"
)

// attributionRow is the attributions table. Nullable columns keep "absent"
// distinct from "empty" so merges can COALESCE.
type attributionRow struct {
	SessionID     string    `gorm:"column:session_id;type:varchar(128);primaryKey"`
	TransactionID *string   `gorm:"column:transaction_id;type:varchar(128);index:idx_attributions_transaction"`
	Source        *string   `gorm:"column:source;type:varchar(255)"`
	Medium        *string   `gorm:"column:medium;type:varchar(255)"`
	Campaign      *string   `gorm:"column:campaign;type:varchar(255)"`
	Term          *string   `gorm:"column:term;type:varchar(255)"`
	Content       *string   `gorm:"column:content;type:varchar(255)"`
	ClickID       *string   `gorm:"column:click_id;type:varchar(512)"`
	BrowserID     *string   `gorm:"column:browser_id;type:varchar(255)"`
	LandingPage   *string   `gorm:"column:landing_page;type:text"`
	Referrer      *string   `gorm:"column:referrer;type:text"`
	Email         *string   `gorm:"column:email;type:varchar(320)"`
	Phone         *string   `gorm:"column:phone;type:varchar(64)"`
	Name          *string   `gorm:"column:name;type:varchar(255)"`
	ClientIP      *string   `gorm:"column:client_ip;type:varchar(64)"`
	UserAgent     *string   `gorm:"column:user_agent;type:text"`
	Fallback      bool      `gorm:"column:fallback;not null;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (attributionRow) TableName() string { return "attributions" }

// mergeColumns are overwritten only by non-NULL incoming values.
var mergeColumns = []string{
	"transaction_id", "source", "medium", "campaign", "term", "content", "click_id", "browser_id",
	"landing_page", "referrer", "email", "phone", "name", "client_ip", "user_agent",
}

// Repository implements AttributionRepository for MySQL
type Repository struct {
	client  *Client
	timeout time.Duration
	log     *zap.Logger
}

// NewRepository creates a new MySQL attribution repository
func NewRepository(client *Client, timeout time.Duration, log *zap.Logger) *Repository {
	return &Repository{
		client:  client,
		timeout: timeout,
		log:     log,
	}
}

// InitSchema creates the attributions table if it does not exist
func (r *Repository) InitSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.client.DB().WithContext(ctx).AutoMigrate(&attributionRow{}); err != nil {
		return fmt.Errorf("failed to migrate attributions table: %w", err)
	}

	r.log.Info("MySQL schema initialized successfully")
	return nil
}

// Put upserts the session in a single statement so concurrent writes for the
// same key cannot lose fields.
func (r *Repository) Put(ctx context.Context, sessionID string, fields domain.AttributionFields) (*domain.AttributionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	row := rowFromFields(sessionID, fields)
	row.CreatedAt = now
	row.UpdatedAt = now

	assignments := map[string]interface{}{"updated_at": now}
	for _, col := range mergeColumns {
		assignments[col] = gorm.Expr(fmt.Sprintf("COALESCE(VALUES(%s), %s)", col, col))
	}

	err := r.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.Assignments(assignments),
		}).
		Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert attribution: %w", err)
	}

	return r.get(ctx, "session_id = ?", sessionID)
}

// PutIfAbsent inserts rec unless the session key exists
func (r *Repository) PutIfAbsent(ctx context.Context, rec *domain.AttributionRecord) (*domain.AttributionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	row := rowFromRecord(rec)
	row.CreatedAt = now
	row.UpdatedAt = now

	err := r.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to insert attribution: %w", err)
	}

	return r.get(ctx, "session_id = ?", rec.SessionID)
}

// Get returns the record for a session
func (r *Repository) Get(ctx context.Context, sessionID string) (*domain.AttributionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.get(ctx, "session_id = ?", sessionID)
}

// GetByTransaction prefers a real session over a synthesized fallback
func (r *Repository) GetByTransaction(ctx context.Context, transactionID string) (*domain.AttributionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	return r.get(ctx, "transaction_id = ?", transactionID)
}

// Ping checks if the MySQL connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// Close closes the MySQL connection
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) get(ctx context.Context, where string, arg string) (*domain.AttributionRecord, error) {
	var row attributionRow
	err := r.client.DB().WithContext(ctx).
		Where(where, arg).
		Order("fallback ASC").
		Order("updated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attribution: %w", err)
	}
	return row.toDomain(), nil
}

func rowFromFields(sessionID string, f domain.AttributionFields) attributionRow {
	return attributionRow{
		SessionID:     sessionID,
		TransactionID: f.TransactionID,
		Source:        f.Source,
		Medium:        f.Medium,
		Campaign:      f.Campaign,
		Term:          f.Term,
		Content:       f.Content,
		ClickID:       f.ClickID,
		BrowserID:     f.BrowserID,
		LandingPage:   f.LandingPage,
		Referrer:      f.Referrer,
		Email:         f.Email,
		Phone:         f.Phone,
		Name:          f.Name,
		ClientIP:      f.ClientIP,
		UserAgent:     f.UserAgent,
	}
}

func rowFromRecord(rec *domain.AttributionRecord) attributionRow {
	row := rowFromFields(rec.SessionID, domain.AttributionFields{
		TransactionID: domain.StringField(rec.TransactionID),
		Source:        domain.StringField(rec.Source),
		Medium:        domain.StringField(rec.Medium),
		Campaign:      domain.StringField(rec.Campaign),
		Term:          domain.StringField(rec.Term),
		Content:       domain.StringField(rec.Content),
		ClickID:       domain.StringField(rec.ClickID),
		BrowserID:     domain.StringField(rec.BrowserID),
		LandingPage:   domain.StringField(rec.LandingPage),
		Referrer:      domain.StringField(rec.Referrer),
		Email:         domain.StringField(rec.Email),
		Phone:         domain.StringField(rec.Phone),
		Name:          domain.StringField(rec.Name),
		ClientIP:      domain.StringField(rec.ClientIP),
		UserAgent:     domain.StringField(rec.UserAgent),
	})
	row.Fallback = rec.Fallback
	return row
}

func (row attributionRow) toDomain() *domain.AttributionRecord {
	rec := &domain.AttributionRecord{
		SessionID: row.SessionID,
		Fallback:  row.Fallback,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	domain.AttributionFields{
		TransactionID: row.TransactionID,
		Source:        row.Source,
		Medium:        row.Medium,
		Campaign:      row.Campaign,
		Term:          row.Term,
		Content:       row.Content,
		ClickID:       row.ClickID,
		BrowserID:     row.BrowserID,
		LandingPage:   row.LandingPage,
		Referrer:      row.Referrer,
		Email:         row.Email,
		Phone:         row.Phone,
		Name:          row.Name,
		ClientIP:      row.ClientIP,
		UserAgent:     row.UserAgent,
	}.Apply(rec)
	return rec
}
